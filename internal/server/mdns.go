package server

import (
	"fmt"

	"github.com/hashicorp/mdns"
)

// DefaultService is the mDNS service type of the preview server.
const DefaultService = "_palmoverlay._tcp"

// Announce advertises the preview server on the local network. Call
// Shutdown on the result to withdraw it.
func Announce(instance, service string, port int) (*mdns.Server, error) {
	if service == "" {
		service = DefaultService
	}
	info := []string{"palm overlay preview", "path=/ws"}
	zone, err := mdns.NewMDNSService(instance, service, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("server: mdns service: %w", err)
	}
	srv, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return nil, fmt.Errorf("server: mdns server: %w", err)
	}
	return srv, nil
}
