package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/photo"
	"palm-overlay-renderer/internal/server"
)

var serveMDNS bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live preview server",
	Long: `Serves the overlay over HTTP:

  POST /render   JSON scene in, encoded image out
  GET  /ws       interactive session; commands in, frames out
  GET  /healthz  liveness and session count

Photos in requests must be http(s) URLs or data URIs; local paths are
refused. With --mdns the server advertises itself on the local network.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&flags.Addr, "addr", "", "Listen address (default :8080)")
	f.BoolVar(&serveMDNS, "mdns", false, "Advertise the server over mDNS")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := newRenderer()
	if err != nil {
		return err
	}
	format, err := outputFormat()
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr,
		Width:        cfg.Render.Width,
		Height:       cfg.Render.Height,
		Variant:      palm.Variant(cfg.Render.Variant),
		Locale:       palm.Locale(cfg.Render.Locale),
		Display:      cfg.Display.Options(),
		Format:       format,
		FPS:          cfg.Reveal.FPS,
		LineDuration: cfg.Reveal.LineDuration.Std(),
		RevealDelay:  cfg.Reveal.StartDelay.Std(),
		Renderer:     r,
		Photos:       photo.NewCache(photo.RemoteOnly(photo.NewLoader(cfg.Render.PhotoTimeout.Std()))),
		Logger:       logger,
		MDNS:         serveMDNS || cfg.Server.MDNS,
		ServiceName:  cfg.Server.ServiceName,
		Instance:     cfg.Server.Instance,
	})
	return srv.Run(ctx)
}
