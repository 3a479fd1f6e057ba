// Package photo loads palm photographs from files, http(s) URLs and data
// URIs.
package photo

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"palm-overlay-renderer/internal/postprocess"
)

// ErrUnsupportedSource is returned for URL schemes other than file, http,
// https and data, and by RemoteOnly for local files.
var ErrUnsupportedSource = errors.New("photo: unsupported source")

// MaxBytes caps how much of a remote photo is read.
const MaxBytes = 32 << 20

// Loader fetches and decodes photos.
type Loader struct {
	Client *http.Client
}

// NewLoader returns a loader whose http client times out after timeout.
func NewLoader(timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Loader{Client: &http.Client{Timeout: timeout}}
}

// Load reads src and decodes it to NRGBA.
func (l *Loader) Load(ctx context.Context, src string) (*image.NRGBA, error) {
	raw, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	img, err := decode(src, raw)
	if err != nil {
		return nil, fmt.Errorf("photo: decode %s: %w", shorten(src), err)
	}
	return postprocess.ToNRGBA(img), nil
}

// decoders are tried by magic number. TGA has none and its package
// registers an empty magic with the image package that matches every input,
// so image.Decode is never used here.
var decoders = []struct {
	magic  string
	decode func(io.Reader) (image.Image, error)
}{
	{"\x89PNG\r\n\x1a\n", png.Decode},
	{"\xff\xd8", jpeg.Decode},
	{"GIF8", func(r io.Reader) (image.Image, error) { return gif.Decode(r) }},
	{"BM", bmp.Decode},
	{"II*\x00", tiff.Decode},
	{"MM\x00*", tiff.Decode},
	{"RIFF????WEBP", webp.Decode},
}

func decode(src string, raw []byte) (image.Image, error) {
	if !isTGA(src) {
		for _, d := range decoders {
			if matchMagic(d.magic, raw) {
				return d.decode(bytes.NewReader(raw))
			}
		}
	}
	img, err := tga.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", image.ErrFormat, err)
	}
	return img, nil
}

// matchMagic reports whether b starts with magic; '?' matches any byte.
func matchMagic(magic string, b []byte) bool {
	if len(b) < len(magic) {
		return false
	}
	for i := 0; i < len(magic); i++ {
		if magic[i] != '?' && magic[i] != b[i] {
			return false
		}
	}
	return true
}

func isTGA(src string) bool {
	if strings.HasPrefix(src, "data:") {
		meta, _, _ := strings.Cut(src[len("data:"):], ",")
		return strings.Contains(strings.ToLower(meta), "tga")
	}
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		src = u.Path
	}
	return strings.EqualFold(filepath.Ext(src), ".tga")
}

func (l *Loader) read(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("photo: parse %s: %w", src, err)
		}
		return readFile(u.Path)
	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, shorten(src))
	default:
		return readFile(src)
	}
}

func readFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("photo: read %s: %w", path, err)
	}
	return raw, nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("photo: request %s: %w", src, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photo: fetch %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("photo: fetch %s: status %s", src, resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("photo: read body %s: %w", src, err)
	}
	return raw, nil
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func decodeDataURI(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("photo: malformed data uri")
	}
	meta, payload := src[len("data:"):comma], src[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("photo: data uri: %w", err)
		}
		return raw, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("photo: data uri: %w", err)
	}
	return []byte(s), nil
}

// shorten keeps data URIs out of error messages.
func shorten(src string) string {
	if len(src) > 64 {
		return src[:61] + "..."
	}
	return src
}

type remoteOnly struct {
	src Source
}

// RemoteOnly wraps src so that only http(s) URLs and data URIs are loaded.
// Anything else, including bare paths and file:// URLs, is rejected with
// ErrUnsupportedSource.
func RemoteOnly(src Source) Source {
	return remoteOnly{src: src}
}

func (r remoteOnly) Load(ctx context.Context, src string) (*image.NRGBA, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") && !strings.HasPrefix(src, "data:") {
		return nil, fmt.Errorf("%w: only http(s) and data URIs are accepted", ErrUnsupportedSource)
	}
	return r.src.Load(ctx, src)
}
