// Package server is the live preview server: one-shot renders over HTTP and
// interactive overlay sessions over websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/logging"
	"palm-overlay-renderer/internal/overlay"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/photo"
	"palm-overlay-renderer/internal/raster"
	"palm-overlay-renderer/internal/reveal"
	"palm-overlay-renderer/internal/svgout"
)

// Config configures the server and the sessions it hosts.
type Config struct {
	Addr         string
	Width        int
	Height       int
	Variant      palm.Variant
	Locale       palm.Locale
	Display      compositor.Options
	Format       raster.Format
	FPS          int
	LineDuration time.Duration
	RevealDelay  time.Duration
	Renderer     *raster.Renderer
	Photos       photo.Source
	Clock        reveal.TimeProvider
	Logger       *zap.Logger

	MDNS        bool
	ServiceName string
	Instance    string
}

// Server serves /render, /ws and /healthz.
type Server struct {
	cfg      Config
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

// New returns a server with defaults filled in.
func New(cfg Config) *Server {
	if cfg.Width <= 0 {
		cfg.Width = 400
	}
	if cfg.Height <= 0 {
		cfg.Height = 500
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	if cfg.Format == "" {
		cfg.Format = raster.PNG
	}
	if cfg.Renderer == nil {
		cfg.Renderer = raster.NewRenderer(nil, 1)
	}
	if cfg.Photos == nil {
		cfg.Photos = photo.NewCache(photo.RemoteOnly(photo.NewLoader(0)))
	}
	if cfg.Clock == nil {
		cfg.Clock = reveal.SystemClock{}
	}
	cfg.Logger = logging.OrNop(cfg.Logger)
	if cfg.Display == (compositor.Options{}) {
		cfg.Display = compositor.DefaultOptions()
	}
	return &Server{
		cfg: cfg,
		log: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 64 << 10,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/render", s.handleRender)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run serves until ctx is cancelled, advertising over mDNS when enabled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if s.cfg.MDNS {
		port := ln.Addr().(*net.TCPAddr).Port
		ann, err := Announce(s.cfg.Instance, s.cfg.ServiceName, port)
		if err != nil {
			s.log.Warn("mdns announce failed", zap.Error(err))
		} else {
			defer ann.Shutdown()
			s.log.Info("mdns announced", zap.String("service", s.cfg.ServiceName), zap.Int("port", port))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("preview server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
}

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	Photo    string              `json:"photo,omitempty"`
	Analysis *palm.Analysis      `json:"analysis,omitempty"`
	Display  *compositor.Options `json:"display,omitempty"`
	Width    int                 `json:"width,omitempty"`
	Height   int                 `json:"height,omitempty"`
	Format   string              `json:"format,omitempty"`
	Variant  string              `json:"variant,omitempty"`
	Locale   string              `json:"locale,omitempty"`
	Hidden   []palm.LineID       `json:"hidden,omitempty"`
	Hover    palm.LineID         `json:"hover,omitempty"`
}

const maxRenderSide = 4096

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req RenderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body: "+err.Error())
		return
	}
	format := s.cfg.Format
	if req.Format != "" {
		f, err := raster.ParseFormat(req.Format)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}
	width, height := s.cfg.Width, s.cfg.Height
	if req.Width > 0 {
		width = req.Width
	}
	if req.Height > 0 {
		height = req.Height
	}
	if width > maxRenderSide || height > maxRenderSide {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("canvas larger than %d", maxRenderSide))
		return
	}

	display := s.cfg.Display
	if req.Display != nil {
		display = *req.Display
	}
	variant, locale := s.cfg.Variant, s.cfg.Locale
	if req.Variant != "" {
		variant = palm.ParseVariant(req.Variant)
	}
	if req.Locale != "" {
		locale = palm.ParseLocale(req.Locale)
	}

	ctrl := overlay.New(overlay.Config{
		Variant: variant,
		Locale:  locale,
		Width:   width,
		Height:  height,
		Display: &display,
		Photos:  s.cfg.Photos,
		Logger:  s.log,
	})
	defer ctrl.Close()
	if req.Analysis != nil {
		ctrl.ApplyAnalysis(*req.Analysis)
	}
	ctrl.FinishReveal()
	for _, id := range req.Hidden {
		ctrl.SetVisible(id, false)
	}
	ctrl.Hover(req.Hover)
	if req.Photo != "" {
		if err := ctrl.LoadPhoto(r.Context(), req.Photo); err != nil {
			w.Header().Set("X-Photo-Fallback", "placeholder")
		}
	}

	w.Header().Set("Content-Type", format.ContentType())
	sc := ctrl.Scene()
	var err error
	if format == raster.SVG {
		err = svgout.Render(w, sc, width, height, s.cfg.Renderer.Fonts)
	} else {
		err = raster.Encode(w, s.cfg.Renderer.Render(sc, width, height), format)
	}
	if err != nil {
		s.log.Warn("render response failed", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	sess := s.newSession(conn)
	s.track(sess, true)
	defer s.track(sess, false)
	sess.run(r.Context())
}

func (s *Server) track(sess *session, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.sessions[sess.id] = sess
	} else {
		delete(s.sessions, sess.id)
	}
}

// Sessions returns the number of open websocket sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
