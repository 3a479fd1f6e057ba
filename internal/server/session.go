package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/overlay"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/raster"
	"palm-overlay-renderer/internal/svgout"
)

// Command is a client message on the websocket.
type Command struct {
	Type     string          `json:"type"`
	Line     palm.LineID     `json:"line,omitempty"`
	Value    *bool           `json:"value,omitempty"`
	Number   float64         `json:"number,omitempty"`
	X        float64         `json:"x,omitempty"`
	Y        float64         `json:"y,omitempty"`
	Width    int             `json:"width,omitempty"`
	Height   int             `json:"height,omitempty"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
	Photo    string          `json:"photo,omitempty"`
}

// Frame precedes every binary image message and describes it.
type Frame struct {
	Type      string             `json:"type"`
	Session   string             `json:"session"`
	Revision  uint64             `json:"revision"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Format    string             `json:"format"`
	Phase     string             `json:"phase"`
	Animating bool               `json:"animating"`
	Hovered   palm.LineID        `json:"hovered,omitempty"`
	Display   compositor.Options `json:"display"`
	Lines     []LineInfo         `json:"lines"`
}

// LineInfo is the per-line state reported with each frame.
type LineInfo struct {
	ID         palm.LineID `json:"id"`
	Visible    bool        `json:"visible"`
	Progress   float64     `json:"progress"`
	Depth      string      `json:"depth"`
	Confidence float64     `json:"confidence"`
}

// Message is a non-frame server message: hello, ack or error.
type Message struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error,omitempty"`
}

const (
	writeWait    = 5 * time.Second
	maxCmdBytes  = 8 << 20
	photoTimeout = 20 * time.Second
)

// session owns one controller. Only run's goroutine touches it; a reader
// goroutine forwards decoded commands over a channel.
type session struct {
	id     string
	srv    *Server
	conn   *websocket.Conn
	ctrl   *overlay.Controller
	log    *zap.Logger
	sentAt uint64
	sent   bool
}

func (s *Server) newSession(conn *websocket.Conn) *session {
	id := uuid.NewString()
	display := s.cfg.Display
	return &session{
		id:   id,
		srv:  s,
		conn: conn,
		log:  s.log.With(zap.String("session", id)),
		ctrl: overlay.New(overlay.Config{
			Variant:      s.cfg.Variant,
			Locale:       s.cfg.Locale,
			Width:        s.cfg.Width,
			Height:       s.cfg.Height,
			Display:      &display,
			LineDuration: s.cfg.LineDuration,
			RevealDelay:  s.cfg.RevealDelay,
			Clock:        s.cfg.Clock,
			Photos:       s.cfg.Photos,
			Logger:       s.log,
		}),
	}
}

func (ss *session) run(ctx context.Context) {
	ss.log.Info("session opened")
	defer ss.log.Info("session closed")
	defer ss.ctrl.Close()

	ss.conn.SetReadLimit(maxCmdBytes)
	cmds := make(chan Command)
	quit := make(chan struct{})
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer close(cmds)
		for {
			var cmd Command
			if err := ss.conn.ReadJSON(&cmd); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					ss.log.Debug("read ended", zap.Error(err))
				}
				return
			}
			select {
			case cmds <- cmd:
			case <-quit:
				return
			}
		}
	}()
	defer func() {
		close(quit)
		ss.conn.Close()
		<-readDone
	}()

	if err := ss.send(Message{Type: "hello", Session: ss.id}); err != nil {
		return
	}
	if err := ss.flush(); err != nil {
		return
	}

	ticker := time.NewTicker(time.Second / time.Duration(ss.srv.cfg.FPS))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = ss.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
				time.Now().Add(writeWait))
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			if err := ss.apply(ctx, cmd); err != nil {
				if err := ss.send(Message{Type: "error", Command: cmd.Type, Error: err.Error()}); err != nil {
					return
				}
				continue
			}
			if err := ss.flush(); err != nil {
				return
			}
		case <-ticker.C:
			ss.ctrl.Tick()
			if err := ss.flush(); err != nil {
				return
			}
		}
	}
}

func (ss *session) apply(ctx context.Context, cmd Command) error {
	c := ss.ctrl
	switch cmd.Type {
	case "toggle":
		if !c.ToggleLine(cmd.Line) {
			return fmt.Errorf("unknown line %q", cmd.Line)
		}
	case "visible":
		if cmd.Value == nil {
			return fmt.Errorf("visible needs a value")
		}
		if !c.SetVisible(cmd.Line, *cmd.Value) {
			return fmt.Errorf("unknown line %q", cmd.Line)
		}
	case "opacity":
		c.SetOpacity(cmd.Number)
	case "zoom":
		c.SetZoom(cmd.Number)
	case "zoom_in":
		c.ZoomIn()
	case "zoom_out":
		c.ZoomOut()
	case "labels", "depth", "confidence", "mounts":
		if cmd.Value == nil {
			return fmt.Errorf("%s needs a value", cmd.Type)
		}
		ss.setToggle(cmd.Type, *cmd.Value)
	case "hover":
		c.Hover(cmd.Line)
	case "hover_at":
		c.HoverAt(cmd.X, cmd.Y)
	case "resize":
		if cmd.Width <= 0 || cmd.Height <= 0 || cmd.Width > maxRenderSide || cmd.Height > maxRenderSide {
			return fmt.Errorf("bad size %dx%d", cmd.Width, cmd.Height)
		}
		c.Resize(cmd.Width, cmd.Height)
	case "analysis":
		a, err := palm.ParseAnalysis(cmd.Analysis)
		if err != nil {
			return err
		}
		c.ApplyAnalysis(a)
	case "photo":
		pctx, cancel := context.WithTimeout(ctx, photoTimeout)
		defer cancel()
		if err := c.LoadPhoto(pctx, cmd.Photo); err != nil {
			ss.log.Warn("photo fallback", zap.Error(err))
		}
	case "reset":
		c.Reset()
	case "replay":
		c.Replay()
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

func (ss *session) setToggle(name string, v bool) {
	switch name {
	case "labels":
		ss.ctrl.SetShowLabels(v)
	case "depth":
		ss.ctrl.SetShowDepth(v)
	case "confidence":
		ss.ctrl.SetShowConfidence(v)
	case "mounts":
		ss.ctrl.SetShowMounts(v)
	}
}

// flush sends a frame when the controller changed since the last one.
func (ss *session) flush() error {
	rev := ss.ctrl.Revision()
	if ss.sent && rev == ss.sentAt {
		return nil
	}
	frame, img, err := ss.render()
	if err != nil {
		return err
	}
	if err := ss.send(frame); err != nil {
		return err
	}
	ss.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ss.conn.WriteMessage(websocket.BinaryMessage, img); err != nil {
		return fmt.Errorf("server: write frame: %w", err)
	}
	ss.sent, ss.sentAt = true, rev
	return nil
}

func (ss *session) render() (Frame, []byte, error) {
	c := ss.ctrl
	cfg := ss.srv.cfg
	sc := c.Scene()
	w, h := c.Size()

	var buf bytes.Buffer
	var err error
	if cfg.Format == raster.SVG {
		err = svgout.Render(&buf, sc, w, h, cfg.Renderer.Fonts)
	} else {
		err = raster.Encode(&buf, cfg.Renderer.Render(sc, w, h), cfg.Format)
	}
	if err != nil {
		return Frame{}, nil, err
	}

	f := Frame{
		Type:      "frame",
		Session:   ss.id,
		Revision:  c.Revision(),
		Width:     w,
		Height:    h,
		Format:    string(cfg.Format),
		Phase:     c.RevealState().Phase.String(),
		Animating: sc.Animating,
		Hovered:   sc.Hovered,
		Display:   sc.Options,
	}
	for _, ls := range sc.Lines {
		f.Lines = append(f.Lines, LineInfo{
			ID:         ls.Line.ID,
			Visible:    ls.Line.Visible,
			Progress:   ls.Progress,
			Depth:      ls.Line.Depth.String(),
			Confidence: ls.Line.Confidence,
		})
	}
	return f, buf.Bytes(), nil
}

func (ss *session) send(v any) error {
	ss.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := ss.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("server: write: %w", err)
	}
	return nil
}
