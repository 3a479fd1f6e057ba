// Package overlay owns the state of one palm overlay: the line set, display
// options, hover, photo and the reveal animation. A Controller is driven by
// a single goroutine; hosts call Tick to deliver frames and read Scene to
// composite.
package overlay

import (
	"context"
	"image"
	"math"
	"time"

	"go.uber.org/zap"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/geometry"
	"palm-overlay-renderer/internal/logging"
	"palm-overlay-renderer/internal/mathutil"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/photo"
	"palm-overlay-renderer/internal/reveal"
)

// Zoom steps used by ZoomIn and ZoomOut.
const (
	ZoomStep    = 0.25
	StepZoomMin = 1.0
	StepZoomMax = 2.0
)

// DefaultRevealDelay is the pause between a new analysis and the start of
// its reveal.
const DefaultRevealDelay = 300 * time.Millisecond

// hoverTolerance is the hit radius at the 400px reference size.
const hoverTolerance = 12.0

// Config configures a Controller. Zero values pick defaults.
type Config struct {
	Variant      palm.Variant
	Locale       palm.Locale
	Width        int
	Height       int
	Display      *compositor.Options
	LineDuration time.Duration
	RevealDelay  time.Duration
	Clock        reveal.TimeProvider
	Photos       photo.Source
	Logger       *zap.Logger
}

// Controller is the overlay state machine. It is not safe for concurrent
// use.
type Controller struct {
	lines   []palm.PalmLine
	mounts  []palm.Mount
	display compositor.Options
	hovered palm.LineID
	width   int
	height  int

	photo       image.Image
	imageLoaded bool

	loop        *reveal.FrameLoop
	anim        *reveal.Animator
	delay       time.Duration
	startCancel reveal.CancelFunc
	startAt     time.Time

	analysisKey string
	hasAnalysis bool
	revision    uint64

	clock  reveal.TimeProvider
	photos photo.Source
	log    *zap.Logger
}

// New builds a controller with a fresh default line set.
func New(cfg Config) *Controller {
	if cfg.Width <= 0 {
		cfg.Width = 400
	}
	if cfg.Height <= 0 {
		cfg.Height = 500
	}
	if cfg.RevealDelay < 0 {
		cfg.RevealDelay = 0
	} else if cfg.RevealDelay == 0 {
		cfg.RevealDelay = DefaultRevealDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = reveal.SystemClock{}
	}
	if cfg.Photos == nil {
		cfg.Photos = photo.NewLoader(0)
	}
	cfg.Logger = logging.OrNop(cfg.Logger)
	display := compositor.DefaultOptions()
	if cfg.Display != nil {
		display = cfg.Display.Clamped()
	}

	c := &Controller{
		lines:   palm.DefaultLines(cfg.Variant, cfg.Locale),
		mounts:  palm.DefaultMounts(),
		display: display,
		width:   cfg.Width,
		height:  cfg.Height,
		loop:    reveal.NewFrameLoop(),
		delay:   cfg.RevealDelay,
		clock:   cfg.Clock,
		photos:  cfg.Photos,
		log:     cfg.Logger,
	}
	c.anim = reveal.New(c.loop, cfg.LineDuration)
	c.anim.OnChange(c.bump)
	// Nothing is animating before an analysis arrives: show every line.
	c.anim.Finish()
	return c
}

func (c *Controller) bump() { c.revision++ }

// Revision increases on every state change.
func (c *Controller) Revision() uint64 { return c.revision }

// Tick delivers one frame at the clock's current time and reports whether
// anything ran.
func (c *Controller) Tick() bool {
	return c.loop.Tick(c.clock.Now()) > 0
}

// Pending reports whether a frame is wanted.
func (c *Controller) Pending() bool { return c.loop.Pending() }

// ApplyAnalysis replaces the line set from a. The reveal starts after the
// configured delay. A payload with the same key as the current one changes
// nothing and returns false.
func (c *Controller) ApplyAnalysis(a palm.Analysis) bool {
	key := a.Key()
	if c.hasAnalysis && key == c.analysisKey {
		return false
	}
	c.analysisKey = key
	c.hasAnalysis = true
	c.lines, c.mounts = palm.Apply(c.lines, c.mounts, a)
	c.log.Info("analysis applied", zap.String("key", key), zap.Int("lines", len(a.Lines)))
	c.scheduleStart()
	return true
}

func (c *Controller) scheduleStart() {
	c.cancelStart()
	c.anim.Cancel()
	c.startAt = c.clock.Now().Add(c.delay)
	var wait reveal.FrameFunc
	wait = func(now time.Time) {
		if now.Before(c.startAt) {
			c.startCancel = c.loop.RequestFrame(wait)
			return
		}
		c.startCancel = nil
		c.anim.Start()
	}
	c.startCancel = c.loop.RequestFrame(wait)
	c.bump()
}

func (c *Controller) cancelStart() {
	if c.startCancel != nil {
		c.startCancel()
		c.startCancel = nil
	}
}

// HasAnalysis reports whether an analysis was ever applied.
func (c *Controller) HasAnalysis() bool { return c.hasAnalysis }

// Animating reports whether a reveal is waiting to start or running.
func (c *Controller) Animating() bool {
	return c.startCancel != nil || c.anim.Running()
}

// RevealState returns the animator state.
func (c *Controller) RevealState() reveal.State { return c.anim.State() }

// Replay restarts the reveal of the current analysis. It does nothing
// without an analysis or while a reveal is already under way.
func (c *Controller) Replay() bool {
	if !c.hasAnalysis || c.Animating() {
		return false
	}
	return c.anim.Start()
}

// Reset restores the display defaults, shows every line and finishes any
// reveal in place.
func (c *Controller) Reset() {
	c.cancelStart()
	c.display = compositor.DefaultOptions()
	c.hovered = ""
	for i := range c.lines {
		c.lines[i].Visible = true
	}
	c.anim.Finish()
	c.bump()
}

// FinishReveal skips any pending or running reveal, leaving every line
// fully drawn. Display options are untouched.
func (c *Controller) FinishReveal() {
	c.cancelStart()
	c.anim.Finish()
}

// Close drops any pending frame.
func (c *Controller) Close() {
	c.cancelStart()
	c.anim.Cancel()
}

// Lines returns a copy of the line set.
func (c *Controller) Lines() []palm.PalmLine {
	out := make([]palm.PalmLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Mounts returns a copy of the mounts.
func (c *Controller) Mounts() []palm.Mount {
	out := make([]palm.Mount, len(c.mounts))
	copy(out, c.mounts)
	return out
}

// Display returns the display options.
func (c *Controller) Display() compositor.Options { return c.display }

// SetVisible shows or hides a line. Unknown ids return false.
func (c *Controller) SetVisible(id palm.LineID, v bool) bool {
	i := palm.Find(c.lines, id)
	if i < 0 {
		return false
	}
	if c.lines[i].Visible != v {
		c.lines[i].Visible = v
		c.bump()
	}
	return true
}

// ToggleLine flips a line's visibility.
func (c *Controller) ToggleLine(id palm.LineID) bool {
	i := palm.Find(c.lines, id)
	if i < 0 {
		return false
	}
	return c.SetVisible(id, !c.lines[i].Visible)
}

func (c *Controller) setFlag(p *bool, v bool) {
	if *p != v {
		*p = v
		c.bump()
	}
}

func (c *Controller) SetShowLabels(v bool)     { c.setFlag(&c.display.ShowLabels, v) }
func (c *Controller) SetShowDepth(v bool)      { c.setFlag(&c.display.ShowDepth, v) }
func (c *Controller) SetShowConfidence(v bool) { c.setFlag(&c.display.ShowConfidence, v) }
func (c *Controller) SetShowMounts(v bool)     { c.setFlag(&c.display.ShowMounts, v) }

// SetOpacity sets the overlay opacity, clamped to [0.2, 1].
func (c *Controller) SetOpacity(v float64) {
	c.setDisplay(func(o *compositor.Options) { o.Opacity = v })
}

// SetZoom sets the zoom, clamped to [0.5, 2].
func (c *Controller) SetZoom(v float64) {
	c.setDisplay(func(o *compositor.Options) { o.Zoom = v })
}

// ZoomIn steps the zoom up by 0.25, up to 2.
func (c *Controller) ZoomIn() {
	c.setDisplay(func(o *compositor.Options) {
		if o.Zoom < StepZoomMax {
			o.Zoom = math.Min(StepZoomMax, o.Zoom+ZoomStep)
		}
	})
}

// ZoomOut steps the zoom down by 0.25, not below 1.
func (c *Controller) ZoomOut() {
	c.setDisplay(func(o *compositor.Options) {
		if o.Zoom > StepZoomMin {
			o.Zoom = math.Max(StepZoomMin, o.Zoom-ZoomStep)
		}
	})
}

func (c *Controller) setDisplay(fn func(*compositor.Options)) {
	next := c.display
	fn(&next)
	next = next.Clamped()
	if next != c.display {
		c.display = next
		c.bump()
	}
}

// Hover marks a line as hovered; an empty id clears it.
func (c *Controller) Hover(id palm.LineID) {
	if c.hovered != id {
		c.hovered = id
		c.bump()
	}
}

// Hovered returns the hovered line id.
func (c *Controller) Hovered() palm.LineID { return c.hovered }

// HoverAt hovers the visible line drawn nearest to canvas point (x, y),
// if any lies within the hit tolerance, and returns it.
func (c *Controller) HoverAt(x, y float64) palm.LineID {
	id := c.hitTest(x, y)
	c.Hover(id)
	return id
}

func (c *Controller) hitTest(x, y float64) palm.LineID {
	w, h := float64(c.width), float64(c.height)
	// undo the zoom about the centre
	z := c.display.Zoom
	pt := mathutil.Vec2{X: (x-w/2)/z + w/2, Y: (y-h/2)/z + h/2}
	tol := hoverTolerance * math.Min(w, h) / 400 / z

	best, bestD := palm.LineID(""), math.Inf(1)
	animating := c.Animating()
	for _, ls := range c.lineStates() {
		if !ls.Line.Visible {
			continue
		}
		path := compositor.LinePath(ls, animating, w, h)
		if d := geometry.Distance(path, pt); d <= tol && d < bestD {
			best, bestD = ls.Line.ID, d
		}
	}
	return best
}

// Resize changes the canvas size.
func (c *Controller) Resize(w, h int) {
	if w <= 0 || h <= 0 || (w == c.width && h == c.height) {
		return
	}
	c.width, c.height = w, h
	c.bump()
}

// Size returns the canvas size.
func (c *Controller) Size() (int, int) { return c.width, c.height }

// LoadPhoto loads the background photo. Failures fall back to the
// placeholder; the overlay keeps working and ImageLoaded becomes true
// either way. The error is returned for the caller to report.
func (c *Controller) LoadPhoto(ctx context.Context, src string) error {
	img, err := c.photos.Load(ctx, src)
	if err != nil {
		c.log.Warn("photo unavailable, using placeholder", zap.Error(err))
		c.SetPhoto(nil)
		return err
	}
	c.SetPhoto(img)
	return nil
}

// SetPhoto sets the background; nil, including a nil *image.NRGBA, selects
// the placeholder.
func (c *Controller) SetPhoto(img image.Image) {
	if n, ok := img.(*image.NRGBA); ok && n == nil {
		img = nil
	}
	c.photo = img
	c.imageLoaded = true
	c.bump()
}

// ImageLoaded reports whether a photo load finished, successfully or not.
func (c *Controller) ImageLoaded() bool { return c.imageLoaded }

func (c *Controller) lineStates() []compositor.LineState {
	waiting := c.startCancel != nil
	out := make([]compositor.LineState, len(c.lines))
	for i, l := range c.lines {
		p, ok := c.anim.Progress(l.ID)
		switch {
		case !ok:
			p = 100 // lines outside the reveal order are always whole
		case waiting:
			p = 0
		}
		out[i] = compositor.LineState{Line: l, Progress: p}
	}
	return out
}

// Scene snapshots everything the compositor needs.
func (c *Controller) Scene() compositor.Scene {
	return compositor.Scene{
		Photo:     c.photo,
		Lines:     c.lineStates(),
		Mounts:    c.Mounts(),
		Options:   c.display,
		Animating: c.Animating(),
		Hovered:   c.hovered,
	}
}
