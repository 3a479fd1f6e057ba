package overlay

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"palm-overlay-renderer/internal/compositor"
	"palm-overlay-renderer/internal/depth"
	"palm-overlay-renderer/internal/palm"
	"palm-overlay-renderer/internal/reveal"
	"palm-overlay-renderer/internal/surface"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type stubPhotos struct {
	img *image.NRGBA
	err error
}

func (s stubPhotos) Load(context.Context, string) (*image.NRGBA, error) { return s.img, s.err }

func newController(t *testing.T, cfg Config) (*Controller, *reveal.MockClock) {
	t.Helper()
	clock := reveal.NewMockClock(epoch)
	cfg.Clock = clock
	if cfg.LineDuration == 0 {
		cfg.LineDuration = 100 * time.Millisecond
	}
	if cfg.RevealDelay == 0 {
		cfg.RevealDelay = 50 * time.Millisecond
	}
	if cfg.Photos == nil {
		cfg.Photos = stubPhotos{err: errors.New("offline")}
	}
	c := New(cfg)
	t.Cleanup(c.Close)
	return c, clock
}

// runUntilIdle pumps frames every 16ms until nothing is pending.
func runUntilIdle(t *testing.T, c *Controller, clock *reveal.MockClock) {
	t.Helper()
	for i := 0; c.Pending(); i++ {
		require.Less(t, i, 10000, "reveal never finished")
		c.Tick()
		clock.Advance(16 * time.Millisecond)
	}
}

func progress(sc compositor.Scene) map[palm.LineID]float64 {
	out := map[palm.LineID]float64{}
	for _, ls := range sc.Lines {
		out[ls.Line.ID] = ls.Progress
	}
	return out
}

func heartAnalysis(version int64) palm.Analysis {
	rating := 8.0
	return palm.Analysis{
		Version: version,
		Lines: map[palm.LineID]palm.LineReading{
			palm.Heart: {Rating: &rating, Observed: "a deep clear line"},
		},
	}
}

func TestDefaultState(t *testing.T) {
	c, _ := newController(t, Config{})
	sc := c.Scene()

	require.Len(t, sc.Lines, 5)
	for _, ls := range sc.Lines {
		assert.True(t, ls.Line.Visible, ls.Line.ID)
		assert.Equal(t, depth.Medium, ls.Line.Depth)
		assert.Zero(t, ls.Line.Confidence)
		assert.Equal(t, 100.0, ls.Progress)
	}
	assert.False(t, sc.Animating)
	assert.False(t, c.HasAnalysis())
	assert.Equal(t, compositor.DefaultOptions(), c.Display())
}

func TestAnalysisRevealsAfterDelay(t *testing.T) {
	c, clock := newController(t, Config{})
	require.True(t, c.ApplyAnalysis(heartAnalysis(1)))

	sc := c.Scene()
	assert.True(t, sc.Animating)
	for id, p := range progress(sc) {
		assert.Zero(t, p, "%s resets to 0", id)
	}

	clock.Advance(20 * time.Millisecond)
	c.Tick()
	assert.NotEqual(t, reveal.Running, c.RevealState().Phase, "still inside the delay")

	clock.Advance(40 * time.Millisecond)
	c.Tick()
	assert.Equal(t, reveal.Running, c.RevealState().Phase)

	runUntilIdle(t, c, clock)
	sc = c.Scene()
	assert.False(t, sc.Animating)
	for id, p := range progress(sc) {
		assert.Equal(t, 100.0, p, id)
	}

	i := palm.Find(c.Lines(), palm.Heart)
	heart := c.Lines()[i]
	assert.InDelta(t, 0.8, heart.Confidence, 1e-9)
	assert.Equal(t, depth.Deep, heart.Depth)
}

func TestDeepBadgeAfterReveal(t *testing.T) {
	c, clock := newController(t, Config{})
	c.SetShowDepth(true)
	c.ApplyAnalysis(heartAnalysis(0))
	runUntilIdle(t, c, clock)

	rec := surface.NewRecorder(c.Size())
	compositor.Compose(rec, c.Scene())
	assert.Contains(t, rec.Texts(), "Deep")
}

func TestSameAnalysisIsNoop(t *testing.T) {
	c, clock := newController(t, Config{})
	require.True(t, c.ApplyAnalysis(heartAnalysis(0)))
	runUntilIdle(t, c, clock)
	rev := c.Revision()

	assert.False(t, c.ApplyAnalysis(heartAnalysis(0)), "identical content")
	assert.Equal(t, rev, c.Revision())
	assert.False(t, c.Pending())

	assert.True(t, c.ApplyAnalysis(heartAnalysis(7)), "explicit version is a new key")
	assert.True(t, c.Animating())
}

func TestNewAnalysisRestartsFromLife(t *testing.T) {
	c, clock := newController(t, Config{})
	c.ApplyAnalysis(heartAnalysis(1))
	for i := 0; i < 15; i++ {
		c.Tick()
		clock.Advance(16 * time.Millisecond)
	}
	require.True(t, c.Animating())

	c.ApplyAnalysis(heartAnalysis(2))
	for id, p := range progress(c.Scene()) {
		assert.Zero(t, p, id)
	}
	clock.Advance(60 * time.Millisecond)
	c.Tick() // delay over, reveal starts
	c.Tick() // first frame starts the line clock
	clock.Advance(10 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 0, c.RevealState().LineIndex)
	p := progress(c.Scene())
	assert.Greater(t, p[palm.Life], 0.0)
	assert.Zero(t, p[palm.Head])
}

func TestZoomThenReset(t *testing.T) {
	c, clock := newController(t, Config{Variant: palm.Extended})
	c.ApplyAnalysis(heartAnalysis(0))
	clock.Advance(time.Second)
	c.Tick()
	c.Tick()
	require.True(t, c.Animating())

	c.SetZoom(2)
	c.SetOpacity(0.3)
	c.SetShowLabels(false)
	c.SetVisible(palm.Heart, false)
	c.Hover(palm.Life)

	c.Reset()
	d := c.Display()
	assert.Equal(t, 1.0, d.Zoom)
	assert.Equal(t, 0.8, d.Opacity)
	assert.True(t, d.ShowLabels)
	assert.Empty(t, c.Hovered())

	sc := c.Scene()
	assert.False(t, sc.Animating)
	for _, ls := range sc.Lines {
		assert.True(t, ls.Line.Visible, "%s forced visible", ls.Line.ID)
		assert.Equal(t, 100.0, ls.Progress, ls.Line.ID)
	}
	assert.False(t, c.Pending(), "reset does not replay")
}

func TestReplay(t *testing.T) {
	c, clock := newController(t, Config{})
	assert.False(t, c.Replay(), "no analysis yet")

	c.ApplyAnalysis(heartAnalysis(0))
	assert.False(t, c.Replay(), "waiting to start")
	runUntilIdle(t, c, clock)

	require.True(t, c.Replay())
	assert.Equal(t, reveal.Running, c.RevealState().Phase)
	for id, p := range progress(c.Scene()) {
		assert.Zero(t, p, id)
	}
	assert.False(t, c.Replay(), "already running")
}

func TestZoomSteps(t *testing.T) {
	c, _ := newController(t, Config{})
	for i := 0; i < 6; i++ {
		c.ZoomIn()
	}
	assert.Equal(t, 2.0, c.Display().Zoom)
	c.ZoomOut()
	assert.Equal(t, 1.75, c.Display().Zoom)
	for i := 0; i < 6; i++ {
		c.ZoomOut()
	}
	assert.Equal(t, 1.0, c.Display().Zoom)

	c.SetZoom(0.1)
	assert.Equal(t, 0.5, c.Display().Zoom)
	c.ZoomOut()
	assert.Equal(t, 0.5, c.Display().Zoom, "stepping never zooms in")
	c.ZoomIn()
	assert.Equal(t, 0.75, c.Display().Zoom)

	c.SetOpacity(5)
	assert.Equal(t, 1.0, c.Display().Opacity)
}

func TestEveryChangeBumpsRevision(t *testing.T) {
	c, _ := newController(t, Config{})
	steps := []func(){
		func() { c.ToggleLine(palm.Fate) },
		func() { c.SetShowConfidence(false) },
		func() { c.SetShowMounts(false) },
		func() { c.SetOpacity(0.5) },
		func() { c.ZoomIn() },
		func() { c.Hover(palm.Sun) },
		func() { c.Resize(800, 1000) },
		func() { c.SetPhoto(nil) },
	}
	for i, step := range steps {
		before := c.Revision()
		step()
		assert.Greater(t, c.Revision(), before, "step %d", i)
	}

	before := c.Revision()
	c.SetOpacity(0.5)
	c.Resize(800, 1000)
	assert.Equal(t, before, c.Revision(), "no-op changes keep the revision")
	assert.False(t, c.ToggleLine("palmistry"))
}

func TestPhotoFailureFallsBackToPlaceholder(t *testing.T) {
	c, _ := newController(t, Config{})
	assert.False(t, c.ImageLoaded())

	err := c.LoadPhoto(context.Background(), "https://example.invalid/palm.jpg")
	assert.Error(t, err)
	assert.True(t, c.ImageLoaded())

	sc := c.Scene()
	assert.Nil(t, sc.Photo)
	rec := surface.NewRecorder(c.Size())
	compositor.Compose(rec, sc)
	assert.NotEmpty(t, rec.Ops)
	assert.Positive(t, rec.Count("ellipse"), "placeholder outline")
	assert.Positive(t, rec.Count("stroke"))
}

func TestPhotoSuccess(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 10))
	c, _ := newController(t, Config{Photos: stubPhotos{img: img}})
	require.NoError(t, c.LoadPhoto(context.Background(), "palm.png"))
	assert.True(t, c.ImageLoaded())
	assert.Equal(t, img, c.Scene().Photo)
}

func TestHoverAt(t *testing.T) {
	c, _ := newController(t, Config{Width: 400, Height: 500})

	// life starts at (144, 200)
	assert.Equal(t, palm.Life, c.HoverAt(145, 201))
	assert.Equal(t, palm.Life, c.Hovered())

	assert.Empty(t, c.HoverAt(5, 495), "far from every line")
	assert.Empty(t, c.Hovered())

	c.SetVisible(palm.Life, false)
	assert.NotEqual(t, palm.Life, c.HoverAt(145, 201), "hidden lines are not hit")
}

func TestHoverAtHonoursZoom(t *testing.T) {
	c, _ := newController(t, Config{Width: 400, Height: 500})
	c.SetZoom(2)
	// life start (144, 200) maps to (88, 150) when zoomed 2x about (200, 250)
	assert.Equal(t, palm.Life, c.HoverAt(88, 150))
}

func TestControllersShareNothing(t *testing.T) {
	a, _ := newController(t, Config{})
	b, _ := newController(t, Config{})
	a.SetVisible(palm.Heart, false)
	a.ApplyAnalysis(heartAnalysis(3))

	for _, l := range b.Lines() {
		assert.True(t, l.Visible)
		assert.Zero(t, l.Confidence)
	}
}

func TestFinishRevealKeepsDisplay(t *testing.T) {
	c, _ := newController(t, Config{})
	c.SetZoom(1.5)
	c.SetVisible(palm.Sun, false)
	c.ApplyAnalysis(heartAnalysis(0))
	c.FinishReveal()

	assert.False(t, c.Animating())
	assert.False(t, c.Pending())
	assert.Equal(t, 1.5, c.Display().Zoom)
	for _, ls := range c.Scene().Lines {
		assert.Equal(t, 100.0, ls.Progress)
		assert.Equal(t, ls.Line.ID != palm.Sun, ls.Line.Visible)
	}
}

func TestCloseDuringDelay(t *testing.T) {
	c, clock := newController(t, Config{})
	c.ApplyAnalysis(heartAnalysis(1))
	require.True(t, c.Pending())

	c.Close()
	assert.False(t, c.Pending())
	assert.False(t, c.Animating())

	clock.Advance(time.Second)
	assert.False(t, c.Tick(), "the delayed start never fires")
	assert.NotEqual(t, reveal.Running, c.RevealState().Phase)
}

func TestCloseMidReveal(t *testing.T) {
	c, clock := newController(t, Config{})
	c.ApplyAnalysis(heartAnalysis(1))
	clock.Advance(60 * time.Millisecond)
	c.Tick()
	require.Equal(t, reveal.Running, c.RevealState().Phase)
	require.True(t, c.Pending())

	c.Close()
	assert.False(t, c.Pending())
	assert.False(t, c.Animating())
	clock.Advance(16 * time.Millisecond)
	assert.False(t, c.Tick())
}

func TestSetPhotoTypedNil(t *testing.T) {
	c, _ := newController(t, Config{})
	before := c.Revision()
	c.SetPhoto((*image.NRGBA)(nil))

	assert.True(t, c.ImageLoaded())
	assert.Nil(t, c.Scene().Photo)
	assert.Greater(t, c.Revision(), before)

	rec := surface.NewRecorder(c.Size())
	compositor.Compose(rec, c.Scene())
	assert.Positive(t, rec.Count("ellipse"), "placeholder outline")
}

func TestLoadPhotoNilImageUsesPlaceholder(t *testing.T) {
	c, _ := newController(t, Config{Photos: stubPhotos{}})
	require.NoError(t, c.LoadPhoto(context.Background(), "https://example.invalid/palm.jpg"))
	assert.True(t, c.ImageLoaded())
	assert.Nil(t, c.Scene().Photo)

	rec := surface.NewRecorder(c.Size())
	assert.NotPanics(t, func() { compositor.Compose(rec, c.Scene()) })
}
