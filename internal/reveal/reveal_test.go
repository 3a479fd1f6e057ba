package reveal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"palm-overlay-renderer/internal/palm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func progressOf(t *testing.T, a *Animator) map[palm.LineID]float64 {
	t.Helper()
	out := make(map[palm.LineID]float64)
	for _, id := range a.Order() {
		p, ok := a.Progress(id)
		require.True(t, ok)
		out[id] = p
	}
	return out
}

func TestFrameLoopDefersNestedRequests(t *testing.T) {
	loop := NewFrameLoop()
	var calls []int
	loop.RequestFrame(func(time.Time) {
		calls = append(calls, 1)
		loop.RequestFrame(func(time.Time) { calls = append(calls, 2) })
	})

	assert.Equal(t, 1, loop.Tick(epoch))
	assert.Equal(t, []int{1}, calls)
	assert.True(t, loop.Pending())
	assert.Equal(t, 1, loop.Tick(epoch))
	assert.Equal(t, []int{1, 2}, calls)
	assert.False(t, loop.Pending())
}

func TestFrameLoopCancel(t *testing.T) {
	loop := NewFrameLoop()
	ran := false
	cancel := loop.RequestFrame(func(time.Time) { ran = true })
	cancel()
	cancel()
	assert.Equal(t, 0, loop.Tick(epoch))
	assert.False(t, ran)
}

func TestRunRevealsInOrder(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 100*time.Millisecond)
	assert.Equal(t, Idle, a.State().Phase)
	require.True(t, a.Start())

	var completedOrder []palm.LineID
	seen := map[palm.LineID]bool{}
	now := epoch
	for i := 0; i < 1000 && loop.Pending(); i++ {
		loop.Tick(now)
		for _, id := range a.Order() {
			p, _ := a.Progress(id)
			if p == 100 && !seen[id] {
				seen[id] = true
				completedOrder = append(completedOrder, id)
			}
		}
		now = now.Add(16 * time.Millisecond)
	}

	assert.Equal(t, Complete, a.State().Phase)
	assert.Equal(t, palm.RevealOrder[:], completedOrder)
	for id, p := range progressOf(t, a) {
		assert.Equal(t, 100.0, p, id)
	}
	assert.False(t, loop.Pending(), "complete stops requesting frames")
}

func TestAtMostOneLineMidProgress(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 50*time.Millisecond)
	require.True(t, a.Start())

	last := progressOf(t, a)
	now := epoch
	for loop.Pending() {
		loop.Tick(now)
		cur := progressOf(t, a)

		mid := 0
		for id, p := range cur {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
			assert.GreaterOrEqual(t, p, last[id], "progress of %s went backwards", id)
			if p > 0 && p < 100 {
				mid++
			}
		}
		assert.LessOrEqual(t, mid, 1)
		last = cur
		now = now.Add(7 * time.Millisecond)
	}
}

func TestTransitionPinsAndResets(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 100*time.Millisecond, palm.Life, palm.Head)
	a.Start()

	loop.Tick(epoch) // clock starts
	loop.Tick(epoch.Add(60 * time.Millisecond))
	p, _ := a.Progress(palm.Life)
	assert.InDelta(t, 60, p, 1e-9)
	assert.Equal(t, State{Phase: Running, LineIndex: 0, Progress: p}, a.State())

	loop.Tick(epoch.Add(130 * time.Millisecond))
	life, _ := a.Progress(palm.Life)
	head, _ := a.Progress(palm.Head)
	assert.Equal(t, 100.0, life, "snapped to exactly 100")
	assert.Equal(t, 0.0, head, "next line starts at exactly 0")
	assert.Equal(t, 1, a.State().LineIndex)

	loop.Tick(epoch.Add(180 * time.Millisecond))
	head, _ = a.Progress(palm.Head)
	assert.InDelta(t, 50, head, 1e-9, "time is measured from the transition")
}

func TestSpeedIsFrameRateIndependent(t *testing.T) {
	run := func(frame time.Duration) time.Duration {
		loop := NewFrameLoop()
		a := New(loop, 200*time.Millisecond)
		a.Start()
		now := epoch
		for loop.Pending() {
			loop.Tick(now)
			now = now.Add(frame)
		}
		return now.Sub(epoch)
	}
	fast := run(4 * time.Millisecond)
	slow := run(20 * time.Millisecond)
	assert.InDelta(t, float64(time.Second), float64(fast), float64(40*time.Millisecond))
	assert.InDelta(t, float64(time.Second), float64(slow), float64(200*time.Millisecond))
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 100*time.Millisecond)
	require.True(t, a.Start())
	loop.Tick(epoch)
	loop.Tick(epoch.Add(50 * time.Millisecond))
	before := a.State()

	assert.False(t, a.Start())
	assert.Equal(t, before, a.State())
	p, _ := a.Progress(palm.Life)
	assert.InDelta(t, 50, p, 1e-9, "progress untouched")
}

func TestRestartAfterCompleteResets(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 10*time.Millisecond)
	a.Finish()
	assert.Equal(t, Complete, a.State().Phase)

	require.True(t, a.Start())
	for id, p := range progressOf(t, a) {
		assert.Zero(t, p, id)
	}
}

func TestCancelDropsPendingFrame(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 100*time.Millisecond)
	changes := 0
	a.OnChange(func() { changes++ })
	a.Start()
	loop.Tick(epoch)
	loop.Tick(epoch.Add(30 * time.Millisecond))

	a.Cancel()
	assert.False(t, loop.Pending())
	assert.Equal(t, Idle, a.State().Phase)

	n := changes
	loop.Tick(epoch.Add(500 * time.Millisecond))
	assert.Equal(t, n, changes, "nothing runs after cancel")
}

func TestFinishPinsEverything(t *testing.T) {
	loop := NewFrameLoop()
	a := New(loop, 100*time.Millisecond)
	a.Start()
	loop.Tick(epoch)
	a.Finish()

	assert.False(t, loop.Pending())
	assert.False(t, a.Running())
	for id, p := range progressOf(t, a) {
		assert.Equal(t, 100.0, p, id)
	}
	_, ok := a.Progress(palm.Marriage)
	assert.False(t, ok)
}

func TestMockClockDrivesFrameLoop(t *testing.T) {
	clock := NewMockClock(epoch)
	loop := NewFrameLoop()
	a := New(loop, 100*time.Millisecond, palm.Life)
	a.Start()

	for loop.Pending() {
		loop.Tick(clock.Now())
		clock.Advance(25 * time.Millisecond)
	}
	assert.Equal(t, Complete, a.State().Phase)
	assert.Equal(t, epoch.Add(150*time.Millisecond), clock.Now())

	clock.Set(epoch)
	assert.Equal(t, epoch, clock.Now())
}
