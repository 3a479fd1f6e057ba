package reveal

import (
	"time"

	"palm-overlay-renderer/internal/palm"
)

// DefaultLineDuration is how long one line takes to draw on.
const DefaultLineDuration = 800 * time.Millisecond

// Phase is the animator's state machine phase.
type Phase int

const (
	Idle Phase = iota
	Running
	Complete
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// State is a snapshot of the state machine. LineIndex and Progress only
// mean something while Running.
type State struct {
	Phase     Phase
	LineIndex int
	Progress  float64
}

// Animator drives per-line reveal progress from 0 to 100, one line at a
// time. Progress follows elapsed time, so the speed does not depend on the
// frame rate. It is not safe for concurrent use; it belongs to whoever owns
// its Scheduler.
type Animator struct {
	order    []palm.LineID
	progress []float64
	perLine  time.Duration
	sched    Scheduler
	onChange func()

	state     State
	lineStart time.Time
	clocked   bool
	cancel    CancelFunc
}

// New creates an idle animator over the given order (palm.RevealOrder when
// empty).
func New(sched Scheduler, perLine time.Duration, order ...palm.LineID) *Animator {
	if len(order) == 0 {
		order = palm.RevealOrder[:]
	}
	if perLine <= 0 {
		perLine = DefaultLineDuration
	}
	own := make([]palm.LineID, len(order))
	copy(own, order)
	return &Animator{
		order:    own,
		progress: make([]float64, len(own)),
		perLine:  perLine,
		sched:    sched,
	}
}

// OnChange registers a callback fired after every progress or phase change.
func (a *Animator) OnChange(fn func()) {
	a.onChange = fn
}

// Start begins a new run from the first line. It returns false, changing
// nothing, when a run is already in progress.
func (a *Animator) Start() bool {
	if a.state.Phase == Running {
		return false
	}
	for i := range a.progress {
		a.progress[i] = 0
	}
	a.state = State{Phase: Running}
	a.clocked = false
	a.cancel = a.sched.RequestFrame(a.step)
	a.changed()
	return true
}

func (a *Animator) step(now time.Time) {
	a.cancel = nil
	if a.state.Phase != Running {
		return
	}
	if a.state.LineIndex >= len(a.order) {
		a.complete()
		return
	}
	if !a.clocked {
		a.lineStart = now
		a.clocked = true
	}

	i := a.state.LineIndex
	p := 100 * float64(now.Sub(a.lineStart)) / float64(a.perLine)
	if p < a.progress[i] {
		p = a.progress[i] // a clock that steps back never rewinds a line
	}

	if p >= 100 {
		a.progress[i] = 100
		a.state.LineIndex++
		a.state.Progress = 0
		if a.state.LineIndex >= len(a.order) {
			a.complete()
			return
		}
		a.progress[a.state.LineIndex] = 0
		a.lineStart = now
	} else {
		a.progress[i] = p
		a.state.Progress = p
	}

	a.changed()
	a.cancel = a.sched.RequestFrame(a.step)
}

func (a *Animator) complete() {
	a.state = State{Phase: Complete}
	a.changed()
}

// Cancel drops any pending frame. A running reveal stops where it is and
// the animator goes back to Idle.
func (a *Animator) Cancel() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.state.Phase == Running {
		a.state = State{Phase: Idle}
		a.changed()
	}
}

// Finish pins every line at 100 and completes without animating.
func (a *Animator) Finish() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	for i := range a.progress {
		a.progress[i] = 100
	}
	a.state = State{Phase: Complete}
	a.changed()
}

// State returns the current state.
func (a *Animator) State() State {
	return a.state
}

// Running reports whether a reveal is in progress.
func (a *Animator) Running() bool {
	return a.state.Phase == Running
}

// Progress returns a line's reveal progress. ok is false for lines that are
// not part of the order.
func (a *Animator) Progress(id palm.LineID) (p float64, ok bool) {
	for i, o := range a.order {
		if o == id {
			return a.progress[i], true
		}
	}
	return 0, false
}

// Order returns the reveal order.
func (a *Animator) Order() []palm.LineID {
	out := make([]palm.LineID, len(a.order))
	copy(out, a.order)
	return out
}

func (a *Animator) changed() {
	if a.onChange != nil {
		a.onChange()
	}
}
