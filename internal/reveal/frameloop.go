// Package reveal sequences the progressive line reveal: one line at a time,
// in a fixed order, driven by frame callbacks.
package reveal

import "time"

// FrameFunc runs once per delivered frame.
type FrameFunc func(now time.Time)

// CancelFunc drops a pending frame request. Calling it after the frame has
// been delivered does nothing.
type CancelFunc func()

// Scheduler hands out frame callbacks, like a display's animation frame
// request.
type Scheduler interface {
	RequestFrame(fn FrameFunc) CancelFunc
}

// FrameLoop is a single-threaded Scheduler: requests queue up until the
// owner calls Tick. Callbacks requested during a Tick run on the next Tick.
// It has no goroutines and no locks; only its owner may touch it.
type FrameLoop struct {
	pending []frameRequest
	nextID  uint64
}

type frameRequest struct {
	id uint64
	fn FrameFunc
}

// NewFrameLoop returns an empty loop.
func NewFrameLoop() *FrameLoop {
	return &FrameLoop{}
}

// RequestFrame queues fn for the next Tick.
func (l *FrameLoop) RequestFrame(fn FrameFunc) CancelFunc {
	l.nextID++
	id := l.nextID
	l.pending = append(l.pending, frameRequest{id: id, fn: fn})
	return func() {
		for i, r := range l.pending {
			if r.id == id {
				l.pending = append(l.pending[:i], l.pending[i+1:]...)
				return
			}
		}
	}
}

// Pending reports whether any callback waits for a frame.
func (l *FrameLoop) Pending() bool {
	return len(l.pending) > 0
}

// Tick delivers one frame at now and returns how many callbacks ran.
func (l *FrameLoop) Tick(now time.Time) int {
	batch := l.pending
	l.pending = nil
	for _, r := range batch {
		r.fn(now)
	}
	return len(batch)
}
