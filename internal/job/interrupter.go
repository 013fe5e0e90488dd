package job

import (
	"context"
	"sync"
)

// Interrupter gives a running Task cooperative pause/cancel control,
// matching spec.md §4.2's requirement that long tasks can be paused or
// cancelled without killing the worker goroutine mid-write. A Task must
// call CheckPoint at safe boundaries (between files, between batch rows)
// so control actually takes effect.
type Interrupter struct {
	mu       sync.Mutex
	paused   bool
	resumeCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewInterrupter derives a cancellable context from parent and returns the
// Interrupter that wraps it.
func NewInterrupter(parent context.Context) *Interrupter {
	ctx, cancel := context.WithCancel(parent)

	return &Interrupter{
		resumeCh: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Context returns the cancellable context a Task should thread through any
// I/O it performs.
func (in *Interrupter) Context() context.Context { return in.ctx }

// Pause blocks the next CheckPoint call until Resume is called.
func (in *Interrupter) Pause() {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.paused {
		return
	}

	in.paused = true
	in.resumeCh = make(chan struct{})
}

// Resume releases a paused Task.
func (in *Interrupter) Resume() {
	in.mu.Lock()
	defer in.mu.Unlock()

	if !in.paused {
		return
	}

	in.paused = false
	close(in.resumeCh)
}

// Cancel cancels the Task's context; the next CheckPoint (or any
// context-aware I/O call) returns ctx.Err().
func (in *Interrupter) Cancel() { in.cancel() }

// CheckPoint blocks while paused and returns an error if the Task has been
// cancelled. Tasks should call this at every safe suspension point.
func (in *Interrupter) CheckPoint() error {
	in.mu.Lock()
	paused := in.paused
	resumeCh := in.resumeCh
	in.mu.Unlock()

	if paused {
		select {
		case <-resumeCh:
		case <-in.ctx.Done():
			return in.ctx.Err()
		}
	}

	return in.ctx.Err()
}

// IsPaused reports whether the Interrupter is currently paused.
func (in *Interrupter) IsPaused() bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.paused
}
