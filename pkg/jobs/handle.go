package jobs

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a queued job.
type State int32

const (
	StateQueued State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handle tracks one enqueued job until it settles.
type Handle struct {
	job   Job
	state atomic.Int32
	once  sync.Once
	done  chan struct{}
	value interface{}
	err   error
}

func newHandle(job Job) *Handle {
	return &Handle{job: job, done: make(chan struct{})}
}

// Job returns the job the handle tracks.
func (h *Handle) Job() Job {
	return h.job
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Done is closed once the job completed or failed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job settles or ctx ends. Abandoning the wait does not cancel the job.
func (h *Handle) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.value, h.err
	}
}

func (h *Handle) setState(s State) {
	h.state.Store(int32(s))
}

func (h *Handle) resolve(value interface{}, err error) {
	h.once.Do(func() {
		h.value = value
		h.err = err
		if err != nil {
			h.setState(StateFailed)
		} else {
			h.setState(StateCompleted)
		}
		close(h.done)
	})
}
