package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueStopped is returned for jobs that never ran because the queue shut down.
var ErrQueueStopped = errors.New("queue stopped")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// Handler processes a job and returns the value its handle resolves with.
type Handler func(context.Context, Job) (interface{}, error)

// QueueConfig configures worker behaviour.
type QueueConfig struct {
	// Delay is the minimum pause between one job finishing and the next one starting.
	Delay  time.Duration
	Logger *zap.Logger
}

// Queue is an in-memory FIFO drained by a single worker goroutine. Enqueue never blocks;
// jobs start strictly in submission order and never overlap.
type Queue struct {
	name    string
	handler Handler
	delay   time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending []*Handle
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
	stopped bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		delay:   cfg.Delay,
		logger:  cfg.Logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.started = true
	go q.worker()
	q.logger.Sugar().Infow("queue started", "queue", q.name, "delay", q.delay)
}

// Stop lets the running job finish, fails every job still waiting and waits for the worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	q.mu.Unlock()
	<-q.done
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue appends a job and returns a handle that settles once the job has run.
func (q *Queue) Enqueue(job Job) (*Handle, error) {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	handle := newHandle(job)

	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil, fmt.Errorf("queue %s not started", q.name)
	}
	if q.stopped || q.ctx.Err() != nil {
		q.mu.Unlock()
		return nil, fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	q.pending = append(q.pending, handle)
	depth := len(q.pending)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	q.logger.Sugar().Debugw("job enqueued", "queue", q.name, "job_id", job.ID, "type", job.Type, "depth", depth)
	return handle, nil
}

// Len reports how many jobs are waiting to start.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) worker() {
	defer close(q.done)
	var lastFinished time.Time
	for {
		handle, ok := q.next()
		if !ok {
			q.drain()
			return
		}
		if !lastFinished.IsZero() && !q.pause(lastFinished, handle) {
			handle.resolve(nil, ErrQueueStopped)
			q.drain()
			return
		}
		q.process(handle)
		lastFinished = time.Now()
	}
}

// next blocks until a job is available or the queue is shutting down.
func (q *Queue) next() (*Handle, bool) {
	for {
		if q.ctx.Err() != nil {
			return nil, false
		}
		q.mu.Lock()
		if len(q.pending) > 0 {
			handle := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return handle, true
		}
		q.mu.Unlock()

		select {
		case <-q.ctx.Done():
			return nil, false
		case <-q.wake:
		}
	}
}

// pause waits out the remainder of the inter-job delay. It returns false on shutdown.
func (q *Queue) pause(lastFinished time.Time, next *Handle) bool {
	wait := q.delay - time.Since(lastFinished)
	if wait <= 0 {
		return true
	}
	q.logger.Sugar().Debugw("rate limit wait", "queue", q.name, "job_id", next.job.ID, "wait", wait, "remaining", q.Len())
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (q *Queue) process(handle *Handle) {
	handle.setState(StateRunning)
	start := time.Now()
	value, err := q.invoke(handle.job)
	handle.resolve(value, err)
	if err != nil {
		q.logger.Sugar().Warnw("job failed", "queue", q.name, "job_id", handle.job.ID, "type", handle.job.Type, "duration", time.Since(start), "error", err)
		return
	}
	q.logger.Sugar().Debugw("job completed", "queue", q.name, "job_id", handle.job.ID, "type", handle.job.Type, "duration", time.Since(start))
}

// invoke runs the handler detached from queue cancellation and turns panics into errors.
func (q *Queue) invoke(job Job) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Sugar().Errorw("job panicked", "queue", q.name, "job_id", job.ID, "panic", r)
			value = nil
			err = fmt.Errorf("job %s panicked: %v", job.ID, r)
		}
	}()
	return q.handler(context.WithoutCancel(q.ctx), job)
}

func (q *Queue) drain() {
	q.mu.Lock()
	remaining := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, handle := range remaining {
		handle.resolve(nil, ErrQueueStopped)
	}
	if len(remaining) > 0 {
		q.logger.Sugar().Warnw("queue drained unprocessed jobs", "queue", q.name, "count", len(remaining))
	}
}
