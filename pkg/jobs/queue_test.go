package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type callRecorder struct {
	mu     sync.Mutex
	order  []string
	starts []time.Time
}

func (r *callRecorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
	r.starts = append(r.starts, time.Now())
}

func (r *callRecorder) snapshot() ([]string, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...), append([]time.Time(nil), r.starts...)
}

func startQueue(t *testing.T, handler Handler, delay time.Duration) *Queue {
	t.Helper()
	q := NewQueue("test", handler, QueueConfig{Delay: delay, Logger: zap.NewNop()})
	q.Start(context.Background())
	t.Cleanup(q.Stop)
	return q
}

func waitAll(t *testing.T, handles ...*Handle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, h := range handles {
		select {
		case <-h.Done():
		case <-ctx.Done():
			t.Fatalf("job %s did not settle", h.Job().ID)
		}
	}
}

func TestQueueRunsJobsInSubmissionOrderWithDelay(t *testing.T) {
	rec := &callRecorder{}
	delay := 40 * time.Millisecond
	q := startQueue(t, func(ctx context.Context, job Job) (interface{}, error) {
		rec.record(job.ID)
		return job.ID + "-done", nil
	}, delay)

	var handles []*Handle
	for _, id := range []string{"j1", "j2", "j3"} {
		h, err := q.Enqueue(Job{ID: id, Type: "verify"})
		require.NoError(t, err)
		handles = append(handles, h)
	}
	waitAll(t, handles...)

	order, starts := rec.snapshot()
	assert.Equal(t, []string{"j1", "j2", "j3"}, order)
	for i := 1; i < len(starts); i++ {
		assert.GreaterOrEqual(t, starts[i].Sub(starts[i-1]), delay)
	}

	value, err := handles[1].Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "j2-done", value)
	assert.Equal(t, StateCompleted, handles[1].State())
}

func TestQueueNeverRunsTwoJobsAtOnce(t *testing.T) {
	var running, maxRunning int32
	q := startQueue(t, func(ctx context.Context, job Job) (interface{}, error) {
		current := atomic.AddInt32(&running, 1)
		for {
			seen := atomic.LoadInt32(&maxRunning)
			if current <= seen || atomic.CompareAndSwapInt32(&maxRunning, seen, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil, nil
	}, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		handles []*Handle
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := q.Enqueue(Job{ID: fmt.Sprintf("job-%d", i)})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			handles = append(handles, h)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	waitAll(t, handles...)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestQueueIsolatesFailures(t *testing.T) {
	rec := &callRecorder{}
	q := startQueue(t, func(ctx context.Context, job Job) (interface{}, error) {
		rec.record(job.ID)
		switch job.ID {
		case "j2":
			return nil, errors.New("upstream 500")
		case "j3":
			panic("interpreter exploded")
		}
		return job.ID, nil
	}, time.Millisecond)

	h1, err := q.Enqueue(Job{ID: "j1"})
	require.NoError(t, err)
	h2, err := q.Enqueue(Job{ID: "j2"})
	require.NoError(t, err)
	h3, err := q.Enqueue(Job{ID: "j3"})
	require.NoError(t, err)
	h4, err := q.Enqueue(Job{ID: "j4"})
	require.NoError(t, err)
	waitAll(t, h1, h2, h3, h4)

	_, err = h2.Wait(context.Background())
	assert.EqualError(t, err, "upstream 500")
	assert.Equal(t, StateFailed, h2.State())

	_, err = h3.Wait(context.Background())
	assert.ErrorContains(t, err, "panicked")

	value, err := h4.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "j4", value)

	order, _ := rec.snapshot()
	assert.Equal(t, []string{"j1", "j2", "j3", "j4"}, order)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) (interface{}, error) { return nil, nil }, QueueConfig{})
	_, err := q.Enqueue(Job{ID: "j1"})
	require.Error(t, err)
}

func TestQueueStopFailsWaitingJobs(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	q := NewQueue("stopping", func(ctx context.Context, job Job) (interface{}, error) {
		if job.ID == "j1" {
			close(started)
			<-release
		}
		return job.ID, nil
	}, QueueConfig{})
	q.Start(context.Background())

	h1, err := q.Enqueue(Job{ID: "j1"})
	require.NoError(t, err)
	<-started
	h2, err := q.Enqueue(Job{ID: "j2"})
	require.NoError(t, err)
	assert.Equal(t, StateRunning, h1.State())
	assert.Equal(t, StateQueued, h2.State())

	stopped := make(chan struct{})
	go func() {
		q.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return q.stopped
	}, time.Second, time.Millisecond)
	close(release)
	<-stopped

	value, err := h1.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "j1", value)

	_, err = h2.Wait(context.Background())
	assert.ErrorIs(t, err, ErrQueueStopped)

	_, err = q.Enqueue(Job{ID: "j3"})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestHandleWaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	q := startQueue(t, func(ctx context.Context, job Job) (interface{}, error) {
		<-block
		return nil, nil
	}, 0)
	h, err := q.Enqueue(Job{ID: "slow"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
	waitAll(t, h)
}
