package service

import (
	"context"
	"sync"
	"time"
)

// call is one upstream fetch that several callers may wait on.
type call struct {
	done chan struct{}
	val  []byte
	err  error
}

// requestCoalescer collapses concurrent fetches for the same key into one.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*call
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*call),
		timeout:  timeout,
	}
}

// Do runs fn for key unless a run is already in flight, in which case it waits for
// that run's result. shared reports whether the result came from another caller's run.
// fn receives a context detached from the caller's cancellation and bounded by the
// coalescer timeout, so one caller going away does not fail the others.
func (rc *requestCoalescer) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) (val []byte, shared bool, err error) {
	rc.mu.Lock()
	c, exists := rc.inFlight[key]
	if !exists {
		c = &call{done: make(chan struct{})}
		rc.inFlight[key] = c
		rc.mu.Unlock()

		go func() {
			runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rc.timeout)
			defer cancel()
			c.val, c.err = fn(runCtx)
			rc.cleanup(key)
			close(c.done)
		}()
	} else {
		rc.mu.Unlock()
	}

	select {
	case <-c.done:
		return c.val, exists, c.err
	case <-ctx.Done():
		return nil, exists, ctx.Err()
	}
}

// InFlight returns the number of keys currently being fetched.
func (rc *requestCoalescer) InFlight() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.inFlight)
}

func (rc *requestCoalescer) cleanup(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.inFlight, key)
}
