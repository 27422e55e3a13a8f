package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ryabkov82/bulk-import/internal/ingest"
)

// fakeClock records requested delays without sleeping
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delays = append(c.delays, d)
	return ctx.Err()
}

func (c *fakeClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

// scriptedSubmitter fails the first failures calls, then succeeds
type scriptedSubmitter struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
}

func (s *scriptedSubmitter) Submit(ctx context.Context, batch *ingest.Batch) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		err := s.err
		if err == nil {
			err = &TransportError{Err: errors.New("connection reset")}
		}
		return nil, err
	}
	return &Response{StatusCode: 200, Success: true}, nil
}

func (s *scriptedSubmitter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// cancellingSubmitter fails every call and cancels the import context on the first one
type cancellingSubmitter struct {
	cancel context.CancelFunc
	err    error
}

func (s *cancellingSubmitter) Submit(ctx context.Context, batch *ingest.Batch) (*Response, error) {
	s.cancel()
	return nil, s.err
}
