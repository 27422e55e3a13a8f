package client

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryabkov82/bulk-import/internal/ingest"
	"github.com/ryabkov82/bulk-import/internal/logger"
)

// OnExhausted is called once when a batch fails on its final attempt
// batchIndex: zero-based batch index
// attempts: number of attempts made
// err: the last attempt's error
type OnExhausted func(batchIndex, attempts int, err error)

// Outcome is the terminal result of one batch after all attempts
type Outcome struct {
	BatchIndex int
	Response   *Response // set when fulfilled
	Err        error     // *RetriesExhaustedError when rejected
	Attempts   int
}

// Fulfilled reports whether the batch was accepted by the endpoint
func (o Outcome) Fulfilled() bool {
	return o.Err == nil
}

// RetryOptions configures a Retrier
type RetryOptions struct {
	MaxRetries int
	Delay      time.Duration
	Clock      Clock // defaults to RealClock
	// OnExhausted is optional
	OnExhausted OnExhausted
	// Timings is optional; if nil, metrics collection is disabled
	Timings *ingest.Timings
	Logger  *zerolog.Logger
}

// Retrier wraps a Submitter with bounded retry and a fixed inter-attempt delay
type Retrier struct {
	submitter   Submitter
	maxRetries  int
	delay       time.Duration
	clock       Clock
	onExhausted OnExhausted
	timings     *ingest.Timings
	log         *zerolog.Logger
}

// NewRetrier creates a new Retrier around submitter
func NewRetrier(submitter Submitter, opts RetryOptions) *Retrier {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	log := opts.Logger
	if log == nil {
		log = logger.Named("retry")
	}

	return &Retrier{
		submitter:   submitter,
		maxRetries:  maxRetries,
		delay:       opts.Delay,
		clock:       clock,
		onExhausted: opts.OnExhausted,
		timings:     opts.Timings,
		log:         log,
	}
}

// SubmitWithRetries attempts the batch up to MaxRetries+1 times.
// Every failure kind is retried after the fixed delay; success is never retried.
func (r *Retrier) SubmitWithRetries(ctx context.Context, batch *ingest.Batch) Outcome {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			if r.timings != nil {
				r.timings.IncRetry()
			}
			if err := r.clock.Sleep(ctx, r.delay); err != nil {
				// Shutdown while waiting; keep the last submit error in the chain
				lastErr = fmt.Errorf("%w (last attempt: %w)", err, lastErr)
				break
			}
		}

		if r.timings != nil {
			r.timings.IncAttempt()
		}
		attempts++

		resp, err := r.submitter.Submit(ctx, batch)
		if err == nil {
			if attempt > 0 {
				r.log.Debug().
					Int("batch_index", batch.Index).
					Int("attempts", attempts).
					Msg("batch accepted after retry")
			}
			return Outcome{BatchIndex: batch.Index, Response: resp, Attempts: attempts}
		}

		lastErr = err
		r.log.Debug().
			Err(err).
			Int("batch_index", batch.Index).
			Int("attempt", attempts).
			Int("max_attempts", r.maxRetries+1).
			Msg("batch attempt failed")
	}

	exhausted := &RetriesExhaustedError{
		BatchIndex: batch.Index,
		Attempts:   attempts,
		Err:        lastErr,
	}

	r.log.Error().
		Err(lastErr).
		Int("batch_index", batch.Index).
		Int("attempts", attempts).
		Msg("batch failed")
	if r.timings != nil {
		r.timings.IncExhausted()
	}
	if r.onExhausted != nil {
		r.onExhausted(batch.Index, attempts, lastErr)
	}

	return Outcome{BatchIndex: batch.Index, Err: exhausted, Attempts: attempts}
}
