// Package importer drives a bulk import: validate, batch, submit with retry
// under a concurrency cap, aggregate, and report through collaborators.
package importer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ryabkov82/bulk-import/internal/client"
	"github.com/ryabkov82/bulk-import/internal/ingest"
	"github.com/ryabkov82/bulk-import/internal/logger"
)

// State is a stage of the import state machine
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateFailed          State = "failed"
	StateBatching        State = "batching"
	StateScheduling      State = "scheduling"
	StateAggregating     State = "aggregating"
	StateSucceeded       State = "succeeded"
	StatePartiallyFailed State = "partially_failed"
)

// Terminal reports whether no further transition follows s
func (s State) Terminal() bool {
	return s == StateFailed || s == StateSucceeded || s == StatePartiallyFailed
}

// User-facing messages
const (
	MsgSuccess              = "Import completed successfully"
	MsgSuccessRefreshFailed = "Import completed successfully (UI refresh failed)"
	MsgFailedPrefix         = "Import failed: "
)

// Request is one import call
type Request struct {
	ImportID string          `json:"importId"`
	Records  []ingest.Record `json:"records" validate:"nonempty"`
	Endpoint string          `json:"endpoint" validate:"notblank"`
	Modal    string          `json:"modal" validate:"notblank"`
	Table    string          `json:"table" validate:"notblank"`
	Options  ingest.Options  `json:"options"`
}

// Validate checks the request shape; all violations are returned together
func (r Request) Validate() error {
	return ValidateStruct(r)
}

// Report is the aggregate result of an import
type Report struct {
	ImportID     string
	Status       State
	Config       ingest.Config
	TotalRecords int
	Batches      int
	Succeeded    int
	Failed       int
	Outcomes     []client.Outcome // batch index order
	Timings      ingest.TimingsSnapshot
	Err          error
}

// OK reports whether every batch was accepted
func (r Report) OK() bool {
	return r.Status == StateSucceeded
}

// SubmitterFactory builds the per-import submitter
type SubmitterFactory func(endpoint string, cfg ingest.Config, importID string, timings *ingest.Timings) client.Submitter

// Options configures an Importer
type Options struct {
	// Defaults replace the built-in defaults for fields a request does not override
	Defaults   ingest.Config
	Gzip       bool
	BasicUser  string
	BasicPass  string
	HTTPClient *http.Client
	// Clock is used between retry attempts; RealClock when nil
	Clock client.Clock
	// NewSubmitter overrides the HTTP sender (tests)
	NewSubmitter SubmitterFactory
	Logger       *zerolog.Logger
}

// Importer runs imports; it is safe for concurrent use
type Importer struct {
	defaults     ingest.Config
	clock        client.Clock
	newSubmitter SubmitterFactory
	log          *zerolog.Logger
}

// New creates an Importer
func New(opts Options) *Importer {
	im := &Importer{
		defaults:     opts.Defaults,
		clock:        opts.Clock,
		newSubmitter: opts.NewSubmitter,
		log:          opts.Logger,
	}
	if im.clock == nil {
		im.clock = client.RealClock{}
	}
	if im.log == nil {
		im.log = logger.Named("importer")
	}
	if im.newSubmitter == nil {
		im.newSubmitter = func(endpoint string, cfg ingest.Config, importID string, timings *ingest.Timings) client.Submitter {
			return client.NewSender(client.SenderOptions{
				Endpoint:   endpoint,
				Timeout:    cfg.SendTimeout,
				Gzip:       opts.Gzip,
				BasicUser:  opts.BasicUser,
				BasicPass:  opts.BasicPass,
				ImportID:   importID,
				Timings:    timings,
				HTTPClient: opts.HTTPClient,
			})
		}
	}
	return im
}

// Import runs the whole pipeline for req and reports through c.
// The dialog named by req.Modal is shown on entry and hidden exactly once on return.
func (im *Importer) Import(ctx context.Context, req Request, c Collaborators) (rep Report) {
	c = c.withDefaults()

	rep.ImportID = req.ImportID
	if rep.ImportID == "" {
		rep.ImportID = uuid.NewString()
	}
	rep.TotalRecords = len(req.Records)
	rep.Status = StateIdle

	log := im.log.With().Str("import_id", rep.ImportID).Logger()
	transition := func(s State) {
		rep.Status = s
		c.OnState(s)
	}

	c.Visibility.Show(req.Modal)
	defer c.Visibility.Hide(req.Modal)
	defer func() { rep.Timings = c.Timings.Snapshot() }()

	transition(StateValidating)
	if err := req.Validate(); err != nil {
		rep.Err = err
		transition(StateFailed)
		log.Warn().Err(err).Msg("import rejected")
		c.Notifier.Error(MsgFailedPrefix + err.Error())
		return rep
	}

	cfg := ingest.ResolveConfigWithBase(im.defaults, req.Options)
	rep.Config = cfg

	transition(StateBatching)
	batches, err := ingest.SplitWithTimings(req.Records, cfg.BatchSize, c.Progress, c.Timings)
	if err != nil {
		rep.Err = fmt.Errorf("batching: %w", err)
		transition(StateFailed)
		c.Notifier.Error(MsgFailedPrefix + rep.Err.Error())
		return rep
	}
	rep.Batches = len(batches)

	log.Info().
		Str("endpoint", req.Endpoint).
		Int("records", rep.TotalRecords).
		Int("batches", rep.Batches).
		Int("batch_size", cfg.BatchSize).
		Int("max_concurrent", cfg.MaxConcurrentRequests).
		Int("max_retries", cfg.MaxRetries).
		Msg("import started")

	transition(StateScheduling)
	retrier := client.NewRetrier(
		im.newSubmitter(req.Endpoint, cfg, rep.ImportID, c.Timings),
		client.RetryOptions{
			MaxRetries: cfg.MaxRetries,
			Delay:      cfg.DelayTime,
			Clock:      im.clock,
			Timings:    c.Timings,
			Logger:     &log,
			OnExhausted: func(batchIndex, attempts int, err error) {
				c.Notifier.Error(fmt.Sprintf("Batch %d import failed after %d attempts: %v", batchIndex, attempts, err))
			},
		},
	)

	tasks := make([]client.Task, len(batches))
	for i := range batches {
		batch := &batches[i]
		tasks[i] = func(ctx context.Context) client.Outcome {
			return retrier.SubmitWithRetries(ctx, batch)
		}
	}
	scheduler := client.Scheduler{
		MaxConcurrent: cfg.MaxConcurrentRequests,
		OnSettled:     c.OnSettled,
	}
	rep.Outcomes = scheduler.Run(ctx, tasks)

	transition(StateAggregating)
	var firstErr error
	for _, o := range rep.Outcomes {
		if o.Fulfilled() {
			rep.Succeeded++
			continue
		}
		rep.Failed++
		if firstErr == nil {
			firstErr = o.Err
		}
	}

	if rep.Failed > 0 {
		rep.Err = &BatchFailureError{Failed: rep.Failed, Total: rep.Batches, First: firstErr}
		transition(StatePartiallyFailed)
		log.Error().
			Err(rep.Err).
			Int("succeeded", rep.Succeeded).
			Int("failed", rep.Failed).
			Str("timings", c.Timings.String()).
			Msg("import failed")
		c.Notifier.Error(MsgFailedPrefix + rep.Err.Error())
		return rep
	}

	transition(StateSucceeded)
	log.Info().
		Int("batches", rep.Batches).
		Str("timings", c.Timings.String()).
		Msg("import completed")

	if err := c.Refresher.Refresh(ctx, req.Table); err != nil {
		log.Warn().Err(err).Str("table", req.Table).Msg("refresh after import failed")
		c.Notifier.Info(MsgSuccessRefreshFailed)
	} else {
		c.Notifier.Success(MsgSuccess)
	}
	return rep
}
