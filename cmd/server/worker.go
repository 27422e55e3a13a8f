package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ryabkov82/bulk-import/internal/importer"
	"github.com/ryabkov82/bulk-import/internal/ingest"
	"github.com/ryabkov82/bulk-import/internal/job"
)

// worker processes jobs from the queue (synchronously, one at a time)
type worker struct {
	store          *job.Store
	importer       *importer.Importer
	refresher      importer.Refresher // optional webhook, runs after the store records the refresh
	allowedBaseDir string
	log            *zerolog.Logger
}

func (w *worker) run(ctx context.Context) {
	for {
		// Get next job (blocking)
		j, err := w.store.NextJob(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.log.Error().Err(err).Msg("next job")
			time.Sleep(time.Second)
			continue
		}

		w.processJob(ctx, j)
	}
}

// processJob runs a single job to completion and records the report in the store
func (w *worker) processJob(ctx context.Context, j *job.Job) {
	log := w.log.With().Str("job_id", j.ID).Logger()

	records := j.Records
	if j.InputPath != "" {
		var err error
		records, err = ingest.ReadCSV(ctx, j.InputPath, w.allowedBaseDir, j.CSV)
		if err != nil {
			err = fmt.Errorf("read input: %w", err)
			log.Error().Err(err).Str("input_path", j.InputPath).Msg("job failed")
			w.store.Fail(j.ID, err)
			return
		}
		log.Info().Str("input_path", j.InputPath).Int("records", len(records)).Msg("input loaded")
	}

	rep := w.importer.Import(ctx, j.Request(records), w.store.Sink(j.ID).Collaborators(w.refresher))
	w.store.Finish(j.ID, rep)

	ev := log.Info()
	if !rep.OK() {
		ev = log.Warn().Err(rep.Err)
	}
	ev.Str("status", string(rep.Status)).
		Int("batches", rep.Batches).
		Int("succeeded", rep.Succeeded).
		Int("failed", rep.Failed).
		Int64("attempts", rep.Timings.Attempts).
		Msg("job finished")
}
