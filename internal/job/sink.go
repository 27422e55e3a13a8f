package job

import (
	"context"

	"github.com/ryabkov82/bulk-import/internal/client"
	"github.com/ryabkov82/bulk-import/internal/importer"
)

// Sink routes the side effects of one import into its job record
type Sink struct {
	store *Store
	id    string
}

// Sink returns the collaborator sink of job id
func (s *Store) Sink(id string) *Sink {
	return &Sink{store: s, id: id}
}

func (k *Sink) Success(message string) { k.store.Notify(k.id, SeveritySuccess, message) }
func (k *Sink) Error(message string)   { k.store.Notify(k.id, SeverityError, message) }
func (k *Sink) Info(message string)    { k.store.Notify(k.id, SeverityInfo, message) }

func (k *Sink) Show(string) { k.store.SetModalVisible(k.id, true) }
func (k *Sink) Hide(string) { k.store.SetModalVisible(k.id, false) }

// Refresh records the refresh; it never fails
func (k *Sink) Refresh(context.Context, string) error {
	k.store.MarkRefreshed(k.id)
	return nil
}

// Progress records batching progress
func (k *Sink) Progress(total, processed int) {
	k.store.UpdateProgress(k.id, total, processed)
}

// State records an orchestrator transition
func (k *Sink) State(st importer.State) {
	_ = k.store.UpdateStatus(k.id, JobStatus(st))
}

// Settled counts a settled batch
func (k *Sink) Settled(_ int, o client.Outcome) {
	k.store.update(k.id, func(j *Job) {
		if o.Fulfilled() {
			j.BatchesSucceeded++
		} else {
			j.BatchesFailed++
			j.LastError = o.Err.Error()
		}
		j.Attempts += int64(o.Attempts)
		if o.Attempts > 1 {
			j.Retries += int64(o.Attempts - 1)
		}
	})
}

// Collaborators wires the sink into an import.
// A non-nil refresher runs first; the job records the refresh only when it succeeds.
func (k *Sink) Collaborators(refresher importer.Refresher) importer.Collaborators {
	var r importer.Refresher = k
	if refresher != nil {
		r = chainRefresher{refresher, k}
	}
	return importer.Collaborators{
		Notifier:   k,
		Refresher:  r,
		Visibility: k,
		Progress:   k.Progress,
		OnState:    k.State,
		OnSettled:  k.Settled,
	}
}

type chainRefresher []importer.Refresher

func (c chainRefresher) Refresh(ctx context.Context, table string) error {
	for _, r := range c {
		if err := r.Refresh(ctx, table); err != nil {
			return err
		}
	}
	return nil
}
