package importer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryabkov82/bulk-import/internal/client"
	"github.com/ryabkov82/bulk-import/internal/ingest"
	"github.com/ryabkov82/bulk-import/internal/logger"
)

// recorder implements every collaborator and records calls
type recorder struct {
	mu        sync.Mutex
	successes []string
	errors    []string
	infos     []string
	shown     []string
	hidden    []string
	refreshed []string
	refreshFn func(table string) error
	states    []State
	progress  [][2]int
}

func (r *recorder) add(dst *[]string, m string) {
	r.mu.Lock()
	*dst = append(*dst, m)
	r.mu.Unlock()
}

func (r *recorder) Success(m string) { r.add(&r.successes, m) }
func (r *recorder) Error(m string)   { r.add(&r.errors, m) }
func (r *recorder) Info(m string)    { r.add(&r.infos, m) }
func (r *recorder) Show(m string)    { r.add(&r.shown, m) }
func (r *recorder) Hide(m string)    { r.add(&r.hidden, m) }

func (r *recorder) Refresh(ctx context.Context, table string) error {
	r.mu.Lock()
	r.refreshed = append(r.refreshed, table)
	fn := r.refreshFn
	r.mu.Unlock()
	if fn != nil {
		return fn(table)
	}
	return nil
}

func (r *recorder) collaborators() Collaborators {
	return Collaborators{
		Notifier:   r,
		Refresher:  r,
		Visibility: r,
		Progress: func(total, processed int) {
			r.mu.Lock()
			r.progress = append(r.progress, [2]int{total, processed})
			r.mu.Unlock()
		},
		OnState: func(s State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
	}
}

// fakeClock records delays without sleeping
type fakeClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	return ctx.Err()
}

// funcSubmitter adapts a function to client.Submitter
type funcSubmitter func(ctx context.Context, b *ingest.Batch) (*client.Response, error)

func (f funcSubmitter) Submit(ctx context.Context, b *ingest.Batch) (*client.Response, error) {
	return f(ctx, b)
}

func records(n int) []ingest.Record {
	out := make([]ingest.Record, n)
	for i := range out {
		out[i] = ingest.Record{"id": i}
	}
	return out
}

func validRequest(endpoint string, n int) Request {
	return Request{
		Records:  records(n),
		Endpoint: endpoint,
		Modal:    "#importModal",
		Table:    "#customersTable",
	}
}

func TestImport250RecordsSucceeds(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes = map[string]int{}
		calls atomic.Int32
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var batch []map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		mu.Lock()
		sizes[r.Header.Get("X-Batch-No")] = len(batch)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	rec := &recorder{}
	im := New(Options{Logger: logger.Nop(), Clock: &fakeClock{}})

	rep := im.Import(context.Background(), validRequest(server.URL, 250), rec.collaborators())

	require.NoError(t, rep.Err)
	assert.True(t, rep.OK())
	assert.Equal(t, StateSucceeded, rep.Status)
	assert.Equal(t, 3, rep.Batches)
	assert.Equal(t, 3, rep.Succeeded)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, map[string]int{"0": 100, "1": 100, "2": 50}, sizes)
	assert.EqualValues(t, 3, rep.Timings.Attempts)
	assert.NotEmpty(t, rep.ImportID)

	assert.Equal(t, []string{"#customersTable"}, rec.refreshed)
	assert.Equal(t, []string{MsgSuccess}, rec.successes)
	assert.Empty(t, rec.errors)
	assert.Equal(t, []string{"#importModal"}, rec.shown)
	assert.Equal(t, []string{"#importModal"}, rec.hidden)
	assert.Equal(t, [][2]int{{250, 100}, {250, 200}, {250, 250}}, rec.progress)
	assert.Equal(t, []State{StateValidating, StateBatching, StateScheduling, StateAggregating, StateSucceeded}, rec.states)
}

func TestImportEmptyRecordsFailsValidation(t *testing.T) {
	var calls atomic.Int32
	rec := &recorder{}
	im := New(Options{
		Logger: logger.Nop(),
		NewSubmitter: func(string, ingest.Config, string, *ingest.Timings) client.Submitter {
			return funcSubmitter(func(context.Context, *ingest.Batch) (*client.Response, error) {
				calls.Add(1)
				return &client.Response{Success: true}, nil
			})
		},
	})

	req := validRequest("http://example.invalid/import", 0)
	rep := im.Import(context.Background(), req, rec.collaborators())

	assert.Equal(t, StateFailed, rep.Status)
	assert.ErrorIs(t, rep.Err, ErrValidation)
	assert.Zero(t, calls.Load())
	require.Len(t, rec.errors, 1)
	assert.Equal(t, "Import failed: Invalid input: records cannot be empty.", rec.errors[0])
	assert.Empty(t, rec.refreshed)
	assert.Equal(t, []string{"#importModal"}, rec.hidden)
	assert.Equal(t, []State{StateValidating, StateFailed}, rec.states)
}

func TestImportValidationCombinesMessages(t *testing.T) {
	rec := &recorder{}
	im := New(Options{Logger: logger.Nop()})

	rep := im.Import(context.Background(), Request{Endpoint: "  ", Table: "t"}, rec.collaborators())

	var verr *ValidationError
	require.ErrorAs(t, rep.Err, &verr)
	require.Len(t, verr.Errors, 3)
	assert.Equal(t, "records", verr.Errors[0].Field)
	assert.Equal(t, "endpoint", verr.Errors[1].Field)
	assert.Equal(t, "modal", verr.Errors[2].Field)
	assert.Equal(t,
		"Import failed: Invalid input: records cannot be empty.\n"+
			"Invalid input: endpoint must be a non-empty string.\n"+
			"Invalid input: modal must be a non-empty string.",
		rec.errors[0])
	assert.Len(t, rec.hidden, 1)
}

func TestImportBatchAlwaysTimesOut(t *testing.T) {
	var attempts [3]atomic.Int32
	clock := &fakeClock{}
	rec := &recorder{}

	im := New(Options{
		Logger: logger.Nop(),
		Clock:  clock,
		NewSubmitter: func(string, ingest.Config, string, *ingest.Timings) client.Submitter {
			return funcSubmitter(func(ctx context.Context, b *ingest.Batch) (*client.Response, error) {
				attempts[b.Index].Add(1)
				if b.Index == 1 {
					return nil, &client.TransportError{Err: context.DeadlineExceeded}
				}
				return &client.Response{Success: true}, nil
			})
		},
	})

	req := validRequest("http://example.invalid/import", 25)
	req.Options = ingest.Options{BatchSize: 10, MaxRetries: 3, DelayTimeMs: 1000}
	rep := im.Import(context.Background(), req, rec.collaborators())

	assert.Equal(t, StatePartiallyFailed, rep.Status)
	assert.False(t, rep.OK())
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.EqualValues(t, 1, attempts[0].Load())
	assert.EqualValues(t, 4, attempts[1].Load())
	assert.EqualValues(t, 1, attempts[2].Load())
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.delays)

	require.Len(t, rep.Outcomes, 3)
	assert.True(t, rep.Outcomes[0].Fulfilled())
	assert.False(t, rep.Outcomes[1].Fulfilled())
	assert.Equal(t, 4, rep.Outcomes[1].Attempts)

	var bfe *BatchFailureError
	require.ErrorAs(t, rep.Err, &bfe)
	var exhausted *client.RetriesExhaustedError
	require.ErrorAs(t, rep.Err, &exhausted)
	assert.Equal(t, 1, exhausted.BatchIndex)
	assert.True(t, client.IsTimeout(rep.Err))

	// One report for the exhausted batch, one for the import as a whole
	require.Len(t, rec.errors, 2)
	assert.Contains(t, rec.errors[0], "Batch 1 import failed after 4 attempts")
	assert.Contains(t, rec.errors[1], "Import failed: 1 of 3 batches failed")
	assert.Empty(t, rec.successes)
	assert.Empty(t, rec.refreshed)
	assert.Equal(t, []string{"#importModal"}, rec.hidden)
}

func TestImportRespectsConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int32
	im := New(Options{
		Logger: logger.Nop(),
		NewSubmitter: func(string, ingest.Config, string, *ingest.Timings) client.Submitter {
			return funcSubmitter(func(ctx context.Context, b *ingest.Batch) (*client.Response, error) {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return &client.Response{Success: true}, nil
			})
		},
	})

	req := validRequest("http://example.invalid/import", 40)
	req.Options = ingest.Options{BatchSize: 3, MaxConcurrentRequests: 4}
	rep := im.Import(context.Background(), req, Collaborators{})

	require.True(t, rep.OK())
	assert.Equal(t, 14, rep.Batches)
	require.Len(t, rep.Outcomes, 14)
	for i, o := range rep.Outcomes {
		assert.Equal(t, i, o.BatchIndex)
	}
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

func TestImportRefreshFailureReportsInfo(t *testing.T) {
	rec := &recorder{refreshFn: func(string) error { return errors.New("table gone") }}
	im := New(Options{
		Logger: logger.Nop(),
		NewSubmitter: func(string, ingest.Config, string, *ingest.Timings) client.Submitter {
			return funcSubmitter(func(context.Context, *ingest.Batch) (*client.Response, error) {
				return &client.Response{Success: true}, nil
			})
		},
	})

	rep := im.Import(context.Background(), validRequest("http://example.invalid", 3), rec.collaborators())

	assert.True(t, rep.OK())
	assert.Empty(t, rec.successes)
	assert.Equal(t, []string{MsgSuccessRefreshFailed}, rec.infos)
	assert.Len(t, rec.hidden, 1)
}

func TestImportUsesImporterDefaults(t *testing.T) {
	var got ingest.Config
	im := New(Options{
		Logger:   logger.Nop(),
		Defaults: ingest.Config{BatchSize: 2, MaxRetries: 1},
		NewSubmitter: func(_ string, cfg ingest.Config, _ string, _ *ingest.Timings) client.Submitter {
			got = cfg
			return funcSubmitter(func(context.Context, *ingest.Batch) (*client.Response, error) {
				return &client.Response{Success: true}, nil
			})
		},
	})

	rep := im.Import(context.Background(), validRequest("http://example.invalid", 5), Collaborators{})

	assert.Equal(t, 3, rep.Batches)
	assert.Equal(t, 2, got.BatchSize)
	assert.Equal(t, 1, got.MaxRetries)
	assert.Equal(t, ingest.DefaultSendTimeout, got.SendTimeout)
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StatePartiallyFailed.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateScheduling.Terminal())
}
