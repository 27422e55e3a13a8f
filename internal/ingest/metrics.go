package ingest

import (
	"fmt"
	"sync"
	"time"
)

// Timings tracks timing metrics and counters for the stages of an import
type Timings struct {
	mu sync.Mutex

	// Batch assembly
	BatchAssemblyTotal time.Duration
	BatchAssemblyCount int64

	// Submission
	MarshalTotal time.Duration
	MarshalCount int64
	GzipTotal    time.Duration
	GzipCount    int64
	HTTPTotal    time.Duration
	HTTPCount    int64

	// Retry policy
	Attempts  int64
	Retries   int64
	Exhausted int64
}

// TimingsSnapshot is a copy of the counters, safe to read without locking
type TimingsSnapshot struct {
	Attempts  int64 `json:"attempts"`
	Retries   int64 `json:"retries"`
	Exhausted int64 `json:"exhausted"`
	HTTPCount int64 `json:"httpCount"`
	HTTPAvgMs int64 `json:"httpAvgMs"`
}

// NewTimings creates a new Timings instance
func NewTimings() *Timings {
	return &Timings{}
}

// ObserveBatchAssembly records a batch assembly operation duration
func (t *Timings) ObserveBatchAssembly(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.BatchAssemblyTotal += duration
	t.BatchAssemblyCount++
}

// ObserveMarshal records a JSON marshal operation duration
func (t *Timings) ObserveMarshal(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.MarshalTotal += duration
	t.MarshalCount++
}

// ObserveGzip records a gzip operation duration
func (t *Timings) ObserveGzip(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.GzipTotal += duration
	t.GzipCount++
}

// ObserveHTTP records an HTTP round-trip duration
func (t *Timings) ObserveHTTP(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.HTTPTotal += duration
	t.HTTPCount++
}

// IncAttempt increments the submission attempts counter
func (t *Timings) IncAttempt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Attempts++
}

// IncRetry increments the retries counter
func (t *Timings) IncRetry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Retries++
}

// IncExhausted increments the exhausted batches counter
func (t *Timings) IncExhausted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Exhausted++
}

// Snapshot returns the current counters
func (t *Timings) Snapshot() TimingsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TimingsSnapshot{
		Attempts:  t.Attempts,
		Retries:   t.Retries,
		Exhausted: t.Exhausted,
		HTTPCount: t.HTTPCount,
	}
	if t.HTTPCount > 0 {
		s.HTTPAvgMs = (t.HTTPTotal / time.Duration(t.HTTPCount)).Milliseconds()
	}
	return s
}

// String returns a formatted summary of all timings
func (t *Timings) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result string

	if t.BatchAssemblyCount > 0 {
		avg := t.BatchAssemblyTotal / time.Duration(t.BatchAssemblyCount)
		result += fmt.Sprintf("Batch assembly: total=%v count=%d avg=%v; ", t.BatchAssemblyTotal, t.BatchAssemblyCount, avg)
	}
	if t.MarshalCount > 0 {
		avg := t.MarshalTotal / time.Duration(t.MarshalCount)
		result += fmt.Sprintf("Marshal: total=%v count=%d avg=%v; ", t.MarshalTotal, t.MarshalCount, avg)
	}
	if t.GzipCount > 0 {
		avg := t.GzipTotal / time.Duration(t.GzipCount)
		result += fmt.Sprintf("Gzip: total=%v count=%d avg=%v; ", t.GzipTotal, t.GzipCount, avg)
	}
	if t.HTTPCount > 0 {
		avg := t.HTTPTotal / time.Duration(t.HTTPCount)
		result += fmt.Sprintf("HTTP: total=%v count=%d avg=%v; ", t.HTTPTotal, t.HTTPCount, avg)
	}
	if t.Attempts > 0 {
		result += fmt.Sprintf("Attempts: %d retries=%d exhausted=%d; ", t.Attempts, t.Retries, t.Exhausted)
	}

	if result == "" {
		return "No timings recorded"
	}

	// Remove trailing "; "
	return result[:len(result)-2]
}
