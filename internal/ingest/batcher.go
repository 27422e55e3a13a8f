package ingest

import (
	"errors"
	"time"
)

// ErrInvalidBatchSize is returned by Split when batchSize < 1
var ErrInvalidBatchSize = errors.New("batch size must be >= 1")

// ProgressFunc is called after each batch is assembled
// total: number of source records
// processed: number of records batched so far
type ProgressFunc func(total, processed int)

// Split splits records into consecutive, order-preserving batches of at most
// batchSize records. Every record is deep-copied into its batch.
func Split(records []Record, batchSize int, progress ProgressFunc) ([]Batch, error) {
	return SplitWithTimings(records, batchSize, progress, nil)
}

// SplitWithTimings is Split with batch assembly time recorded into timings.
// If timings is nil, metrics collection is disabled
func SplitWithTimings(records []Record, batchSize int, progress ProgressFunc, timings *Timings) ([]Batch, error) {
	if batchSize < 1 {
		return nil, ErrInvalidBatchSize
	}

	total := len(records)
	batches := make([]Batch, 0, (total+batchSize-1)/batchSize)

	for start := 0; start < total; start += batchSize {
		assemblyStart := time.Now()

		end := start + batchSize
		if end > total {
			end = total
		}

		batch := Batch{
			Index:   len(batches),
			Records: make([]Record, 0, end-start),
		}
		for _, r := range records[start:end] {
			batch.Records = append(batch.Records, r.Clone())
		}
		batches = append(batches, batch)

		if timings != nil {
			timings.ObserveBatchAssembly(time.Since(assemblyStart))
		}
		if progress != nil {
			progress(total, end)
		}
	}

	return batches, nil
}
