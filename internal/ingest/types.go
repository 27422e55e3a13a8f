package ingest

import (
	"encoding/json"

	"github.com/mohae/deepcopy"
)

// Record is a single row of an import: field name to value
type Record map[string]interface{}

// Batch represents a batch of records to send
// Index is the zero-based position of the batch in the source sequence
type Batch struct {
	Index   int
	Records []Record
}

// MarshalJSON encodes the batch as its wire payload: a JSON array of records
func (b Batch) MarshalJSON() ([]byte, error) {
	if b.Records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.Records)
}

// Len returns the number of records in the batch
func (b *Batch) Len() int {
	return len(b.Records)
}

// Clone returns a deep copy of the record.
// Nested maps, slices and pointers of any type are copied, so the clone shares
// no mutable state with r. Unexported struct fields are not carried over.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return deepcopy.Copy(r).(Record)
}
