package job

import (
	"time"

	"github.com/ryabkov82/bulk-import/internal/importer"
	"github.com/ryabkov82/bulk-import/internal/ingest"
)

// JobStatus represents the status of a job.
// Besides StatusQueued it takes the importer state names.
type JobStatus string

const (
	StatusQueued          JobStatus = "queued"
	StatusValidating      JobStatus = JobStatus(importer.StateValidating)
	StatusBatching        JobStatus = JobStatus(importer.StateBatching)
	StatusScheduling      JobStatus = JobStatus(importer.StateScheduling)
	StatusAggregating     JobStatus = JobStatus(importer.StateAggregating)
	StatusSucceeded       JobStatus = JobStatus(importer.StateSucceeded)
	StatusPartiallyFailed JobStatus = JobStatus(importer.StatePartiallyFailed)
	StatusFailed          JobStatus = JobStatus(importer.StateFailed)
)

// Finished reports whether the job has reached a terminal status
func (s JobStatus) Finished() bool {
	return importer.State(s).Terminal()
}

// Severity of a notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notification is one user-facing message emitted during an import
type Notification struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Job represents an import request and its live state
type Job struct {
	ID       string
	Endpoint string
	Modal    string
	Table    string
	Options  ingest.Options

	// Records are inline records; when empty the job reads InputPath
	Records   []ingest.Record
	InputPath string
	CSV       ingest.CSVOptions

	Status     JobStatus
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time

	TotalRecords     int
	RecordsBatched   int
	BatchesTotal     int
	BatchesSucceeded int
	BatchesFailed    int
	Attempts         int64
	Retries          int64
	LastError        string

	Notifications []Notification
	ModalVisible  bool
	RefreshedAt   *time.Time
}

// Request builds the importer request for j
func (j *Job) Request(records []ingest.Record) importer.Request {
	return importer.Request{
		ImportID: j.ID,
		Records:  records,
		Endpoint: j.Endpoint,
		Modal:    j.Modal,
		Table:    j.Table,
		Options:  j.Options,
	}
}

// snapshot copies j without its records
func (j *Job) snapshot() *Job {
	cp := *j
	cp.Records = nil
	cp.Notifications = append([]Notification(nil), j.Notifications...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		cp.FinishedAt = &t
	}
	if j.RefreshedAt != nil {
		t := *j.RefreshedAt
		cp.RefreshedAt = &t
	}
	return &cp
}
