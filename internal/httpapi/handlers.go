package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ryabkov82/bulk-import/internal/importer"
	"github.com/ryabkov82/bulk-import/internal/ingest"
	"github.com/ryabkov82/bulk-import/internal/job"
	"github.com/ryabkov82/bulk-import/internal/logger"
	"github.com/ryabkov82/bulk-import/internal/version"
)

// Handler handles HTTP requests
type Handler struct {
	store          *job.Store
	allowedBaseDir string
	maxBodyBytes   int64
	log            *zerolog.Logger
}

// HandlerOptions configures NewHandler
type HandlerOptions struct {
	AllowedBaseDir string
	// MaxBodyBytes caps request bodies; 0 means unlimited
	MaxBodyBytes int64
	Logger       *zerolog.Logger
}

// NewHandler creates a new handler
func NewHandler(store *job.Store, opts HandlerOptions) (*Handler, error) {
	// Ensure allowedBaseDir is absolute
	absDir, err := filepath.Abs(opts.AllowedBaseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid allowed base dir: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Named("http")
	}

	return &Handler{
		store:          store,
		allowedBaseDir: absDir,
		maxBodyBytes:   opts.MaxBodyBytes,
		log:            log,
	}, nil
}

// createImportRequest is the body of POST /imports.
// Exactly one of Records and InputPath is set.
type createImportRequest struct {
	Records   []ingest.Record   `json:"records"`
	InputPath string            `json:"inputPath"`
	CSV       ingest.CSVOptions `json:"csv"`
	Endpoint  string            `json:"endpoint" validate:"notblank"`
	Modal     string            `json:"modal" validate:"notblank"`
	Table     string            `json:"table" validate:"notblank"`
	Options   ingest.Options    `json:"options"`
}

// CreateImport handles POST /imports
func (h *Handler) CreateImport(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req createImportRequest
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err), nil)
		return
	}

	if err := importer.ValidateStruct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	hasRecords := req.Records != nil
	hasPath := strings.TrimSpace(req.InputPath) != ""
	switch {
	case hasRecords && hasPath:
		writeError(w, http.StatusBadRequest, "records and inputPath are mutually exclusive", nil)
		return
	case !hasRecords && !hasPath:
		writeError(w, http.StatusBadRequest, "either records or inputPath is required", nil)
		return
	}

	j := &job.Job{
		Endpoint: req.Endpoint,
		Modal:    req.Modal,
		Table:    req.Table,
		Options:  req.Options,
		Records:  req.Records,
	}

	if hasPath {
		// Validate input path (security check)
		if _, err := ingest.ValidatePath(req.InputPath, h.allowedBaseDir); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid input path: %v", err), nil)
			return
		}
		if req.CSV.Encoding == "" {
			req.CSV.Encoding = ingest.EncodingUTF8
		}
		j.InputPath = req.InputPath
		j.CSV = req.CSV
	}

	jobID, err := h.store.Create(j)
	if err != nil {
		if errors.Is(err, job.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "Queue is full, please try again later", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create job: %v", err), nil)
		return
	}

	h.log.Info().
		Str("job_id", jobID).
		Str("endpoint", req.Endpoint).
		Int("records", len(req.Records)).
		Str("input_path", req.InputPath).
		Msg("import job created")

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobId":  jobID,
		"status": job.StatusQueued,
	})
}

// jobView is the JSON form of a job
type jobView struct {
	JobID            string             `json:"jobId"`
	Status           job.JobStatus      `json:"status"`
	Endpoint         string             `json:"endpoint"`
	Modal            string             `json:"modal"`
	Table            string             `json:"table"`
	InputPath        string             `json:"inputPath,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	StartedAt        *time.Time         `json:"startedAt,omitempty"`
	FinishedAt       *time.Time         `json:"finishedAt,omitempty"`
	TotalRecords     int                `json:"totalRecords"`
	RecordsBatched   int                `json:"recordsBatched"`
	BatchesTotal     int                `json:"batchesTotal"`
	BatchesSucceeded int                `json:"batchesSucceeded"`
	BatchesFailed    int                `json:"batchesFailed"`
	Attempts         int64              `json:"attempts"`
	Retries          int64              `json:"retries"`
	LastError        string             `json:"lastError,omitempty"`
	ModalVisible     bool               `json:"modalVisible"`
	RefreshedAt      *time.Time         `json:"refreshedAt,omitempty"`
	Notifications    []job.Notification `json:"notifications"`
}

func newJobView(j *job.Job) jobView {
	notes := j.Notifications
	if notes == nil {
		notes = []job.Notification{}
	}
	return jobView{
		JobID:            j.ID,
		Status:           j.Status,
		Endpoint:         j.Endpoint,
		Modal:            j.Modal,
		Table:            j.Table,
		InputPath:        j.InputPath,
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		FinishedAt:       j.FinishedAt,
		TotalRecords:     j.TotalRecords,
		RecordsBatched:   j.RecordsBatched,
		BatchesTotal:     j.BatchesTotal,
		BatchesSucceeded: j.BatchesSucceeded,
		BatchesFailed:    j.BatchesFailed,
		Attempts:         j.Attempts,
		Retries:          j.Retries,
		LastError:        j.LastError,
		ModalVisible:     j.ModalVisible,
		RefreshedAt:      j.RefreshedAt,
		Notifications:    notes,
	}
}

// GetImport handles GET /imports/{jobId}
func (h *Handler) GetImport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required", nil)
		return
	}

	j, err := h.store.Get(jobID)
	if err != nil {
		if errors.Is(err, job.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, newJobView(j))
}

// ListImports handles GET /imports
func (h *Handler) ListImports(w http.ResponseWriter, r *http.Request) {
	jobs := h.store.List()
	views := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, newJobView(j))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"imports": views})
}

// GetVersion handles GET /version
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Info())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details []string) {
	body := map[string]interface{}{"error": message}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *importer.ValidationError
	if !errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	details := make([]string, 0, len(verr.Errors))
	for _, fe := range verr.Errors {
		details = append(details, fe.Message)
	}
	writeError(w, http.StatusBadRequest, "Invalid request", details)
}
