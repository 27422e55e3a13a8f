package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"

	"github.com/ryabkov82/bulk-import/internal/ingest"
)

// ErrInvalidResponse is wrapped by TransportError when the body is not valid JSON
var ErrInvalidResponse = errors.New("invalid json response")

// maxErrorBody caps the response body kept on a TransportError
const maxErrorBody = 2048

// Submitter sends one batch and reports the endpoint's verdict
type Submitter interface {
	Submit(ctx context.Context, batch *ingest.Batch) (*Response, error)
}

// Response is the parsed body of a submission response
type Response struct {
	StatusCode int
	Success    bool
	Error      string
	Raw        string
}

// SenderOptions configures a Sender
type SenderOptions struct {
	Endpoint string
	Timeout  time.Duration // per attempt
	Gzip     bool
	// BasicUser/BasicPass enable Basic auth when both are set
	BasicUser string
	BasicPass string
	// ImportID is sent as X-Import-Id on every request when set
	ImportID string
	// Timings is optional; if nil, metrics collection is disabled
	Timings *ingest.Timings
	// HTTPClient overrides the default client (tests, custom transports)
	HTTPClient *http.Client
}

// Sender posts batches to the import endpoint
type Sender struct {
	client    *http.Client
	endpoint  string
	timeout   time.Duration
	gzip      bool
	basicUser string
	basicPass string
	importID  string
	timings   *ingest.Timings
}

// NewSender creates a new sender
func NewSender(opts SenderOptions) *Sender {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = ingest.DefaultSendTimeout
	}

	return &Sender{
		client:    client,
		endpoint:  opts.Endpoint,
		timeout:   timeout,
		gzip:      opts.Gzip,
		basicUser: opts.BasicUser,
		basicPass: opts.BasicPass,
		importID:  opts.ImportID,
		timings:   opts.Timings,
	}
}

// Submit sends a batch once, bounded by the sender timeout.
// It returns a Response only when the endpoint reports success; otherwise the
// error is a *TransportError or a *ServerError.
func (s *Sender) Submit(ctx context.Context, batch *ingest.Batch) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	marshalStart := time.Now()
	payload, err := json.Marshal(batch)
	if s.timings != nil {
		s.timings.ObserveMarshal(time.Since(marshalStart))
	}
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("marshal error: %w", err)}
	}

	rb := requests.
		URL(s.endpoint).
		Client(s.client).
		Post().
		ContentType("application/json").
		Header("X-Batch-No", strconv.Itoa(batch.Index)).
		Header("X-Rows-Count", strconv.Itoa(batch.Len()))

	if s.gzip {
		gzipStart := time.Now()
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(payload); err != nil {
			return nil, &TransportError{Err: fmt.Errorf("gzip error: %w", err)}
		}
		if err := gz.Close(); err != nil {
			return nil, &TransportError{Err: fmt.Errorf("gzip close error: %w", err)}
		}
		if s.timings != nil {
			s.timings.ObserveGzip(time.Since(gzipStart))
		}
		payload = buf.Bytes()
		rb = rb.Header("Content-Encoding", "gzip")
	}
	rb = rb.BodyBytes(payload)

	if s.basicUser != "" && s.basicPass != "" {
		rb = rb.BasicAuth(s.basicUser, s.basicPass)
	}
	if s.importID != "" {
		rb = rb.Header("X-Import-Id", s.importID)
	}

	var (
		status int
		body   bytes.Buffer
	)
	httpStart := time.Now()
	err = rb.
		// Status codes are classified below, after the body has been read
		AddValidator(func(*http.Response) error { return nil }).
		Handle(func(res *http.Response) error {
			status = res.StatusCode
			_, err := body.ReadFrom(res.Body)
			return err
		}).
		Fetch(attemptCtx)
	if s.timings != nil {
		s.timings.ObserveHTTP(time.Since(httpStart))
	}
	if err != nil {
		return nil, &TransportError{StatusCode: status, Err: fmt.Errorf("http error: %w", err)}
	}

	return parseResponse(status, body.Bytes())
}

// parseResponse turns a raw HTTP response into a Response or a typed error
func parseResponse(status int, body []byte) (*Response, error) {
	if status < 200 || status > 299 {
		return nil, &TransportError{StatusCode: status, Body: truncate(string(body))}
	}
	if !gjson.ValidBytes(body) {
		return nil, &TransportError{StatusCode: status, Body: truncate(string(body)), Err: ErrInvalidResponse}
	}

	parsed := gjson.ParseBytes(body)
	resp := &Response{
		StatusCode: status,
		Success:    parsed.Get("success").Bool(),
		Error:      parsed.Get("error").String(),
		Raw:        string(body),
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = UnknownServerError
		}
		return nil, &ServerError{Message: msg}
	}
	return resp, nil
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
