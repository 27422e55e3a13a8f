package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ryabkov82/bulk-import/internal/job"
	"github.com/ryabkov82/bulk-import/internal/logger"
)

func newTestHandler(t *testing.T, store *job.Store, baseDir string) *Handler {
	t.Helper()
	h, err := NewHandler(store, HandlerOptions{AllowedBaseDir: baseDir, Logger: logger.Nop()})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return h
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func inlineRequest(n int) map[string]interface{} {
	records := make([]map[string]interface{}, n)
	for i := range records {
		records[i] = map[string]interface{}{"id": i}
	}
	return map[string]interface{}{
		"records":  records,
		"endpoint": "http://localhost/import",
		"modal":    "#importModal",
		"table":    "#customersTable",
	}
}
