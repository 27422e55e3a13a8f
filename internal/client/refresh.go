package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/sjson"
)

// RefreshHook notifies a downstream view that a table's data changed
type RefreshHook struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewRefreshHook creates a hook posting to url.
// An empty url yields a hook whose Refresh is a no-op.
func NewRefreshHook(url string, timeout time.Duration) *RefreshHook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RefreshHook{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Enabled reports whether a refresh URL is configured
func (h *RefreshHook) Enabled() bool {
	return h != nil && h.url != ""
}

// Refresh posts {"table": <table>, "refreshedAt": <RFC3339>} to the hook URL
func (h *RefreshHook) Refresh(ctx context.Context, table string) error {
	if !h.Enabled() {
		return nil
	}

	body, err := sjson.Set(`{}`, "table", table)
	if err != nil {
		return fmt.Errorf("refresh body: %w", err)
	}
	body, err = sjson.Set(body, "refreshedAt", time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("refresh body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err = requests.
		URL(h.url).
		Client(h.client).
		Post().
		ContentType("application/json").
		BodyBytes([]byte(body)).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", table, err)
	}
	return nil
}
