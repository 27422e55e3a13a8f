package importer

import (
	"context"

	"github.com/ryabkov82/bulk-import/internal/client"
	"github.com/ryabkov82/bulk-import/internal/ingest"
)

// Notifier shows user-facing messages
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Refresher reloads the named table or view after a successful import
type Refresher interface {
	Refresh(ctx context.Context, table string) error
}

// Visibility shows and hides the named progress dialog
type Visibility interface {
	Show(modal string)
	Hide(modal string)
}

// Collaborators are the side-effect sinks of one import.
// Any nil field is replaced by a no-op.
type Collaborators struct {
	Notifier   Notifier
	Refresher  Refresher
	Visibility Visibility
	Progress   ingest.ProgressFunc
	// OnState is called on every state transition
	OnState func(State)
	// OnSettled is called as each batch settles; must be safe for concurrent use
	OnSettled client.OnSettled
	// Timings receives counters for the import; a fresh one is used when nil
	Timings *ingest.Timings
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Info(string)    {}

type nopRefresher struct{}

func (nopRefresher) Refresh(context.Context, string) error { return nil }

type nopVisibility struct{}

func (nopVisibility) Show(string) {}
func (nopVisibility) Hide(string) {}

func (c Collaborators) withDefaults() Collaborators {
	if c.Notifier == nil {
		c.Notifier = nopNotifier{}
	}
	if c.Refresher == nil {
		c.Refresher = nopRefresher{}
	}
	if c.Visibility == nil {
		c.Visibility = nopVisibility{}
	}
	if c.OnState == nil {
		c.OnState = func(State) {}
	}
	if c.Timings == nil {
		c.Timings = ingest.NewTimings()
	}
	return c
}
