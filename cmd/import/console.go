package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ryabkov82/bulk-import/internal/importer"
)

// consoleSink prints import side effects as lines on w
type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

func (s *consoleSink) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *consoleSink) Success(m string) { s.printf("[ok] %s", m) }
func (s *consoleSink) Error(m string)   { s.printf("[error] %s", m) }
func (s *consoleSink) Info(m string)    { s.printf("[info] %s", m) }

func (s *consoleSink) Show(modal string) { s.printf("[%s] started", modal) }
func (s *consoleSink) Hide(modal string) { s.printf("[%s] done", modal) }

func (s *consoleSink) Refresh(_ context.Context, table string) error {
	s.printf("[refresh] %s", table)
	return nil
}

func (s *consoleSink) progress(total, processed int) {
	s.printf("batched %d/%d", processed, total)
}

func (s *consoleSink) collaborators() importer.Collaborators {
	return importer.Collaborators{
		Notifier:   s,
		Refresher:  s,
		Visibility: s,
		Progress:   s.progress,
	}
}
