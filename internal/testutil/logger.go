// Package testutil provides loggers and handlers shared by tests.
package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Entry is one captured log record, attributes flattened to strings.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// LogRecorder is a slog.Handler that keeps every record at or above its
// level so tests can assert on what a component logged.
type LogRecorder struct {
	level slog.Level
	attrs []slog.Attr

	mu      *sync.Mutex
	entries *[]Entry
}

// NewLogRecorder returns a recorder and a logger writing to it.
func NewLogRecorder(level slog.Level) (*LogRecorder, *slog.Logger) {
	r := &LogRecorder{level: level, mu: &sync.Mutex{}, entries: &[]Entry{}}
	return r, slog.New(r)
}

// Enabled implements slog.Handler.
func (r *LogRecorder) Enabled(_ context.Context, level slog.Level) bool {
	return level >= r.level
}

// Handle implements slog.Handler.
func (r *LogRecorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: map[string]string{}}
	for _, a := range r.attrs {
		e.Attrs[a.Key] = a.Value.String()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.String()
		return true
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, e)
	return nil
}

// WithAttrs implements slog.Handler. Derived handlers share the entry list.
func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *r
	c.attrs = append(append([]slog.Attr{}, r.attrs...), attrs...)
	return &c
}

// WithGroup implements slog.Handler; groups are not tracked.
func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of the captured records.
func (r *LogRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), *r.entries...)
}

// Find returns the first entry with the given message.
func (r *LogRecorder) Find(msg string) (Entry, bool) {
	for _, e := range r.Entries() {
		if e.Message == msg {
			return e, true
		}
	}
	return Entry{}, false
}
