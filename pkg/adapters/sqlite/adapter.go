// Package sqlite provides a SQLite database adapter backed by the pure Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/leapstack-labs/leaptable/pkg/adapter"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Name returns the registered adapter name.
func (a *Adapter) Name() string { return "sqlite" }

// Placeholder returns "?".
func (a *Adapter) Placeholder(n int) string { return adapter.QuestionPlaceholder(n) }

// Connect opens the database file at cfg.Path.
// Use ":memory:" (or an empty path) for an in-memory database.
// Options are applied as PRAGMAs, e.g. {"busy_timeout": "5000"}.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	memory := path == "" || path == ":memory:"
	if memory {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	if err := a.Open(ctx, "sqlite", buildDSN(path, cfg.Options), cfg); err != nil {
		return err
	}

	// Every connection to ":memory:" is a separate database.
	if memory {
		a.Pool.SetMaxOpenConns(1)
	}
	return nil
}

// buildDSN appends options as _pragma query parameters in key order.
func buildDSN(path string, options map[string]string) string {
	if len(options) == 0 {
		return path
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := url.Values{}
	for _, k := range keys {
		q.Add("_pragma", fmt.Sprintf("%s(%s)", k, options[k]))
	}
	return "file:" + path + "?" + q.Encode()
}
