// Package duckdb provides a DuckDB database adapter.
package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/leaptable/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{BaseSQLAdapter: adapter.NewBase(logger)}
}

// Name returns the registered adapter name.
func (a *Adapter) Name() string { return "duckdb" }

// Placeholder returns "?".
func (a *Adapter) Placeholder(n int) string { return adapter.QuestionPlaceholder(n) }

// Connect establishes a connection to DuckDB.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path))

	if err := a.Open(ctx, "duckdb", path, cfg); err != nil {
		return err
	}

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// applyParams installs extensions and applies settings.
func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		if !identPattern.MatchString(ext) {
			return fmt.Errorf("invalid extension name %q", ext)
		}
		if _, err := a.Pool.ExecContext(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := a.Pool.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !identPattern.MatchString(k) {
			return fmt.Errorf("invalid setting name %q", k)
		}
		value := strings.ReplaceAll(p.Settings[k], "'", "''")
		if _, err := a.Pool.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", k, value)); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}
