package engine

import (
	"errors"
	"log/slog"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/loader"
)

// ErrNoSource is returned by Reload on an executor built from a schema value.
var ErrNoSource = errors.New("executor has no source to reload from")

// Reload builds a new schema from the executor's source. On success the new
// schema replaces the current one in a single atomic swap; callers that
// already hold the old snapshot keep using it. On failure the current schema
// is kept and the error is appended to the error log.
func (e *Executor) Reload() error {
	if e.source == nil {
		e.appendError(ErrNoSource.Error())
		return ErrNoSource
	}

	s, diags, err := build(e.source)
	e.logDiagnostics(diags)
	e.metrics.Reloaded(err)
	if err != nil {
		e.appendError(err.Error())
		e.logger.Warn("schema reload failed, keeping current schema",
			slog.String("source", e.source.String()),
			slog.String("error", err.Error()))
		return err
	}

	e.schema.Store(s)
	e.logger.Info("schema reloaded",
		slog.String("source", e.source.String()),
		slog.String("model", s.Name))

	e.mu.Lock()
	listeners := append([]func(*core.ModelSchema){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
	return nil
}

// OnReload registers fn to be called with the new schema after every
// successful reload.
func (e *Executor) OnReload(fn func(*core.ModelSchema)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// ExportJSON encodes the current schema as a JSON configuration document.
func (e *Executor) ExportJSON() ([]byte, error) {
	s := e.schema.Load()
	if s == nil {
		return nil, &core.InvalidStateError{Reason: "no schema to export"}
	}
	return loader.Marshal(s, loader.FormatJSON)
}
