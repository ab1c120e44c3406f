// Package engine executes the named queries of a model schema.
//
// An Executor holds one validated schema and one Handler. Execute checks the
// request against the schema before the handler is ever called, and turns a
// handler error or panic into a failed result. Reload swaps in a freshly
// built schema without disturbing executions already in flight.
package engine

import (
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/handler"
)

// Executor runs queries of one schema through one Handler.
// It is safe for concurrent use.
type Executor struct {
	schema  atomic.Pointer[core.ModelSchema]
	source  Source
	handler handler.Handler

	logger  *slog.Logger
	metrics *metrics.Collector

	mu        sync.Mutex
	errs      []string
	listeners []func(*core.ModelSchema)
}

// Config holds executor configuration.
type Config struct {
	// Source is read on construction and again on every Reload.
	Source Source
	// Schema is used when Source is nil. It is validated but not copied;
	// the caller must not modify it afterwards.
	Schema *core.ModelSchema

	// Handler executes queries. When nil and DB is set, a SQL handler is
	// derived from DB; when both are nil the Registry is consulted at call time.
	Handler handler.Handler
	// DB backs the derived SQL handler.
	DB *sql.DB
	// Placeholder renders the native bind marker of DB; nil means "?".
	Placeholder func(n int) string
	// BindMode selects native parameters or textual substitution.
	BindMode handler.BindMode
	// Registry resolves the handler when neither Handler nor DB is set;
	// nil means handler.Default.
	Registry *handler.Registry

	// Middleware wraps the resolved handler, first entry outermost.
	Middleware []handler.Middleware

	// Metrics is optional.
	Metrics *metrics.Collector
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates an executor. It never fails: when the schema cannot be loaded
// or does not validate, the executor starts in the invalid state, every
// Execute fails without calling the handler and Errors explains why.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	e := &Executor{
		source:  cfg.Source,
		handler: handler.Chain(resolveHandler(cfg, logger), cfg.Middleware...),
		logger:  logger,
		metrics: cfg.Metrics,
	}

	var (
		s     *core.ModelSchema
		diags core.Diagnostics
		err   error
	)
	switch {
	case cfg.Source != nil:
		s, diags, err = build(cfg.Source)
	case cfg.Schema != nil:
		s, diags, err = check(cfg.Schema, nil)
	default:
		err = &core.InvalidStateError{Reason: "no schema or source configured"}
	}

	e.logDiagnostics(diags)
	if err != nil {
		e.appendError(err.Error())
		logger.Warn("executor has no valid schema", slog.String("error", err.Error()))
		return e
	}

	e.schema.Store(s)
	logger.Debug("executor ready",
		slog.String("model", s.Name),
		slog.Int("queries", len(s.Queries)))
	return e
}

// NewFromFile creates an executor whose schema is read from path.
// Other fields of cfg are used as given.
func NewFromFile(path string, cfg Config) *Executor {
	cfg.Source = FileSource(path)
	cfg.Schema = nil
	return New(cfg)
}

func resolveHandler(cfg Config, logger *slog.Logger) handler.Handler {
	switch {
	case cfg.Handler != nil:
		return cfg.Handler
	case cfg.DB != nil:
		return handler.NewSQL(handler.SQLConfig{
			DB:          cfg.DB,
			Placeholder: cfg.Placeholder,
			Mode:        cfg.BindMode,
			Logger:      logger,
		})
	case cfg.Registry != nil:
		return cfg.Registry
	default:
		return handler.Default
	}
}

// Schema returns the current schema snapshot, nil in the invalid state.
// The snapshot must be treated as read-only.
func (e *Executor) Schema() *core.ModelSchema {
	return e.schema.Load()
}

// IsValid reports whether the executor holds a validated schema.
func (e *Executor) IsValid() bool {
	return e.schema.Load() != nil
}

// Queries returns the sorted query names of the current schema.
func (e *Executor) Queries() []string {
	s := e.schema.Load()
	if s == nil {
		return nil
	}
	return s.QueryNames()
}

// Errors returns a copy of the accumulated error log.
func (e *Executor) Errors() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.errs))
	copy(out, e.errs)
	return out
}

// ClearErrors empties the error log.
func (e *Executor) ClearErrors() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = nil
}

func (e *Executor) appendError(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, msg)
}

func (e *Executor) logDiagnostics(diags core.Diagnostics) {
	for _, d := range diags {
		if d.Severity == core.SeverityError {
			continue
		}
		e.logger.Warn("schema diagnostic", slog.String("path", d.Path), slog.String("message", d.Message))
	}
}
