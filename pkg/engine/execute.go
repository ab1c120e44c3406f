package engine

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/pkg/core"
)

// lastErrorToken is replaced by FormatError.
const lastErrorToken = "${last_error}"

// Execute runs queryName with params and always returns a result.
//
// Requests are rejected, without calling the handler, when the executor is
// invalid, when a required argument is missing or when the query is unknown.
// A handler that returns an error or panics yields a failure carrying a
// *core.HandlerFault. The schema snapshot is taken once, so a concurrent
// Reload does not affect a running call.
func (e *Executor) Execute(ctx context.Context, queryName string, params core.Params) core.QueryResult {
	start := time.Now()

	s := e.schema.Load()
	if s == nil {
		return e.reject(queryName, &core.InvalidStateError{Reason: "schema not loaded or failed validation"})
	}

	q, ok := s.FindQuery(queryName)
	if !ok {
		return e.reject(queryName, &core.QueryNotFoundError{Query: queryName})
	}
	for _, arg := range q.Arguments {
		if _, given := params[arg.Name]; !given && !arg.Optional {
			return e.reject(queryName, &core.MissingArgumentError{Query: queryName, Argument: arg.Name})
		}
	}

	qc := core.QueryContext{
		QueryName: queryName,
		SQL:       q.SQL,
		Bindings:  bindings(q, params),
	}
	e.logger.Debug("executing query",
		slog.String("query", queryName),
		slog.Int("bindings", len(qc.Bindings)))

	res, err := e.invoke(ctx, qc)
	if err != nil {
		fault := &core.HandlerFault{Query: queryName, Err: err}
		e.logger.Warn("handler fault", slog.String("query", queryName), slog.String("error", err.Error()))
		e.metrics.ObserveQuery(queryName, metrics.OutcomeFault, time.Since(start))
		return core.Failure(fault)
	}

	outcome := metrics.OutcomeOK
	if !res.OK {
		outcome = metrics.OutcomeFailed
	}
	e.metrics.ObserveQuery(queryName, outcome, time.Since(start))
	return res
}

// invoke calls the handler, turning a panic into an error.
func (e *Executor) invoke(ctx context.Context, qc core.QueryContext) (res core.QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.handler.Handle(ctx, qc)
}

func (e *Executor) reject(queryName string, err error) core.QueryResult {
	e.logger.Debug("query rejected", slog.String("query", queryName), slog.String("error", err.Error()))
	return core.Failure(err)
}

// bindings orders the declared arguments first, filling absent optional
// ones from their defaults, then appends undeclared params by name.
func bindings(q core.Query, params core.Params) []core.Binding {
	out := make([]core.Binding, 0, len(params)+len(q.Arguments))
	declared := make(map[string]bool, len(q.Arguments))

	for _, arg := range q.Arguments {
		declared[arg.Name] = true
		if v, ok := params[arg.Name]; ok {
			out = append(out, core.Binding{Name: arg.Name, Value: v})
		} else if arg.Default != nil {
			out = append(out, core.Binding{Name: arg.Name, Value: arg.Default})
		}
	}
	for _, name := range slices.Sorted(maps.Keys(params)) {
		if !declared[name] {
			out = append(out, core.Binding{Name: name, Value: params[name]})
		}
	}
	return out
}

// FormatError renders msg through the schema's default error message.
func (e *Executor) FormatError(msg string) string {
	tmpl := config.DefaultErrorMessage
	if s := e.schema.Load(); s != nil && s.DefaultErrorPolicy.Message != "" {
		tmpl = s.DefaultErrorPolicy.Message
	}
	return strings.ReplaceAll(tmpl, lastErrorToken, msg)
}

// FormatResultError renders the errors of a failed result, using the
// query's own message when it has one.
func (e *Executor) FormatResultError(queryName string, res core.QueryResult) string {
	tmpl := ""
	if s := e.schema.Load(); s != nil {
		if q, ok := s.FindQuery(queryName); ok {
			tmpl = q.Message
		}
	}
	if tmpl == "" {
		return e.FormatError(res.ErrorText())
	}
	return strings.ReplaceAll(tmpl, lastErrorToken, res.ErrorText())
}
