package starlark

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/handler"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// fileOptions enables nothing beyond the core expression language.
var fileOptions = &syntax.FileOptions{}

type calcColumn struct {
	name string
	expr string
}

// Calculator evaluates the calculated columns of one schema.
// It is immutable after construction and safe for concurrent use.
type Calculator struct {
	model   string
	columns []calcColumn
	pool    *ThreadPool
}

// NewCalculator parses every calculated column expression of s.
func NewCalculator(s *core.ModelSchema) (*Calculator, error) {
	c := &Calculator{model: s.Name, pool: NewThreadPool(0, 0)}
	for _, col := range s.Columns {
		if !col.Calculated {
			continue
		}
		if _, err := fileOptions.ParseExpr(col.Name, col.Expression, 0); err != nil {
			return nil, fmt.Errorf("column '%s': %w", col.Name, err)
		}
		c.columns = append(c.columns, calcColumn{name: col.Name, expr: col.Expression})
	}
	return c, nil
}

// Columns returns the calculated column names in declaration order.
func (c *Calculator) Columns() []string {
	names := make([]string, len(c.columns))
	for i, col := range c.columns {
		names[i] = col.name
	}
	return names
}

// Apply returns a copy of row with every calculated column set. Columns are
// evaluated in declaration order, so an expression sees the values of the
// calculated columns declared before it.
func (c *Calculator) Apply(row core.Row) (core.Row, error) {
	out := core.NewRow(row.Fields()...)
	if len(c.columns) == 0 {
		return out, nil
	}

	// A thread that hit an error may be cancelled, so only clean threads
	// go back to the pool.
	thread := c.pool.Get(c.model)
	for _, col := range c.columns {
		globals, err := Predeclared(c.model, out)
		if err != nil {
			return core.Row{}, err
		}
		v, err := starlark.EvalOptions(fileOptions, thread, col.name, col.expr, globals)
		if err != nil {
			return core.Row{}, fmt.Errorf("column '%s': %w", col.name, err)
		}
		gv, err := ToGo(v)
		if err != nil {
			return core.Row{}, fmt.Errorf("column '%s': %w", col.name, err)
		}
		out.Set(col.name, gv)
	}
	c.pool.Put(thread)
	return out, nil
}

// ApplyAll applies c to every row.
func (c *Calculator) ApplyAll(rows []core.Row) ([]core.Row, error) {
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		nr, err := c.Apply(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = nr
	}
	return out, nil
}

type cachedCalculator struct {
	schema *core.ModelSchema
	calc   *Calculator
	err    error
}

// WithCalculatedColumns returns a middleware that fills calculated columns of
// every successful result. schema is consulted on each call, so a reloaded
// schema's expressions take effect immediately. An evaluation error turns
// the result into a failure.
func WithCalculatedColumns(schema func() *core.ModelSchema, logger *slog.Logger) handler.Middleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var cache atomic.Pointer[cachedCalculator]

	calculatorFor := func(s *core.ModelSchema) (*Calculator, error) {
		if cur := cache.Load(); cur != nil && cur.schema == s {
			return cur.calc, cur.err
		}
		calc, err := NewCalculator(s)
		cache.Store(&cachedCalculator{schema: s, calc: calc, err: err})
		return calc, err
	}

	return func(next handler.Handler) handler.Handler {
		return handler.Func(func(ctx context.Context, qc core.QueryContext) (core.QueryResult, error) {
			res, err := next.Handle(ctx, qc)
			if err != nil || !res.OK || len(res.Rows) == 0 {
				return res, err
			}
			s := schema()
			if s == nil {
				return res, nil
			}

			calc, err := calculatorFor(s)
			if err == nil {
				var rows []core.Row
				if rows, err = calc.ApplyAll(res.Rows); err == nil {
					res.Rows = rows
					return res, nil
				}
			}

			logger.Warn("calculated columns failed", slog.String("query", qc.QueryName), slog.String("error", err.Error()))
			return core.Failure(fmt.Errorf("calculated columns: %w", err)), nil
		})
	}
}
