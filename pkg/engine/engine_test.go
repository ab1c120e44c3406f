package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/internal/testutil"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/handler"
	"github.com/leapstack-labs/leaptable/pkg/loader"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsYAML = `
name: products
columns:
  - name: id
    type: integer
    is_primary_key: true
  - name: name
queries:
  select_all:
    sql: SELECT id, name FROM products
  by_id:
    sql: SELECT id, name FROM products WHERE id = ${id}
    arguments:
      - name: id
        type: integer
  search:
    sql: SELECT id, name FROM products WHERE name LIKE ${pattern} LIMIT ${limit}
    message: "Search failed: ${last_error}"
    arguments:
      - name: pattern
      - name: limit
        type: integer
        is_optional: true
        default: 50
      - name: offset
        type: integer
        is_optional: true
default_error_handling:
  message: "Oops: ${last_error}"
`

func newExecutor(t *testing.T, h handler.Handler) *Executor {
	t.Helper()
	e := New(Config{
		Source:  BytesSource([]byte(productsYAML), loader.FormatYAML),
		Handler: h,
		Logger:  testutil.NewTestLogger(t),
	})
	require.True(t, e.IsValid(), e.Errors())
	return e
}

func TestExecute_Success(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success(core.NewRow(core.Field{Name: "id", Value: 1}))}
	e := newExecutor(t, h)

	res := e.Execute(context.Background(), "by_id", core.Params{"id": 1})
	require.True(t, res.OK, res.ErrorText())
	assert.Equal(t, h.Result, res)
	assert.Equal(t, 1, h.Calls())

	qc := h.Last()
	assert.Equal(t, "by_id", qc.QueryName)
	assert.Equal(t, "SELECT id, name FROM products WHERE id = ${id}", qc.SQL)
	assert.Equal(t, []core.Binding{{Name: "id", Value: 1}}, qc.Bindings)
}

func TestExecute_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		params  core.Params
		wantErr any
		wantMsg string
	}{
		{
			name:    "missing required argument",
			query:   "by_id",
			params:  core.Params{"other": 1},
			wantErr: new(*core.MissingArgumentError),
			wantMsg: "required parameter 'id' is missing for query 'by_id'",
		},
		{
			name:    "missing one of several",
			query:   "search",
			params:  core.Params{"limit": 5},
			wantErr: new(*core.MissingArgumentError),
			wantMsg: "'pattern'",
		},
		{
			name:    "unknown query",
			query:   "delete_all",
			wantErr: new(*core.QueryNotFoundError),
			wantMsg: "query 'delete_all' not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &testutil.CountingHandler{Result: core.Success()}
			e := newExecutor(t, h)

			res := e.Execute(context.Background(), tt.query, tt.params)
			assert.False(t, res.OK)
			assert.Contains(t, res.ErrorText(), tt.wantMsg)
			assert.ErrorAs(t, res.Err, tt.wantErr)
			assert.Equal(t, 0, h.Calls())
		})
	}
}

func TestExecute_InvalidState(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success()}
	e := New(Config{
		Source:  BytesSource([]byte("name: ''\ncolumns: []\n"), loader.FormatYAML),
		Handler: h,
	})
	require.False(t, e.IsValid())
	assert.Nil(t, e.Schema())
	assert.Nil(t, e.Queries())
	require.NotEmpty(t, e.Errors())
	assert.Contains(t, e.Errors()[0], "model name is required")

	res := e.Execute(context.Background(), "select_all", nil)
	assert.False(t, res.OK)
	var ise *core.InvalidStateError
	assert.ErrorAs(t, res.Err, &ise)
	assert.Equal(t, 0, h.Calls())

	_, err := e.ExportJSON()
	assert.ErrorAs(t, err, &ise)
}

func TestNew_NoSchema(t *testing.T) {
	e := New(Config{Handler: &testutil.CountingHandler{}})
	assert.False(t, e.IsValid())
	assert.Contains(t, e.Errors()[0], "no schema or source configured")
}

func TestNew_FromSchemaValue(t *testing.T) {
	s, _, err := loader.Load([]byte(productsYAML), loader.FormatYAML)
	require.NoError(t, err)

	e := New(Config{Schema: s, Handler: &testutil.CountingHandler{Result: core.Success()}})
	require.True(t, e.IsValid())
	assert.Same(t, s, e.Schema())
	assert.ErrorIs(t, e.Reload(), ErrNoSource)
	assert.Contains(t, e.Errors(), ErrNoSource.Error())
}

func TestExecute_Bindings(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success()}
	e := newExecutor(t, h)

	res := e.Execute(context.Background(), "search", core.Params{"zeta": true, "pattern": "a%", "alpha": 2})
	require.True(t, res.OK)

	// declared arguments first, the absent optional with a default filled
	// in, the one without a default left out, then extras by name
	assert.Equal(t, []core.Binding{
		{Name: "pattern", Value: "a%"},
		{Name: "limit", Value: 50},
		{Name: "alpha", Value: 2},
		{Name: "zeta", Value: true},
	}, h.Last().Bindings)
}

func TestExecute_HandlerFaults(t *testing.T) {
	tests := []struct {
		name    string
		handler handler.Handler
		wantMsg string
	}{
		{
			name: "returned error",
			handler: handler.Func(func(context.Context, core.QueryContext) (core.QueryResult, error) {
				return core.QueryResult{}, errors.New("connection reset")
			}),
			wantMsg: "query 'select_all' execution failed: connection reset",
		},
		{
			name:    "panic",
			handler: testutil.PanicHandler{Value: "nil map"},
			wantMsg: "query 'select_all' execution failed: panic: nil map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newExecutor(t, tt.handler)

			var res core.QueryResult
			require.NotPanics(t, func() {
				res = e.Execute(context.Background(), "select_all", nil)
			})
			assert.False(t, res.OK)
			assert.Equal(t, []string{tt.wantMsg}, res.Errors)
			var fault *core.HandlerFault
			assert.ErrorAs(t, res.Err, &fault)
		})
	}
}

func TestExecute_FailedResultUnchanged(t *testing.T) {
	failed := core.Failure(errors.New("no such table: products"))
	e := newExecutor(t, &testutil.CountingHandler{Result: failed})

	res := e.Execute(context.Background(), "select_all", nil)
	assert.Equal(t, failed, res)
}

func TestExecute_RegistryHandler(t *testing.T) {
	reg := handler.NewRegistry()
	e := New(Config{
		Source:   BytesSource([]byte(productsYAML), loader.FormatYAML),
		Registry: reg,
	})

	res := e.Execute(context.Background(), "select_all", nil)
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, handler.ErrNoDefaultHandler)

	h := &testutil.CountingHandler{Result: core.Success()}
	reg.SetDefaultHandler(h)
	res = e.Execute(context.Background(), "select_all", nil)
	assert.True(t, res.OK)
	assert.Equal(t, 1, h.Calls())
}

func TestExecute_Concurrent(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success()}
	e := newExecutor(t, h)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := e.Execute(context.Background(), "by_id", core.Params{"id": i})
			assert.True(t, res.OK)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, h.Calls())
}

func TestExecute_Metrics(t *testing.T) {
	col := metrics.NewWithRegistry(prometheus.NewRegistry())
	e := New(Config{
		Source:  BytesSource([]byte(productsYAML), loader.FormatYAML),
		Handler: testutil.PanicHandler{Value: "x"},
		Metrics: col,
	})

	e.Execute(context.Background(), "select_all", nil)
	e.Execute(context.Background(), "missing", nil)

	assert.InDelta(t, 1, promtest.ToFloat64(col.QueriesTotal.WithLabelValues("select_all", metrics.OutcomeFault)), 0)
	assert.Equal(t, 1, promtest.CollectAndCount(col.QueriesTotal))
}

func TestFormatError(t *testing.T) {
	e := newExecutor(t, &testutil.CountingHandler{})
	assert.Equal(t, "Oops: disk full", e.FormatError("disk full"))

	res := core.Failure(errors.New("bad pattern"))
	assert.Equal(t, "Search failed: bad pattern", e.FormatResultError("search", res))
	assert.Equal(t, "Oops: bad pattern", e.FormatResultError("select_all", res))

	invalid := New(Config{})
	assert.Equal(t, "An error occurred: x", invalid.FormatError("x"))
}

func TestQueriesAndExport(t *testing.T) {
	e := newExecutor(t, &testutil.CountingHandler{})
	assert.Equal(t, []string{"by_id", "search", "select_all"}, e.Queries())

	data, err := e.ExportJSON()
	require.NoError(t, err)
	back, _, err := loader.Load(data, loader.FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, e.Schema(), back)
}

func TestClearErrors(t *testing.T) {
	e := New(Config{})
	require.NotEmpty(t, e.Errors())
	e.ClearErrors()
	assert.Empty(t, e.Errors())
}
