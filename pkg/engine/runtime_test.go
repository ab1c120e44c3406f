package engine

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leaptable/internal/testutil"
	_ "github.com/leapstack-labs/leaptable/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersYAML = `
name: orders
columns:
  - name: id
    type: integer
    is_primary_key: true
  - name: sku
  - name: price
    type: double
  - name: qty
    type: integer
  - name: total
    type: double
    is_calculated: true
    expression: price * qty
    depends_on: [price, qty]
queries:
  select_all:
    sql: SELECT id, sku, price, qty FROM orders ORDER BY id
  by_id:
    sql: SELECT id, sku, price, qty FROM orders WHERE id = ${id}
    arguments:
      - name: id
        type: integer
performance:
  max_concurrent_queries: 2
`

func seedOrders(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE orders (id INTEGER PRIMARY KEY, sku TEXT, price REAL, qty INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders VALUES (1, 'A1', 2.5, 4), (2, 'B2', 1.0, 3)`)
	require.NoError(t, err)
}

func TestOpen_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "orders.db")
	seedOrders(t, dbPath)
	schemaPath := filepath.Join(dir, "orders.yaml")
	writeSchema(t, schemaPath, ordersYAML)

	cfg := &core.EngineConfig{
		SchemaPath:        schemaPath,
		BindMode:          "native",
		CalculatedColumns: true,
		Database:          &core.DatabaseConfig{Type: "sqlite", Path: dbPath},
		Async: core.AsyncConfig{
			Store:      "sqlite",
			StorePath:  filepath.Join(dir, "results.db"),
			MaxResults: 10,
		},
	}

	ctx := context.Background()
	rt, err := Open(ctx, cfg, RuntimeOptions{Registerer: prometheus.NewRegistry(), Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	defer rt.Close()

	res := rt.Executor.Execute(ctx, "by_id", core.Params{"id": 1})
	require.True(t, res.OK, res.ErrorText())
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"id", "sku", "price", "qty", "total"}, res.Rows[0].Names())
	total, _ := res.Rows[0].Get("total")
	assert.InDelta(t, 10.0, total, 0)

	id, err := rt.Async.Submit("select_all", nil)
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, rt.Async.Wait(waitCtx))

	fetched := rt.Async.Fetch(id)
	require.True(t, fetched.OK, fetched.ErrorText())
	require.Len(t, fetched.Rows, 2)
	sku, _ := fetched.Rows[1].Get("sku")
	assert.Equal(t, "B2", sku)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "orders.yaml")
	writeSchema(t, valid, ordersYAML)
	broken := filepath.Join(dir, "broken.yaml")
	writeSchema(t, broken, "name: x\n")

	tests := []struct {
		name    string
		cfg     *core.EngineConfig
		wantMsg string
	}{
		{name: "nil config", cfg: nil, wantMsg: "schema_path is required"},
		{name: "no schema path", cfg: &core.EngineConfig{}, wantMsg: "schema_path is required"},
		{name: "bad bind mode", cfg: &core.EngineConfig{SchemaPath: valid, BindMode: "fancy"}, wantMsg: "unknown bind mode"},
		{name: "unknown adapter", cfg: &core.EngineConfig{SchemaPath: valid, Database: &core.DatabaseConfig{Type: "oracle"}}, wantMsg: "oracle"},
		{name: "invalid schema", cfg: &core.EngineConfig{SchemaPath: broken}, wantMsg: "at least one column must be defined"},
		{name: "missing schema", cfg: &core.EngineConfig{SchemaPath: filepath.Join(dir, "nope.yaml")}, wantMsg: "nope.yaml"},
		{name: "unknown store", cfg: &core.EngineConfig{SchemaPath: valid, Async: core.AsyncConfig{Store: "redis"}}, wantMsg: "unknown result store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := Open(context.Background(), tt.cfg, RuntimeOptions{})
			require.Error(t, err)
			assert.Nil(t, rt)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestOpen_WithHandlerAndWatch(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "orders.yaml")
	writeSchema(t, schemaPath, ordersYAML)

	h := &testutil.CountingHandler{Result: core.Success()}
	rt, err := Open(context.Background(), &core.EngineConfig{SchemaPath: schemaPath, Watch: true}, RuntimeOptions{Handler: h})
	require.NoError(t, err)

	assert.True(t, rt.Executor.Execute(context.Background(), "select_all", nil).OK)
	assert.Equal(t, 1, h.Calls())
	assert.NoError(t, rt.Close())
}
