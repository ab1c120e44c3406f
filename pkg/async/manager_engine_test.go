package async_test

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/leaptable/internal/testutil"
	"github.com/leapstack-labs/leaptable/pkg/async"
	"github.com/leapstack-labs/leaptable/pkg/engine"
	"github.com/leapstack-labs/leaptable/pkg/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cappedYAML = `
name: orders
columns:
  - name: id
    type: integer
queries:
  slow:
    sql: SELECT id FROM orders
performance:
  max_concurrent_queries: 2
`

func TestManager_CapFromExecutorSchema(t *testing.T) {
	const n = 6
	h := testutil.NewBlockingHandler(n)
	exec := engine.New(engine.Config{
		Source:  engine.BytesSource([]byte(cappedYAML), loader.FormatYAML),
		Handler: h,
		Logger:  testutil.NewTestLogger(t),
	})
	require.True(t, exec.IsValid(), exec.Errors())

	m, err := async.NewManager(async.Config{Executor: exec, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	assert.Equal(t, 2, m.MaxConcurrent())

	for range n {
		_, err := m.Submit("slow", nil)
		require.NoError(t, err)
	}
	<-h.Started
	<-h.Started

	select {
	case q := <-h.Started:
		t.Fatalf("third operation %q started while two were running", q)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, n, m.Pending())

	h.Release()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
	assert.Equal(t, 2, h.MaxActive())
	assert.Equal(t, 0, m.Pending())
}

func TestManager_ExplicitCapOverridesSchema(t *testing.T) {
	exec := engine.New(engine.Config{
		Source:  engine.BytesSource([]byte(cappedYAML), loader.FormatYAML),
		Handler: &testutil.CountingHandler{},
	})
	require.True(t, exec.IsValid(), exec.Errors())

	tests := []struct {
		name string
		cfg  int
		want int
	}{
		{name: "explicit", cfg: 5, want: 5},
		{name: "negative lifts cap", cfg: -1, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := async.NewManager(async.Config{Executor: exec, MaxConcurrent: tt.cfg})
			require.NoError(t, err)
			defer m.Close()
			assert.Equal(t, tt.want, m.MaxConcurrent())
		})
	}
}
