package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/internal/state"
	"github.com/leapstack-labs/leaptable/internal/testutil"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/handler"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handlerExecutor runs a handler directly, standing in for an engine.Executor.
type handlerExecutor struct {
	h handler.Handler
}

func (e handlerExecutor) Execute(ctx context.Context, name string, params core.Params) core.QueryResult {
	bindings := make([]core.Binding, 0, len(params))
	for k, v := range params {
		bindings = append(bindings, core.Binding{Name: k, Value: v})
	}
	res, err := e.h.Handle(ctx, core.QueryContext{QueryName: name, Bindings: bindings})
	if err != nil {
		return core.Failure(err)
	}
	return res
}

func newManager(t *testing.T, h handler.Handler, cfg Config) *Manager {
	t.Helper()
	cfg.Executor = handlerExecutor{h: h}
	cfg.Logger = testutil.NewTestLogger(t)
	m, err := NewManager(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestManager_BlockedOperationsCompleteExactlyOnce(t *testing.T) {
	const n = 8
	h := testutil.NewBlockingHandler(n)
	m := newManager(t, h, Config{NotificationBuffer: n * 2})
	notes := m.Notifications()

	ids := make([]uuid.UUID, n)
	for i := range ids {
		id, err := m.Submit("select_all", nil)
		require.NoError(t, err)
		ids[i] = id
	}

	for range n {
		<-h.Started
	}
	assert.Equal(t, n, m.Pending())
	for _, id := range ids {
		res := m.Fetch(id)
		assert.False(t, res.OK)
		var nf *core.OperationNotFoundError
		assert.ErrorAs(t, res.Err, &nf)
	}

	h.Release()
	require.NoError(t, m.Wait(waitCtx(t)))

	seen := map[uuid.UUID]int{}
	for range n {
		note := <-notes
		assert.True(t, note.OK)
		assert.Empty(t, note.Error)
		seen[note.ID]++
	}
	select {
	case extra := <-notes:
		t.Fatalf("unexpected extra notification %v", extra)
	default:
	}

	for _, id := range ids {
		assert.Equal(t, 1, seen[id], id.String())
		res := m.Fetch(id)
		require.True(t, res.OK, res.ErrorText())
		assert.Len(t, res.Rows, 1)
	}
	assert.Equal(t, 0, m.Pending())
}

func TestManager_SubmitDoesNotBlock(t *testing.T) {
	h := testutil.NewBlockingHandler(4)
	m := newManager(t, h, Config{MaxConcurrent: 1})

	done := make(chan struct{})
	go func() {
		for range 4 {
			_, _ = m.Submit("q", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked")
	}
	h.Release()
}

func TestManager_ConcurrencyCapAndOrder(t *testing.T) {
	h := testutil.NewBlockingHandler(16)
	m := newManager(t, h, Config{MaxConcurrent: 2})

	var mu sync.Mutex
	var order []string
	m.OnComplete(func(n Notification) {
		mu.Lock()
		order = append(order, n.Query)
		mu.Unlock()
	})

	queries := []string{"q0", "q1", "q2", "q3", "q4", "q5"}
	for _, q := range queries {
		_, err := m.Submit(q, nil)
		require.NoError(t, err)
	}

	// only two may start before release
	started := map[string]bool{<-h.Started: true, <-h.Started: true}
	assert.True(t, started["q0"] && started["q1"], "first two submissions run first: %v", started)
	select {
	case q := <-h.Started:
		t.Fatalf("operation %s started beyond the cap", q)
	case <-time.After(50 * time.Millisecond):
	}

	h.Release()
	require.NoError(t, m.Wait(waitCtx(t)))

	assert.LessOrEqual(t, h.MaxActive(), 2)
	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, queries, order)
}

func TestManager_QueuedRunInSubmissionOrder(t *testing.T) {
	h := testutil.NewBlockingHandler(16)
	m := newManager(t, h, Config{MaxConcurrent: 1})

	for _, q := range []string{"a", "b", "c", "d"} {
		_, err := m.Submit(q, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, "a", <-h.Started)

	h.Release()
	var rest []string
	for range 3 {
		rest = append(rest, <-h.Started)
	}
	assert.Equal(t, []string{"b", "c", "d"}, rest)
}

func TestManager_FailureNotification(t *testing.T) {
	failing := handler.Func(func(context.Context, core.QueryContext) (core.QueryResult, error) {
		res := core.Failure(&core.QueryNotFoundError{Query: "nope"})
		res.Log("second")
		return res, nil
	})
	m := newManager(t, failing, Config{})
	notes := m.Notifications()

	id, err := m.Submit("nope", nil)
	require.NoError(t, err)

	note := <-notes
	assert.Equal(t, id, note.ID)
	assert.Equal(t, "nope", note.Query)
	assert.False(t, note.OK)
	assert.Equal(t, "query 'nope' not found; second", note.Error)
}

func TestManager_PanicDoesNotKillWorker(t *testing.T) {
	m := newManager(t, testutil.PanicHandler{Value: "boom"}, Config{MaxConcurrent: 1})
	notes := m.Notifications()

	first, err := m.Submit("q", nil)
	require.NoError(t, err)
	second, err := m.Submit("q", nil)
	require.NoError(t, err)

	for range 2 {
		note := <-notes
		assert.False(t, note.OK)
		assert.Contains(t, note.Error, "boom")
	}

	var fault *core.HandlerFault
	assert.ErrorAs(t, m.Fetch(first).Err, &fault)
	assert.False(t, m.Fetch(second).OK)
}

func TestManager_FetchIsIdempotentAndTakeConsumes(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success(core.NewRow(core.Field{Name: "id", Value: 1}))}
	m := newManager(t, h, Config{})

	id, err := m.Submit("q", core.Params{"id": 1})
	require.NoError(t, err)
	require.NoError(t, m.Wait(waitCtx(t)))

	assert.True(t, m.Fetch(id).OK)
	assert.True(t, m.Fetch(id).OK)
	assert.True(t, m.Take(id).OK)
	assert.False(t, m.Fetch(id).OK)
	assert.Equal(t, 1, h.Calls())
}

func TestManager_Retention(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success()}
	m := newManager(t, h, Config{MaxResults: 2})

	var ids []uuid.UUID
	for range 4 {
		id, err := m.Submit("q", nil)
		require.NoError(t, err)
		require.NoError(t, m.Wait(waitCtx(t)))
		ids = append(ids, id)
	}

	n, err := m.store.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, m.Fetch(ids[3]).OK)
}

func TestManager_RetentionTTL(t *testing.T) {
	h := &testutil.CountingHandler{Result: core.Success()}
	m := newManager(t, h, Config{RetentionTTL: time.Minute})

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	old, err := m.Submit("q", nil)
	require.NoError(t, err)
	require.NoError(t, m.Wait(waitCtx(t)))

	clock = clock.Add(2 * time.Minute)
	fresh, err := m.Submit("q", nil)
	require.NoError(t, err)
	require.NoError(t, m.Wait(waitCtx(t)))

	assert.False(t, m.Fetch(old).OK)
	assert.True(t, m.Fetch(fresh).OK)
}

func TestManager_Close(t *testing.T) {
	h := testutil.NewBlockingHandler(2)
	m, err := NewManager(Config{Executor: handlerExecutor{h: h}, MaxConcurrent: 1})
	require.NoError(t, err)
	notes := m.Notifications()

	_, err = m.Submit("a", nil)
	require.NoError(t, err)
	_, err = m.Submit("b", nil)
	require.NoError(t, err)

	closed := make(chan error)
	go func() { closed <- m.Close() }()

	h.Release()
	require.NoError(t, <-closed)

	_, err = m.Submit("c", nil)
	assert.ErrorIs(t, err, ErrClosed)

	count := 0
	for range notes {
		count++
	}
	assert.Equal(t, 2, count)
	assert.NoError(t, m.Close())
}

func TestManager_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := metrics.NewWithRegistry(reg)
	h := &testutil.CountingHandler{Result: core.Success()}
	m := newManager(t, h, Config{Metrics: col, MaxResults: 10})

	for range 3 {
		_, err := m.Submit("q", nil)
		require.NoError(t, err)
	}
	require.NoError(t, m.Wait(waitCtx(t)))

	assert.InDelta(t, 3, promtest.ToFloat64(col.AsyncSubmitted), 0)
	assert.InDelta(t, 3, promtest.ToFloat64(col.AsyncCompleted.WithLabelValues(metrics.OutcomeOK)), 0)
	assert.InDelta(t, 0, promtest.ToFloat64(col.AsyncInFlight), 0)
	assert.InDelta(t, 3, promtest.ToFloat64(col.AsyncRetained), 0)
}

func TestNewManager_RequiresExecutor(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)
}

func TestManager_StalledSubscriberDoesNotBlockOthers(t *testing.T) {
	const n = 5
	h := &testutil.CountingHandler{Result: core.Success()}
	m, err := NewManager(Config{
		Executor:           handlerExecutor{h: h},
		NotificationBuffer: 1,
		Logger:             testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	_ = m.Notifications() // never drained
	var calls atomic.Int32
	m.OnComplete(func(Notification) { calls.Add(1) })

	for range n {
		_, err := m.Submit("q", nil)
		require.NoError(t, err)
	}
	require.NoError(t, m.Wait(waitCtx(t)))
	assert.Equal(t, int32(n), calls.Load())
	assert.Equal(t, 0, m.Pending())

	closed := make(chan error, 1)
	go func() { closed <- m.Close() }()
	select {
	case err := <-closed:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return with an undrained subscription")
	}
}

func TestManager_SlowSubscriberGetsEverything(t *testing.T) {
	const n = 10
	h := &testutil.CountingHandler{Result: core.Success()}
	m := newManager(t, h, Config{NotificationBuffer: 1})
	notes := m.Notifications()

	for range n {
		_, err := m.Submit("q", nil)
		require.NoError(t, err)
	}
	require.NoError(t, m.Wait(waitCtx(t)))

	seen := map[uuid.UUID]bool{}
	for range n {
		select {
		case note := <-notes:
			seen[note.ID] = true
		case <-time.After(5 * time.Second):
			t.Fatalf("got %d of %d notifications", len(seen), n)
		}
	}
	assert.Len(t, seen, n)
}

func TestManager_NotificationsAfterClose(t *testing.T) {
	m := newManager(t, &testutil.CountingHandler{}, Config{})
	require.NoError(t, m.Close())

	select {
	case _, ok := <-m.Notifications():
		assert.False(t, ok, "subscription after Close must be closed")
	case <-time.After(time.Second):
		t.Fatal("subscription after Close was left open")
	}
}

// failingStore refuses every Put.
type failingStore struct {
	*state.MemoryStore
	err error
}

func (s failingStore) Put(core.StoredResult) error { return s.err }

func TestManager_StoreFailure(t *testing.T) {
	rows := core.Success(core.NewRow(core.Field{Name: "id", Value: 7}))
	h := &testutil.CountingHandler{Result: rows}
	recorder, logger := testutil.NewLogRecorder(slog.LevelError)
	m, err := NewManager(Config{
		Executor: handlerExecutor{h: h},
		Store:    failingStore{MemoryStore: state.NewMemoryStore(), err: errors.New("disk full")},
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	notes := m.Notifications()

	id, err := m.Submit("by_id", nil)
	require.NoError(t, err)
	require.NoError(t, m.Wait(waitCtx(t)))

	note := <-notes
	assert.Equal(t, id, note.ID)
	assert.False(t, note.OK)
	assert.Contains(t, note.Error, "disk full")

	entry, ok := recorder.Find("failed to store result")
	require.True(t, ok)
	assert.Equal(t, "disk full", entry.Attrs["error"])

	// The result stays reachable until taken.
	assert.Equal(t, rows, m.Fetch(id))
	assert.Equal(t, rows, m.Take(id))
	var nf *core.OperationNotFoundError
	assert.ErrorAs(t, m.Fetch(id).Err, &nf)
}
