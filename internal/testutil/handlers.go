package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// CountingHandler returns a fixed result and counts its invocations.
type CountingHandler struct {
	Result core.QueryResult
	calls  atomic.Int64

	mu   sync.Mutex
	seen []core.QueryContext
}

// Handle records qc and returns h.Result.
func (h *CountingHandler) Handle(_ context.Context, qc core.QueryContext) (core.QueryResult, error) {
	h.calls.Add(1)
	h.mu.Lock()
	h.seen = append(h.seen, qc)
	h.mu.Unlock()
	return h.Result, nil
}

// Calls returns the number of invocations.
func (h *CountingHandler) Calls() int { return int(h.calls.Load()) }

// Last returns the most recent query context.
func (h *CountingHandler) Last() core.QueryContext {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.seen) == 0 {
		return core.QueryContext{}
	}
	return h.seen[len(h.seen)-1]
}

// BlockingHandler blocks every call until Release is called. Started receives
// one value per call that entered Handle.
type BlockingHandler struct {
	Started chan string
	release chan struct{}
	once    sync.Once

	active    atomic.Int64
	maxActive atomic.Int64
}

// NewBlockingHandler creates a handler with room for buffer start signals.
func NewBlockingHandler(buffer int) *BlockingHandler {
	return &BlockingHandler{
		Started: make(chan string, buffer),
		release: make(chan struct{}),
	}
}

// Handle blocks until Release or ctx is done.
func (h *BlockingHandler) Handle(ctx context.Context, qc core.QueryContext) (core.QueryResult, error) {
	n := h.active.Add(1)
	defer h.active.Add(-1)
	for {
		cur := h.maxActive.Load()
		if n <= cur || h.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}

	h.Started <- qc.QueryName
	select {
	case <-h.release:
		return core.Success(core.NewRow(core.Field{Name: "query", Value: qc.QueryName})), nil
	case <-ctx.Done():
		return core.QueryResult{}, ctx.Err()
	}
}

// Release unblocks all current and future calls.
func (h *BlockingHandler) Release() { h.once.Do(func() { close(h.release) }) }

// MaxActive returns the highest number of simultaneous calls observed.
func (h *BlockingHandler) MaxActive() int { return int(h.maxActive.Load()) }

// PanicHandler panics with Value on every call.
type PanicHandler struct {
	Value any
}

// Handle panics.
func (h PanicHandler) Handle(context.Context, core.QueryContext) (core.QueryResult, error) {
	panic(h.Value)
}
