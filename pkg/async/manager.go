// Package async runs queries off the caller's goroutine.
//
// Submit returns an operation ID at once. Each operation runs on its own
// goroutine; when the schema caps concurrency, excess operations wait in
// submission order. A finished result is stored until fetched or evicted,
// and exactly one Notification per operation is delivered to every
// subscriber and callback, in completion order. A subscriber that stops
// draining only delays itself; what it has not received by Close is dropped.
//
// Running operations cannot be cancelled. Close waits for all submitted
// operations, including queued ones, to finish.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/internal/state"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"golang.org/x/sync/semaphore"
)

// DefaultNotificationBuffer is the channel capacity of each subscriber.
const DefaultNotificationBuffer = 64

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("async manager is closed")

// Executor is the synchronous query runner the manager drives.
type Executor interface {
	Execute(ctx context.Context, queryName string, params core.Params) core.QueryResult
}

// schemaSource is implemented by executors that expose their loaded schema,
// such as *engine.Executor.
type schemaSource interface {
	Schema() *core.ModelSchema
}

// Notification reports one finished operation.
type Notification struct {
	ID    uuid.UUID
	Query string
	OK    bool
	// Error holds the result's error messages joined with "; ".
	Error string
}

// Config holds manager configuration.
type Config struct {
	Executor Executor

	// MaxConcurrent caps running operations. 0 takes the cap from the
	// executor's schema (performance.max_concurrent_queries) when the
	// executor exposes one; a negative value means unbounded.
	MaxConcurrent int

	// Store retains finished results; nil means a new in-memory store owned
	// by the manager.
	Store core.ResultStore
	// RetentionTTL evicts results older than this; 0 keeps them until fetched.
	RetentionTTL time.Duration
	// MaxResults bounds the number of retained results; 0 means unbounded.
	MaxResults int

	// NotificationBuffer is the capacity of each Notifications channel.
	NotificationBuffer int

	Metrics *metrics.Collector
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

type operation struct {
	id     uuid.UUID
	query  string
	params core.Params
}

// Manager runs and tracks asynchronous operations. It is safe for
// concurrent use.
type Manager struct {
	exec  Executor
	limit int
	sem   *semaphore.Weighted
	store core.ResultStore
	owned bool
	// spill keeps results the store refused so they stay fetchable.
	spill   *state.MemoryStore
	ttl     time.Duration
	max     int
	buffer  int
	logger  *slog.Logger
	metrics *metrics.Collector

	mu     sync.Mutex
	active map[uuid.UUID]string
	queue  []operation
	closed bool
	wg     sync.WaitGroup

	// notifyMu serializes delivery so notifications keep completion order.
	notifyMu   sync.Mutex
	subs       []*subscriber
	subsClosed bool
	pumps      sync.WaitGroup
	callbacks  []func(Notification)

	now func() time.Time
}

// NewManager creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Executor == nil {
		return nil, errors.New("async: executor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := &Manager{
		exec:    cfg.Executor,
		store:   cfg.Store,
		spill:   state.NewMemoryStore(),
		ttl:     cfg.RetentionTTL,
		max:     cfg.MaxResults,
		buffer:  cfg.NotificationBuffer,
		logger:  logger,
		metrics: cfg.Metrics,
		active:  map[uuid.UUID]string{},
		now:     time.Now,
	}
	if m.store == nil {
		m.store = state.NewMemoryStore()
		m.owned = true
	}
	if m.buffer <= 0 {
		m.buffer = DefaultNotificationBuffer
	}
	m.limit = cfg.MaxConcurrent
	if m.limit == 0 {
		if src, ok := cfg.Executor.(schemaSource); ok {
			if s := src.Schema(); s != nil {
				m.limit = s.Performance.MaxConcurrentQueries
			}
		}
	}
	if m.limit > 0 {
		m.sem = semaphore.NewWeighted(int64(m.limit))
	} else {
		m.limit = 0
	}
	return m, nil
}

// MaxConcurrent returns the number of operations allowed to run at once;
// 0 means unbounded.
func (m *Manager) MaxConcurrent() int {
	return m.limit
}

// Submit schedules queryName and returns its operation ID without waiting.
func (m *Manager) Submit(queryName string, params core.Params) (uuid.UUID, error) {
	op := operation{id: uuid.New(), query: queryName, params: params}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return uuid.Nil, ErrClosed
	}

	m.active[op.id] = queryName
	m.wg.Add(1)
	m.metrics.AsyncStarted()

	// Queued operations run before new arrivals take a free slot.
	if m.sem == nil || (len(m.queue) == 0 && m.sem.TryAcquire(1)) {
		go m.run(op)
	} else {
		m.queue = append(m.queue, op)
	}

	m.logger.Debug("operation submitted",
		slog.String("id", op.id.String()),
		slog.String("query", queryName),
		slog.Int("queued", len(m.queue)))
	return op.id, nil
}

func (m *Manager) run(op operation) {
	defer m.wg.Done()

	res := m.execute(op)
	m.finish(op, res)
}

// execute calls the executor and turns a panic into a failed result.
func (m *Manager) execute(op operation) (res core.QueryResult) {
	defer func() {
		if r := recover(); r != nil {
			res = core.Failure(&core.HandlerFault{Query: op.query, Err: fmt.Errorf("panic: %v", r)})
		}
	}()
	return m.exec.Execute(context.Background(), op.query, op.params)
}

func (m *Manager) finish(op operation, res core.QueryResult) {
	stored := core.StoredResult{ID: op.id.String(), Query: op.query, Result: res, FinishedAt: m.now()}
	n := Notification{ID: op.id, Query: op.query, OK: res.OK, Error: res.ErrorText()}
	if err := m.store.Put(stored); err != nil {
		m.logger.Error("failed to store result",
			slog.String("id", stored.ID),
			slog.String("query", op.query),
			slog.String("error", err.Error()))
		// The spill store cannot fail.
		_ = m.spill.Put(stored)
		n.OK = false
		n.Error = "failed to store result: " + err.Error()
	}
	m.evict()

	m.mu.Lock()
	if m.sem != nil {
		if len(m.queue) > 0 {
			// hand this slot to the oldest queued operation
			next := m.queue[0]
			m.queue = m.queue[1:]
			go m.run(next)
		} else {
			m.sem.Release(1)
		}
	}
	m.mu.Unlock()

	m.notifyMu.Lock()
	m.deliver(n)
	m.notifyMu.Unlock()

	m.mu.Lock()
	delete(m.active, op.id)
	m.mu.Unlock()

	outcome := metrics.OutcomeOK
	if !res.OK {
		outcome = metrics.OutcomeFailed
	}
	m.metrics.AsyncFinished(outcome)
	m.logger.Debug("operation finished",
		slog.String("id", stored.ID),
		slog.String("query", op.query),
		slog.Bool("ok", res.OK))
}

// deliver hands n to every subscriber and calls every callback. Called
// with notifyMu held; only callbacks run synchronously.
func (m *Manager) deliver(n Notification) {
	for _, s := range m.subs {
		s.push(n)
	}
	for _, fn := range m.callbacks {
		m.callback(fn, n)
	}
}

func (m *Manager) callback(fn func(Notification), n Notification) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("completion callback panicked",
				slog.String("id", n.ID.String()),
				slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn(n)
}

func (m *Manager) evict() {
	if m.ttl <= 0 && m.max <= 0 {
		return
	}
	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = m.now().Add(-m.ttl)
	}
	if _, err := m.store.Evict(cutoff, m.max); err != nil {
		m.logger.Error("failed to evict results", slog.String("error", err.Error()))
	}
	_, _ = m.spill.Evict(cutoff, m.max)
	if n, err := m.store.Len(); err == nil {
		m.metrics.SetRetained(n)
	}
}

// Fetch returns the result of a finished operation. It never blocks and
// may be called repeatedly; an unknown or unfinished ID yields a failure
// carrying *core.OperationNotFoundError.
func (m *Manager) Fetch(id uuid.UUID) core.QueryResult {
	res, ok, err := m.store.Get(id.String())
	if err != nil {
		return core.Failure(fmt.Errorf("fetch %s: %w", id, err))
	}
	if !ok {
		res, ok, _ = m.spill.Get(id.String())
	}
	if !ok {
		return core.Failure(&core.OperationNotFoundError{ID: id.String()})
	}
	return res.Result
}

// Take fetches a finished result and removes it from the store.
func (m *Manager) Take(id uuid.UUID) core.QueryResult {
	res := m.Fetch(id)
	var nf *core.OperationNotFoundError
	if !errors.As(res.Err, &nf) {
		if err := m.store.Delete(id.String()); err != nil {
			m.logger.Error("failed to delete result", slog.String("id", id.String()), slog.String("error", err.Error()))
		}
		_ = m.spill.Delete(id.String())
	}
	return res
}

// Notifications returns a new subscription that receives every
// notification delivered after this call. A subscriber that falls behind
// only delays itself; its notifications queue up until it drains them.
// The channel is closed by Close, and a subscription made after Close
// yields an already closed channel.
func (m *Manager) Notifications() <-chan Notification {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if m.subsClosed {
		ch := make(chan Notification)
		close(ch)
		return ch
	}
	s := newSubscriber(m.buffer, m.logger)
	m.subs = append(m.subs, s)
	m.pumps.Add(1)
	go func() {
		defer m.pumps.Done()
		s.pump()
	}()
	return s.ch
}

// OnComplete registers fn to be called once for every finished operation,
// on the goroutine that ran it.
func (m *Manager) OnComplete(fn func(Notification)) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Pending returns the number of submitted operations that have not yet
// delivered their notification.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Wait blocks until every submitted operation has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new submissions, waits for all submitted operations and
// closes every Notifications channel. A store created by the manager is
// closed too.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.notifyMu.Lock()
	m.subsClosed = true
	for _, s := range m.subs {
		s.stop()
	}
	m.subs = nil
	m.notifyMu.Unlock()
	m.pumps.Wait()

	_ = m.spill.Close()
	if m.owned {
		return m.store.Close()
	}
	return nil
}
