package handler

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// ErrNoDefaultHandler is reported when a registry has no handler at call time.
var ErrNoDefaultHandler = errors.New("no default handler registered")

// Registry holds a default Handler and, optionally, the database it was
// derived from. All methods are safe for concurrent use; a value stored by
// one goroutine is visible to every later reader.
//
// Registry itself implements Handler by resolving the current default at
// call time, so executors created before SetDefaultHandler pick it up.
type Registry struct {
	mu      sync.RWMutex
	handler Handler
	db      *sql.DB
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// SetDefaultHandler replaces the default handler and forgets any database.
func (r *Registry) SetDefaultHandler(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
	r.db = nil
}

// SetDatabase derives a native-binding SQL handler from db and makes it the
// default. placeholder renders the driver's bind marker; nil means "?".
func (r *Registry) SetDatabase(db *sql.DB, placeholder func(n int) string) {
	h := NewSQL(SQLConfig{DB: db, Placeholder: placeholder})
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
	r.db = db
}

// Handler returns the current default handler.
func (r *Registry) Handler() (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handler, r.handler != nil
}

// DB returns the database given to SetDatabase, if any.
func (r *Registry) DB() *sql.DB {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.db
}

// Reset clears the handler and database. It does not close the database.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = nil
	r.db = nil
}

// Handle forwards to the current default handler.
func (r *Registry) Handle(ctx context.Context, qc core.QueryContext) (core.QueryResult, error) {
	h, ok := r.Handler()
	if !ok {
		return core.Failure(ErrNoDefaultHandler), nil
	}
	return h.Handle(ctx, qc)
}

// Default is the process-wide registry used by executors created without a
// handler or database.
var Default = NewRegistry()

// SetDefaultHandler sets the handler of the Default registry.
func SetDefaultHandler(h Handler) { Default.SetDefaultHandler(h) }

// SetDatabase derives the Default registry's handler from db.
func SetDatabase(db *sql.DB, placeholder func(n int) string) { Default.SetDatabase(db, placeholder) }

// DefaultHandler returns the Default registry's handler.
func DefaultHandler() (Handler, bool) { return Default.Handler() }

// Teardown resets the Default registry.
func Teardown() { Default.Reset() }
