// Package handler defines the pluggable backend that executes a resolved
// query, plus the stock implementations: an embedded function, a
// database/sql handler, an in-memory fixture and the process-wide Registry.
//
// A Handler reports backend failures in two ways. Expected failures, like a
// driver rejecting a statement, come back as a failed core.QueryResult with a
// nil error. A returned error (or a panic) is a fault; the executor converts
// it into a core.HandlerFault failure.
package handler

import (
	"context"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Handler executes one resolved query.
//
// Implementations must be safe for concurrent use: the async manager calls
// Handle from worker goroutines.
type Handler interface {
	Handle(ctx context.Context, qc core.QueryContext) (core.QueryResult, error)
}

// Func adapts an ordinary function to the Handler interface.
type Func func(ctx context.Context, qc core.QueryContext) (core.QueryResult, error)

// Handle calls f(ctx, qc).
func (f Func) Handle(ctx context.Context, qc core.QueryContext) (core.QueryResult, error) {
	return f(ctx, qc)
}

// Middleware wraps a Handler with extra behavior.
type Middleware func(Handler) Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
