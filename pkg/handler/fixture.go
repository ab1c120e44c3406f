package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Fixture serves canned rows per query name. It is meant for tests and
// demos that need a backend without a database.
//
// A row is returned when, for every binding whose name is also a column of
// the row, the textual forms of the two values are equal.
type Fixture struct {
	mu   sync.RWMutex
	rows map[string][]core.Row
}

// NewFixture creates an empty fixture.
func NewFixture() *Fixture {
	return &Fixture{rows: map[string][]core.Row{}}
}

// Set replaces the rows served for query.
func (f *Fixture) Set(query string, rows ...core.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[query] = rows
}

// Handle returns the matching rows of qc.QueryName.
func (f *Fixture) Handle(_ context.Context, qc core.QueryContext) (core.QueryResult, error) {
	f.mu.RLock()
	rows, ok := f.rows[qc.QueryName]
	f.mu.RUnlock()
	if !ok {
		return core.Failure(fmt.Errorf("no fixture rows for query '%s'", qc.QueryName)), nil
	}

	var out []core.Row
	for _, r := range rows {
		if matches(r, qc.Bindings) {
			out = append(out, r)
		}
	}
	return core.Success(out...), nil
}

func matches(r core.Row, bindings []core.Binding) bool {
	for _, b := range bindings {
		v, ok := r.Get(b.Name)
		if ok && core.ValueString(v) != core.ValueString(b.Value) {
			return false
		}
	}
	return true
}
