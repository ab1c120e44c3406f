// Package state keeps finished async results until they are fetched or
// evicted. Two stores are provided: an in-process map and a SQLite table
// for results that should survive a restart.
package state

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Store kinds accepted by New.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

var (
	_ core.ResultStore = (*MemoryStore)(nil)
	_ core.ResultStore = (*SQLiteStore)(nil)
)

// New opens the result store selected by kind. path is only used by the
// SQLite store; an empty path keeps it in memory.
func New(kind, path string, logger *slog.Logger) (core.ResultStore, error) {
	switch strings.ToLower(kind) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		s := NewSQLiteStore(logger)
		if err := s.Open(path); err != nil {
			return nil, err
		}
		if err := s.Migrate(); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown result store %q (supported: %s, %s)", kind, KindMemory, KindSQLite)
	}
}
