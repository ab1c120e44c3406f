package adapter

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"slices"
	"testing"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter records Connect calls.
type stubAdapter struct {
	BaseSQLAdapter
	connectErr error
	connected  bool
}

func (s *stubAdapter) Connect(_ context.Context, cfg core.AdapterConfig) error {
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	s.Cfg = cfg
	return nil
}

func (s *stubAdapter) Placeholder(n int) string { return QuestionPlaceholder(n) }
func (s *stubAdapter) Name() string             { return "stub" }

var _ Adapter = (*stubAdapter)(nil)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:       "oracle",
		Registered: []string{"duckdb", "postgres"},
	}

	assert.Equal(t,
		`unknown adapter type "oracle": registered backends are duckdb, postgres; set database.type in leaptable.yaml to one of them`,
		err.Error())
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name   string
		lookup string
	}{
		{name: "exact", lookup: "orders_backend"},
		{name: "case insensitive", lookup: "Orders_Backend"},
	}

	Register("ORDERS_BACKEND", func(_ *slog.Logger) Adapter { return nil })
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsRegistered(tt.lookup))
			f, ok := Lookup(tt.lookup)
			assert.True(t, ok)
			assert.NotNil(t, f)
		})
	}
	assert.Contains(t, Names(), "orders_backend")
	assert.True(t, slices.IsSorted(Names()))
	assert.False(t, IsRegistered("missing_backend"))
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoAdapterType)
}

func TestNewAdapter_Unknown(t *testing.T) {
	_, err := NewAdapter(Config{Type: "nosuchdb"}, nil)
	require.Error(t, err)

	var unknown *UnknownAdapterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nosuchdb", unknown.Type)
	assert.Equal(t, Names(), unknown.Registered)
}

func TestOpen(t *testing.T) {
	Register("stub_ok", func(l *slog.Logger) Adapter { return &stubAdapter{BaseSQLAdapter: NewBase(l)} })
	Register("stub_fail", func(l *slog.Logger) Adapter {
		return &stubAdapter{BaseSQLAdapter: NewBase(l), connectErr: sql.ErrConnDone}
	})

	a, err := Open(context.Background(), Config{Type: "STUB_OK", Path: "x"}, nil)
	require.NoError(t, err)
	stub := a.(*stubAdapter)
	assert.True(t, stub.connected)
	assert.Equal(t, "x", stub.Cfg.Path)

	_, err = Open(context.Background(), Config{Type: "stub_fail"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}
