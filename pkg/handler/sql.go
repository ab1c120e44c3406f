package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// BindMode selects how placeholder values reach the database.
type BindMode int

// Bind modes.
const (
	// BindNative rewrites placeholders to driver bind markers and passes the
	// values as query arguments.
	BindNative BindMode = iota
	// BindText substitutes the rendered values into the SQL text.
	BindText
)

func (m BindMode) String() string {
	if m == BindText {
		return "text"
	}
	return "native"
}

// ParseBindMode parses "native" or "text"; empty means native.
func ParseBindMode(s string) (BindMode, error) {
	switch strings.ToLower(s) {
	case "", "native":
		return BindNative, nil
	case "text":
		return BindText, nil
	default:
		return BindNative, fmt.Errorf("unknown bind mode %q", s)
	}
}

// ErrNotConnected is reported when a SQL handler has no database.
var ErrNotConnected = errors.New("database not connected")

// SQLConfig configures a SQL handler.
type SQLConfig struct {
	DB *sql.DB
	// Placeholder renders the n-th native bind marker; nil means "?".
	Placeholder func(n int) string
	Mode        BindMode
	Logger      *slog.Logger
}

// SQL executes query templates against a database/sql pool.
// *sql.DB pools connections, so one SQL handler serves concurrent callers.
type SQL struct {
	db          *sql.DB
	placeholder func(n int) string
	mode        BindMode
	logger      *slog.Logger
}

// NewSQL creates a SQL handler.
func NewSQL(cfg SQLConfig) *SQL {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	placeholder := cfg.Placeholder
	if placeholder == nil {
		placeholder = func(int) string { return "?" }
	}
	return &SQL{
		db:          cfg.DB,
		placeholder: placeholder,
		mode:        cfg.Mode,
		logger:      logger,
	}
}

// Handle runs qc.SQL and maps every result row to an ordered core.Row keyed
// by the result column names. Driver errors become failed results.
func (h *SQL) Handle(ctx context.Context, qc core.QueryContext) (core.QueryResult, error) {
	if h.db == nil {
		return core.Failure(ErrNotConnected), nil
	}

	query, args, err := h.prepare(qc)
	if err != nil {
		return core.Failure(err), nil
	}

	h.logger.Debug("executing sql", slog.String("query", qc.QueryName), slog.Int("args", len(args)))

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return core.Failure(fmt.Errorf("failed to execute query: %w", err)), nil
	}
	defer func() { _ = rows.Close() }()

	out, err := scanRows(rows)
	if err != nil {
		return core.Failure(err), nil
	}
	return core.Success(out...), nil
}

func (h *SQL) prepare(qc core.QueryContext) (string, []any, error) {
	if h.mode == BindText {
		return Render(qc.SQL, qc.Bindings), nil, nil
	}
	return Compile(qc.SQL, qc.Bindings, h.placeholder)
}

func scanRows(rows *sql.Rows) ([]core.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var row core.Row
		for i, name := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row.Set(name, v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
