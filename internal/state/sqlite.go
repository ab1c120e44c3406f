package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore keeps results in a SQLite table. Rows and error messages are
// stored as JSON; the typed QueryResult.Err is not persisted.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite result store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use "" or ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
	inMemory := path == "" || path == ":memory:"
	if inMemory {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if inMemory {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("result store opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Put stores res, replacing any entry with the same ID.
func (s *SQLiteStore) Put(res core.StoredResult) error {
	if s.db == nil {
		return errNotOpened
	}

	rows, err := json.Marshal(res.Result.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	errs, err := json.Marshal(res.Result.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO results (id, query, ok, rows, errors, finished_at) VALUES (?, ?, ?, ?, ?, ?)`,
		res.ID, res.Query, res.Result.OK, string(rows), string(errs), res.FinishedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store result %s: %w", res.ID, err)
	}
	return nil
}

// Get returns the result stored under id.
func (s *SQLiteStore) Get(id string) (core.StoredResult, bool, error) {
	if s.db == nil {
		return core.StoredResult{}, false, errNotOpened
	}

	var (
		res        = core.StoredResult{ID: id}
		rows, errs string
		finished   int64
	)
	err := s.db.QueryRow(
		`SELECT query, ok, rows, errors, finished_at FROM results WHERE id = ?`, id,
	).Scan(&res.Query, &res.Result.OK, &rows, &errs, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StoredResult{}, false, nil
	}
	if err != nil {
		return core.StoredResult{}, false, fmt.Errorf("failed to get result %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(rows), &res.Result.Rows); err != nil {
		return core.StoredResult{}, false, fmt.Errorf("failed to decode rows of %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(errs), &res.Result.Errors); err != nil {
		return core.StoredResult{}, false, fmt.Errorf("failed to decode errors of %s: %w", id, err)
	}
	for i, r := range res.Result.Rows {
		res.Result.Rows[i] = normalizeRow(r)
	}
	res.FinishedAt = time.Unix(0, finished).UTC()
	return res, true, nil
}

// Delete removes id.
func (s *SQLiteStore) Delete(id string) error {
	if s.db == nil {
		return errNotOpened
	}
	if _, err := s.db.Exec(`DELETE FROM results WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete result %s: %w", id, err)
	}
	return nil
}

// Evict drops results finished before cutoff, then the oldest beyond max.
func (s *SQLiteStore) Evict(cutoff time.Time, max int) (int, error) {
	if s.db == nil {
		return 0, errNotOpened
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin eviction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var removed int64
	if !cutoff.IsZero() {
		res, err := tx.Exec(`DELETE FROM results WHERE finished_at < ?`, cutoff.UnixNano())
		if err != nil {
			return 0, fmt.Errorf("failed to evict expired results: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if max > 0 {
		res, err := tx.Exec(
			`DELETE FROM results WHERE id NOT IN (
				SELECT id FROM results ORDER BY finished_at DESC LIMIT ?
			)`, max)
		if err != nil {
			return 0, fmt.Errorf("failed to evict surplus results: %w", err)
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit eviction: %w", err)
	}
	if removed > 0 {
		s.logger.Debug("evicted results", slog.Int64("count", removed))
	}
	return int(removed), nil
}

// Len returns the number of stored results.
func (s *SQLiteStore) Len() (int, error) {
	if s.db == nil {
		return 0, errNotOpened
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// normalizeRow turns the json.Number values produced by decoding back into
// int64 or float64.
func normalizeRow(r core.Row) core.Row {
	out := core.NewRow()
	for _, f := range r.Fields() {
		out.Set(f.Name, normalizeValue(f.Value))
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i, item := range val {
			val[i] = normalizeValue(item)
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeValue(item)
		}
		return val
	default:
		return v
	}
}
