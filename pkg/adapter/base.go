package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, DB and IsConnected implementations.
type BaseSQLAdapter struct {
	Pool   *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

// NewBase returns a BaseSQLAdapter with a non-nil logger.
func NewBase(logger *slog.Logger) BaseSQLAdapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return BaseSQLAdapter{Logger: logger}
}

// Open opens driver with dsn, pings it and stores the pool.
func (b *BaseSQLAdapter) Open(ctx context.Context, driver, dsn string, cfg Config) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	b.Pool = db
	b.Cfg = cfg
	return nil
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.Pool == nil {
		return nil
	}
	if b.Logger != nil {
		b.Logger.Debug("closing database connection")
	}
	err := b.Pool.Close()
	b.Pool = nil
	return err
}

// DB returns the connection pool, nil before Connect.
func (b *BaseSQLAdapter) DB() *sql.DB {
	return b.Pool
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.Pool != nil
}

// QuestionPlaceholder renders the "?" bind marker used by SQLite and DuckDB.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders the "$N" bind marker used by PostgreSQL.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }
