package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all database adapters must implement.
// An adapter owns one pooled *sql.DB and knows the native parameter syntax
// of its backend.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// DB returns the underlying connection pool, nil before Connect.
	DB() *sql.DB

	// Placeholder returns the native bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string

	// Name returns the registered adapter name (e.g. "sqlite", "postgres").
	Name() string
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
	Params   map[string]any
}
