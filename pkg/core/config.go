package core

import "time"

// EngineConfig holds the runtime configuration of an embedded engine.
type EngineConfig struct {
	// SchemaPath is the model definition document (YAML or JSON).
	SchemaPath string `koanf:"schema_path"`

	// Watch reloads the schema whenever SchemaPath changes on disk.
	Watch bool `koanf:"watch"`

	// BindMode selects how placeholders reach the backend: "native" or "text".
	BindMode string `koanf:"bind_mode"`

	// CalculatedColumns evaluates calculated column expressions on every result.
	CalculatedColumns bool `koanf:"calculated_columns"`

	Database *DatabaseConfig `koanf:"database"`
	Async    AsyncConfig     `koanf:"async"`
}

// DatabaseConfig holds database target configuration.
type DatabaseConfig struct {
	Type string `koanf:"type"` // sqlite, duckdb, postgres

	// File-based databases (DuckDB, SQLite)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration
	Params map[string]any `koanf:"params"`
}

// ToAdapterConfig converts the target to an AdapterConfig.
func (d *DatabaseConfig) ToAdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     d.Type,
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Username: d.User,
		Password: d.Password,
		Options:  d.Options,
		Params:   d.Params,
	}
}

// AsyncConfig holds async execution settings.
type AsyncConfig struct {
	// MaxConcurrent overrides the schema's performance.max_concurrent_queries
	// when positive; a negative value lifts the cap.
	MaxConcurrent int `koanf:"max_concurrent"`

	// RetentionTTL evicts finished results older than this; 0 disables age-based eviction.
	RetentionTTL time.Duration `koanf:"retention_ttl"`

	// MaxResults bounds the number of retained results; 0 means unbounded.
	MaxResults int `koanf:"max_results"`

	// Store selects the result store: "memory" or "sqlite".
	Store string `koanf:"store"`

	// StorePath is the SQLite file for the "sqlite" store.
	StorePath string `koanf:"store_path"`
}
