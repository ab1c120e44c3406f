// Package config holds schema defaults and loads the engine runtime
// configuration.
package config

import (
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Schema default values.
const (
	DefaultLoadQuery            = "select_all"
	DefaultErrorMessage         = "An error occurred: ${last_error}"
	DefaultQueryTimeout         = 30 * time.Second
	DefaultBatchSize            = 1000
	DefaultCacheSize            = 10000
	DefaultMaxConcurrentQueries = 3
	DefaultLocale               = "en_US"
	DefaultDateFormat           = "yyyy-MM-dd"
	DefaultTimeFormat           = "hh:mm:ss"
	DefaultDateTimeFormat       = "yyyy-MM-dd hh:mm:ss"
)

// Engine runtime default values.
const (
	DefaultBindMode     = "native"
	DefaultResultStore  = "memory"
	DefaultRetentionTTL = 10 * time.Minute
	DefaultMaxResults   = 1000
	DefaultPostgresPort = 5432
)

// NewSchema returns a schema with every default applied and no columns or
// queries.
func NewSchema() *core.ModelSchema {
	return &core.ModelSchema{
		Kind:               core.ModelTable,
		Source:             core.SourceQuery,
		Editable:           true,
		LoadQuery:          DefaultLoadQuery,
		Queries:            map[string]core.Query{},
		DefaultErrorPolicy: DefaultErrorPolicy(),
		ShowNumeration:     true,
		Performance:        DefaultPerformance(),
		Security: core.SecuritySettings{
			SQLInjectionProtection: true,
			InputSanitization:      true,
		},
		Localization: core.LocalizationSettings{
			Locale:         DefaultLocale,
			DateFormat:     DefaultDateFormat,
			TimeFormat:     DefaultTimeFormat,
			DateTimeFormat: DefaultDateTimeFormat,
		},
	}
}

// NewColumn returns a visible, editable string column.
func NewColumn(name string) core.Column {
	return core.Column{
		Name:      name,
		Type:      core.TypeString,
		Alignment: core.AlignLeft,
		Visible:   true,
		Editable:  true,
	}
}

// NewQuery returns a read-only query with the default error policy and timeout.
func NewQuery(name, sql string) core.Query {
	return core.Query{
		Name:     name,
		SQL:      sql,
		OnError:  core.OnErrorShowMessage,
		Message:  DefaultErrorMessage,
		Timeout:  DefaultQueryTimeout,
		ReadOnly: true,
	}
}

// DefaultErrorPolicy returns the schema level error policy.
func DefaultErrorPolicy() core.ErrorPolicy {
	return core.ErrorPolicy{
		OnError: core.OnErrorShowMessage,
		Message: DefaultErrorMessage,
	}
}

// DefaultPerformance returns the default performance settings.
func DefaultPerformance() core.PerformanceSettings {
	return core.PerformanceSettings{
		BatchSize:            DefaultBatchSize,
		EnableCaching:        true,
		CacheSize:            DefaultCacheSize,
		MaxConcurrentQueries: DefaultMaxConcurrentQueries,
	}
}

// ApplyDatabaseDefaults applies default values to a DatabaseConfig based on its type.
func ApplyDatabaseDefaults(d *core.DatabaseConfig) {
	if d == nil {
		return
	}
	if d.Type == "postgres" && d.Port == 0 {
		d.Port = DefaultPostgresPort
	}
	if d.Host == "" && d.Type == "postgres" {
		d.Host = "localhost"
	}
}
