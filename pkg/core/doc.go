// Package core defines the shared language of the leaptable engine.
//
// This package contains:
//   - The schema model (ModelSchema, Column, Query, Validator, settings)
//   - Per-invocation values (QueryContext, QueryResult, Row)
//   - The error taxonomy and diagnostics
//   - Service interfaces (Adapter, ResultStore)
//   - Configuration types (EngineConfig, DatabaseConfig, AsyncConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
