// Package adapter provides the database adapter registry and the shared
// database/sql plumbing used by concrete adapters.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves from init(). Import them with a blank identifier:
//
//	import _ "github.com/leapstack-labs/leaptable/pkg/adapters/sqlite"
package adapter

import "github.com/leapstack-labs/leaptable/pkg/core"

// Type aliases so adapter implementations need only this package.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig
)
