package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter. A nil logger discards output.
type Factory func(*slog.Logger) Adapter

// ErrNoAdapterType is returned when database.type is empty.
var ErrNoAdapterType = errors.New("adapter type not specified")

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register makes a database backend available under name, matched without
// regard to case. Backends call it from init; a later call for the same
// name replaces the earlier factory.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(name)] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// IsRegistered reports whether a backend is registered under name.
func IsRegistered(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// NewAdapter builds the backend named by cfg.Type without connecting it.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, ErrNoAdapterType
	}
	f, ok := Lookup(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Registered: Names()}
	}
	return f(logger), nil
}

// Open builds the backend named by cfg.Type and connects it. The executor's
// database handler runs every query through the returned adapter.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Type, err)
	}
	return a, nil
}

// UnknownAdapterError reports a database.type no backend is registered for.
type UnknownAdapterError struct {
	Type       string
	Registered []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q: registered backends are %s; set database.type in leaptable.yaml to one of them",
		e.Type, strings.Join(e.Registered, ", "))
}
