package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/internal/starlark"
	"github.com/leapstack-labs/leaptable/internal/state"
	"github.com/leapstack-labs/leaptable/pkg/adapter"
	"github.com/leapstack-labs/leaptable/pkg/async"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/handler"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime is an executor and async manager assembled from an EngineConfig.
//
// Database adapters register themselves on import; embedders blank-import
// the ones they use, e.g. _ "github.com/leapstack-labs/leaptable/pkg/adapters/sqlite".
type Runtime struct {
	Executor *Executor
	Async    *async.Manager

	adapter core.Adapter
	store   core.ResultStore
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// RuntimeOptions supplies what the configuration file cannot.
type RuntimeOptions struct {
	// Handler overrides the handler derived from the configured database.
	Handler handler.Handler
	// Registerer receives the engine metrics; nil disables metrics.
	Registerer prometheus.Registerer
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Open connects the configured database, loads and validates the schema,
// opens the result store and starts the async manager. With cfg.Watch set
// the schema file is reloaded on change until Close.
func Open(ctx context.Context, cfg *core.EngineConfig, opts RuntimeOptions) (_ *Runtime, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg == nil || cfg.SchemaPath == "" {
		return nil, errors.New("engine: schema_path is required")
	}

	rt := &Runtime{logger: logger}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	mode, err := handler.ParseBindMode(cfg.BindMode)
	if err != nil {
		return nil, err
	}

	var (
		db          *sql.DB
		placeholder func(int) string
	)
	if cfg.Database != nil && cfg.Database.Type != "" {
		rt.adapter, err = adapter.Open(ctx, cfg.Database.ToAdapterConfig(), logger)
		if err != nil {
			return nil, err
		}
		db = rt.adapter.DB()
		placeholder = rt.adapter.Placeholder
	}

	var collector *metrics.Collector
	if opts.Registerer != nil {
		collector = metrics.NewWithRegistry(opts.Registerer)
	}

	var middleware []handler.Middleware
	if cfg.CalculatedColumns {
		middleware = append(middleware, starlark.WithCalculatedColumns(func() *core.ModelSchema {
			return rt.Executor.Schema()
		}, logger))
	}

	rt.Executor = New(Config{
		Source:      FileSource(cfg.SchemaPath),
		Handler:     opts.Handler,
		DB:          db,
		Placeholder: placeholder,
		BindMode:    mode,
		Middleware:  middleware,
		Metrics:     collector,
		Logger:      logger,
	})
	if !rt.Executor.IsValid() {
		return nil, fmt.Errorf("engine: %s", strings.Join(rt.Executor.Errors(), "; "))
	}

	rt.store, err = state.New(cfg.Async.Store, cfg.Async.StorePath, logger)
	if err != nil {
		return nil, err
	}

	rt.Async, err = async.NewManager(async.Config{
		Executor:      rt.Executor,
		MaxConcurrent: cfg.Async.MaxConcurrent,
		Store:         rt.store,
		RetentionTTL:  cfg.Async.RetentionTTL,
		MaxResults:    cfg.Async.MaxResults,
		Metrics:       collector,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Watch {
		watchCtx, cancel := context.WithCancel(context.Background())
		rt.cancel = cancel
		if err := rt.Executor.Watch(watchCtx, DefaultDebounce); err != nil {
			return nil, err
		}
	}

	logger.Info("engine opened",
		slog.String("schema", cfg.SchemaPath),
		slog.String("model", rt.Executor.Schema().Name),
		slog.Int("max_concurrent", rt.Async.MaxConcurrent()))
	return rt, nil
}

// Close stops the watcher, waits for async operations and releases the
// result store and database connection.
func (rt *Runtime) Close() error {
	if rt.cancel != nil {
		rt.cancel()
	}

	var errs []error
	if rt.Async != nil {
		errs = append(errs, rt.Async.Close())
	}
	if rt.store != nil {
		errs = append(errs, rt.store.Close())
	}
	if rt.adapter != nil {
		errs = append(errs, rt.adapter.Close())
	}
	return errors.Join(errs...)
}
