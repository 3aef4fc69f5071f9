package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sellerdesk/trust-engine/internal/engine"
	"github.com/sellerdesk/trust-engine/internal/scorer"
	"github.com/sellerdesk/trust-engine/internal/store"
)

// env holds the wired application components for one command invocation.
type env struct {
	Store  store.Store
	Engine *engine.Engine
}

// initEnv opens the configured store, runs migrations, and builds the
// engine. Callers must Close when done.
func initEnv(ctx context.Context) (*env, error) {
	if err := scorer.ValidateConfig(cfg.Trust); err != nil {
		return nil, err
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Debug("store ready",
		zap.String("driver", cfg.Store.Driver),
	)
	return &env{
		Store:  st,
		Engine: engine.New(st, cfg.Trust, cfg.Gate),
	}, nil
}

// Close releases the store connection.
func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}
