package main

import (
	"go.uber.org/zap"

	"github.com/arma3tool/arma3tool/internal/config"
	"github.com/arma3tool/arma3tool/internal/store"
)

// App bundles the configuration, database handle, and CLI logger a
// subcommand needs, threaded explicitly through every command's run
// function rather than held in package-level variables. This keeps the
// pipeline stages (internal/extract, internal/parse, internal/graph,
// internal/export, internal/mission) reachable from tests without a global
// boot sequence to unwind first.
type App struct {
	Config *config.Config
	DB     *store.DB
	Logger *zap.Logger
}

// Close releases the resources App owns.
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// openApp loads the app config and opens the primary database, the common
// setup every subcommand except a bare "help" invocation needs.
func openApp(configPath string, logger *zap.Logger) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, DB: db, Logger: logger}, nil
}
