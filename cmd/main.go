package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/relo/internal/repositories"
	"github.com/desertthunder/relo/internal/services"
	"github.com/desertthunder/relo/internal/sessions"
	"github.com/desertthunder/relo/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	var store services.Store
	sqlStore, err := services.NewSQLiteStore(config.Store.Path)
	if err != nil {
		logger.Warn("record store unavailable", "path", config.Store.Path, "error", err)
	} else {
		store = sqlStore
	}

	var sessionStore sessions.Store
	switch config.Sessions.Backend {
	case "sqlite":
		if sqlStore != nil {
			sessionStore = repositories.NewSessionRepository(sqlStore.DB()).Store()
		} else {
			logger.Warn("sqlite session backend requires the record store")
		}
	default:
		if fileStore, err := sessions.NewFileStore(config.Sessions.Dir); err == nil {
			sessionStore = fileStore
		} else {
			logger.Warn("session store unavailable", "dir", config.Sessions.Dir, "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Store:    store,
		Sessions: sessionStore,
		Logger:   logger,
	})

	app := &cli.Command{
		Name:     "relo",
		Usage:    "Plan and migrate custom records between namespaces",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
