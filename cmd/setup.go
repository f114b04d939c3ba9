package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/services"
	"github.com/desertthunder/relo/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the record store and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}

	r.logger.Info("initializing record store", "path", config.Store.Path)

	db, err := shared.NewDatabase(config.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Store.MaxOpenConns, config.Store.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for record store: %v", config.Store.Path)
	return nil
}

// SetupManifest writes a namespace.toml listing the containers a namespace
// legitimately declares.
func (r *Runner) SetupManifest(ctx context.Context, cmd *cli.Command) error {
	namespace := cmd.String("namespace")
	containers := cmd.StringSlice("container")
	dir := cmd.String("dir")

	if len(containers) == 0 {
		return fmt.Errorf("%w: at least one --container", shared.ErrMissingArgument)
	}

	manifest := &models.Namespace{
		Name:       namespace,
		Path:       dir,
		Containers: containers,
	}

	if err := services.WriteManifest(manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	r.logger.Info("manifest written", "namespace", namespace, "dir", dir)
	r.writePlain("✓ Manifest for %s written with %d containers\n", namespace, len(containers))
	return nil
}
