// Package cli contains the command line entrypoints of the album center.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"go-album-center/database/migrations"
	"go-album-center/internal/config"
	"go-album-center/internal/database"
	"go-album-center/internal/logger"
	"go-album-center/internal/service"
	"go-album-center/internal/storage"
	"go-album-center/internal/store"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "album-center",
		Short:         "A web picture manager organizing media into albums",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml)")

	registerServeCommands()
	registerDBCommands()
	registerExportCommands()
	registerStorageCommands()
	registerUserCommands()
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app holds the collaborators shared by the commands.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	db    *gorm.DB
	blobs storage.Blob
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.Log, cfg.Server.Debug), nil
}

// bootstrap opens the database and the blob storage and applies the schema.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := migrations.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	blobs, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, db: db, blobs: blobs}, nil
}

func (a *app) library(notifier service.Notifier) *service.Library {
	opts := service.Options{MaxUploadSize: a.cfg.Storage.MaxUploadSize}
	return service.NewLibrary(store.New(a.db), a.blobs, notifier, opts, a.log)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
