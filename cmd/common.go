package cmd

import (
	"context"
	"errors"
	"fmt"

	"vs-mods-updater/config"
	"vs-mods-updater/db"
	"vs-mods-updater/logger"
	"vs-mods-updater/moddb"
	"vs-mods-updater/mods"
	"vs-mods-updater/updater"

	"go.uber.org/zap"
)

// app holds what every command needs after startup.
type app struct {
	cfg    config.Config
	store  *db.Store
	client *moddb.Client
}

func (a app) close() {
	if err := a.store.Close(); err != nil {
		logger.Log.Warnw("Failed to close database", zap.Error(err))
	}
}

// bootstrap handles shared initialization logic for commands.
// Startup failures are fatal.
func bootstrap(opts ...config.LoadOption) app {
	cfg, err := config.LoadConfig(configDir, opts...)
	if errors.Is(err, config.ErrModsDirMissing) {
		logger.Log.Fatalw("Mods directory not found, check MODS_DIR", zap.Error(err))
	} else if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}
	logger.SetLevel(cfg.LogLevel)

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		logger.Log.Fatalw("Failed to open database", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	return app{cfg: cfg, store: store, client: newClient(cfg)}
}

func newClient(cfg config.Config) *moddb.Client {
	return moddb.NewClient(
		moddb.WithBaseURL(cfg.ModDBAPIURL),
		moddb.WithTimeout(cfg.RequestTimeout()),
		moddb.WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
		moddb.WithJitter(cfg.RequestJitter),
		moddb.WithUserAgent(cfg.UserAgent),
		moddb.WithLogger(logger.Log),
	)
}

// requireModFiles stops the program when the mods directory has nothing to update.
func requireModFiles(dir string) {
	ok, err := mods.HasModFiles(dir)
	if err != nil {
		logger.Log.Fatalw("Failed to read mods directory", zap.String("dir", dir), zap.Error(err))
	}
	if !ok {
		logger.Log.Fatalw("No mod files (.zip or .cs) found in mods directory", zap.String("dir", dir))
	}
}

type gameVersionLookup interface {
	LatestGameVersion(ctx context.Context) (string, error)
}

// resolveTargetVersion turns the configured game version into a concrete one,
// asking the catalog when "latest" was requested.
func resolveTargetVersion(ctx context.Context, cfg config.Config, lookup gameVersionLookup) (string, error) {
	if !cfg.WantsLatest() {
		return cfg.GameVersion, nil
	}
	v, err := lookup.LatestGameVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to look up the latest game version: %w", err)
	}
	logger.Log.Infow("Using latest game version", zap.String("version", v))
	return v, nil
}

// runOptions builds the updater options for one run from config and flags.
func runOptions(cfg config.Config, target string, force, acceptIncompatible, dryRun bool) updater.Options {
	return updater.Options{
		ModsDir:            cfg.ModsDir,
		TargetVersion:      target,
		ExcludePrerelease:  cfg.ExcludePrerelease,
		Force:              force || cfg.ForceUpdate,
		Excluded:           cfg.ExcludedMods,
		Workers:            cfg.MaxWorkers,
		BackupDir:          cfg.BackupDir,
		MaxBackups:         cfg.MaxBackups,
		AcceptIncompatible: acceptIncompatible || cfg.IncompatibilityBehavior == config.BehaviorContinue,
		DryRun:             dryRun,
	}
}
