package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vs-mods-updater/moddb"
	"vs-mods-updater/mods"
	"vs-mods-updater/pool"

	"github.com/spf13/viper"
)

const (
	// LatestGameVersion asks for the newest game version known to the catalog.
	LatestGameVersion = "latest"

	BehaviorAbort    = "abort"
	BehaviorContinue = "continue"

	defaultWorkers    = 4
	defaultTimeout    = 10
	defaultMaxBackups = 3
	defaultAttempts   = 3
	defaultRetryDelay = 1500 * time.Millisecond
	defaultJitter     = 500 * time.Millisecond
)

// ErrModsDirMissing is returned when MODS_DIR does not exist.
var ErrModsDirMissing = errors.New("mods directory does not exist")

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	ModsDir                 string        `mapstructure:"MODS_DIR"`
	GameVersion             string        `mapstructure:"GAME_VERSION"` // x.y.z or "latest"
	MaxWorkers              int           `mapstructure:"MAX_WORKERS"`
	Timeout                 int           `mapstructure:"TIMEOUT"` // seconds per request
	ExcludePrerelease       bool          `mapstructure:"EXCLUDE_PRERELEASE"`
	ForceUpdate             bool          `mapstructure:"FORCE_UPDATE"`
	BackupDir               string        `mapstructure:"BACKUP_DIR"`
	MaxBackups              int           `mapstructure:"MAX_BACKUPS"`
	ExcludedModsList        string        `mapstructure:"EXCLUDED_MODS"` // comma separated filenames
	IncompatibilityBehavior string        `mapstructure:"INCOMPATIBILITY_BEHAVIOR"`
	ModDBAPIURL             string        `mapstructure:"MODDB_API_URL"`
	RetryAttempts           int           `mapstructure:"RETRY_ATTEMPTS"`
	RetryDelay              time.Duration `mapstructure:"RETRY_DELAY"`
	RequestJitter           time.Duration `mapstructure:"REQUEST_JITTER"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	UserAgent               string        `mapstructure:"USERAGENT"` // empty rotates browser agents
	ModlistDir              string        `mapstructure:"MODLIST_DIR"`
	ConfigDir               string        `mapstructure:"-"`
	DatabasePath            string        `mapstructure:"-"` // Not from env, derived
	ExcludedMods            []string      `mapstructure:"-"` // Parsed from ExcludedModsList
}

// RequestTimeout returns the per-request timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// WantsLatest reports whether the target game version must be looked up.
func (c Config) WantsLatest() bool {
	return c.GameVersion == LatestGameVersion
}

// LoadOption changes how LoadConfig treats the environment.
type LoadOption func(*loadOptions)

type loadOptions struct {
	createModsDir bool
}

// CreateModsDir makes LoadConfig create MODS_DIR instead of failing with
// ErrModsDirMissing.
func CreateModsDir() LoadOption {
	return func(o *loadOptions) { o.createModsDir = true }
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string, opts ...LoadOption) (config Config, err error) {
	var lo loadOptions
	for _, opt := range opts {
		opt(&lo)
	}

	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	// Defaults make every key known to Viper, so AutomaticEnv picks them up
	viper.SetDefault("MODS_DIR", "")
	viper.SetDefault("GAME_VERSION", LatestGameVersion)
	viper.SetDefault("MAX_WORKERS", defaultWorkers)
	viper.SetDefault("TIMEOUT", defaultTimeout)
	viper.SetDefault("EXCLUDE_PRERELEASE", false)
	viper.SetDefault("FORCE_UPDATE", false)
	viper.SetDefault("BACKUP_DIR", "")
	viper.SetDefault("MAX_BACKUPS", defaultMaxBackups)
	viper.SetDefault("EXCLUDED_MODS", "")
	viper.SetDefault("INCOMPATIBILITY_BEHAVIOR", BehaviorAbort)
	viper.SetDefault("MODDB_API_URL", moddb.DefaultBaseURL)
	viper.SetDefault("RETRY_ATTEMPTS", defaultAttempts)
	viper.SetDefault("RETRY_DELAY", defaultRetryDelay.String())
	viper.SetDefault("REQUEST_JITTER", defaultJitter.String())
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("USERAGENT", "")
	viper.SetDefault("MODLIST_DIR", "")

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	// Bind environment variables automatically.
	viper.AutomaticEnv()

	if vipErr = viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	config.ConfigDir = path
	processConfigDefaults(&config)
	if lo.createModsDir && config.ModsDir != "" {
		if err := os.MkdirAll(config.ModsDir, 0755); err != nil {
			return Config{}, fmt.Errorf("failed to create mods directory '%s': %w", config.ModsDir, err)
		}
	}
	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}

	config.DatabasePath = filepath.Join(path, "mods.db")
	return config, nil
}

// processConfigDefaults fills in and normalises values that were left empty
// or out of range.
func processConfigDefaults(config *Config) {
	config.GameVersion = strings.TrimSpace(config.GameVersion)
	if config.GameVersion == "" || strings.EqualFold(config.GameVersion, LatestGameVersion) {
		config.GameVersion = LatestGameVersion
	} else if mods.ValidVersion(config.GameVersion) {
		config.GameVersion = mods.CompleteVersion(config.GameVersion)
	}

	if clamped := pool.Clamp(config.MaxWorkers); clamped != config.MaxWorkers {
		if config.MaxWorkers != 0 {
			slog.Warn("MAX_WORKERS out of range, clamping", "requested", config.MaxWorkers, "using", clamped)
		}
		config.MaxWorkers = clamped
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxBackups < 1 {
		config.MaxBackups = 1
	}
	if config.RetryAttempts < 1 {
		config.RetryAttempts = defaultAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaultRetryDelay
	}
	if config.RequestJitter < 0 {
		config.RequestJitter = 0
	}
	if config.ModDBAPIURL == "" {
		config.ModDBAPIURL = moddb.DefaultBaseURL
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	behavior := strings.ToLower(strings.TrimSpace(config.IncompatibilityBehavior))
	switch behavior {
	case BehaviorAbort, BehaviorContinue:
	case "":
		behavior = BehaviorAbort
	default:
		slog.Warn("Invalid INCOMPATIBILITY_BEHAVIOR, defaulting to abort", "value", config.IncompatibilityBehavior)
		behavior = BehaviorAbort
	}
	config.IncompatibilityBehavior = behavior

	if config.BackupDir == "" {
		base := config.ConfigDir
		if base == "" {
			base = "."
		}
		config.BackupDir = filepath.Join(base, "backup_mods")
	}
	if config.ModlistDir == "" {
		config.ModlistDir = config.ConfigDir
		if config.ModlistDir == "" {
			config.ModlistDir = "."
		}
	}

	config.ExcludedMods = nil
	for _, name := range strings.Split(config.ExcludedModsList, ",") {
		if name = strings.TrimSpace(name); name != "" {
			config.ExcludedMods = append(config.ExcludedMods, name)
		}
	}
}

// validateAndEnsureDirectories checks required values and creates the backup
// directory. The mods directory itself is never created.
func validateAndEnsureDirectories(config *Config) error {
	if config.ModsDir == "" {
		slog.Error("MODS_DIR is not set")
		return fmt.Errorf("MODS_DIR is required")
	}
	info, err := os.Stat(config.ModsDir)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrModsDirMissing, config.ModsDir)
	} else if err != nil {
		return fmt.Errorf("failed to check mods directory '%s': %w", config.ModsDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("MODS_DIR '%s' is not a directory", config.ModsDir)
	}

	if !config.WantsLatest() && !mods.ValidVersion(config.GameVersion) {
		return fmt.Errorf("GAME_VERSION '%s' is not a valid version (expected x.y.z or %s)", config.GameVersion, LatestGameVersion)
	}

	if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
		slog.Error("Failed to create backup directory", "path", config.BackupDir, "error", err)
		return fmt.Errorf("failed to create backup directory '%s': %w", config.BackupDir, err)
	}
	return nil
}
