package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestProcessConfigDefaults(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{ConfigDir: "/srv/vs"}
		processConfigDefaults(&cfg)

		if cfg.GameVersion != LatestGameVersion {
			t.Errorf("Expected GameVersion to be %s, got %s", LatestGameVersion, cfg.GameVersion)
		}
		if cfg.MaxWorkers != 1 {
			t.Errorf("Expected MaxWorkers to be clamped to 1, got %d", cfg.MaxWorkers)
		}
		if cfg.Timeout != 10 {
			t.Errorf("Expected Timeout to be 10, got %d", cfg.Timeout)
		}
		if cfg.MaxBackups != 1 {
			t.Errorf("Expected MaxBackups to be at least 1, got %d", cfg.MaxBackups)
		}
		if cfg.IncompatibilityBehavior != BehaviorAbort {
			t.Errorf("Expected IncompatibilityBehavior to be abort, got %s", cfg.IncompatibilityBehavior)
		}
		if cfg.BackupDir != filepath.Join("/srv/vs", "backup_mods") {
			t.Errorf("Unexpected BackupDir %s", cfg.BackupDir)
		}
		if cfg.RetryDelay != 1500*time.Millisecond {
			t.Errorf("Expected RetryDelay to be 1.5s, got %s", cfg.RetryDelay)
		}
		if cfg.ModDBAPIURL == "" {
			t.Error("Expected ModDBAPIURL to have a default value")
		}
		if cfg.ModlistDir != "/srv/vs" {
			t.Errorf("Expected ModlistDir to default to the config dir, got %s", cfg.ModlistDir)
		}
	})

	t.Run("respects existing values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{
			GameVersion:             "v1.19",
			MaxWorkers:              6,
			MaxBackups:              5,
			BackupDir:               "/backups",
			IncompatibilityBehavior: "Continue",
			ExcludedModsList:        " foo.zip, ,bar.zip ",
		}
		processConfigDefaults(&cfg)

		if cfg.GameVersion != "1.19.0" {
			t.Errorf("Expected GameVersion to be normalised to 1.19.0, got %s", cfg.GameVersion)
		}
		if cfg.MaxWorkers != 6 {
			t.Errorf("Expected MaxWorkers to stay 6, got %d", cfg.MaxWorkers)
		}
		if cfg.MaxBackups != 5 {
			t.Errorf("Expected MaxBackups to stay 5, got %d", cfg.MaxBackups)
		}
		if cfg.BackupDir != "/backups" {
			t.Errorf("Expected BackupDir to stay /backups, got %s", cfg.BackupDir)
		}
		if cfg.IncompatibilityBehavior != BehaviorContinue {
			t.Errorf("Expected IncompatibilityBehavior to be continue, got %s", cfg.IncompatibilityBehavior)
		}
		if len(cfg.ExcludedMods) != 2 || cfg.ExcludedMods[0] != "foo.zip" || cfg.ExcludedMods[1] != "bar.zip" {
			t.Errorf("Unexpected ExcludedMods %v", cfg.ExcludedMods)
		}
	})

	t.Run("clamps worker count", func(t *testing.T) {
		cfg := Config{MaxWorkers: 64, IncompatibilityBehavior: "sometimes"}
		processConfigDefaults(&cfg)

		if cfg.MaxWorkers != 10 {
			t.Errorf("Expected MaxWorkers to be clamped to 10, got %d", cfg.MaxWorkers)
		}
		if cfg.IncompatibilityBehavior != BehaviorAbort {
			t.Errorf("Expected invalid behavior to fall back to abort, got %s", cfg.IncompatibilityBehavior)
		}
	})
}

func TestValidateAndEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing mods dir setting", func(t *testing.T) {
		cfg := Config{ModsDir: ""}
		if err := validateAndEnsureDirectories(&cfg); err == nil {
			t.Error("Expected error for missing ModsDir")
		}
	})

	t.Run("mods dir does not exist", func(t *testing.T) {
		cfg := Config{ModsDir: filepath.Join(tmpDir, "nope"), GameVersion: LatestGameVersion}
		err := validateAndEnsureDirectories(&cfg)
		if !errors.Is(err, ErrModsDirMissing) {
			t.Errorf("Expected ErrModsDirMissing, got %v", err)
		}
	})

	t.Run("invalid game version", func(t *testing.T) {
		cfg := Config{ModsDir: tmpDir, GameVersion: "one.nineteen", BackupDir: filepath.Join(tmpDir, "b")}
		if err := validateAndEnsureDirectories(&cfg); err == nil {
			t.Error("Expected error for invalid GameVersion")
		}
	})

	t.Run("creates backup directory", func(t *testing.T) {
		backupDir := filepath.Join(tmpDir, "backups", "vs")
		cfg := Config{ModsDir: tmpDir, GameVersion: "1.19.5", BackupDir: backupDir}
		if err := validateAndEnsureDirectories(&cfg); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := os.Stat(backupDir); os.IsNotExist(err) {
			t.Errorf("Directory %s was not created", backupDir)
		}
	})
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgDir := t.TempDir()
	modsDir := filepath.Join(cfgDir, "Mods")
	if err := os.Mkdir(modsDir, 0755); err != nil {
		t.Fatalf("Failed to create mods dir: %v", err)
	}
	env := "MODS_DIR=" + modsDir + "\nGAME_VERSION=1.19.8\nMAX_WORKERS=3\nEXCLUDED_MODS=a.zip,b.zip\nRETRY_DELAY=2s\n"
	if err := os.WriteFile(filepath.Join(cfgDir, ".env"), []byte(env), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	cfg, err := LoadConfig(cfgDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ModsDir != modsDir {
		t.Errorf("ModsDir = %s, want %s", cfg.ModsDir, modsDir)
	}
	if cfg.GameVersion != "1.19.8" || cfg.MaxWorkers != 3 {
		t.Errorf("Unexpected GameVersion/MaxWorkers: %s/%d", cfg.GameVersion, cfg.MaxWorkers)
	}
	if cfg.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %s, want 2s", cfg.RetryDelay)
	}
	if len(cfg.ExcludedMods) != 2 {
		t.Errorf("ExcludedMods = %v", cfg.ExcludedMods)
	}
	if cfg.DatabasePath != filepath.Join(cfgDir, "mods.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if _, err := os.Stat(cfg.BackupDir); err != nil {
		t.Errorf("Backup dir not created: %v", err)
	}
}

func TestLoadConfigCreatesModsDirOnRequest(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfgDir := t.TempDir()
	modsDir := filepath.Join(cfgDir, "fresh", "Mods")
	env := "MODS_DIR=" + modsDir + "\nMODLIST_DIR=" + filepath.Join(cfgDir, "lists") + "\n"
	if err := os.WriteFile(filepath.Join(cfgDir, ".env"), []byte(env), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}

	if _, err := LoadConfig(cfgDir); !errors.Is(err, ErrModsDirMissing) {
		t.Fatalf("Expected ErrModsDirMissing without the option, got %v", err)
	}

	viper.Reset()
	cfg, err := LoadConfig(cfgDir, CreateModsDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if info, err := os.Stat(modsDir); err != nil || !info.IsDir() {
		t.Errorf("Mods dir not created: %v", err)
	}
	if cfg.ModlistDir != filepath.Join(cfgDir, "lists") {
		t.Errorf("ModlistDir = %s", cfg.ModlistDir)
	}
}
