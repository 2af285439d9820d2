package cmd

import (
	"context"
	"errors"
	"os"
	"testing"

	"vs-mods-updater/config"
	"vs-mods-updater/logger"

	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop().Sugar()
	os.Exit(m.Run())
}

type fakeVersionLookup struct {
	version string
	err     error
	calls   int
}

func (f *fakeVersionLookup) LatestGameVersion(context.Context) (string, error) {
	f.calls++
	return f.version, f.err
}

func TestResolveTargetVersion(t *testing.T) {
	t.Run("explicit version skips lookup", func(t *testing.T) {
		lookup := &fakeVersionLookup{version: "1.20.0"}
		got, err := resolveTargetVersion(context.Background(), config.Config{GameVersion: "1.19.8"}, lookup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "1.19.8" {
			t.Errorf("resolveTargetVersion() = %q, want 1.19.8", got)
		}
		if lookup.calls != 0 {
			t.Errorf("expected no catalog lookup, got %d", lookup.calls)
		}
	})

	t.Run("latest asks the catalog", func(t *testing.T) {
		lookup := &fakeVersionLookup{version: "1.20.3"}
		got, err := resolveTargetVersion(context.Background(), config.Config{GameVersion: config.LatestGameVersion}, lookup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "1.20.3" {
			t.Errorf("resolveTargetVersion() = %q, want 1.20.3", got)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		lookup := &fakeVersionLookup{err: errors.New("offline")}
		_, err := resolveTargetVersion(context.Background(), config.Config{GameVersion: config.LatestGameVersion}, lookup)
		if err == nil {
			t.Error("expected error when the lookup fails")
		}
	})
}

func TestRunOptions(t *testing.T) {
	cfg := config.Config{
		ModsDir:                 "/vs/Mods",
		MaxWorkers:              4,
		BackupDir:               "/vs/backup_mods",
		MaxBackups:              3,
		ExcludedMods:            []string{"a.zip"},
		IncompatibilityBehavior: config.BehaviorAbort,
	}

	opts := runOptions(cfg, "1.19.8", false, false, false)
	if opts.TargetVersion != "1.19.8" || opts.ModsDir != "/vs/Mods" || opts.Workers != 4 {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.Force || opts.AcceptIncompatible || opts.DryRun {
		t.Errorf("expected no switches set, got %+v", opts)
	}
	if len(opts.Excluded) != 1 || opts.Excluded[0] != "a.zip" {
		t.Errorf("Excluded = %v", opts.Excluded)
	}

	if opts := runOptions(cfg, "1.19.8", false, true, false); !opts.AcceptIncompatible {
		t.Error("flag should accept incompatible mods")
	}

	cfg.IncompatibilityBehavior = config.BehaviorContinue
	cfg.ForceUpdate = true
	opts = runOptions(cfg, "1.19.8", false, false, true)
	if !opts.AcceptIncompatible {
		t.Error("INCOMPATIBILITY_BEHAVIOR=continue should accept incompatible mods")
	}
	if !opts.Force {
		t.Error("FORCE_UPDATE should force reinstalls")
	}
	if !opts.DryRun {
		t.Error("expected DryRun")
	}
}
