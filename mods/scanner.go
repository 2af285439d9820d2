package mods

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"vs-mods-updater/pool"

	"go.uber.org/zap"
)

// ScanResult is the outcome of scanning a mods directory.
type ScanResult struct {
	Installed []InstalledMod // sorted by name, case-insensitive
	Invalid   []string       // filenames that could not be read, sorted
}

// Scanner reads every file of a mods directory into InstalledMod records.
type Scanner struct {
	Sources []MetadataSource
	Workers int
	Log     *zap.SugaredLogger
}

// NewScanner creates a Scanner using the default metadata sources.
func NewScanner(workers int, log *zap.SugaredLogger) *Scanner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scanner{Sources: DefaultSources(), Workers: workers, Log: log}
}

type scanSlot struct {
	mod     InstalledMod
	invalid bool
	skip    bool
}

// Scan reads dir. Only an unreadable directory is an error; problems with
// individual files route them to Invalid.
func (s *Scanner) Scan(ctx context.Context, dir string) (ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to read mods directory '%s': %w", dir, err)
	}

	slots := make([]scanSlot, len(entries))
	err = pool.ForEach(ctx, s.Workers, len(entries), func(_ context.Context, i int) {
		slots[i] = s.scanEntry(dir, entries[i])
	})
	if err != nil {
		return ScanResult{}, err
	}

	var res ScanResult
	seen := make(map[string]string)
	for _, slot := range slots {
		switch {
		case slot.skip:
		case slot.invalid:
			res.Invalid = append(res.Invalid, slot.mod.Filename)
		default:
			if prev, dup := seen[slot.mod.ID]; dup {
				s.Log.Warnw("Duplicate mod id, catalog data will be shared",
					zap.String("modid", slot.mod.ID),
					zap.String("file", slot.mod.Filename),
					zap.String("other_file", prev))
			}
			seen[slot.mod.ID] = slot.mod.Filename
			res.Installed = append(res.Installed, slot.mod)
		}
	}

	slices.SortFunc(res.Installed, func(a, b InstalledMod) int {
		switch {
		case lessByName(a.Name, a.Filename, b.Name, b.Filename):
			return -1
		case lessByName(b.Name, b.Filename, a.Name, a.Filename):
			return 1
		default:
			return 0
		}
	})
	slices.Sort(res.Invalid)
	return res, nil
}

func (s *Scanner) scanEntry(dir string, entry os.DirEntry) scanSlot {
	name := entry.Name()
	if entry.IsDir() {
		s.Log.Warnw("Directory found in mods folder, expected .zip or .cs files", zap.String("name", name))
		return scanSlot{skip: true}
	}

	full := filepath.Join(dir, name)
	for _, src := range s.Sources {
		if !src.Match(full) {
			continue
		}
		md, err := src.Read(full)
		if err != nil {
			s.Log.Warnw("Invalid mod file", zap.String("file", name), zap.Error(err))
			return scanSlot{mod: InstalledMod{Filename: name}, invalid: true}
		}
		return scanSlot{mod: InstalledMod{
			ID:           md.ID,
			Name:         md.Name,
			LocalVersion: md.Version,
			Description:  md.Description,
			Filename:     name,
			GameVersion:  md.GameVersion,
			Side:         md.Side,
		}}
	}

	s.Log.Infow("Unrecognised file in mods folder", zap.String("file", name))
	return scanSlot{mod: InstalledMod{Filename: name}, invalid: true}
}

// HasModFiles reports whether dir contains at least one .zip or .cs file.
func HasModFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".zip", ".cs":
			return true, nil
		}
	}
	return false, nil
}
