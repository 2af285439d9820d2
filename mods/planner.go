package mods

import (
	"slices"

	"go.uber.org/zap"
)

// PlanOptions are the run settings the planner needs.
type PlanOptions struct {
	TargetVersion string
	Force         bool
	Exclusions    Exclusions
}

// Plan is the outcome of classifying every installed mod.
type Plan struct {
	Entries      []PlanEntry // every installed mod, sorted by name
	Incompatible []PlanEntry // subset with StatusIncompatible, sorted by name
}

// Updates returns the entries slated for download.
func (p Plan) Updates() []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Status == StatusUpdateAvailable {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of entries with status s.
func (p Plan) Count(s Status) int {
	n := 0
	for _, e := range p.Entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

// BuildPlan classifies installed mods against already fetched catalog data.
// remotes is keyed by filename; a mod without a resolved remote is treated as
// excluded for this run. It performs no I/O.
func BuildPlan(installed []InstalledMod, remotes map[string]Remote, opts PlanOptions, log *zap.SugaredLogger) Plan {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var plan Plan
	for _, mod := range installed {
		entry := classify(mod, remotes, opts, log)
		plan.Entries = append(plan.Entries, entry)
		if entry.Status == StatusIncompatible {
			plan.Incompatible = append(plan.Incompatible, entry)
		}
	}

	byName := func(a, b PlanEntry) int {
		switch {
		case lessByName(a.Mod.Name, a.Mod.Filename, b.Mod.Name, b.Mod.Filename):
			return -1
		case lessByName(b.Mod.Name, b.Mod.Filename, a.Mod.Name, a.Mod.Filename):
			return 1
		default:
			return 0
		}
	}
	slices.SortFunc(plan.Entries, byName)
	slices.SortFunc(plan.Incompatible, byName)
	return plan
}

func classify(mod InstalledMod, remotes map[string]Remote, opts PlanOptions, log *zap.SugaredLogger) PlanEntry {
	entry := PlanEntry{
		Mod:        mod,
		OldVersion: mod.LocalVersion,
		NewVersion: mod.LocalVersion,
		Status:     StatusUpToDate,
	}
	modLog := log.With(zap.String("mod", mod.Name), zap.String("file", mod.Filename))

	if opts.Exclusions.Contains(mod.Filename) {
		modLog.Debug("Skipping excluded mod")
		return entry
	}

	remote, ok := remotes[mod.Filename]
	if !ok || remote.State != RemoteResolved {
		modLog.Debugw("No catalog data for mod, treating as excluded for this run")
		return entry
	}

	if remote.Best != nil && CompareVersions(remote.Best.Release.Version, mod.LocalVersion) > 0 {
		entry.NewVersion = remote.Best.Release.Version
		entry.ArtifactPointer = remote.Best.Release.MainFile
		entry.Changelog = remote.Changelog
		if entry.ArtifactPointer == "" {
			modLog.Warnw("Newer release has no download pointer", zap.String("version", entry.NewVersion))
			entry.NewVersion = mod.LocalVersion
			return entry
		}
		entry.Status = StatusUpdateAvailable
		return entry
	}

	if opts.Force {
		if remote.InstalledPointer == "" {
			modLog.Warnw("Force update requested but the installed version is not in the catalog",
				zap.String("version", mod.LocalVersion))
			return entry
		}
		entry.ArtifactPointer = remote.InstalledPointer
		entry.Status = StatusUpdateAvailable
		return entry
	}

	if remote.Best != nil {
		return entry
	}

	installedFor := mod.GameVersion
	if installedFor == "" {
		installedFor = remote.InstalledGameVersion
	}
	if ValidVersion(installedFor) && !SameMajorMinor(installedFor, opts.TargetVersion) {
		entry.Status = StatusIncompatible
		entry.Mod.GameVersion = installedFor
		modLog.Infow("No release for the target game version",
			zap.String("installed_for", installedFor),
			zap.String("target", opts.TargetVersion))
	}
	return entry
}
