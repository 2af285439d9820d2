package mods

import (
	"strings"
	"time"
)

// InstalledMod is one valid mod file found in the mods directory.
// Filename is the identity key; ID is the catalog key and may repeat.
type InstalledMod struct {
	ID           string
	Name         string
	LocalVersion string
	Description  string
	Filename     string
	GameVersion  string // game version the installed file was built for, if known
	Side         string
	AssetID      int64
}

// RemoteRelease is one published release of a catalog entry.
type RemoteRelease struct {
	Version   string
	Tags      []string
	MainFile  string // artifact pointer (download URL)
	Filename  string
	CreatedAt time.Time
	Changelog string
}

// CompatibilityQuery holds the resolution parameters for a single run.
type CompatibilityQuery struct {
	TargetVersion     string
	ExcludePrerelease bool
}

// ResolvedCandidate is the best release for a query together with the tag that matched.
type ResolvedCandidate struct {
	Release    RemoteRelease
	MatchedTag string
}

// Status is the update classification of one installed mod.
type Status string

const (
	StatusUpToDate        Status = "up-to-date"
	StatusUpdateAvailable Status = "update-available"
	StatusIncompatible    Status = "incompatible"
)

// PlanEntry is the resolved update decision for one installed mod.
type PlanEntry struct {
	Mod             InstalledMod
	OldVersion      string
	NewVersion      string
	ArtifactPointer string
	Changelog       string
	Status          Status
}

// BackupArchive is one snapshot written by the backup manager.
type BackupArchive struct {
	Path      string
	CreatedAt time.Time
	Files     []string
}

// RemoteState describes the outcome of the catalog lookup for one mod.
type RemoteState int

const (
	RemoteResolved RemoteState = iota
	RemoteNotFound
	RemoteFailed
)

func (s RemoteState) String() string {
	switch s {
	case RemoteResolved:
		return "resolved"
	case RemoteNotFound:
		return "not-found"
	case RemoteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Remote is the per-mod result slot filled by the fetcher.
// Best is nil when no release is compatible with the target version.
type Remote struct {
	Filename             string
	ModID                string
	State                RemoteState
	AssetID              int64
	Side                 string
	Best                 *ResolvedCandidate
	InstalledPointer     string // download pointer of the exact installed version
	InstalledGameVersion string
	Changelog            string
	Err                  error
}

// Exclusions is the set of filenames that must never be updated.
type Exclusions map[string]struct{}

// NewExclusions builds an exclusion set, ignoring blank entries.
func NewExclusions(filenames ...string) Exclusions {
	ex := make(Exclusions, len(filenames))
	for _, f := range filenames {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		ex[f] = struct{}{}
	}
	return ex
}

// Contains reports whether filename is excluded.
func (e Exclusions) Contains(filename string) bool {
	if e == nil {
		return false
	}
	_, ok := e[filename]
	return ok
}

// With returns a copy of the set that also contains filenames.
func (e Exclusions) With(filenames ...string) Exclusions {
	out := make(Exclusions, len(e)+len(filenames))
	for f := range e {
		out[f] = struct{}{}
	}
	for _, f := range filenames {
		out[f] = struct{}{}
	}
	return out
}

// lessByName orders mods by case-insensitive name, then filename.
func lessByName(aName, aFile, bName, bFile string) bool {
	an, bn := strings.ToLower(aName), strings.ToLower(bName)
	if an != bn {
		return an < bn
	}
	return aFile < bFile
}
