package mods

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fooMod() InstalledMod {
	return InstalledMod{
		ID:           "foo",
		Name:         "Foo",
		LocalVersion: "1.0.0",
		Filename:     "foo_1.0.0.zip",
		GameVersion:  "1.19.0",
	}
}

func fooReleases() []RemoteRelease {
	return []RemoteRelease{
		release("1.0.0", "2024-01-01 10:00:00", "v1.19"),
		release("1.1.0", "2024-02-01 10:00:00", "v1.19"),
	}
}

// resolvedRemote mimics what the fetcher stores for a mod.
func resolvedRemote(mod InstalledMod, releases []RemoteRelease, target string) Remote {
	r := Remote{Filename: mod.Filename, ModID: mod.ID, State: RemoteResolved}
	if best, ok := Resolve(releases, CompatibilityQuery{TargetVersion: target}); ok {
		r.Best = &best
		r.Changelog = "changes for " + best.Release.Version
	}
	if inst, ok := FindRelease(releases, mod.LocalVersion); ok {
		r.InstalledPointer = inst.MainFile
		r.InstalledGameVersion = HighestTag(inst)
	}
	return r
}

func TestPlanUpdateAvailable(t *testing.T) {
	mod := fooMod()
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.19.5")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.19.5"}, nil)
	require.Len(t, plan.Entries, 1)

	entry := plan.Entries[0]
	assert.Equal(t, StatusUpdateAvailable, entry.Status)
	assert.Equal(t, "1.0.0", entry.OldVersion)
	assert.Equal(t, "1.1.0", entry.NewVersion)
	assert.NotEmpty(t, entry.ArtifactPointer)
	assert.Equal(t, "changes for 1.1.0", entry.Changelog)
	assert.Len(t, plan.Updates(), 1)
	assert.Empty(t, plan.Incompatible)
}

func TestPlanIncompatibleWhenTargetMovesOn(t *testing.T) {
	mod := fooMod()
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.20.0")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.20.0"}, nil)
	require.Len(t, plan.Incompatible, 1)
	assert.Equal(t, StatusIncompatible, plan.Entries[0].Status)
	assert.Empty(t, plan.Updates())
}

func TestPlanIncompatibleUsesCatalogGameVersionWhenLocalUnknown(t *testing.T) {
	mod := fooMod()
	mod.GameVersion = ""
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.20.0")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.20.0"}, nil)
	require.Len(t, plan.Incompatible, 1)
	assert.Equal(t, "1.19.0", plan.Incompatible[0].Mod.GameVersion)
}

func TestPlanUpToDateWhenNoCandidateButSameGameVersion(t *testing.T) {
	mod := fooMod()
	mod.GameVersion = "1.20.1"
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.20.0")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.20.0"}, nil)
	assert.Equal(t, StatusUpToDate, plan.Entries[0].Status)
	assert.Empty(t, plan.Incompatible)
}

func TestPlanUpToDateWhenAlreadyLatest(t *testing.T) {
	mod := fooMod()
	mod.LocalVersion = "1.1.0"
	mod.Filename = "foo_1.1.0.zip"
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.19.5")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.19.5"}, nil)
	assert.Equal(t, StatusUpToDate, plan.Entries[0].Status)
	assert.Equal(t, plan.Entries[0].OldVersion, plan.Entries[0].NewVersion)
}

func TestPlanExcludedModNeverUpdated(t *testing.T) {
	mod := fooMod()
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.19.5")}

	for _, force := range []bool{false, true} {
		plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{
			TargetVersion: "1.19.5",
			Force:         force,
			Exclusions:    NewExclusions(mod.Filename),
		}, nil)
		assert.Empty(t, plan.Updates(), "force=%v", force)
		assert.Empty(t, plan.Incompatible, "force=%v", force)
		assert.Equal(t, StatusUpToDate, plan.Entries[0].Status)
	}
}

func TestPlanExcludedIncompatibleModIsNotReported(t *testing.T) {
	mod := fooMod()
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.20.0")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{
		TargetVersion: "1.20.0",
		Exclusions:    NewExclusions(mod.Filename),
	}, nil)
	assert.Empty(t, plan.Incompatible)
}

func TestPlanForceReinstallsInstalledVersion(t *testing.T) {
	mod := fooMod()
	remote := resolvedRemote(mod, fooReleases(), "1.20.0")
	require.Nil(t, remote.Best)
	remotes := map[string]Remote{mod.Filename: remote}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.20.0", Force: true}, nil)
	updates := plan.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, remote.InstalledPointer, updates[0].ArtifactPointer)
	assert.Equal(t, updates[0].OldVersion, updates[0].NewVersion)
	assert.Empty(t, updates[0].Changelog)
}

func TestPlanForcePrefersNewerRelease(t *testing.T) {
	mod := fooMod()
	remotes := map[string]Remote{mod.Filename: resolvedRemote(mod, fooReleases(), "1.19.5")}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.19.5", Force: true}, nil)
	require.Len(t, plan.Updates(), 1)
	assert.Equal(t, "1.1.0", plan.Updates()[0].NewVersion)
}

func TestPlanForceWithoutInstalledPointerStaysUpToDate(t *testing.T) {
	mod := fooMod()
	mod.LocalVersion = "0.9.0"
	remote := resolvedRemote(mod, fooReleases(), "1.20.0")
	remotes := map[string]Remote{mod.Filename: remote}

	plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.20.0", Force: true}, nil)
	assert.Empty(t, plan.Updates())
}

func TestPlanTreatsFetchFailuresAsExcluded(t *testing.T) {
	mod := fooMod()
	for _, state := range []RemoteState{RemoteNotFound, RemoteFailed} {
		remotes := map[string]Remote{mod.Filename: {Filename: mod.Filename, State: state}}
		plan := BuildPlan([]InstalledMod{mod}, remotes, PlanOptions{TargetVersion: "1.20.0", Force: true}, nil)
		assert.Equal(t, StatusUpToDate, plan.Entries[0].Status, state.String())
		assert.Empty(t, plan.Incompatible, state.String())
	}

	plan := BuildPlan([]InstalledMod{mod}, nil, PlanOptions{TargetVersion: "1.20.0"}, nil)
	assert.Equal(t, StatusUpToDate, plan.Entries[0].Status)
}

func TestPlanSortsByName(t *testing.T) {
	installed := []InstalledMod{
		{ID: "zeta", Name: "zeta", LocalVersion: "1.0.0", Filename: "z.zip"},
		{ID: "alpha", Name: "Alpha", LocalVersion: "1.0.0", Filename: "a.zip"},
		{ID: "beta", Name: "beta", LocalVersion: "1.0.0", Filename: "b.zip"},
	}

	plan := BuildPlan(installed, nil, PlanOptions{TargetVersion: "1.19.0"}, nil)
	require.Len(t, plan.Entries, 3)
	assert.Equal(t, "Alpha", plan.Entries[0].Mod.Name)
	assert.Equal(t, "beta", plan.Entries[1].Mod.Name)
	assert.Equal(t, "zeta", plan.Entries[2].Mod.Name)
}
