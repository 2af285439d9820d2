package mods

import (
	"slices"

	"golang.org/x/mod/semver"
)

// matchTag returns the highest tag of r compatible with target: same
// major.minor and not newer than target.
func matchTag(r RemoteRelease, target string) (string, bool) {
	best := ""
	for _, tag := range r.Tags {
		tv, ok := canonicalVersion(tag)
		if !ok {
			continue
		}
		if semver.MajorMinor(tv) != semver.MajorMinor(target) || semver.Compare(tv, target) > 0 {
			continue
		}
		if best == "" || CompareVersions(tag, best) > 0 {
			best = tag
		}
	}
	return best, best != ""
}

// compareCandidates sorts newest version first, newest creation time on ties.
func compareCandidates(a, b ResolvedCandidate) int {
	if c := CompareVersions(b.Release.Version, a.Release.Version); c != 0 {
		return c
	}
	return b.Release.CreatedAt.Compare(a.Release.CreatedAt)
}

// CompatibleReleases returns every release compatible with q, best first.
// An unparseable target yields no candidates.
func CompatibleReleases(releases []RemoteRelease, q CompatibilityQuery) []ResolvedCandidate {
	target, ok := canonicalVersion(q.TargetVersion)
	if !ok {
		return nil
	}

	var out []ResolvedCandidate
	for _, r := range releases {
		if q.ExcludePrerelease && IsPrerelease(r.Version) {
			continue
		}
		tag, ok := matchTag(r, target)
		if !ok {
			continue
		}
		out = append(out, ResolvedCandidate{Release: r, MatchedTag: tag})
	}
	slices.SortStableFunc(out, compareCandidates)
	return out
}

// Resolve picks the single best release for q. The boolean is false when the
// catalog entry has no build for the requested target; that is a normal
// outcome, not an error.
func Resolve(releases []RemoteRelease, q CompatibilityQuery) (ResolvedCandidate, bool) {
	candidates := CompatibleReleases(releases, q)
	if len(candidates) == 0 {
		return ResolvedCandidate{}, false
	}
	return candidates[0], true
}

// FindRelease returns the release whose version equals version exactly.
// When several match, the most recently created wins.
func FindRelease(releases []RemoteRelease, version string) (RemoteRelease, bool) {
	var (
		found RemoteRelease
		ok    bool
	)
	for _, r := range releases {
		if r.Version != version {
			continue
		}
		if !ok || r.CreatedAt.After(found.CreatedAt) {
			found, ok = r, true
		}
	}
	return found, ok
}

// HighestTag returns the newest parseable tag of r, without a leading "v".
func HighestTag(r RemoteRelease) string {
	best := ""
	for _, tag := range r.Tags {
		if !ValidVersion(tag) {
			continue
		}
		if best == "" || CompareVersions(tag, best) > 0 {
			best = tag
		}
	}
	if best == "" {
		return ""
	}
	return CompleteVersion(best)
}
