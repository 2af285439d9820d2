package mods

import (
	"cmp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// canonicalVersion turns "1.19.5", "v1.19" or " V1.2.0-rc.1 " into semver form.
// The second result is false when the string is not a usable version.
// Numeric segments beyond major.minor.patch are dropped; see parseVersion.
func canonicalVersion(raw string) (string, bool) {
	v, _, ok := parseVersion(raw)
	return v, ok
}

// parseVersion is canonicalVersion that also returns the numeric segments
// after the patch number, so "1.2.0.1" is "v1.2.0" plus [1].
func parseVersion(raw string) (string, []int, bool) {
	v := strings.TrimSpace(raw)
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	if v == "" {
		return "", nil, false
	}

	var extra []int
	core, suffix := v, ""
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		core, suffix = v[:i], v[i:]
	}
	if parts := strings.Split(core, "."); len(parts) > 3 {
		for _, p := range parts[3:] {
			n, err := strconv.Atoi(p)
			if err != nil {
				return "", nil, false
			}
			extra = append(extra, n)
		}
		v = strings.Join(parts[:3], ".") + suffix
	}

	v = "v" + v
	if !semver.IsValid(v) {
		return "", nil, false
	}
	return v, extra, true
}

// compareExtra orders trailing segments, treating missing ones as zero.
func compareExtra(a, b []int) int {
	for i := range max(len(a), len(b)) {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
	}
	return 0
}

// ValidVersion reports whether raw parses as a version.
func ValidVersion(raw string) bool {
	_, ok := canonicalVersion(raw)
	return ok
}

// IsPrerelease reports whether raw is a parseable pre-release version.
func IsPrerelease(raw string) bool {
	v, ok := canonicalVersion(raw)
	return ok && semver.Prerelease(v) != ""
}

// SameMajorMinor reports whether both versions parse and share major.minor.
func SameMajorMinor(a, b string) bool {
	av, ok := canonicalVersion(a)
	if !ok {
		return false
	}
	bv, ok := canonicalVersion(b)
	if !ok {
		return false
	}
	return semver.MajorMinor(av) == semver.MajorMinor(bv)
}

// CompareVersions orders two version strings. Parseable versions sort above
// unparseable ones; two unparseable versions compare as plain strings.
func CompareVersions(a, b string) int {
	av, ax, aok := parseVersion(a)
	bv, bx, bok := parseVersion(b)
	switch {
	case aok && bok:
		if c := semver.Compare(av, bv); c != 0 {
			return c
		}
		return compareExtra(ax, bx)
	case aok:
		return 1
	case bok:
		return -1
	default:
		return strings.Compare(strings.TrimSpace(a), strings.TrimSpace(b))
	}
}

// CompleteVersion pads a version to major.minor.patch ("1.19" -> "1.19.0") and
// drops a leading "v". Extra numeric segments are kept ("1.2.0.1").
// Unparseable input is returned trimmed.
func CompleteVersion(raw string) string {
	v, extra, ok := parseVersion(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	out := strings.TrimPrefix(semver.Canonical(v), "v")
	if len(extra) == 0 {
		return out
	}
	core, suffix := out, ""
	if i := strings.IndexAny(out, "-+"); i >= 0 {
		core, suffix = out[:i], out[i:]
	}
	for _, n := range extra {
		core += "." + strconv.Itoa(n)
	}
	return core + suffix
}
