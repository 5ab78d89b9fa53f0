// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bump computes the next semantic version for a release type.
package bump

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// ReleaseType is the size of the change a batch of commits represents.
type ReleaseType string

const (
	None  ReleaseType = ""
	Patch ReleaseType = "patch"
	Minor ReleaseType = "minor"
	Major ReleaseType = "major"
)

// Rank orders release types; higher means a bigger change.
func (r ReleaseType) Rank() int {
	switch r {
	case Major:
		return 3
	case Minor:
		return 2
	case Patch:
		return 1
	default:
		return 0
	}
}

// String returns "none" for None so logs stay readable.
func (r ReleaseType) String() string {
	if r == None {
		return "none"
	}
	return string(r)
}

// ParseReleaseType accepts major, minor, patch and none/false (case-insensitive).
func ParseReleaseType(s string) (ReleaseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	case "", "none", "false":
		return None, nil
	default:
		return None, fmt.Errorf("unknown release type: %s (must be 'major', 'minor', 'patch' or 'none')", s)
	}
}

// Parse reads a version strictly and falls back to tolerant parsing
// (leading "v", leading zeros, missing patch).
func Parse(version string) (semver.Version, error) {
	v, err := semver.Parse(version)
	if err == nil {
		return v, nil
	}
	v, tolerantErr := semver.ParseTolerant(version)
	if tolerantErr != nil {
		return semver.Version{}, fmt.Errorf("parsing version %q: %w", version, err)
	}
	return v, nil
}

// Next increments current by release and, when prerelease is not empty,
// marks the result as a pre-release with that label.
//
// A pre-release baseline whose core already reflects the requested bump is
// finalised instead of bumped again: 1.0.0-x major gives 1.0.0, 1.2.0-x minor
// gives 1.2.0, 1.2.3-x patch gives 1.2.3. Build metadata is dropped.
//
// When the baseline is a pre-release of the same core version under the same
// label, a numeric counter keeps the result above the baseline:
// 1.3.0-pre patch "pre" gives 1.3.0-pre.1, 1.3.0-pre.1 gives 1.3.0-pre.2.
// A label that would sort below the baseline's moves the core on instead:
// 1.3.0-pre patch "beta" gives 1.3.1-beta.
func Next(current string, release ReleaseType, prerelease string) (string, error) {
	base, err := Parse(current)
	if err != nil {
		return "", err
	}
	if release.Rank() == 0 {
		return "", fmt.Errorf("cannot increment %s by release type %q", current, release)
	}

	next := increment(base, release, len(base.Pre) > 0)
	if prerelease == "" {
		return next.String(), nil
	}

	label, err := parseLabel(prerelease)
	if err != nil {
		return "", err
	}
	sameCore := next.Major == base.Major && next.Minor == base.Minor && next.Patch == base.Patch
	next.Pre = label
	if sameCore {
		if n, ok := counterAfter(base.Pre, label); ok {
			next.Pre = append(next.Pre, semver.PRVersion{VersionNum: n + 1, IsNum: true})
		} else if next.LE(base) {
			next = increment(base, release, false)
			next.Pre = label
		}
	}
	return next.String(), nil
}

// increment bumps the core of v. With finalise set, a pre-release whose core
// already reflects the bump is released as is, the way npm's inc does.
func increment(v semver.Version, release ReleaseType, finalise bool) semver.Version {
	next := semver.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	switch release {
	case Major:
		if v.Minor != 0 || v.Patch != 0 || !finalise {
			next.Major++
		}
		next.Minor, next.Patch = 0, 0
	case Minor:
		if v.Patch != 0 || !finalise {
			next.Minor++
		}
		next.Patch = 0
	case Patch:
		if !finalise {
			next.Patch++
		}
	}
	return next
}

func parseLabel(label string) ([]semver.PRVersion, error) {
	parts := strings.Split(label, ".")
	pre := make([]semver.PRVersion, 0, len(parts))
	for _, part := range parts {
		v, err := semver.NewPRVersion(part)
		if err != nil {
			return nil, fmt.Errorf("invalid pre-release label %q: %w", label, err)
		}
		pre = append(pre, v)
	}
	return pre, nil
}

// counterAfter reports the counter following label in pre: 0 for an exact
// match, n for label.n. It fails when pre does not start with label.
func counterAfter(pre, label []semver.PRVersion) (uint64, bool) {
	if len(pre) < len(label) {
		return 0, false
	}
	for i := range label {
		if pre[i].Compare(label[i]) != 0 {
			return 0, false
		}
	}
	switch rest := pre[len(label):]; {
	case len(rest) == 0:
		return 0, true
	case len(rest) == 1 && rest[0].IsNum:
		return rest[0].VersionNum, true
	default:
		return 0, false
	}
}
