// SPDX-License-Identifier: AGPL-3.0-or-later

package vcs

import (
	"sort"
	"strings"
)

// SortVersionsDesc orders names the way `git tag --sort=-version:refname`
// does without a versionsort.suffix setting: runs of digits compare
// numerically, everything else byte-wise, and a name that extends another
// sorts after it.
func SortVersionsDesc(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		return compareVersions(names[i], names[j]) > 0
	})
}

func compareVersions(a, b string) int {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, restA := cutDigits(a)
			nb, restB := cutDigits(b)
			if c := compareNumeric(na, nb); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func cutDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// compareNumeric compares decimal strings of any length.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}
