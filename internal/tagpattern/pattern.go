// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tagpattern turns tag templates such as "v{version}" or
// "pkg/api-v{version}" into a git glob for tag search and an anchored
// regular expression for version extraction.
package tagpattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Placeholder marks the position of the version inside a tag pattern.
const Placeholder = "{version}"

// Default is the pattern used when none is given.
const Default = "v" + Placeholder

// versionExpr captures MAJOR.MINOR.PATCH with an optional pre-release/build tail.
const versionExpr = `(\d+\.\d+\.\d+(?:-[^\s]+)?)`

// ErrEmpty is returned when parsing an empty pattern.
var ErrEmpty = errors.New("tag pattern is empty")

// Pattern is a parsed tag template.
type Pattern struct {
	raw string
	re  *regexp.Regexp
}

// Parse validates raw and compiles its extraction expression.
// The placeholder may appear at most once; every other character is literal.
func Parse(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, ErrEmpty
	}
	if n := strings.Count(raw, Placeholder); n > 1 {
		return nil, fmt.Errorf("tag pattern %q contains %d %s placeholders, at most one is allowed", raw, n, Placeholder)
	}

	before, after, found := strings.Cut(raw, Placeholder)
	expr := regexp.QuoteMeta(before)
	if found {
		expr += versionExpr + regexp.QuoteMeta(after)
	}

	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("compiling tag pattern %q: %w", raw, err)
	}
	return &Pattern{raw: raw, re: re}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) *Pattern {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as written.
func (p *Pattern) String() string { return p.raw }

// HasPlaceholder reports whether the pattern can carry a version at all.
func (p *Pattern) HasPlaceholder() bool {
	return strings.Contains(p.raw, Placeholder)
}

// Glob returns the pattern with the placeholder replaced by "*",
// suitable for `git tag -l`.
func (p *Pattern) Glob() string {
	return strings.Replace(p.raw, Placeholder, "*", 1)
}

// Format renders version into the pattern.
func (p *Pattern) Format(version string) string {
	return strings.Replace(p.raw, Placeholder, version, 1)
}

// Extract returns the version carried by tag. The whole tag must match;
// literal parts of the pattern only match themselves.
func (p *Pattern) Extract(tag string) (string, bool) {
	m := p.re.FindStringSubmatch(tag)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
