// SPDX-License-Identifier: AGPL-3.0-or-later

package commitanalyzer

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bartekus/compute-version/internal/bump"
)

// Rule maps commits to a release type. Empty Type and Scope match anything;
// otherwise they are glob patterns, or regular expressions when written as
// "/expr/". Breaking and Revert, when set, require the commit to be breaking
// or a revert. A Release of bump.None explicitly means "no release".
type Rule struct {
	Type     string
	Scope    string
	Breaking bool
	Revert   bool
	Release  bump.ReleaseType
}

// DefaultRules are consulted when no custom rule matches a commit.
var DefaultRules = []Rule{
	{Breaking: true, Release: bump.Major},
	{Revert: true, Release: bump.Patch},
	{Type: "feat", Release: bump.Minor},
	{Type: "fix", Release: bump.Patch},
	{Type: "perf", Release: bump.Patch},
}

// Validate checks that the rule's patterns compile.
func (r Rule) Validate() error {
	for _, field := range []string{r.Type, r.Scope} {
		if field == "" {
			continue
		}
		if expr, ok := regexLiteral(field); ok {
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("invalid rule pattern %q: %w", field, err)
			}
			continue
		}
		if _, err := path.Match(field, ""); err != nil {
			return fmt.Errorf("invalid rule pattern %q: %w", field, err)
		}
	}
	return nil
}

func (r Rule) matches(c parsedCommit) bool {
	if r.Breaking && !c.Breaking {
		return false
	}
	if r.Revert && !c.Revert {
		return false
	}
	return fieldMatches(r.Type, c.Type) && fieldMatches(r.Scope, c.Scope)
}

func fieldMatches(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	if value == "" {
		return false
	}
	if expr, ok := regexLiteral(pattern); ok {
		re, err := regexp.Compile(expr)
		return err == nil && re.MatchString(value)
	}
	ok, err := path.Match(pattern, value)
	return err == nil && ok
}

func regexLiteral(s string) (string, bool) {
	if len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		return s[1 : len(s)-1], true
	}
	return "", false
}

// releaseFor returns the highest release among the rules matching c.
// matched is false when no rule applies at all.
func releaseFor(rules []Rule, c parsedCommit) (release bump.ReleaseType, matched bool) {
	for _, r := range rules {
		if !r.matches(c) {
			continue
		}
		matched = true
		if r.Release.Rank() > release.Rank() {
			release = r.Release
		}
		if release == bump.Major {
			break
		}
	}
	return release, matched
}
