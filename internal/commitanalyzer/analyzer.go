// SPDX-License-Identifier: AGPL-3.0-or-later

package commitanalyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bartekus/compute-version/internal/bump"
)

// Analyzer determines the release type of a list of commits.
type Analyzer struct {
	preset string
	parser messageParser
	rules  []Rule
	log    *zap.Logger
}

// New returns an analyzer for preset. Custom rules take precedence over
// DefaultRules for every commit they match. A nil logger discards traces.
func New(preset string, rules []Rule, log *zap.Logger) (*Analyzer, error) {
	p, err := parserFor(preset)
	if err != nil {
		return nil, err
	}
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("release rule %d: %w", i, err)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{preset: preset, parser: p, rules: rules, log: log}, nil
}

// Preset returns the name of the message convention in use.
func (a *Analyzer) Preset() string { return a.preset }

// Analyze returns the highest release type across commits, or bump.None
// when no commit carries a release signal.
func (a *Analyzer) Analyze(ctx context.Context, commits []Commit) (bump.ReleaseType, error) {
	release := bump.None

	for _, c := range commits {
		if err := ctx.Err(); err != nil {
			return bump.None, err
		}

		a.log.Debug("Analyzing commit", zap.String("hash", c.Hash), zap.String("message", c.Message))
		if skipRelease.MatchString(c.Message) {
			a.log.Debug("Skip commit analysis, release skip marker found", zap.String("hash", c.Hash))
			continue
		}

		parsed, ok := a.parser.parse(c.Message)
		if !ok {
			a.log.Debug("Commit message does not follow the convention", zap.String("hash", c.Hash), zap.String("preset", a.preset))
			continue
		}

		commitRelease := a.classify(parsed)
		if commitRelease == bump.None {
			a.log.Debug("The commit should not trigger a release", zap.String("hash", c.Hash))
			continue
		}
		a.log.Debug("The release type for the commit", zap.String("hash", c.Hash), zap.Stringer("release", commitRelease))

		if commitRelease.Rank() > release.Rank() {
			release = commitRelease
		}
		if release == bump.Major {
			break
		}
	}

	a.log.Info("Analysis of commits complete",
		zap.Int("commits", len(commits)),
		zap.Stringer("release", release))
	return release, nil
}

func (a *Analyzer) classify(c parsedCommit) bump.ReleaseType {
	if len(a.rules) > 0 {
		if release, matched := releaseFor(a.rules, c); matched {
			return release
		}
	}
	release, _ := releaseFor(DefaultRules, c)
	return release
}
