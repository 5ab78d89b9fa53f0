// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commitanalyzer classifies a batch of commit messages into a
// release type using conventional-commit rules.
package commitanalyzer

import (
	"fmt"
	"strings"
)

// Commit is a commit message as seen by the analyzer. Only the subject line
// is known when commits come from `git log --pretty=format:%s`, so Hash is
// synthetic and Message equals Subject.
type Commit struct {
	Hash    string
	Message string
	Subject string
	Ordinal int
}

// FromSubjects builds commits from raw subject lines. Ordinals follow the
// input order; blank lines are dropped after numbering.
func FromSubjects(subjects []string) []Commit {
	commits := make([]Commit, 0, len(subjects))
	for i, raw := range subjects {
		msg := strings.TrimSpace(raw)
		if msg == "" {
			continue
		}
		commits = append(commits, Commit{
			Hash:    fmt.Sprintf("commit%d", i),
			Message: msg,
			Subject: msg,
			Ordinal: i,
		})
	}
	return commits
}
