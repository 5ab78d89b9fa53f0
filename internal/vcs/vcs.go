// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vcs answers the handful of history questions version resolution
// needs: which branch is checked out, which tags exist, and which commits
// touched a path since a tag.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Repository is the version-control surface the resolver depends on.
// An empty result with a nil error means "nothing found"; an error means the
// question could not be answered.
type Repository interface {
	// CurrentBranch returns the short branch name, or "HEAD" when detached.
	CurrentBranch(ctx context.Context) (string, error)

	// TagsAtHead returns the tags pointing at HEAD, highest version first.
	TagsAtHead(ctx context.Context) ([]string, error)

	// ListTags returns the tags matching glob, highest version first.
	ListTags(ctx context.Context, glob string) ([]string, error)

	// CommitSubjects returns the subjects of commits reachable from HEAD
	// that touch path. When since is not empty, commits reachable from tag
	// since are excluded.
	CommitSubjects(ctx context.Context, since, path string) ([]string, error)
}

// Backend names accepted by Open.
const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// ErrUnknownBackend is returned by Open for a backend name it does not know.
var ErrUnknownBackend = errors.New("unknown backend")

// Open returns the repository backend called name, rooted at dir.
// Relative paths given to CommitSubjects are resolved against dir.
func Open(name, dir string) (Repository, error) {
	switch name {
	case BackendGit, "":
		return NewGit(dir), nil
	case BackendGoGit:
		return OpenGoGit(dir)
	default:
		return nil, fmt.Errorf("%w: %s (must be '%s' or '%s')", ErrUnknownBackend, name, BackendGit, BackendGoGit)
	}
}

// Unavailable stands in for a repository that could not be opened. Every
// question fails with Err, so callers degrade exactly as they would for a
// failing git command.
type Unavailable struct {
	Err error
}

func (u Unavailable) CurrentBranch(context.Context) (string, error) { return "", u.Err }

func (u Unavailable) TagsAtHead(context.Context) ([]string, error) { return nil, u.Err }

func (u Unavailable) ListTags(context.Context, string) ([]string, error) { return nil, u.Err }

func (u Unavailable) CommitSubjects(context.Context, string, string) ([]string, error) {
	return nil, u.Err
}

// splitLines splits command output into trimmed, non-empty lines.
func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
