// SPDX-License-Identifier: AGPL-3.0-or-later

package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Git answers repository questions by running the git CLI.
type Git struct {
	dir string
}

// NewGit returns a Git backend running commands in dir
// (the process working directory when dir is empty).
func NewGit(dir string) *Git {
	return &Git{dir: dir}
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git %s failed: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CurrentBranch implements Repository.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// TagsAtHead implements Repository.
func (g *Git) TagsAtHead(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, "tag", "--points-at", "HEAD", "--sort=-version:refname")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// ListTags implements Repository.
func (g *Git) ListTags(ctx context.Context, glob string) ([]string, error) {
	out, err := g.run(ctx, "tag", "-l", glob, "--sort=-version:refname")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// CommitSubjects implements Repository.
func (g *Git) CommitSubjects(ctx context.Context, since, path string) ([]string, error) {
	args := []string{"log"}
	if since != "" {
		args = append(args, "refs/tags/"+since+"..HEAD")
	}
	args = append(args, "--pretty=format:%s", "--", path)

	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}
