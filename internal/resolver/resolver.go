// SPDX-License-Identifier: AGPL-3.0-or-later

/*
compute-version - computes the next semantic version of a repository subdirectory
from its tag history and conventional commit messages.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package resolver decides the version of a working directory: the version
// of the tag HEAD sits on, or the next version implied by the commits since
// the last matching tag.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bartekus/compute-version/internal/bump"
	"github.com/bartekus/compute-version/internal/commitanalyzer"
	"github.com/bartekus/compute-version/internal/tagpattern"
	"github.com/bartekus/compute-version/internal/vcs"
)

// BaselineVersion is assumed when no tag matches the pattern.
const BaselineVersion = "0.0.0"

// ResolvedVersion is the outcome of a resolution. Changed is false when
// Version should be used as-is and true when it is a newly computed version.
type ResolvedVersion struct {
	Version string `json:"version"`
	Changed bool   `json:"changed"`
}

// Classifier turns commits into a release type.
type Classifier interface {
	Analyze(ctx context.Context, commits []commitanalyzer.Commit) (bump.ReleaseType, error)
}

// Options configures a Resolver.
type Options struct {
	// WorkingDir restricts commit history to this path. Defaults to ".".
	WorkingDir string
	// Strict turns repository failures into errors instead of "not found".
	Strict bool
	Logger *zap.Logger
}

// Resolver computes a ResolvedVersion for one working directory and pattern.
type Resolver struct {
	repo       vcs.Repository
	classifier Classifier
	pattern    *tagpattern.Pattern
	workingDir string
	strict     bool
	log        *zap.Logger
}

// New returns a Resolver.
func New(repo vcs.Repository, classifier Classifier, pattern *tagpattern.Pattern, opts Options) *Resolver {
	if opts.WorkingDir == "" {
		opts.WorkingDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{
		repo:       repo,
		classifier: classifier,
		pattern:    pattern,
		workingDir: opts.WorkingDir,
		strict:     opts.Strict,
		log:        opts.Logger,
	}
}

// Resolve determines the version. prerelease is the label attached to a
// newly computed version ("" for none).
func (r *Resolver) Resolve(ctx context.Context, prerelease string) (ResolvedVersion, error) {
	// 1. HEAD already carries a release tag.
	current, ok, err := r.versionAtHead(ctx)
	if err != nil {
		return ResolvedVersion{}, err
	}
	if ok {
		r.log.Info("HEAD is tagged", zap.String("version", current))
		return ResolvedVersion{Version: current, Changed: false}, nil
	}

	// 2. Baseline from the last matching tag.
	lastTag, baseline, ok, err := r.lastTag(ctx)
	if err != nil {
		return ResolvedVersion{}, err
	}
	if !ok {
		baseline = BaselineVersion
	}
	r.log.Debug("Baseline resolved", zap.String("tag", lastTag), zap.String("version", baseline))

	// 3. Commits touching the working directory since then.
	commits, err := r.commitsSince(ctx, lastTag)
	if err != nil {
		return ResolvedVersion{}, err
	}
	if len(commits) == 0 {
		r.log.Info("No commits since baseline", zap.String("path", r.commitPath()))
		return ResolvedVersion{Version: baseline, Changed: false}, nil
	}

	// 4. Release type.
	release, err := r.classifier.Analyze(ctx, commits)
	if err != nil {
		return ResolvedVersion{}, fmt.Errorf("analyzing commits: %w", err)
	}
	if release == bump.None {
		return ResolvedVersion{Version: baseline, Changed: false}, nil
	}

	// 5. Next version.
	next, err := bump.Next(baseline, release, prerelease)
	if err != nil {
		return ResolvedVersion{}, fmt.Errorf("computing next version from %s: %w", baseline, err)
	}
	r.log.Info("Next version computed",
		zap.String("from", baseline),
		zap.Stringer("release", release),
		zap.String("version", next))
	return ResolvedVersion{Version: next, Changed: true}, nil
}

// versionAtHead returns the version of the highest matching tag at HEAD.
func (r *Resolver) versionAtHead(ctx context.Context) (string, bool, error) {
	tags, err := r.repo.TagsAtHead(ctx)
	if err != nil {
		return "", false, r.degrade("looking up tags at HEAD", err)
	}
	for _, tag := range tags {
		if v, ok := r.pattern.Extract(tag); ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

// lastTag returns the first tag in repository order the pattern extracts a
// version from. Backends list tags highest version first.
func (r *Resolver) lastTag(ctx context.Context) (tag, version string, ok bool, err error) {
	tags, err := r.repo.ListTags(ctx, r.pattern.Glob())
	if err != nil {
		return "", "", false, r.degrade("listing tags", err)
	}

	for _, t := range tags {
		v, ok := r.pattern.Extract(t)
		if !ok {
			continue
		}
		if _, err := bump.Parse(v); err != nil {
			return "", "", false, r.degrade("parsing version of tag "+t, err)
		}
		return t, v, true, nil
	}
	return "", "", false, nil
}

func (r *Resolver) commitsSince(ctx context.Context, tag string) ([]commitanalyzer.Commit, error) {
	subjects, err := r.repo.CommitSubjects(ctx, tag, r.commitPath())
	if err != nil {
		return nil, r.degrade("reading commit history", err)
	}
	return commitanalyzer.FromSubjects(subjects), nil
}

func (r *Resolver) commitPath() string {
	return strings.TrimSuffix(r.workingDir, "/") + "/"
}

// degrade turns a repository failure into "not found" unless strict.
func (r *Resolver) degrade(step string, err error) error {
	if r.strict {
		return &RepositoryError{Step: step, Err: err}
	}
	r.log.Warn("Repository query failed, continuing without it", zap.String("step", step), zap.Error(err))
	return nil
}

// RepositoryError reports a failed repository query in strict mode.
type RepositoryError struct {
	Step string
	Err  error
}

func (e *RepositoryError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *RepositoryError) Unwrap() error { return e.Err }
