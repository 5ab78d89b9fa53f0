// SPDX-License-Identifier: AGPL-3.0-or-later

package vcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGit answers repository questions in-process with go-git, for
// environments without a git binary.
type GoGit struct {
	repo *git.Repository
	root string // worktree root, symlinks resolved
	base string // directory relative paths are resolved against
}

// OpenGoGit opens the repository containing dir.
func OpenGoGit(dir string) (*GoGit, error) {
	if dir == "" {
		dir = "."
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening worktree: %w", err)
	}

	root, err := canonical(wt.Filesystem.Root())
	if err != nil {
		return nil, err
	}
	base, err := canonical(dir)
	if err != nil {
		return nil, err
	}
	return &GoGit{repo: repo, root: root, base: base}, nil
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// CurrentBranch implements Repository.
func (g *GoGit) CurrentBranch(ctx context.Context) (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "HEAD", nil
	}
	return head.Name().Short(), nil
}

// TagsAtHead implements Repository.
func (g *GoGit) TagsAtHead(ctx context.Context) ([]string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	return g.tags(ctx, func(name string, target plumbing.Hash) bool {
		return target == head.Hash()
	})
}

// ListTags implements Repository. Globs follow path.Match, so "*" does not
// cross a "/".
func (g *GoGit) ListTags(ctx context.Context, glob string) ([]string, error) {
	if _, err := path.Match(glob, ""); err != nil {
		return nil, fmt.Errorf("invalid tag glob %q: %w", glob, err)
	}
	return g.tags(ctx, func(name string, _ plumbing.Hash) bool {
		ok, _ := path.Match(glob, name)
		return ok
	})
}

// tags returns the names of tags for which keep returns true, given the
// commit each tag points at, sorted highest version first.
func (g *GoGit) tags(ctx context.Context, keep func(name string, target plumbing.Hash) bool) ([]string, error) {
	iter, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, ok, err := g.peel(ref.Hash())
		if err != nil {
			return err
		}
		if ok && keep(ref.Name().Short(), target) {
			names = append(names, ref.Name().Short())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	SortVersionsDesc(names)
	return names, nil
}

// peel resolves a tag reference target to the commit it names. ok is false
// for annotated tags of trees or blobs.
func (g *GoGit) peel(hash plumbing.Hash) (plumbing.Hash, bool, error) {
	tag, err := g.repo.TagObject(hash)
	switch {
	case err == nil:
		commit, err := tag.Commit()
		if err != nil {
			return plumbing.ZeroHash, false, nil
		}
		return commit.Hash, true, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		// Lightweight tag: the reference already names the commit.
		return hash, true, nil
	default:
		return plumbing.ZeroHash, false, fmt.Errorf("reading tag object %s: %w", hash, err)
	}
}

// CommitSubjects implements Repository.
func (g *GoGit) CommitSubjects(ctx context.Context, since, p string) ([]string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	excluded, err := g.ancestorsOfTag(ctx, since)
	if err != nil {
		return nil, err
	}

	prefix, err := g.repoPath(p)
	if err != nil {
		return nil, err
	}
	opts := &git.LogOptions{From: head.Hash()}
	if prefix != "" {
		opts.PathFilter = func(file string) bool {
			return file == prefix || strings.HasPrefix(file, prefix+"/")
		}
	}

	iter, err := g.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var subjects []string
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, skip := excluded[c.Hash]; skip {
			return nil
		}
		if s := subject(c.Message); s != "" {
			subjects = append(subjects, s)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	return subjects, nil
}

func (g *GoGit) ancestorsOfTag(ctx context.Context, tag string) (map[plumbing.Hash]struct{}, error) {
	seen := map[plumbing.Hash]struct{}{}
	if tag == "" {
		return seen, nil
	}

	ref, err := g.repo.Tag(tag)
	if err != nil {
		return nil, fmt.Errorf("resolving tag %s: %w", tag, err)
	}
	target, ok, err := g.peel(ref.Hash())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tag %s does not point at a commit", tag)
	}

	iter, err := g.repo.Log(&git.LogOptions{From: target})
	if err != nil {
		return nil, fmt.Errorf("reading log of %s: %w", tag, err)
	}
	defer iter.Close()

	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[c.Hash] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading log of %s: %w", tag, err)
	}
	return seen, nil
}

// repoPath converts p into a slash-separated path relative to the worktree
// root. The root itself maps to "".
func (g *GoGit) repoPath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.base, p)
	}
	abs, err := canonical(abs)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return "", fmt.Errorf("path %s is outside the repository: %w", p, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside the repository %s", p, g.root)
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// subject mirrors git's %s: the first paragraph with its lines joined by spaces.
func subject(message string) string {
	para, _, _ := strings.Cut(strings.TrimSpace(message), "\n\n")
	lines := strings.Split(para, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " ")
}
