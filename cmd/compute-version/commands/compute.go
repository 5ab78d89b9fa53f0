// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bartekus/compute-version/cmd/compute-version/internal/clierr"
	"github.com/bartekus/compute-version/internal/bump"
	"github.com/bartekus/compute-version/internal/commitanalyzer"
	"github.com/bartekus/compute-version/internal/config"
	"github.com/bartekus/compute-version/internal/logging"
	"github.com/bartekus/compute-version/internal/output"
	"github.com/bartekus/compute-version/internal/resolver"
	"github.com/bartekus/compute-version/internal/tagpattern"
	"github.com/bartekus/compute-version/internal/vcs"
)

type computeOptions struct {
	repoDir      string
	configPath   string
	outputPath   string
	githubOutput bool
}

// runCompute resolves the version and writes it out.
func runCompute(cmd *cobra.Command, args []string, opts *computeOptions) error {
	ctx := cmd.Context()

	// 1. Arguments and configuration
	workingDir := "."
	if len(args) > 0 && args[0] != "" {
		workingDir = args[0]
	}

	cfg, err := loadConfig(cmd, opts, workingDir)
	if err != nil {
		return err
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())
	if len(args) > 1 && args[1] != "" {
		cfg.TagPattern = args[1]
	}
	if err := cfg.Validate(); err != nil {
		return clierr.Usage("invalid configuration", err)
	}

	// 2. Diagnostics
	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return clierr.Usage("invalid log settings", err)
	}
	defer func() { _ = log.Sync() }()

	// 3. Collaborators
	pattern, err := tagpattern.Parse(cfg.TagPattern)
	if err != nil {
		return clierr.Usage("invalid tag pattern", err)
	}
	rules, err := releaseRules(cfg.ReleaseRules)
	if err != nil {
		return clierr.Usage("invalid release rules", err)
	}
	analyzer, err := commitanalyzer.New(cfg.Preset, rules, log.Named("analyzer"))
	if err != nil {
		return clierr.Usage("invalid preset", err)
	}
	repo, err := vcs.Open(cfg.Backend, opts.repoDir)
	if err != nil {
		if errors.Is(err, vcs.ErrUnknownBackend) {
			return clierr.Usage("invalid backend", err)
		}
		if cfg.Strict {
			return clierr.Repository("opening repository", err)
		}
		log.Warn("Could not open the repository, continuing without it", zap.String("backend", cfg.Backend), zap.Error(err))
		repo = vcs.Unavailable{Err: err}
	}

	// 4. Pre-release label from the branch
	branch := cfg.Branch
	if branch == "" {
		detected, err := repo.CurrentBranch(ctx)
		switch {
		case err == nil:
			branch = detected
		case cfg.Strict:
			return clierr.Repository("detecting current branch", err)
		default:
			log.Warn("Could not detect the current branch, using the non-trunk label", zap.Error(err))
		}
	}
	label := cfg.PrereleaseFor(branch)
	log.Debug("Pre-release label selected", zap.String("branch", branch), zap.String("label", label))

	// 5. Resolve
	r := resolver.New(repo, analyzer, pattern, resolver.Options{
		WorkingDir: workingDir,
		Strict:     cfg.Strict,
		Logger:     log.Named("resolver"),
	})
	result, err := r.Resolve(ctx, label)
	if err != nil {
		var repoErr *resolver.RepositoryError
		if errors.As(err, &repoErr) {
			return clierr.Repository("resolving version", err)
		}
		return fmt.Errorf("resolving version: %w", err)
	}

	// 6. Output
	return emit(cmd, opts, log, result)
}

func loadConfig(cmd *cobra.Command, opts *computeOptions, workingDir string) (*config.Config, error) {
	if cmd.Flags().Changed("config") {
		cfg, err := config.Load(opts.configPath)
		if err != nil {
			return nil, clierr.Usage("loading config", err)
		}
		return cfg, nil
	}

	dir := workingDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(opts.repoDir, dir)
	}
	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, fs.ErrNotExist):
		return config.Default(), nil
	default:
		return nil, clierr.Usage("loading config", err)
	}
}

func releaseRules(in []config.ReleaseRule) ([]commitanalyzer.Rule, error) {
	rules := make([]commitanalyzer.Rule, 0, len(in))
	for i, r := range in {
		release, err := bump.ParseReleaseType(r.Release)
		if err != nil {
			return nil, fmt.Errorf("release rule %d: %w", i, err)
		}
		rules = append(rules, commitanalyzer.Rule{
			Type:     r.Type,
			Scope:    r.Scope,
			Breaking: r.Breaking,
			Revert:   r.Revert,
			Release:  release,
		})
	}
	return rules, nil
}

func emit(cmd *cobra.Command, opts *computeOptions, log *zap.Logger, result resolver.ResolvedVersion) error {
	if err := output.WriteLine(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if opts.outputPath != "" {
		if err := output.WriteFile(opts.outputPath, result); err != nil {
			return fmt.Errorf("writing result file: %w", err)
		}
	}

	if opts.githubOutput {
		path := os.Getenv(output.GitHubOutputEnv)
		if path == "" {
			log.Warn("--github-output given but $" + output.GitHubOutputEnv + " is not set")
			return nil
		}
		if err := output.AppendGitHubOutput(path, result); err != nil {
			return err
		}
	}
	return nil
}
