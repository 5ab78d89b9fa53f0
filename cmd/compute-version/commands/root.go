// SPDX-License-Identifier: AGPL-3.0-or-later

/*
compute-version - computes the next semantic version of a repository subdirectory
from its tag history and conventional commit messages.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"github.com/spf13/cobra"

	"github.com/bartekus/compute-version/cmd/compute-version/internal/clierr"
	"github.com/bartekus/compute-version/internal/commitanalyzer"
	"github.com/bartekus/compute-version/internal/vcs"
)

// version is set at build time with -ldflags "-X .../commands.version=...".
var version = "0.0.0-dev"

// NewRootCmd constructs the compute-version command.
func NewRootCmd() *cobra.Command {
	opts := &computeOptions{}

	cmd := &cobra.Command{
		Use:   "compute-version [working-dir] [tag-pattern]",
		Short: "Compute the next semantic version of a directory from git history",
		Long: `Looks for the last tag matching the tag pattern (default "v{version}"),
classifies the commits touching working-dir (default ".") since that tag using
conventional-commit rules, and prints the resulting version as one JSON line:

  {"version":"1.4.0-pre","changed":true}

changed is false when HEAD is already on a matching tag or nothing since the
last tag calls for a release.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(2)(cmd, args); err != nil {
				return clierr.Usage("invalid arguments", err)
			}
			return nil
		},
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(cmd, args, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Usage("invalid flags", err)
	})

	// Flags in alphabetical order for deterministic help output
	cmd.Flags().String("backend", vcs.BackendGit, "Repository backend: git (git CLI) or go-git (in-process)")
	cmd.Flags().String("branch", "", "Branch name to select the pre-release label for (default: detected)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config file (default: <working-dir>/.compute-version.yaml if present)")
	cmd.Flags().BoolVar(&opts.githubOutput, "github-output", false, "Also append version and changed to the file named by $GITHUB_OUTPUT")
	cmd.Flags().String("log-file", "", "Also write JSON diagnostics to this file, rotated by size")
	cmd.Flags().StringVar(&opts.outputPath, "output", "", "Also write the JSON result to this file")
	cmd.Flags().String("preset", commitanalyzer.PresetConventionalCommits, "Commit message convention: conventionalcommits or angular")
	cmd.Flags().StringVarP(&opts.repoDir, "repo", "C", ".", "Run git in this directory; working-dir is relative to it")
	cmd.Flags().Bool("strict", false, "Fail instead of falling back when a git query fails")
	cmd.Flags().String("trunk-branch", "main", "Branch whose versions get the trunk pre-release label")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug diagnostics on stderr")

	return cmd
}
