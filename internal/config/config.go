// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads .compute-version.yaml and merges command-line flags
// over it.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no --config is given.
const FileName = ".compute-version.yaml"

// Config holds every setting of a run.
type Config struct {
	TagPattern       string        `yaml:"tag_pattern" default:"v{version}"`
	TrunkBranch      string        `yaml:"trunk_branch" default:"main"`
	TrunkPrerelease  string        `yaml:"trunk_prerelease" default:"pre"`
	BranchPrerelease string        `yaml:"branch_prerelease" default:"beta"`
	Preset           string        `yaml:"preset" default:"conventionalcommits"`
	Backend          string        `yaml:"backend" default:"git"`
	Strict           bool          `yaml:"strict"`
	ReleaseRules     []ReleaseRule `yaml:"release_rules"`
	Log              Log           `yaml:"log"`

	// Branch overrides branch detection; flag only.
	Branch string `yaml:"-"`
}

// ReleaseRule is the file form of a commit analyzer rule.
type ReleaseRule struct {
	Type     string `yaml:"type"`
	Scope    string `yaml:"scope"`
	Breaking bool   `yaml:"breaking"`
	Revert   bool   `yaml:"revert"`
	Release  string `yaml:"release"`
}

// Log configures diagnostics. File, when set, receives JSON logs rotated by size.
type Log struct {
	Level      string `yaml:"level" default:"warn"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" default:"10"`
	MaxBackups int    `yaml:"max_backups" default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" default:"7"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads path and fills unset fields with defaults. A missing file is
// reported as an error wrapping fs.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	return cfg, nil
}

// MergeFlags overlays flags the user actually set.
func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	str := func(name string, dst *string) {
		if !flags.Changed(name) {
			return
		}
		if v, err := flags.GetString(name); err == nil {
			*dst = v
		}
	}
	str("branch", &cfg.Branch)
	str("trunk-branch", &cfg.TrunkBranch)
	str("preset", &cfg.Preset)
	str("backend", &cfg.Backend)
	str("log-file", &cfg.Log.File)

	if flags.Changed("strict") {
		if v, err := flags.GetBool("strict"); err == nil {
			cfg.Strict = v
		}
	}
	if v, err := flags.GetBool("verbose"); err == nil && v {
		cfg.Log.Level = "debug"
	}
	return cfg
}

// PrereleaseFor returns the pre-release label for versions built on branch.
func (c *Config) PrereleaseFor(branch string) string {
	if branch == c.TrunkBranch {
		return c.TrunkPrerelease
	}
	return c.BranchPrerelease
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.TrunkBranch == "" {
		return fmt.Errorf("trunk_branch must not be empty")
	}
	for i, r := range c.ReleaseRules {
		if r.Release == "" {
			return fmt.Errorf("release rule %d: release must be set (use 'none' for no release)", i)
		}
	}
	return nil
}
