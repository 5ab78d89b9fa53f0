package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "v{version}", cfg.TagPattern)
	assert.Equal(t, "main", cfg.TrunkBranch)
	assert.Equal(t, "pre", cfg.TrunkPrerelease)
	assert.Equal(t, "beta", cfg.BranchPrerelease)
	assert.Equal(t, "conventionalcommits", cfg.Preset)
	assert.Equal(t, "git", cfg.Backend)
	assert.False(t, cfg.Strict)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
tag_pattern: "api-v{version}"
trunk_branch: trunk
branch_prerelease: dev
strict: true
release_rules:
  - type: docs
    scope: "README*"
    release: patch
  - type: feat
    scope: internal
    release: none
log:
  level: info
  file: /tmp/compute-version.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "api-v{version}", cfg.TagPattern)
	assert.Equal(t, "trunk", cfg.TrunkBranch)
	assert.Equal(t, "pre", cfg.TrunkPrerelease, "unset keys keep defaults")
	assert.Equal(t, "dev", cfg.BranchPrerelease)
	assert.True(t, cfg.Strict)
	assert.Equal(t, []ReleaseRule{
		{Type: "docs", Scope: "README*", Release: "patch"},
		{Type: "feat", Scope: "internal", Release: "none"},
	}, cfg.ReleaseRules)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/tmp/compute-version.log", cfg.Log.File)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	_, err = Load(writeConfig(t, "tag_pattern: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.TrunkBranch = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ReleaseRules = []ReleaseRule{{Type: "docs"}}
	require.Error(t, cfg.Validate())
}

func TestPrereleaseFor(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "pre", cfg.PrereleaseFor("main"))
	assert.Equal(t, "beta", cfg.PrereleaseFor("feature/x"))
	assert.Equal(t, "beta", cfg.PrereleaseFor("HEAD"))
	assert.Equal(t, "beta", cfg.PrereleaseFor(""))
}

func TestMergeFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("branch", "", "")
	flags.String("trunk-branch", "main", "")
	flags.String("preset", "conventionalcommits", "")
	flags.String("backend", "git", "")
	flags.String("log-file", "", "")
	flags.Bool("strict", false, "")
	flags.Bool("verbose", false, "")
	require.NoError(t, flags.Parse([]string{"--branch", "release/1.x", "--backend", "go-git", "--verbose"}))

	cfg := Default()
	cfg.TrunkBranch = "trunk"
	cfg.Strict = true
	cfg = MergeFlags(cfg, flags)

	assert.Equal(t, "release/1.x", cfg.Branch)
	assert.Equal(t, "go-git", cfg.Backend)
	assert.Equal(t, "trunk", cfg.TrunkBranch, "unset flags keep file values")
	assert.True(t, cfg.Strict)
	assert.Equal(t, "debug", cfg.Log.Level)
}
