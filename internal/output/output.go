// SPDX-License-Identifier: AGPL-3.0-or-later

// Package output writes a resolved version to its destinations: stdout,
// a result file and the GitHub Actions step output file.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bartekus/compute-version/internal/resolver"
)

// GitHubOutputEnv names the file GitHub Actions collects step outputs from.
const GitHubOutputEnv = "GITHUB_OUTPUT"

// Line encodes v as a single JSON line.
func Line(v resolver.ResolvedVersion) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteLine writes v to w as a single JSON line.
func WriteLine(w io.Writer, v resolver.ResolvedVersion) error {
	data, err := Line(v)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

// ResultFileMode is the permission of files written by WriteFile. Later
// pipeline steps often run as another user, so results are world-readable.
const ResultFileMode os.FileMode = 0o644

// WriteFile stores v as a JSON line at path. Readers see either the previous
// file or the complete new one: the line is synced to a sibling temp file
// which then replaces path.
func WriteFile(path string, v resolver.ResolvedVersion) error {
	line, err := Line(v)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	_, err = tmp.Write(line)
	if err == nil {
		err = tmp.Chmod(ResultFileMode)
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}

// AppendGitHubOutput appends version=... and changed=... to the step output file.
func AppendGitHubOutput(path string, v resolver.ResolvedVersion) (err error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path set by the Actions runner
	if err != nil {
		return fmt.Errorf("opening GitHub output %s: %w", path, err)
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()

	_, err = fmt.Fprintf(f, "version=%s\nchanged=%s\n", v.Version, strconv.FormatBool(v.Changed))
	if err != nil {
		return fmt.Errorf("writing GitHub output: %w", err)
	}
	return nil
}
