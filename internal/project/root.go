// Package project finds and loads the ffigen.toml project manifest.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// ManifestName is the file name of the project manifest.
	ManifestName = "ffigen.toml"
	// HiddenManifestName is also accepted; ManifestName wins when a
	// directory holds both.
	HiddenManifestName = ".ffigen.toml"
)

var manifestNames = [...]string{ManifestName, HiddenManifestName}

// FindManifest walks up from startDir to the nearest directory holding a
// manifest.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		path, ok, err := manifestIn(dir)
		if err != nil || ok {
			return path, ok, err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindManifestFor locates the manifest that governs the IR document at
// irPath. The nearest manifest above the document takes precedence over
// the one above startDir, so a document from another project is generated
// with that project's settings. An empty irPath searches from startDir
// only.
func FindManifestFor(irPath, startDir string) (path string, ok bool, err error) {
	if irPath != "" && irPath != "-" {
		path, ok, err = FindManifest(filepath.Dir(irPath))
		if err != nil || ok {
			return path, ok, err
		}
	}
	return FindManifest(startDir)
}

func manifestIn(dir string) (string, bool, error) {
	for _, name := range manifestNames {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// FindProjectRoot returns the directory containing the manifest, if any.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}
