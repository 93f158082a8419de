// Package repo describes the repository under analysis.
package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultTargetBranch is the branch recorded for local, current-state runs.
const DefaultTargetBranch = "master"

const packageManifest = "package.json"

// ErrNoPackageName is returned when package.json has no usable name.
var ErrNoPackageName = errors.New("package.json has no name")

// Handle identifies the working copy being analyzed. It is created once per
// run; InstalledGitHash is filled in after the dependencies are installed.
type Handle struct {
	Label            string `json:"label"`
	TargetBranch     string `json:"targetBranch,omitempty"`
	IsLocal          bool   `json:"isLocal"`
	InstalledGitHash string `json:"installedGitHash,omitempty"`

	// Dir is the working copy the handle resolves to.
	Dir string `json:"-"`
}

// NewLocal returns a handle for a local working copy at dir.
func NewLocal(label, dir string) *Handle {
	return &Handle{
		Label:        label,
		TargetBranch: DefaultTargetBranch,
		IsLocal:      true,
		Dir:          dir,
	}
}

// Name returns the project name declared in dir/package.json, or the base name
// of dir when the manifest is missing or unnamed.
func Name(dir string) string {
	name, err := PackageName(dir)
	if err == nil {
		return name
	}

	abs, absErr := filepath.Abs(dir)
	if absErr != nil {
		return filepath.Base(dir)
	}

	return filepath.Base(abs)
}

// PackageName reads the "name" field of dir/package.json.
func PackageName(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, packageManifest))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", packageManifest, err)
	}

	var manifest struct {
		Name string `json:"name"`
	}

	err = json.Unmarshal(data, &manifest)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", packageManifest, err)
	}

	name := strings.TrimSpace(manifest.Name)
	if name == "" {
		return "", ErrNoPackageName
	}

	return name, nil
}
