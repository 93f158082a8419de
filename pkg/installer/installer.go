// Package installer runs the project's dependency installation and fingerprints
// its dependency manifests.
package installer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/feanalyzer/pkg/repo"
)

// outputTail bounds how much installer output is kept in error messages.
const outputTail = 2048

// Sentinel errors.
var (
	// ErrInstallFailed wraps a failing install command.
	ErrInstallFailed = errors.New("install failed")
	// ErrNoManifest is returned when no dependency manifest exists in the directory.
	ErrNoManifest = errors.New("no dependency manifest found")
	// ErrNoCommand is returned when the installer has no command configured.
	ErrNoCommand = errors.New("installer has no command")
)

// NPM installs dependencies with a package-manager command (npm install by
// default) and fingerprints the manifests that drive it.
type NPM struct {
	// Command is the argv run in the working copy.
	Command []string
	// Manifests are the files hashed by DependencyChecksum, in order.
	Manifests []string

	logger *slog.Logger
}

// New creates an installer.
func New(command, manifests []string, logger *slog.Logger) *NPM {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &NPM{Command: command, Manifests: manifests, logger: logger}
}

// Install installs the dependencies of the handle's working copy.
func (n *NPM) Install(ctx context.Context, handle *repo.Handle) error {
	return n.InstallBlocking(ctx, handle, handle.Dir)
}

// InstallBlocking runs the install command in dir and returns only once it
// has exited.
func (n *NPM) InstallBlocking(ctx context.Context, handle *repo.Handle, dir string) error {
	if len(n.Command) == 0 {
		return ErrNoCommand
	}

	start := time.Now()

	//nolint:gosec // the command comes from the operator's configuration.
	cmd := exec.CommandContext(ctx, n.Command[0], n.Command[1:]...)
	cmd.Dir = dir

	var output bytes.Buffer

	cmd.Stdout = &output
	cmd.Stderr = &output

	n.logger.InfoContext(ctx, "installing dependencies",
		"repository", handle.Label, "dir", dir, "command", strings.Join(n.Command, " "))

	err := cmd.Run()
	if err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrInstallFailed, n.Command[0], err, tail(output.Bytes()))
	}

	n.logger.InfoContext(ctx, "dependencies installed",
		"repository", handle.Label, "elapsed", time.Since(start).Round(time.Millisecond))

	return nil
}

// DependencyChecksum hashes the manifests present in dir. Missing manifests
// are skipped; if none exist ErrNoManifest is returned.
func (n *NPM) DependencyChecksum(dir string) (string, error) {
	hasher := sha256.New()
	found := 0

	for _, name := range n.Manifests {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return "", fmt.Errorf("read %s: %w", name, err)
		}

		found++

		// Name and length prefix keep manifest boundaries unambiguous.
		fmt.Fprintf(hasher, "%s\x00%d\x00", name, len(data))
		hasher.Write(data)
	}

	if found == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func tail(out []byte) string {
	out = bytes.TrimSpace(out)
	if len(out) > outputTail {
		out = out[len(out)-outputTail:]
	}

	return string(out)
}
