// Package toolchain drives the external Go build tool against synthesized
// harness projects: one invocation per project, bounded parallelism for
// isolated builds, and a process-wide lock around the shared
// artifact-cache mutation window.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrToolchainNotFound marks a fatal configuration error: the configured
// build tool is not available. Nothing is verified when this happens.
var ErrToolchainNotFound = errors.New("go toolchain not found")

// Identity describes the external toolchain precisely enough to key cache
// entries: resolved binary path plus its self-reported version.
type Identity struct {
	Binary  string
	Version string
}

// Probe resolves the binary and asks it for its version. A missing binary
// aborts before any fragment is processed.
func Probe(ctx context.Context, binary string) (Identity, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q: %w", ErrToolchainNotFound, binary, err)
	}
	out, err := exec.CommandContext(ctx, path, "version").Output()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %q version probe failed: %w", ErrToolchainNotFound, path, err)
	}
	return Identity{Binary: path, Version: strings.TrimSpace(string(out))}, nil
}

// String is the cache-key form of the identity.
func (id Identity) String() string {
	return id.Binary + " " + id.Version
}
