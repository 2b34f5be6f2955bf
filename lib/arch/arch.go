// Package arch holds the platform-specific names and arguments for the external
// verification tools.
package arch

import (
	"context"
	"os/exec"
	"strings"
)

const emptyVersion = "0.0.0"

// ToolVersion runs binary with versionArgs and returns the first line of its output.
func ToolVersion(ctx context.Context, binary string, versionArgs ...string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, versionArgs...).Output() //nolint:gosec // Binary path comes from discovery
	if err != nil {
		return emptyVersion, err
	}

	first, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")

	return strings.TrimSpace(first), nil
}
