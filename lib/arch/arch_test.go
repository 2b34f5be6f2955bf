package arch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformMatchesRuntime(t *testing.T) {
	assert.Equal(t, runtime.GOOS, Platform())
	assert.NotEmpty(t, DefaultHashcatBinaryName())
	assert.NotEmpty(t, DefaultJohnBinaryName())
	assert.NotNil(t, AdditionalHashcatArgs())
}

func TestToolVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture")
	}

	bin := filepath.Join(t.TempDir(), "tool")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nprintf 'v6.2.6\\nextra\\n'\n"), 0o755)) //nolint:gosec // Test executable

	version, err := ToolVersion(context.Background(), bin, "--version")
	require.NoError(t, err)
	assert.Equal(t, "v6.2.6", version)

	version, err = ToolVersion(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, emptyVersion, version)
}
