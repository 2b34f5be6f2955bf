package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unclesp1d3r/bitrecover/appstate"
)

const dirPerm os.FileMode = 0o755

// SetupTestState points every appstate.State path at a fresh temporary directory and
// creates the directories. The previous state is restored when the test finishes.
// Returns the data directory.
func SetupTestState(t *testing.T) string {
	t.Helper()

	saved := appstate.State

	t.Cleanup(func() { appstate.State = saved })

	dataDir := filepath.Join(t.TempDir(), "data")

	appstate.State.DataPath = dataDir
	appstate.State.FilePath = filepath.Join(dataDir, "files")
	appstate.State.SessionsPath = filepath.Join(dataDir, "sessions")
	appstate.State.WorkPath = filepath.Join(dataDir, "work")
	appstate.State.CrackersPath = filepath.Join(dataDir, "crackers")
	appstate.State.ResultsDB = filepath.Join(dataDir, "results.db")
	appstate.State.BenchmarkCache = filepath.Join(dataDir, "benchmark.json")
	appstate.State.BatchSize = 2
	appstate.State.Parallel = 1
	appstate.State.Oracle = "hashcat"
	appstate.State.HashcatPath = ""
	appstate.State.JohnPath = ""
	appstate.State.ShowProgress = false
	appstate.State.Debug = false
	appstate.State.ExtraDebugging = false

	for _, dir := range []string{
		appstate.State.FilePath,
		appstate.State.SessionsPath,
		appstate.State.WorkPath,
		appstate.State.CrackersPath,
	} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}

	return dataDir
}

// CreateTestFile writes content to dir/name and returns the path.
func CreateTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	return path
}

// CreateFakeBinary writes an executable shell script to dir/name and returns its path.
// Tests that run it should skip on platforms without /bin/sh.
func CreateFakeBinary(t *testing.T, dir, name, script string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700); err != nil { //nolint:gosec // Test binary must be executable
		t.Fatalf("Failed to create fake binary: %v", err)
	}

	return path
}
