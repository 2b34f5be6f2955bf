package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/unclesp1d3r/bitrecover/appstate"
)

const cacheFilePermissions = 0o600

// SaveCache writes results atomically to the configured cache file.
func SaveCache(results []Result) error {
	cachePath := appstate.State.BenchmarkCache
	if cachePath == "" {
		return errors.New("benchmark cache path not configured")
	}

	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal benchmark cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0o750); err != nil {
		return fmt.Errorf("failed to create benchmark cache directory: %w", err)
	}

	tmpPath := cachePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, cacheFilePermissions); err != nil {
		return fmt.Errorf("failed to write benchmark cache: %w", err)
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		if removeErr := os.Remove(tmpPath); removeErr != nil && !os.IsNotExist(removeErr) {
			appstate.Logger.Warn("Failed to clean up temp cache file", "error", removeErr, "path", tmpPath)
		}

		return fmt.Errorf("failed to rename benchmark cache: %w", err)
	}

	appstate.Logger.Debug("Benchmark results cached", "path", cachePath, "devices", len(results))

	return nil
}

// LoadCache returns the cached results, or nil when there is no usable cache. A corrupt
// cache file is removed.
func LoadCache() ([]Result, error) {
	cachePath := appstate.State.BenchmarkCache
	if cachePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read benchmark cache: %w", err)
	}

	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		appstate.Logger.Warn("Benchmark cache file is corrupt, removing", "error", err, "path", cachePath)

		if removeErr := os.Remove(cachePath); removeErr != nil && !os.IsNotExist(removeErr) {
			appstate.Logger.Warn("Failed to remove corrupt benchmark cache file", "error", removeErr, "path", cachePath)
		}

		return nil, nil
	}

	if len(results) == 0 {
		return nil, nil
	}

	return results, nil
}

// ClearCache removes the cache file.
func ClearCache() {
	cachePath := appstate.State.BenchmarkCache
	if cachePath == "" {
		return
	}

	if err := os.Remove(cachePath); err != nil && !os.IsNotExist(err) {
		appstate.Logger.Warn("Failed to remove benchmark cache file", "error", err, "path", cachePath)
	}
}
