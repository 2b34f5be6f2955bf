// Package cracker locates the external verification tools and prepares the data directories
// they work in.
package cracker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/duke-git/lancet/v2/strutil"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/arch"
)

// ErrBinaryNotFound is returned when a tool binary cannot be located.
var ErrBinaryNotFound = errors.New("binary not found")

// Tool names, as used in configuration and under CrackersPath.
const (
	Hashcat = "hashcat"
	John    = "john"
)

// FindHashcatBinary returns the hashcat executable. It checks the configured hashcat_path,
// CrackersPath/hashcat, the directory of the running binary, then `$PATH`.
func FindHashcatBinary() (string, error) {
	return findBinary(Hashcat, appstate.State.HashcatPath, arch.DefaultHashcatBinaryName())
}

// FindJohnBinary returns the John the Ripper executable, searched like FindHashcatBinary.
// Jumbo builds keep the binary under run/.
func FindJohnBinary() (string, error) {
	return findBinary(John, appstate.State.JohnPath, arch.DefaultJohnBinaryName())
}

// FindBinary dispatches on the tool name.
func FindBinary(tool string) (string, error) {
	switch tool {
	case Hashcat:
		return FindHashcatBinary()
	case John:
		return FindJohnBinary()
	default:
		return "", fmt.Errorf("%w: unknown tool %q", ErrBinaryNotFound, tool)
	}
}

func findBinary(tool, configured, defaultName string) (string, error) {
	exeDir := filepath.Dir(os.Args[0])

	var possiblePaths []string

	if !strutil.IsBlank(configured) {
		possiblePaths = append(possiblePaths, configured)
	}

	if !strutil.IsBlank(appstate.State.CrackersPath) {
		toolDir := filepath.Join(appstate.State.CrackersPath, tool)
		possiblePaths = append(possiblePaths,
			filepath.Join(toolDir, defaultName),
			filepath.Join(toolDir, tool),
			filepath.Join(toolDir, "run", defaultName),
		)
	}

	possiblePaths = append(possiblePaths,
		filepath.Join(exeDir, defaultName),
		filepath.Join(exeDir, tool),
	)

	for _, filePath := range possiblePaths {
		if isExecutable(filePath) {
			return filePath, nil
		}
	}

	// Didn't find it on the predefined locations. Checking the user's `$PATH`.
	for _, name := range []string{defaultName, tool} {
		if found, err := exec.LookPath(name); err == nil && isExecutable(found) {
			return found, nil
		}
	}

	appstate.Logger.Debug("Binary not found", "tool", tool, "searched", possiblePaths)

	return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, tool)
}

func isExecutable(filePath string) bool {
	info, err := os.Stat(filePath)

	return err == nil && !info.IsDir() && info.Mode()&0o111 != 0
}

// Version finds tool and reports its version string.
func Version(ctx context.Context, tool string) (string, error) {
	binary, err := FindBinary(tool)
	if err != nil {
		return "", err
	}

	versionArg := "--version"
	if tool == John {
		versionArg = "--list=build-info"
	}

	return arch.ToolVersion(ctx, binary, versionArg)
}

// CreateDataDirs creates the directories named in appstate.State, skipping any that are unset.
func CreateDataDirs() error {
	dataDirs := []string{
		appstate.State.DataPath,
		appstate.State.FilePath,
		appstate.State.SessionsPath,
		appstate.State.WorkPath,
		appstate.State.CrackersPath,
	}

	for _, dir := range dataDirs {
		if strutil.IsBlank(dir) {
			appstate.Logger.Debug("Data directory not set")

			continue
		}

		if !fileutil.IsDir(dir) {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				appstate.Logger.Error("Error creating directory", "path", dir, "error", err)

				return err
			}

			appstate.Logger.Debug("Created directory", "path", dir)
		}
	}

	return nil
}
