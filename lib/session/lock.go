package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/duke-git/lancet/v2/convertor"
	"github.com/duke-git/lancet/v2/fileutil"
	"github.com/duke-git/lancet/v2/strutil"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/unclesp1d3r/bitrecover/appstate"
)

// ErrLocked is returned when another live process holds a session's lock file.
var ErrLocked = errors.New("session is locked by another process")

// Lock creates dir/<id>.pid holding the current PID. A lock file left behind by a
// process that is no longer running is replaced. The returned function releases the lock.
func Lock(dir, id string) (func() error, error) {
	if err := os.MkdirAll(dir, sessionDirPermissions); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	pidFilePath := filepath.Join(dir, id+".pid")

	if holder, running := checkForExistingProcess(pidFilePath); running {
		return nil, fmt.Errorf("%w: session %s, pid %d", ErrLocked, id, holder)
	} else if fileutil.IsExist(pidFilePath) {
		appstate.Logger.Warn("Existing process is not running, cleaning up lock file", "path", pidFilePath, "pid", holder)

		if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale lock file: %w", err)
		}
	}

	f, err := os.OpenFile(pidFilePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, sessionFilePermissions) //nolint:gosec // Path built from session id
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: session %s", ErrLocked, id)
		}

		return nil, fmt.Errorf("creating lock file: %w", err)
	}

	_, writeErr := f.WriteString(convertor.ToString(os.Getpid()))
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}

	if writeErr != nil {
		_ = os.Remove(pidFilePath)

		return nil, fmt.Errorf("writing lock file: %w", writeErr)
	}

	return func() error {
		if err := os.Remove(pidFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing lock file: %w", err)
		}

		return nil
	}, nil
}

// checkForExistingProcess reads a PID file and reports the PID and whether that process
// is alive. Unreadable or malformed files count as stale.
func checkForExistingProcess(pidFilePath string) (int32, bool) {
	if !fileutil.IsExist(pidFilePath) {
		return 0, false
	}

	pidString, err := fileutil.ReadFileToString(pidFilePath)
	if err != nil {
		appstate.Logger.Error("Error reading PID file", "path", pidFilePath, "error", err)

		return 0, false
	}

	pidInt64, err := strconv.ParseInt(strutil.Trim(pidString), 10, 32)
	if err != nil {
		appstate.Logger.Warn("Malformed PID file", "path", pidFilePath, "pid", pidString)

		return 0, false
	}

	pidValue := int32(pidInt64)

	running, err := process.PidExists(pidValue)
	if err != nil {
		appstate.Logger.Error("Error checking if process is running", "pid", pidValue, "error", err)

		return pidValue, true
	}

	return pidValue, running
}
