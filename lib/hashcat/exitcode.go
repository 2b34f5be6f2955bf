// Package hashcat verifies candidate batches against BitLocker hash records with hashcat
// (hash mode 22100).
package hashcat

import (
	"fmt"

	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

// Hashcat exit codes.
// Codes 0-4 and -1 are documented in hashcat source (types.h).
// Negative codes -2 through -7 are observed from specific failure modes
// and may vary by hashcat version; they are not officially documented.
const (
	ExitCodeSuccess        = 0  // Success/Cracked (official: RC_FINAL_OK)
	ExitCodeExhausted      = 1  // Exhausted (official: RC_FINAL_EXHAUSTED)
	ExitCodeAborted        = 2  // Aborted (official: RC_FINAL_ABORT)
	ExitCodeCheckpoint     = 3  // Aborted by checkpoint (official: RC_FINAL_ABORT_CHECKPOINT)
	ExitCodeRuntimeLimit   = 4  // Aborted by runtime limit (official: RC_FINAL_ABORT_RUNTIME)
	ExitCodeGeneralError   = -1 // General error (official: RC_FINAL_ERROR)
	ExitCodeGPUWatchdog    = -2 // GPU watchdog alarm (observed, not official)
	ExitCodeBackendAbort   = -3 // Backend abort (observed, not official)
	ExitCodeBackendChkpt   = -4 // Backend checkpoint abort (observed, not official)
	ExitCodeBackendRuntime = -5 // Backend runtime abort (observed, not official)
	ExitCodeSelftestFail   = -6 // Backend selftest fail (observed, not official)
	ExitCodeAutotuneFail   = -7 // Backend autotune fail (observed, not official)
)

// ExitCodeInfo contains information about a hashcat exit code.
type ExitCodeInfo struct {
	Category  ErrorCategory
	Severity  cserrors.Severity
	Retryable bool
	Status    string
	ExitCode  int
}

//nolint:gochecknoglobals // Lookup table
var exitCodes = map[int]ExitCodeInfo{
	ExitCodeSuccess:        {Category: ErrorCategorySuccess, Severity: cserrors.SeverityInfo, Status: "cracked"},
	ExitCodeExhausted:      {Category: ErrorCategorySuccess, Severity: cserrors.SeverityInfo, Status: "exhausted"},
	ExitCodeAborted:        {Category: ErrorCategoryRetryable, Severity: cserrors.SeverityMinor, Retryable: true, Status: "aborted"},
	ExitCodeCheckpoint:     {Category: ErrorCategoryRetryable, Severity: cserrors.SeverityMinor, Retryable: true, Status: "checkpoint"},
	ExitCodeRuntimeLimit:   {Category: ErrorCategoryRetryable, Severity: cserrors.SeverityMinor, Retryable: true, Status: "runtime_limit"},
	ExitCodeGeneralError:   {Category: ErrorCategoryUnknown, Severity: cserrors.SeverityCritical, Status: "error"},
	ExitCodeGPUWatchdog:    {Category: ErrorCategoryDevice, Severity: cserrors.SeverityFatal, Status: "gpu_watchdog"},
	ExitCodeBackendAbort:   {Category: ErrorCategoryBackend, Severity: cserrors.SeverityCritical, Status: "backend_abort"},
	ExitCodeBackendChkpt:   {Category: ErrorCategoryBackend, Severity: cserrors.SeverityCritical, Status: "backend_checkpoint"},
	ExitCodeBackendRuntime: {Category: ErrorCategoryBackend, Severity: cserrors.SeverityCritical, Status: "backend_runtime"},
	ExitCodeSelftestFail:   {Category: ErrorCategoryBackend, Severity: cserrors.SeverityCritical, Status: "selftest_fail"},
	ExitCodeAutotuneFail:   {Category: ErrorCategoryBackend, Severity: cserrors.SeverityCritical, Status: "autotune_fail"},
}

// ClassifyExitCode classifies a hashcat exit code.
func ClassifyExitCode(exitCode int) ExitCodeInfo {
	info, ok := exitCodes[exitCode]

	switch {
	case ok:
	case exitCode <= -8 && exitCode >= -11:
		info = ExitCodeInfo{Category: ErrorCategoryBackend, Severity: cserrors.SeverityCritical, Status: "backend_error"}
	default:
		info = ExitCodeInfo{Category: ErrorCategoryUnknown, Severity: cserrors.SeverityCritical, Status: "unknown"}
	}

	info.ExitCode = exitCode

	return info
}

// IsExhausted returns true if hashcat finished the wordlist without a match.
func IsExhausted(exitCode int) bool {
	return exitCode == ExitCodeExhausted
}

// IsSuccess returns true if hashcat cracked the hash.
func IsSuccess(exitCode int) bool {
	return exitCode == ExitCodeSuccess
}

// IsNormalCompletion returns true if the exit code indicates normal completion
// (either cracked or exhausted).
func IsNormalCompletion(exitCode int) bool {
	return IsSuccess(exitCode) || IsExhausted(exitCode)
}

// exitError builds the error for an abnormal exit, quoting the most severe stderr line
// when there is one. A non-retryable exit whose stderr shows a record hashcat cannot load
// or a rejected option is permanent; everything else is an oracle failure.
func exitError(info ExitCodeInfo, worst *ErrorInfo) error {
	kind := cserrors.ErrOracleFailure

	if !info.Retryable && worst != nil && !worst.Retryable {
		switch worst.Category {
		case ErrorCategoryHashFormat:
			kind = cserrors.ErrMalformedRecord
		case ErrorCategoryConfiguration:
			kind = cserrors.ErrUnsupportedStrategy
		default:
		}
	}

	err := fmt.Errorf("%w: hashcat exited with code %d (%s, %s)",
		kind, info.ExitCode, info.Status, info.Category)

	if worst != nil {
		err = fmt.Errorf("%w: %s", err, worst.Message)
	}

	return err
}
