package hashcat

import (
	"regexp"
	"strings"

	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

// ErrorCategory represents the classification of a hashcat error.
type ErrorCategory int

const (
	// ErrorCategoryUnknown is for unrecognized error patterns.
	ErrorCategoryUnknown ErrorCategory = iota
	// ErrorCategorySuccess is for normal completion states (not actual errors).
	ErrorCategorySuccess
	// ErrorCategoryInfo is for informational messages (not actual errors).
	ErrorCategoryInfo
	// ErrorCategoryWarning is for warnings that don't stop operation.
	ErrorCategoryWarning
	// ErrorCategoryRetryable is for transient errors that may succeed on retry.
	ErrorCategoryRetryable
	// ErrorCategoryHashFormat is for hash file/format issues (permanent).
	ErrorCategoryHashFormat
	// ErrorCategoryFileAccess is for missing/corrupted files (permanent).
	ErrorCategoryFileAccess
	// ErrorCategoryDevice is for GPU/hardware errors.
	ErrorCategoryDevice
	// ErrorCategoryConfiguration is for invalid parameters.
	ErrorCategoryConfiguration
	// ErrorCategoryBackend is for OpenCL/CUDA backend errors.
	ErrorCategoryBackend
)

//nolint:gochecknoglobals // Lookup table
var categoryNames = map[ErrorCategory]string{
	ErrorCategoryUnknown:       "unknown",
	ErrorCategorySuccess:       "success",
	ErrorCategoryInfo:          "info",
	ErrorCategoryWarning:       "warning",
	ErrorCategoryRetryable:     "retryable",
	ErrorCategoryHashFormat:    "hash_format",
	ErrorCategoryFileAccess:    "file_access",
	ErrorCategoryDevice:        "device",
	ErrorCategoryConfiguration: "configuration",
	ErrorCategoryBackend:       "backend",
}

func (c ErrorCategory) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}

	return "unknown"
}

// ErrorInfo contains information about a classified stderr line.
type ErrorInfo struct {
	Category  ErrorCategory
	Severity  cserrors.Severity
	Retryable bool
	Message   string
}

type errorPattern struct {
	pattern   *regexp.Regexp
	category  ErrorCategory
	severity  cserrors.Severity
	retryable bool
}

func pattern(expr string, category ErrorCategory, severity cserrors.Severity, retryable bool) errorPattern {
	return errorPattern{regexp.MustCompile(expr), category, severity, retryable}
}

// Matching is first-match in slice order, so specific patterns precede general ones.
//
//nolint:gochecknoglobals // Compiled once
var errorPatterns = []errorPattern{
	// A record hashcat cannot load is usually a recovery-password mode or a truncated
	// bitlocker2john line.
	pattern(`Hash '.+': Separator unmatched`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),
	pattern(`Hash '.+': Token length exception`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),
	pattern(`Hash '.+': Line-length exception`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),
	pattern(`Hash '.+': Salt-length exception`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),
	pattern(`Hash '.+': Signature unmatched`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),
	pattern(`(?i)No hashes loaded`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),
	pattern(`(?i)Hash-file exception`, ErrorCategoryHashFormat, cserrors.SeverityCritical, false),

	// Non-greedy .*? avoids backtracking on long device lines.
	pattern(`Device #\d+:.*?(?i)(out of memory|memory allocation|MEMORY)`, ErrorCategoryDevice, cserrors.SeverityFatal, false),
	pattern(`Device #\d+:.*?WARNING`, ErrorCategoryDevice, cserrors.SeverityWarning, true),
	pattern(`(?i)hwmon.*temperature`, ErrorCategoryDevice, cserrors.SeverityWarning, true),
	pattern(`(?i)No devices found/left`, ErrorCategoryDevice, cserrors.SeverityFatal, false),

	pattern(`ERROR:.*can't open`, ErrorCategoryFileAccess, cserrors.SeverityCritical, false),
	pattern(`ERROR:.*No such file or directory`, ErrorCategoryFileAccess, cserrors.SeverityCritical, false),

	pattern(`OpenCL API.*CL_OUT_OF_HOST_MEMORY`, ErrorCategoryBackend, cserrors.SeverityFatal, false),
	pattern(`OpenCL API.*CL_`, ErrorCategoryBackend, cserrors.SeverityCritical, false),
	pattern(`cuDeviceGet\(\).*CUDA_ERROR`, ErrorCategoryBackend, cserrors.SeverityCritical, false),
	pattern(`hipDeviceGet\(\).*HIP_ERROR`, ErrorCategoryBackend, cserrors.SeverityCritical, false),
	pattern(`(?i)Metal API`, ErrorCategoryBackend, cserrors.SeverityCritical, false),

	pattern(`ERROR:.*Invalid argument`, ErrorCategoryConfiguration, cserrors.SeverityCritical, false),
	pattern(`ERROR:.*Option.*requires`, ErrorCategoryConfiguration, cserrors.SeverityCritical, false),
	pattern(`(?i)Invalid device_id`, ErrorCategoryConfiguration, cserrors.SeverityCritical, false),

	pattern(`(?i)Skipping invalid or unsupported`, ErrorCategoryInfo, cserrors.SeverityInfo, true),
	pattern(`(?i)Approaching final keyspace`, ErrorCategoryInfo, cserrors.SeverityInfo, true),
	pattern(`^Warning:`, ErrorCategoryWarning, cserrors.SeverityMinor, true),
}

// ClassifyStderr classifies a stderr line from hashcat.
func ClassifyStderr(line string) ErrorInfo {
	for _, p := range errorPatterns {
		if p.pattern.MatchString(line) {
			return ErrorInfo{
				Category:  p.category,
				Severity:  p.severity,
				Retryable: p.retryable,
				Message:   line,
			}
		}
	}

	if strings.HasPrefix(line, "ERROR:") {
		return ErrorInfo{
			Category: ErrorCategoryUnknown,
			Severity: cserrors.SeverityCritical,
			Message:  line,
		}
	}

	// hashcat writes progress chatter to stderr; a real failure also shows in the exit code.
	return ErrorInfo{
		Category:  ErrorCategoryUnknown,
		Severity:  cserrors.SeverityMinor,
		Retryable: true,
		Message:   line,
	}
}
