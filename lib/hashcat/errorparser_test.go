package hashcat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

func TestClassifyStderr(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		category  ErrorCategory
		severity  cserrors.Severity
		retryable bool
	}{
		{
			name:     "token length",
			line:     "Hash '$bitlocker$2$16$...': Token length exception",
			category: ErrorCategoryHashFormat,
			severity: cserrors.SeverityCritical,
		},
		{
			name:     "signature",
			line:     "Hash 'hash.txt': Signature unmatched",
			category: ErrorCategoryHashFormat,
			severity: cserrors.SeverityCritical,
		},
		{
			name:     "no hashes",
			line:     "No hashes loaded.",
			category: ErrorCategoryHashFormat,
			severity: cserrors.SeverityCritical,
		},
		{
			name:     "device memory",
			line:     "Device #1: Not enough allocatable device memory for this attack.",
			category: ErrorCategoryDevice,
			severity: cserrors.SeverityFatal,
		},
		{
			name:      "device warning",
			line:      "Device #2: WARNING! Kernel exec timeout is not disabled.",
			category:  ErrorCategoryDevice,
			severity:  cserrors.SeverityWarning,
			retryable: true,
		},
		{
			name:     "no devices",
			line:     "No devices found/left.",
			category: ErrorCategoryDevice,
			severity: cserrors.SeverityFatal,
		},
		{
			name:     "missing wordlist",
			line:     "ERROR: batch-1.txt: No such file or directory",
			category: ErrorCategoryFileAccess,
			severity: cserrors.SeverityCritical,
		},
		{
			name:     "opencl host memory",
			line:     "OpenCL API (clCreateBuffer) CL_OUT_OF_HOST_MEMORY",
			category: ErrorCategoryBackend,
			severity: cserrors.SeverityFatal,
		},
		{
			name:     "cuda",
			line:     "cuDeviceGet(): CUDA_ERROR_NO_DEVICE",
			category: ErrorCategoryBackend,
			severity: cserrors.SeverityCritical,
		},
		{
			name:     "bad device id",
			line:     "Invalid device_id 7 specified.",
			category: ErrorCategoryConfiguration,
			severity: cserrors.SeverityCritical,
		},
		{
			name:      "warning",
			line:      "Warning: the self-test took a long time",
			category:  ErrorCategoryWarning,
			severity:  cserrors.SeverityMinor,
			retryable: true,
		},
		{
			name:     "generic error",
			line:     "ERROR: something unexpected",
			category: ErrorCategoryUnknown,
			severity: cserrors.SeverityCritical,
		},
		{
			name:      "chatter",
			line:      "Session..........: bitrecover-123",
			category:  ErrorCategoryUnknown,
			severity:  cserrors.SeverityMinor,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ClassifyStderr(tt.line)

			assert.Equal(t, tt.category, info.Category, "category mismatch")
			assert.Equal(t, tt.severity, info.Severity, "severity mismatch")
			assert.Equal(t, tt.retryable, info.Retryable, "retryable mismatch")
			assert.Equal(t, tt.line, info.Message)
		})
	}
}

func TestErrorCategoryString(t *testing.T) {
	assert.Equal(t, "hash_format", ErrorCategoryHashFormat.String())
	assert.Equal(t, "backend", ErrorCategoryBackend.String())
	assert.Equal(t, "unknown", ErrorCategory(99).String())
}
