package hashcat

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/duke-git/lancet/v2/convertor"
	"github.com/duke-git/lancet/v2/strutil"

	"github.com/unclesp1d3r/bitrecover/lib/arch"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

const (
	// HashModeBitLocker is hashcat's mode for `$bitlocker$` user-password records.
	HashModeBitLocker = 22100
	// AttackModeDictionary is straight wordlist mode; batches are always plain wordlists.
	AttackModeDictionary = 0
	// outfileFormatHexPlain writes each cracked plaintext hex-encoded on its own line.
	outfileFormatHexPlain = "3"
)

//nolint:gochecknoglobals // Compiled once
var backendDevicesPattern = regexp.MustCompile(`^\d+(,\d+)*$`)

// Params configures every hashcat invocation made by an Oracle.
type Params struct {
	Binary           string   `json:"binary"`            // Path to the hashcat executable
	WorkDir          string   `json:"work_dir"`          // Directory for per-batch scratch files
	OptimizedKernels bool     `json:"optimized_kernels"` // Pass -O
	BackendDevices   string   `json:"backend_devices"`   // Comma separated device ids, empty for all
	AdditionalArgs   []string `json:"additional_args"`   // Appended before the positional arguments
}

// Validate checks the parameters before any batch is run.
func (params Params) Validate() error {
	if strutil.IsBlank(params.Binary) {
		return fmt.Errorf("%w: no hashcat binary configured", cserrors.ErrUnsupportedStrategy)
	}

	if strutil.IsBlank(params.WorkDir) {
		return fmt.Errorf("%w: no hashcat work directory configured", cserrors.ErrUnsupportedStrategy)
	}

	if params.BackendDevices != "" && !backendDevicesPattern.MatchString(params.BackendDevices) {
		return fmt.Errorf("%w: invalid backend devices %q", cserrors.ErrUnsupportedStrategy, params.BackendDevices)
	}

	return nil
}

// toCmdArgs builds the argument list for one batch. The session name keeps concurrent
// invocations from sharing hashcat's per-session state.
func (params Params) toCmdArgs(session, hashFile, wordlist, outFile string) []string {
	args := []string{
		"--quiet",
		"--session", "bitrecover-" + session,
		"--potfile-disable",
		"--restore-disable",
		"--logfile-disable",
		"--outfile", outFile,
		"--outfile-format", outfileFormatHexPlain,
		"-a", convertor.ToString(AttackModeDictionary),
		"-m", convertor.ToString(HashModeBitLocker),
	}

	if params.OptimizedKernels {
		args = append(args, "-O")
	}

	if params.BackendDevices != "" {
		args = append(args, "--backend-devices", params.BackendDevices)
	}

	args = append(args, arch.AdditionalHashcatArgs()...)
	args = append(args, params.AdditionalArgs...)

	return append(args, filepath.Clean(hashFile), filepath.Clean(wordlist))
}

// BenchmarkArgs builds the arguments for a machine-readable mode 22100 benchmark using
// the same device selection as batch runs.
func (params Params) BenchmarkArgs() []string {
	args := []string{
		"--benchmark",
		"--machine-readable",
		"--quiet",
		"-m", convertor.ToString(HashModeBitLocker),
	}

	if params.OptimizedKernels {
		args = append(args, "-O")
	}

	if params.BackendDevices != "" {
		args = append(args, "--backend-devices", params.BackendDevices)
	}

	args = append(args, arch.AdditionalHashcatArgs()...)

	return append(args, params.AdditionalArgs...)
}
