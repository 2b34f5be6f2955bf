// Package john verifies candidate batches with John the Ripper's bitlocker format, which
// handles user-password and recovery-password records alike.
package john

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/duke-git/lancet/v2/strutil"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/display"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
)

const (
	toolName = "john"
	// DefaultFormat is the CPU bitlocker format; "bitlocker-opencl" uses the GPU build.
	DefaultFormat = "bitlocker"
	potFileName   = "batch.pot"
	hexPrefix     = "$HEX["
)

// Params configures every john invocation made by an Oracle.
type Params struct {
	Binary         string   `json:"binary"`
	WorkDir        string   `json:"work_dir"`
	Format         string   `json:"format"`
	AdditionalArgs []string `json:"additional_args"`
}

// Validate checks the parameters before any batch is run.
func (params Params) Validate() error {
	if strutil.IsBlank(params.Binary) {
		return fmt.Errorf("%w: no john binary configured", cserrors.ErrUnsupportedStrategy)
	}

	if strutil.IsBlank(params.WorkDir) {
		return fmt.Errorf("%w: no john work directory configured", cserrors.ErrUnsupportedStrategy)
	}

	if params.Format != "" && !strings.HasPrefix(params.Format, DefaultFormat) {
		return fmt.Errorf("%w: john format %q is not a bitlocker format", cserrors.ErrUnsupportedStrategy, params.Format)
	}

	return nil
}

func (params Params) format() string {
	if params.Format == "" {
		return DefaultFormat
	}

	return params.Format
}

// toCmdArgs builds the arguments for one batch. Each batch gets its own pot file and
// session so nothing carries over between calls.
func (params Params) toCmdArgs(dir, hashFile, wordlist string) []string {
	args := []string{
		"--format=" + params.format(),
		"--wordlist=" + wordlist,
		"--pot=" + filepath.Join(dir, potFileName),
		"--session=" + filepath.Join(dir, "john"),
		"--no-log",
	}

	args = append(args, params.AdditionalArgs...)

	return append(args, hashFile)
}

// Oracle verifies batches by running john once per batch.
type Oracle struct {
	params Params
}

var _ oracle.Verifier = (*Oracle)(nil)

// New validates params and returns an oracle.
func New(params Params) (*Oracle, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Oracle{params: params}, nil
}

// Verify runs john over batch. john exits 0 whether or not it cracked anything, so the
// batch pot file decides: a plaintext there is the match.
func (o *Oracle) Verify(ctx context.Context, record *hashrecord.Record, batch []string) (string, bool, error) {
	if err := os.MkdirAll(o.params.WorkDir, 0o750); err != nil {
		return "", false, fmt.Errorf("%w: creating work directory: %w", cserrors.ErrOracleFailure, err)
	}

	dir, err := os.MkdirTemp(o.params.WorkDir, "john-")
	if err != nil {
		return "", false, fmt.Errorf("%w: creating batch directory: %w", cserrors.ErrOracleFailure, err)
	}

	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			appstate.Logger.Warn("Couldn't remove batch directory", "path", dir, "error", err)
		}
	}()

	hashFile, err := oracle.WriteHashFile(dir, record)
	if err != nil {
		return "", false, err
	}

	wordlist, err := oracle.WriteBatch(dir, batch)
	if err != nil {
		return "", false, err
	}

	var lastStderr string

	proc := &oracle.Subprocess{
		Program: o.params.Binary,
		Args:    o.params.toCmdArgs(dir, hashFile, wordlist),
		WDir:    dir,
		StdoutCallback: func(line string) {
			appstate.Logger.Debug("john stdout", "line", line)
		},
		StderrCallback: func(line string) {
			display.OracleStderr(toolName, line)

			if strings.TrimSpace(line) != "" {
				lastStderr = line
			}
		},
	}

	exitCode, err := proc.Execute(ctx)
	if err != nil {
		return "", false, err
	}

	if exitCode != 0 {
		err := fmt.Errorf("%w: john exited with code %d", cserrors.ErrOracleFailure, exitCode)
		if lastStderr != "" {
			err = fmt.Errorf("%w: %s", err, lastStderr)
		}

		return "", false, err
	}

	plains, err := readPotFile(filepath.Join(dir, potFileName))
	if err != nil {
		return "", false, err
	}

	if len(plains) == 0 {
		return "", false, nil
	}

	return plains[0], true, nil
}

// readPotFile returns the plaintexts in a pot file. A missing file means nothing cracked.
func readPotFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // Path is inside the batch directory
	if os.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: opening pot file: %w", cserrors.ErrOracleFailure, err)
	}

	defer func() { _ = f.Close() }()

	var plains []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		// Hashes never contain ':', so the plaintext is everything after the first one.
		_, plain, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}

		plains = append(plains, decodePlain(plain))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading pot file: %w", cserrors.ErrOracleFailure, err)
	}

	return plains, nil
}

// decodePlain undoes john's $HEX[...] encoding of plaintexts with unprintable bytes.
func decodePlain(plain string) string {
	if !strings.HasPrefix(plain, hexPrefix) || !strings.HasSuffix(plain, "]") {
		return plain
	}

	decoded, err := hex.DecodeString(plain[len(hexPrefix) : len(plain)-1])
	if err != nil {
		return plain
	}

	return string(decoded)
}
