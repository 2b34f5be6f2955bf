package hashcat

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nxadm/tail"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/display"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
)

const toolName = "hashcat"

// Oracle verifies batches by running hashcat once per batch.
type Oracle struct {
	params Params
}

var _ oracle.Verifier = (*Oracle)(nil)

// CheckMode reports whether hashcat can attack records of mode. Mode 22100 covers user
// passwords only.
func CheckMode(mode hashrecord.Mode) error {
	if mode.RecoveryPassword() {
		return fmt.Errorf("%w: hashcat mode %d cannot attack %s records, use john",
			cserrors.ErrUnsupportedStrategy, HashModeBitLocker, mode)
	}

	return nil
}

// New validates params and returns an oracle for records of the given mode.
func New(params Params, mode hashrecord.Mode) (*Oracle, error) {
	if err := CheckMode(mode); err != nil {
		return nil, err
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Oracle{params: params}, nil
}

// Verify writes batch as a wordlist and runs hashcat against record. Exit code 0 means a
// candidate matched and is read back from the outfile; 1 means none did. Any other outcome
// is an oracle failure.
func (o *Oracle) Verify(ctx context.Context, record *hashrecord.Record, batch []string) (string, bool, error) {
	if err := CheckMode(record.Mode()); err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(o.params.WorkDir, 0o750); err != nil {
		return "", false, fmt.Errorf("%w: creating work directory: %w", cserrors.ErrOracleFailure, err)
	}

	dir, err := os.MkdirTemp(o.params.WorkDir, "hashcat-")
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

	outFile := filepath.Join(dir, "cracked.out")

	var (
		mu    sync.Mutex
		worst *ErrorInfo
	)

	proc := &oracle.Subprocess{
		Program: o.params.Binary,
		Args:    o.params.toCmdArgs(filepath.Base(dir), hashFile, wordlist, outFile),
		WDir:    dir,
		StdoutCallback: func(line string) {
			if strings.TrimSpace(line) != "" {
				appstate.Logger.Debug("hashcat stdout", "line", line)
			}
		},
		StderrCallback: func(line string) {
			display.OracleStderr(toolName, line)

			info := ClassifyStderr(line)

			mu.Lock()
			defer mu.Unlock()

			if worst == nil || info.Severity.Rank() > worst.Severity.Rank() {
				worst = &info
			}
		},
	}

	exitCode, err := proc.Execute(ctx)
	if err != nil {
		return "", false, err
	}

	info := ClassifyExitCode(exitCode)

	switch {
	case IsExhausted(exitCode):
		return "", false, nil
	case IsSuccess(exitCode):
		plains, err := readOutfile(outFile)
		if err != nil {
			return "", false, err
		}

		if len(plains) == 0 {
			return "", false, fmt.Errorf("%w: hashcat reported a crack but wrote no plaintext", cserrors.ErrOracleFailure)
		}

		return plains[0], true, nil
	default:
		appstate.Logger.Debug("hashcat failed", "exit_code", exitCode, "status", info.Status, "severity", info.Severity)

		return "", false, exitError(info, worst)
	}
}

// readOutfile reads every plaintext from a finished hex-plain outfile.
func readOutfile(path string) ([]string, error) {
	tailer, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    appstate.Logger.StandardLog(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: couldn't read outfile %q: %w", cserrors.ErrOracleFailure, path, err)
	}

	defer tailer.Cleanup()

	var plains []string

	for line := range tailer.Lines {
		if line.Err != nil {
			return nil, fmt.Errorf("%w: reading outfile: %w", cserrors.ErrOracleFailure, line.Err)
		}

		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		plain, err := hex.DecodeString(text)
		if err != nil {
			appstate.Logger.Error("couldn't decode hex plaintext", "line", text, "error", err)

			continue
		}

		plains = append(plains, string(plain))
	}

	if err := tailer.Wait(); err != nil {
		return nil, fmt.Errorf("%w: reading outfile: %w", cserrors.ErrOracleFailure, err)
	}

	return plains, nil
}
