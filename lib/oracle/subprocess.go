package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
)

// Subprocess runs one invocation of an external tool, streaming its output lines to
// callbacks.
type Subprocess struct {
	Program        string
	Args           []string
	WDir           string
	StdoutCallback func(string)
	StderrCallback func(string)
}

// Execute runs the program to completion and returns its exit code. A program that exits
// non-zero is not an error here; failing to start it, or being killed by a signal, is
// reported as an oracle failure.
func (p *Subprocess) Execute(ctx context.Context) (int, error) {
	c := exec.CommandContext(ctx, p.Program, p.Args...) //nolint:gosec // Program comes from binary discovery
	c.Dir = p.WDir

	stdout, err := c.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: attaching stdout: %w", cserrors.ErrOracleFailure, err)
	}

	stderr, err := c.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("%w: attaching stderr: %w", cserrors.ErrOracleFailure, err)
	}

	appstate.Logger.Debug("Running oracle command", "command", c.String())

	if err := c.Start(); err != nil {
		return 0, fmt.Errorf("%w: starting %s: %w", cserrors.ErrOracleFailure, p.Program, err)
	}

	var wg sync.WaitGroup

	wg.Add(2)

	go scanLines(&wg, stdout, p.StdoutCallback)
	go scanLines(&wg, stderr, p.StderrCallback)

	wg.Wait()

	err = c.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return normalizeExitCode(exitErr.ExitCode()), nil
	}

	return 0, fmt.Errorf("%w: %s: %w", cserrors.ErrOracleFailure, p.Program, err)
}

func scanLines(wg *sync.WaitGroup, r io.Reader, callback func(string)) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if callback != nil {
			callback(scanner.Text())
		}
	}
}

// normalizeExitCode maps the unsigned status byte back to the signed codes the tools use,
// so exit(-2) reads as -2 rather than 254.
func normalizeExitCode(code int) int {
	const statusByte = 256
	if code >= statusByte/2 && code < statusByte {
		return code - statusByte
	}

	return code
}
