package cmd

import (
	"fmt"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/cracker"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/hashcat"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/john"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
	"github.com/unclesp1d3r/bitrecover/lib/runner"
)

// verifierFactory returns a factory for the named oracle. The binary is located once and
// shared by every session.
func verifierFactory(name string) (runner.VerifierFactory, error) {
	binary, err := cracker.FindBinary(name)
	if err != nil {
		return nil, err
	}

	switch name {
	case cracker.Hashcat:
		params := hashcat.Params{
			Binary:           binary,
			WorkDir:          appstate.State.WorkPath,
			OptimizedKernels: appstate.State.OptimizedKernels,
			BackendDevices:   appstate.State.BackendDevices,
		}

		return func(record *hashrecord.Record) (oracle.Verifier, error) {
			return hashcat.New(params, record.Mode())
		}, nil
	case cracker.John:
		params := john.Params{
			Binary:  binary,
			WorkDir: appstate.State.WorkPath,
		}

		return func(*hashrecord.Record) (oracle.Verifier, error) {
			return john.New(params)
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown oracle %q", cserrors.ErrUnsupportedStrategy, name)
	}
}
