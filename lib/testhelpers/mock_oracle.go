package testhelpers

import (
	"context"
	"slices"
	"sync"

	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
)

// StubOracle is a deterministic verifier for runner tests. It reports a match when
// Secret is in the batch and records every batch it receives.
type StubOracle struct {
	Secret string
	// FailOn lists 1-based call numbers that return Err instead of verifying.
	FailOn []int
	Err    error
	// Report, when set, overrides the reported match (used to simulate a misbehaving oracle).
	Report string
	// OnVerify runs at the start of every call.
	OnVerify func(call int, batch []string)

	mu    sync.Mutex
	calls [][]string
}

// Verify implements oracle.Verifier.
func (s *StubOracle) Verify(_ context.Context, _ *hashrecord.Record, batch []string) (string, bool, error) {
	s.mu.Lock()
	s.calls = append(s.calls, slices.Clone(batch))
	call := len(s.calls)
	s.mu.Unlock()

	if s.OnVerify != nil {
		s.OnVerify(call, batch)
	}

	if slices.Contains(s.FailOn, call) {
		return "", false, s.Err
	}

	if s.Report != "" {
		return s.Report, true, nil
	}

	if s.Secret != "" && slices.Contains(batch, s.Secret) {
		return s.Secret, true, nil
	}

	return "", false, nil
}

// Calls returns copies of the batches received so far.
func (s *StubOracle) Calls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = slices.Clone(c)
	}

	return out
}

// Attempted flattens every received batch in call order.
func (s *StubOracle) Attempted() []string {
	var out []string
	for _, c := range s.Calls() {
		out = append(out, c...)
	}

	return out
}
