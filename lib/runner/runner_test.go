package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
	"github.com/unclesp1d3r/bitrecover/lib/results"
	"github.com/unclesp1d3r/bitrecover/lib/session"
	"github.com/unclesp1d3r/bitrecover/lib/testhelpers"
)

var dictionarySpec = candidate.Spec{Type: candidate.TypeDictionary, Wordlist: "words.txt"} //nolint:gochecknoglobals // Test fixture

type fixture struct {
	runner   *Runner
	sessions *session.MemoryStore
	results  *results.MemoryStore
}

func newFixture() *fixture {
	f := &fixture{
		sessions: session.NewMemoryStore(),
		results:  results.NewMemoryStore(),
	}

	f.runner = &Runner{
		Source: candidate.MemorySource{
			"words.txt": "one\ntwo\nthree\nfour\n",
			"six.txt":   "one\ntwo\nthree\nfour\nfive\nsix\n",
		},
		Sessions: f.sessions,
		Results:  f.results,
	}

	return f
}

func newSession(t *testing.T, mode hashrecord.Mode, spec candidate.Spec) *session.Session {
	t.Helper()

	s, err := session.New(testhelpers.SampleRecord(t, mode), spec)
	require.NoError(t, err)

	return s
}

func TestRunFindsCredentialInSecondBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	stub := &testhelpers.StubOracle{Secret: "three"}

	type snapshot struct {
		checkpoint uint64
		status     session.Status
	}

	var persisted []snapshot

	f.runner.Progress = func(u Update) {
		stored, err := f.sessions.Load(ctx, u.SessionID)
		require.NoError(t, err)
		persisted = append(persisted, snapshot{stored.Checkpoint, stored.Status})
	}

	got, err := f.runner.Run(ctx, sess, stub, 2)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	assert.Equal(t, session.StatusFound, got.Status)
	assert.Equal(t, uint64(4), got.Checkpoint)
	assert.Empty(t, got.LastError)
	assert.Equal(t, [][]string{{"one", "two"}, {"three", "four"}}, stub.Calls())

	// Batch 1 was persisted as running at checkpoint 2 before batch 2 was attempted.
	assert.Equal(t, []snapshot{
		{2, session.StatusRunning},
		{4, session.StatusFound},
	}, persisted)

	cred, err := f.results.Lookup(ctx, sess.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "three", cred.Plaintext)
}

func TestRunExhausted(t *testing.T) {
	tests := []struct {
		name      string
		batchSize uint
		calls     []int
	}{
		{name: "even batches", batchSize: 2, calls: []int{2, 2}},
		{name: "short final batch", batchSize: 3, calls: []int{3, 1}},
		{name: "one batch", batchSize: 100, calls: []int{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
			stub := &testhelpers.StubOracle{Secret: "absent"}

			got, err := f.runner.Run(context.Background(), sess, stub, tt.batchSize)
			require.NoError(t, err)
			assert.Equal(t, session.StatusExhausted, got.Status)
			assert.Equal(t, uint64(4), got.Checkpoint)

			var sizes []int
			for _, c := range stub.Calls() {
				sizes = append(sizes, len(c))
			}

			assert.Equal(t, tt.calls, sizes)

			stored, err := f.sessions.Load(context.Background(), sess.ID)
			require.NoError(t, err)
			assert.Equal(t, session.StatusExhausted, stored.Status)
		})
	}
}

func TestRunOracleFailurePausesAndResumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, candidate.Spec{Type: candidate.TypeDictionary, Wordlist: "six.txt"})

	failing := &testhelpers.StubOracle{
		Secret: "five",
		FailOn: []int{2},
		Err:    fmt.Errorf("%w: hashcat exited with code -2", cserrors.ErrOracleFailure),
	}

	got, err := f.runner.Run(ctx, sess, failing, 2)
	require.NoError(t, err, "oracle failures are absorbed into the paused state")
	assert.Equal(t, session.StatusPaused, got.Status)
	assert.Equal(t, uint64(2), got.Checkpoint)
	assert.Contains(t, got.LastError, "hashcat exited with code -2")

	stored, err := f.sessions.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Checkpoint)
	assert.Equal(t, session.StatusPaused, stored.Status)

	healthy := &testhelpers.StubOracle{Secret: "five"}

	resumed, err := f.runner.Run(ctx, stored, healthy, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFound, resumed.Status)
	assert.Equal(t, uint64(6), resumed.Checkpoint)
	assert.Empty(t, resumed.LastError)
	assert.Equal(t, []string{"three", "four", "five", "six"}, healthy.Attempted(),
		"resume must not re-attempt confirmed candidates")
}

func TestRunTagsUntypedOracleErrors(t *testing.T) {
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	stub := &testhelpers.StubOracle{FailOn: []int{1}, Err: errors.New("pipe closed")}

	got, err := f.runner.Run(context.Background(), sess, stub, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPaused, got.Status)
	assert.Zero(t, got.Checkpoint)
	assert.Contains(t, got.LastError, cserrors.ErrOracleFailure.Error())
	assert.Contains(t, got.LastError, "pipe closed")
}

func TestRunMatchOutsideBatchIsOracleFailure(t *testing.T) {
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	stub := &testhelpers.StubOracle{Report: "not-a-candidate"}

	got, err := f.runner.Run(context.Background(), sess, stub, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPaused, got.Status)
	assert.Zero(t, got.Checkpoint)
	assert.Contains(t, got.LastError, "not in the submitted batch")

	cred, err := f.results.Lookup(context.Background(), sess.Fingerprint)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestRunCancellationTakesEffectAtBatchBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)

	calls := 0
	verifier := oracle.VerifyFunc(func(vctx context.Context, _ *hashrecord.Record, _ []string) (string, bool, error) {
		calls++

		cancel()
		// The in-flight call is never interrupted.
		assert.NoError(t, vctx.Err())

		return "", false, nil
	})

	got, err := f.runner.Run(ctx, sess, verifier, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, session.StatusPaused, got.Status)
	assert.Equal(t, uint64(2), got.Checkpoint, "the completed batch counts as attempted")
	assert.Contains(t, got.LastError, "cancelled")

	stored, err := f.sessions.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.Checkpoint)
}

func TestRunPriorResultShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	require.NoError(t, f.results.Record(ctx, sess.Fingerprint, "known"))

	stub := &testhelpers.StubOracle{Secret: "three"}

	got, err := f.runner.Run(ctx, sess, stub, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFound, got.Status)
	assert.Zero(t, got.Checkpoint)
	assert.Empty(t, stub.Calls())
}

type conflictingResults struct {
	*results.MemoryStore
}

func (conflictingResults) Record(context.Context, string, string) error {
	return fmt.Errorf("%w: injected", cserrors.ErrConflictingResult)
}

func TestRunConflictingResultIsSurfaced(t *testing.T) {
	f := newFixture()
	f.runner.Results = conflictingResults{results.NewMemoryStore()}
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)

	_, err := f.runner.Run(context.Background(), sess, &testhelpers.StubOracle{Secret: "three"}, 2)
	require.ErrorIs(t, err, cserrors.ErrConflictingResult)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, sess.ID, runErr.SessionID)
	assert.Equal(t, uint64(2), runErr.Checkpoint)
	assert.Equal(t, "dictionary(words.txt)", runErr.Strategy)
	assert.Contains(t, err.Error(), sess.ID)

	assert.Equal(t, session.StatusPaused, sess.Status)
	assert.Equal(t, uint64(2), sess.Checkpoint, "matching batch stays ahead of the checkpoint")
}

func TestRunTerminalSessionUnchanged(t *testing.T) {
	for _, status := range []session.Status{session.StatusFound, session.StatusExhausted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
			sess.Status = status
			sess.Checkpoint = 3

			stub := &testhelpers.StubOracle{Secret: "three"}

			got, err := f.runner.Run(context.Background(), sess, stub, 2)
			require.NoError(t, err)
			assert.Equal(t, status, got.Status)
			assert.Equal(t, uint64(3), got.Checkpoint)
			assert.Empty(t, stub.Calls())
			assert.Zero(t, f.sessions.Saves())
		})
	}
}

func TestRunResumesInterruptedRunningSession(t *testing.T) {
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	sess.Status = session.StatusRunning
	sess.Checkpoint = 2

	stub := &testhelpers.StubOracle{Secret: "four"}

	got, err := f.runner.Run(context.Background(), sess, stub, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFound, got.Status)
	assert.Equal(t, []string{"three", "four"}, stub.Attempted())
}

func TestRunNonRetryableErrors(t *testing.T) {
	tests := []struct {
		name      string
		spec      candidate.Spec
		batchSize uint
		verifier  oracle.Verifier
		wantErr   error
	}{
		{
			name:      "missing wordlist",
			spec:      candidate.Spec{Type: candidate.TypeDictionary, Wordlist: "missing.txt"},
			batchSize: 2,
			verifier:  &testhelpers.StubOracle{},
			wantErr:   cserrors.ErrUnsupportedStrategy,
		},
		{
			name:      "zero batch size",
			spec:      dictionarySpec,
			batchSize: 0,
			verifier:  &testhelpers.StubOracle{},
			wantErr:   cserrors.ErrUnsupportedStrategy,
		},
		{
			name:      "no verifier",
			spec:      dictionarySpec,
			batchSize: 2,
			verifier:  nil,
			wantErr:   cserrors.ErrUnsupportedStrategy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			sess := newSession(t, hashrecord.UserPasswordFast, tt.spec)

			_, err := f.runner.Run(context.Background(), sess, tt.verifier, tt.batchSize)
			require.ErrorIs(t, err, tt.wantErr)

			var runErr *RunError
			require.ErrorAs(t, err, &runErr)
			assert.Equal(t, sess.ID, runErr.SessionID)
			assert.False(t, sess.Status.Terminal())
		})
	}
}

func TestRunCorruptHash(t *testing.T) {
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	sess.Hash = "$bitlocker$9$broken"

	_, err := f.runner.Run(context.Background(), sess, &testhelpers.StubOracle{}, 2)
	require.ErrorIs(t, err, cserrors.ErrMalformedRecord)
}

func TestRunMaskResumeMatchesFreshRun(t *testing.T) {
	ctx := context.Background()
	spec := candidate.Spec{Type: candidate.TypeMask, Mask: "?d?d"}

	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, spec)

	// Fail on the third call, then resume and find 42 in the fifth batch of ten.
	first := &testhelpers.StubOracle{Secret: "42", FailOn: []int{3}, Err: cserrors.ErrOracleFailure}

	_, err := f.runner.Run(ctx, sess, first, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), sess.Checkpoint)

	second := &testhelpers.StubOracle{Secret: "42"}

	_, err = f.runner.Run(ctx, sess, second, 10)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFound, sess.Status)
	assert.Equal(t, uint64(50), sess.Checkpoint)

	attempted := second.Attempted()
	require.Len(t, attempted, 30)
	assert.Equal(t, "20", attempted[0])
	assert.Equal(t, "49", attempted[29])
}

func TestRunLengthBoundsKeepCheckpointArithmetic(t *testing.T) {
	ctx := context.Background()

	// ?d, then ?d?d, then ?d?d?d: 1110 raw candidates, of which the 100 two-digit ones
	// pass the bound.
	spec := candidate.Spec{
		Type:      candidate.TypeMask,
		Mask:      "?d?d?d",
		Increment: &candidate.Increment{Min: 1, Max: 3},
		MinLength: 2,
		MaxLength: 2,
	}

	fresh := newFixture()
	all := &testhelpers.StubOracle{Secret: "absent"}

	got, err := fresh.runner.Run(ctx, newSession(t, hashrecord.UserPasswordFast, spec), all, 64)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExhausted, got.Status)
	assert.Equal(t, uint64(1110), got.Checkpoint, "filtered candidates still advance the checkpoint")

	attempted := all.Attempted()
	require.Len(t, attempted, 100)
	assert.Equal(t, "00", attempted[0])
	assert.Equal(t, "99", attempted[99])

	// Batches of raw ?d?d?d candidates are filtered out entirely and never reach the oracle.
	assert.Len(t, all.Calls(), 2)

	for _, k := range []uint64{0, 7, 10, 55, 109, 110, 500} {
		t.Run(fmt.Sprintf("resume at %d", k), func(t *testing.T) {
			f := newFixture()
			sess := newSession(t, hashrecord.UserPasswordFast, spec)
			sess.Checkpoint = k

			stub := &testhelpers.StubOracle{Secret: "absent"}

			got, err := f.runner.Run(ctx, sess, stub, 64)
			require.NoError(t, err)
			assert.Equal(t, uint64(1110), got.Checkpoint)

			var want []string

			for i, c := range rawMask(t, spec) {
				if uint64(i) >= k && spec.Accepts(c) {
					want = append(want, c)
				}
			}

			assert.Equal(t, want, stub.Attempted())
		})
	}
}

func rawMask(t *testing.T, spec candidate.Spec) []string {
	t.Helper()

	spec.MinLength, spec.MaxLength = 0, 0

	strategy, err := spec.Build()
	require.NoError(t, err)

	gen, err := candidate.Generate(strategy, nil, 0)
	require.NoError(t, err)

	defer func() { _ = gen.Close() }()

	var out []string
	for c, ok := gen.Next(); ok; c, ok = gen.Next() {
		out = append(out, c)
	}

	require.NoError(t, gen.Err())

	return out
}

func TestRunLengthBoundsFindAfterFilteredBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	spec := candidate.Spec{Type: candidate.TypeDictionary, Wordlist: "six.txt", MinLength: 4}
	sess := newSession(t, hashrecord.UserPasswordFast, spec)
	stub := &testhelpers.StubOracle{Secret: "five"}

	got, err := f.runner.Run(ctx, sess, stub, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusFound, got.Status)
	assert.Equal(t, uint64(6), got.Checkpoint)
	assert.Equal(t, [][]string{{"three", "four"}, {"five"}}, stub.Calls(),
		"one,two is filtered out and six is dropped from the final batch")
}

func TestRunPermanentOracleErrorFails(t *testing.T) {
	f := newFixture()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)
	sess.Checkpoint = 2
	stub := &testhelpers.StubOracle{
		FailOn: []int{1},
		Err:    fmt.Errorf("%w: hashcat exited with code -1 (error, unknown): No hashes loaded.", cserrors.ErrMalformedRecord),
	}

	got, err := f.runner.Run(context.Background(), sess, stub, 2)
	require.ErrorIs(t, err, cserrors.ErrMalformedRecord)
	assert.False(t, cserrors.IsRetryable(err))

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, uint64(2), runErr.Checkpoint)

	assert.Equal(t, session.StatusPaused, got.Status)
	assert.Equal(t, uint64(2), got.Checkpoint)
	assert.Contains(t, got.LastError, "No hashes loaded.")

	stored, err := f.sessions.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusPaused, stored.Status)
}

func TestRunTerminalLogsCarryStatusAndStrategy(t *testing.T) {
	var buf bytes.Buffer

	saved := appstate.Logger
	appstate.Logger = log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

	t.Cleanup(func() { appstate.Logger = saved })

	f := newFixture()

	_, err := f.runner.Run(context.Background(), newSession(t, hashrecord.UserPasswordFast, dictionarySpec),
		&testhelpers.StubOracle{Secret: "absent"}, 2)
	require.NoError(t, err)

	_, err = f.runner.Run(context.Background(), newSession(t, hashrecord.UserPasswordVerified, dictionarySpec),
		&testhelpers.StubOracle{Secret: "two"}, 2)
	require.NoError(t, err)

	var exhausted, found string

	for _, line := range strings.Split(buf.String(), "\n") {
		switch {
		case strings.Contains(line, "Session exhausted"):
			exhausted = line
		case strings.Contains(line, "Credential recovered"):
			found = line
		}
	}

	assert.Contains(t, exhausted, "status=exhausted")
	assert.Contains(t, exhausted, "dictionary(words.txt)")
	assert.Contains(t, found, "status=found")
	assert.Contains(t, found, "dictionary(words.txt)")
	assert.NotContains(t, buf.String(), "status=running")
}

func TestRunLocked(t *testing.T) {
	f := newFixture()
	f.runner.LockDir = t.TempDir()
	sess := newSession(t, hashrecord.UserPasswordFast, dictionarySpec)

	unlock, err := session.Lock(f.runner.LockDir, sess.ID)
	require.NoError(t, err)

	_, err = f.runner.Run(context.Background(), sess, &testhelpers.StubOracle{}, 2)
	require.ErrorIs(t, err, session.ErrLocked)

	require.NoError(t, unlock())

	got, err := f.runner.Run(context.Background(), sess, &testhelpers.StubOracle{}, 2)
	require.NoError(t, err)
	assert.Equal(t, session.StatusExhausted, got.Status)
	assert.NoFileExists(t, f.runner.LockDir+"/"+sess.ID+".pid")
}

func TestRunAll(t *testing.T) {
	f := newFixture()

	sessions := []*session.Session{
		newSession(t, hashrecord.UserPasswordFast, dictionarySpec),
		newSession(t, hashrecord.UserPasswordVerified, candidate.Spec{Type: candidate.TypeMask, Mask: "?d"}),
		newSession(t, hashrecord.RecoveryPasswordFast, dictionarySpec),
		newSession(t, hashrecord.UserPasswordFast, candidate.Spec{Type: candidate.TypeDictionary, Wordlist: "six.txt"}),
	}
	sessions[3].Status = session.StatusExhausted

	stub := &testhelpers.StubOracle{Secret: "three"}

	var (
		mu     sync.Mutex
		builds int
	)

	factory := func(record *hashrecord.Record) (oracle.Verifier, error) {
		mu.Lock()
		builds++
		mu.Unlock()

		if record.Mode().RecoveryPassword() {
			return nil, fmt.Errorf("%w: recovery passwords", cserrors.ErrUnsupportedStrategy)
		}

		return stub, nil
	}

	out, err := f.runner.RunAll(context.Background(), sessions, factory, 2, 2)
	require.ErrorIs(t, err, cserrors.ErrUnsupportedStrategy)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, sessions[2].ID, runErr.SessionID)

	require.Len(t, out, 4)
	assert.Equal(t, session.StatusFound, out[0].Status)
	assert.Equal(t, session.StatusExhausted, out[1].Status)
	assert.Equal(t, uint64(10), out[1].Checkpoint)
	assert.Equal(t, session.StatusPaused, out[2].Status)
	assert.Zero(t, out[2].Checkpoint)
	assert.Equal(t, session.StatusExhausted, out[3].Status)
	assert.Equal(t, 3, builds, "terminal sessions need no oracle")
}
