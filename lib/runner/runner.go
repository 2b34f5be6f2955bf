// Package runner drives attack sessions: it feeds candidate batches to a verification
// oracle, checkpoints after every batch, and records recovered credentials.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/cserrors"
	"github.com/unclesp1d3r/bitrecover/lib/display"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
	"github.com/unclesp1d3r/bitrecover/lib/results"
	"github.com/unclesp1d3r/bitrecover/lib/session"
)

// RunError carries the context needed to reconstruct a failed run.
type RunError struct {
	SessionID  string
	Checkpoint uint64
	Strategy   string
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("session %s at checkpoint %d (%s): %v", e.SessionID, e.Checkpoint, e.Strategy, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// Update is passed to the progress callback after every persisted batch.
type Update struct {
	SessionID  string
	Checkpoint uint64
	BatchSize  int
	Elapsed    time.Duration
}

// Runner holds the collaborators shared by every session it runs.
type Runner struct {
	// Source resolves wordlist and rule references.
	Source candidate.Source
	// Sessions persists checkpoints. Required.
	Sessions session.Store
	// Results receives recovered credentials. Required.
	Results results.Store
	// LockDir, when set, holds per-session PID lock files.
	LockDir string
	// Progress, when set, is called after every checkpointed batch.
	Progress func(Update)
}

// Run attacks sess until a match, exhaustion, an oracle failure or cancellation.
//
// Oracle failures, generator read errors and cancellation leave the session Paused with
// its last persisted checkpoint and return a nil error; the caller resumes by calling
// Run again. Non-retryable problems return a *RunError. Terminal sessions are returned
// unchanged. The returned session is always the caller's sess, updated in place.
//
// Cancellation is observed between batches only: the context passed to the oracle is
// detached from ctx's cancellation.
func (r *Runner) Run(ctx context.Context, sess *session.Session, verifier oracle.Verifier, batchSize uint) (*session.Session, error) {
	if sess.Status.Terminal() {
		display.SessionTerminal(sess)

		return sess, nil
	}

	fail := func(err error) (*session.Session, error) {
		return sess, &RunError{
			SessionID:  sess.ID,
			Checkpoint: sess.Checkpoint,
			Strategy:   describe(sess.Strategy),
			Err:        err,
		}
	}

	if batchSize == 0 {
		return fail(fmt.Errorf("%w: batch size must be positive", cserrors.ErrUnsupportedStrategy))
	}

	if verifier == nil {
		return fail(fmt.Errorf("%w: no verifier configured", cserrors.ErrUnsupportedStrategy))
	}

	if r.LockDir != "" {
		unlock, err := session.Lock(r.LockDir, sess.ID)
		if err != nil {
			return fail(err)
		}

		defer func() {
			if err := unlock(); err != nil {
				appstate.Logger.Warn("Failed to release session lock", "session", sess.ID, "error", err)
			}
		}()
	}

	record, err := sess.Record()
	if err != nil {
		return fail(err)
	}

	if record.Fingerprint() != sess.Fingerprint {
		return fail(fmt.Errorf("%w: session fingerprint does not match its hash", cserrors.ErrMalformedRecord))
	}

	strategy, err := sess.Strategy.Build()
	if err != nil {
		return fail(err)
	}

	prior, err := r.Results.Lookup(ctx, sess.Fingerprint)
	if err != nil {
		return fail(err)
	}

	if err := sess.Transition(session.StatusRunning); err != nil {
		return fail(err)
	}

	sess.LastError = ""

	if prior != nil {
		display.PriorResult(sess)

		return r.finish(ctx, sess, session.StatusFound, fail)
	}

	if err := r.Sessions.Save(ctx, sess); err != nil {
		return fail(err)
	}

	display.SessionStarting(sess, strategy.Describe())

	gen, err := candidate.Generate(strategy, r.Source, sess.Checkpoint)
	if err != nil {
		return r.stop(ctx, sess, err, fail)
	}

	defer func() {
		if err := gen.Close(); err != nil {
			appstate.Logger.Debug("Error closing candidate generator", "session", sess.ID, "error", err)
		}
	}()

	return r.loop(ctx, sess, &attack{record: record, gen: gen, strategy: strategy.Describe()}, verifier, batchSize, fail)
}

// attack is what a session's loop works through.
type attack struct {
	record   *hashrecord.Record
	gen      candidate.Generator
	strategy string
}

func (r *Runner) loop(
	ctx context.Context,
	sess *session.Session,
	a *attack,
	verifier oracle.Verifier,
	batchSize uint,
	fail func(error) (*session.Session, error),
) (*session.Session, error) {
	batch := make([]string, 0, batchSize)
	oracleCtx := context.WithoutCancel(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return r.pause(oracleCtx, sess, fmt.Errorf("cancelled: %w", err))
		}

		// consumed counts every generated candidate, including those outside the length
		// bounds, so the checkpoint stays an offset into the unfiltered sequence.
		batch = batch[:0]
		consumed := uint(0)

		for consumed < batchSize {
			c, ok := a.gen.Next()
			if !ok {
				break
			}

			consumed++

			if sess.Strategy.Accepts(c) {
				batch = append(batch, c)
			}
		}

		if err := a.gen.Err(); err != nil {
			return r.stop(oracleCtx, sess, err, fail)
		}

		if consumed == 0 {
			if _, err := r.finish(oracleCtx, sess, session.StatusExhausted, fail); err != nil {
				return sess, err
			}

			display.SessionExhausted(sess, a.strategy)

			return sess, nil
		}

		start := time.Now()

		var (
			match string
			found bool
			err   error
		)

		if len(batch) > 0 {
			match, found, err = verifier.Verify(oracleCtx, a.record, batch)
			if err == nil && found {
				err = oracle.CheckMatch(match, batch)
			}
		}

		if err != nil {
			if !cserrors.IsRetryable(err) && !cserrors.IsPermanent(err) {
				err = fmt.Errorf("%w: %w", cserrors.ErrOracleFailure, err)
			}

			return r.stop(oracleCtx, sess, err, fail)
		}

		elapsed := time.Since(start)
		sess.Checkpoint += uint64(consumed)

		if found {
			if err := r.Results.Record(oracleCtx, sess.Fingerprint, match); err != nil {
				// Keep the matching batch ahead of the checkpoint so a resume finds it again.
				sess.Checkpoint -= uint64(consumed)
				_, _ = r.pause(oracleCtx, sess, err)

				return fail(err)
			}

			if _, err := r.finish(oracleCtx, sess, session.StatusFound, fail); err != nil {
				return sess, err
			}

			display.CredentialFound(sess, a.strategy)

			return sess, nil
		}

		if err := sess.Transition(session.StatusRunning); err != nil {
			return fail(err)
		}

		if err := r.Sessions.Save(oracleCtx, sess); err != nil {
			return fail(err)
		}

		display.BatchAttempted(sess, len(batch), elapsed)

		if r.Progress != nil {
			r.Progress(Update{SessionID: sess.ID, Checkpoint: sess.Checkpoint, BatchSize: int(consumed), Elapsed: elapsed})
		}
	}
}

// finish moves a running session to a terminal status and persists it.
func (r *Runner) finish(
	ctx context.Context,
	sess *session.Session,
	status session.Status,
	fail func(error) (*session.Session, error),
) (*session.Session, error) {
	if err := sess.Transition(status); err != nil {
		return fail(err)
	}

	if err := r.Sessions.Save(ctx, sess); err != nil {
		return fail(err)
	}

	if r.Progress != nil {
		r.Progress(Update{SessionID: sess.ID, Checkpoint: sess.Checkpoint})
	}

	return sess, nil
}

// stop pauses the session on err. Permanent failures are also returned as a *RunError;
// retryable and unclassified ones leave the caller free to resume.
func (r *Runner) stop(
	ctx context.Context,
	sess *session.Session,
	err error,
	fail func(error) (*session.Session, error),
) (*session.Session, error) {
	if cserrors.IsRetryable(err) || !cserrors.IsPermanent(err) {
		return r.pause(ctx, sess, err)
	}

	_, _ = r.pause(ctx, sess, err)

	return fail(err)
}

// pause records cause on the session, moves it to Paused and persists it. The checkpoint
// is left at its last persisted value.
func (r *Runner) pause(ctx context.Context, sess *session.Session, cause error) (*session.Session, error) {
	sess.LastError = cause.Error()

	if err := sess.Transition(session.StatusPaused); err != nil {
		appstate.Logger.Error("Cannot pause session", "session", sess.ID, "error", err)
	}

	if err := r.Sessions.Save(ctx, sess); err != nil {
		return sess, cserrors.LogAndReturn("Failed to persist paused session", err, "session", sess.ID)
	}

	display.SessionPaused(sess)

	return sess, nil
}

func describe(spec candidate.Spec) string {
	strategy, err := spec.Build()
	if err != nil {
		return spec.Type
	}

	return strategy.Describe()
}
