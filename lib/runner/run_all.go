package runner

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/oracle"
	"github.com/unclesp1d3r/bitrecover/lib/session"
)

// VerifierFactory builds the oracle for one hash record. Oracles that cannot handle the
// record's mode fail here, before any candidate is generated.
type VerifierFactory func(record *hashrecord.Record) (oracle.Verifier, error)

// RunAll runs independent sessions concurrently, at most parallel at a time. Each session
// is still driven sequentially. The returned slice is index-aligned with sessions; errors
// from individual sessions are joined.
func (r *Runner) RunAll(
	ctx context.Context,
	sessions []*session.Session,
	factory VerifierFactory,
	batchSize uint,
	parallel int,
) ([]*session.Session, error) {
	if parallel < 1 {
		parallel = 1
	}

	out := make([]*session.Session, len(sessions))
	errs := make([]error, len(sessions))

	var g errgroup.Group

	g.SetLimit(parallel)

	for i, sess := range sessions {
		g.Go(func() error {
			out[i], errs[i] = r.runOne(ctx, sess, factory, batchSize)

			return nil
		})
	}

	_ = g.Wait()

	return out, errors.Join(errs...)
}

func (r *Runner) runOne(
	ctx context.Context,
	sess *session.Session,
	factory VerifierFactory,
	batchSize uint,
) (*session.Session, error) {
	if sess.Status.Terminal() {
		return r.Run(ctx, sess, nil, batchSize)
	}

	record, err := sess.Record()
	if err != nil {
		return sess, &RunError{SessionID: sess.ID, Checkpoint: sess.Checkpoint, Strategy: describe(sess.Strategy), Err: err}
	}

	verifier, err := factory(record)
	if err != nil {
		return sess, &RunError{SessionID: sess.ID, Checkpoint: sess.Checkpoint, Strategy: describe(sess.Strategy), Err: err}
	}

	return r.Run(ctx, sess, verifier, batchSize)
}
