package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/cracker"
	"github.com/unclesp1d3r/bitrecover/lib/progress"
	"github.com/unclesp1d3r/bitrecover/lib/results"
	"github.com/unclesp1d3r/bitrecover/lib/runner"
	"github.com/unclesp1d3r/bitrecover/lib/session"
)

type runOptions struct {
	all       bool
	batchSize uint
	parallel  int
	oracle    string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [id...]",
		Short: "Run or resume sessions until a match, exhaustion or interruption",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.all {
				return errors.New("give at least one session id or --all")
			}

			flags := cmd.Flags()
			if !flags.Changed("batch-size") {
				opts.batchSize = appstate.State.BatchSize
			}

			if !flags.Changed("parallel") {
				opts.parallel = appstate.State.Parallel
			}

			if !flags.Changed("oracle") {
				opts.oracle = appstate.State.Oracle
			}

			return runSessions(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "Run every resumable session")
	cmd.Flags().UintVarP(&opts.batchSize, "batch-size", "b", 0, "Candidates per oracle call (default from config)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "j", 0, "Sessions to run at once (default from config)")
	cmd.Flags().StringVar(&opts.oracle, "oracle", "", "Oracle to use: hashcat or john (default from config)")

	return cmd
}

func runSessions(cmd *cobra.Command, args []string, opts runOptions) error {
	ctx := cmd.Context()

	if err := cracker.CreateDataDirs(); err != nil {
		return err
	}

	store, err := openSessionStore()
	if err != nil {
		return err
	}

	sessions, err := selectSessions(ctx, store, args, opts.all)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		appstate.Logger.Info("No resumable sessions")

		return nil
	}

	factory, err := verifierFactory(opts.oracle)
	if err != nil {
		return err
	}

	found, err := results.OpenSQLite(appstate.State.ResultsDB)
	if err != nil {
		return err
	}

	defer func() {
		if err := found.Close(); err != nil {
			appstate.Logger.Debug("Error closing results database", "error", err)
		}
	}()

	r := &runner.Runner{
		Source:   fileSource(),
		Sessions: store,
		Results:  found,
		LockDir:  appstate.State.SessionsPath,
	}

	if len(sessions) == 1 && appstate.State.ShowProgress && !sessions[0].Status.Terminal() {
		if bar := newSessionBar(sessions[0]); bar != nil {
			r.Progress = func(u runner.Update) { bar.Update(u.Checkpoint) }
			defer bar.Finish()
		}
	}

	out, runErr := r.RunAll(ctx, sessions, factory, opts.batchSize, opts.parallel)

	for _, s := range out {
		if s == nil {
			continue
		}

		line := fmt.Sprintf("%s\t%s\t%d", s.ID, s.Status, s.Checkpoint)

		if s.Status == session.StatusFound {
			if cred, err := found.Lookup(ctx, s.Fingerprint); err == nil && cred != nil {
				line += "\t" + cred.Plaintext
			}
		} else if s.LastError != "" {
			line += "\t" + s.LastError
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	return runErr
}

// selectSessions resolves ids, or every resumable session when all is set.
func selectSessions(ctx context.Context, store session.Store, ids []string, all bool) ([]*session.Session, error) {
	if all {
		every, err := store.List(ctx)
		if err != nil {
			return nil, err
		}

		var resumable []*session.Session

		for _, s := range every {
			if s.Status.Resumable() {
				resumable = append(resumable, s)
			}
		}

		return resumable, nil
	}

	sessions := make([]*session.Session, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, ref := range ids {
		s, err := session.Resolve(ctx, store, ref)
		if err != nil {
			return nil, err
		}

		if seen[s.ID] {
			continue
		}

		seen[s.ID] = true
		sessions = append(sessions, s)
	}

	return sessions, nil
}

func newSessionBar(s *session.Session) *progress.RunBar {
	strategy, err := s.Strategy.Build()
	if err != nil {
		return nil
	}

	size, err := candidate.Keyspace(strategy, fileSource())
	if err != nil {
		appstate.Logger.Debug("Keyspace unavailable, running without a progress bar", "session", s.ID, "error", err)

		return nil
	}

	return progress.NewRunBar(shortID(s.ID), s.Checkpoint, size)
}

func shortID(id string) string {
	const n = 8
	if len(id) > n {
		return id[:n]
	}

	return id
}
