package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/display"
	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
	"github.com/unclesp1d3r/bitrecover/lib/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Create and inspect attack sessions",
	}

	cmd.AddCommand(newSessionNewCmd(), newSessionListCmd(), newSessionShowCmd())

	return cmd
}

func openSessionStore() (*session.FileStore, error) {
	return session.NewFileStore(appstate.State.SessionsPath)
}

func newSessionNewCmd() *cobra.Command {
	var flags strategyFlags

	cmd := &cobra.Command{
		Use:   "new <hash|file>",
		Short: "Create a paused session for a hash and strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := hashrecord.ParseArg(args[0])
			if err != nil {
				return err
			}

			spec, err := flags.spec()
			if err != nil {
				return err
			}

			sess, err := session.New(record, spec)
			if err != nil {
				return err
			}

			store, err := openSessionStore()
			if err != nil {
				return err
			}

			if err := store.Save(cmd.Context(), sess); err != nil {
				return err
			}

			strategy, err := spec.Build()
			if err != nil {
				return err
			}

			display.SessionCreated(sess, strategy.Describe())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), sess.ID)

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions with their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}

			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			src := fileSource()
			speed := cachedSpeed()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTRATEGY\tCHECKPOINT\tPROGRESS\tETA\tUPDATED")

			for _, s := range all {
				var size *big.Int

				desc := s.Strategy.Type

				if strategy, err := s.Strategy.Build(); err == nil {
					desc = strategy.Describe()

					if size, err = candidate.Keyspace(strategy, src); err != nil {
						size = nil
					}
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					s.ID, s.Status, desc, s.Checkpoint, display.Progress(s.Checkpoint, size),
					estimate(s, size, speed), display.Age(s.UpdatedAt))
			}

			return w.Flush()
		},
	}
}

func newSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}

			sess, err := session.Resolve(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(sess)
		},
	}
}
