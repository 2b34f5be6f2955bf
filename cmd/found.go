package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/results"
)

func newFoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "found [fingerprint]",
		Short: "Show recovered credentials",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := results.OpenSQLite(appstate.State.ResultsDB)
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(); err != nil {
					appstate.Logger.Debug("Error closing results database", "error", err)
				}
			}()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				cred, err := store.Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if cred == nil {
					return fmt.Errorf("no credential recorded for %s", args[0])
				}

				_, _ = fmt.Fprintln(out, cred.Plaintext)

				return nil
			}

			creds, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FINGERPRINT\tPLAINTEXT\tFOUND")

			for _, c := range creds {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Fingerprint, c.Plaintext, c.FoundAt.Format("2006-01-02 15:04:05"))
			}

			return w.Flush()
		},
	}
}
