package cmd

import (
	"bufio"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/candidate"
)

func newCandidatesCmd() *cobra.Command {
	var (
		flags strategyFlags
		skip  uint64
		limit uint64
	)

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Write a strategy's candidates to stdout, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := flags.spec()
			if err != nil {
				return err
			}

			strategy, err := spec.Build()
			if err != nil {
				return err
			}

			gen, err := candidate.Generate(strategy, fileSource(), skip)
			if err != nil {
				return err
			}

			defer func() {
				if err := gen.Close(); err != nil {
					appstate.Logger.Debug("Error closing candidate generator", "error", err)
				}
			}()

			w := bufio.NewWriter(cmd.OutOrStdout())

			var written uint64

			for n := uint64(0); limit == 0 || written < limit; n++ {
				if n%4096 == 0 && cmd.Context().Err() != nil {
					break
				}

				c, ok := gen.Next()
				if !ok {
					break
				}

				if !spec.Accepts(c) {
					continue
				}

				if _, err := w.WriteString(c + "\n"); err != nil {
					return err
				}

				written++
			}

			if err := gen.Err(); err != nil {
				return err
			}

			return w.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().Uint64Var(&skip, "skip", 0, "Generated candidates to skip, counted before length filtering")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "Maximum candidates to write (0 for all)")

	return cmd
}
