package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/lib/candidate"
	"github.com/unclesp1d3r/bitrecover/lib/display"
)

func newKeyspaceCmd() *cobra.Command {
	var flags strategyFlags

	cmd := &cobra.Command{
		Use:   "keyspace",
		Short: "Count the candidates a strategy yields",
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

			size, err := candidate.Keyspace(strategy, fileSource())
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", strategy.Describe(), display.Keyspace(size))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), size.String())

			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
