package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/lib/hashrecord"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <hash|file>",
		Short: "Validate a BitLocker hash and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := hashrecord.ParseArg(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "mode:        %d (%s)\n", record.Mode(), record.Mode())
			_, _ = fmt.Fprintf(out, "iterations:  %d\n", record.Iterations())
			_, _ = fmt.Fprintf(out, "salt:        %d bytes\n", len(record.Salt()))
			_, _ = fmt.Fprintf(out, "nonce:       %d bytes\n", len(record.Nonce()))
			_, _ = fmt.Fprintf(out, "payload:     %d bytes\n", len(record.Payload()))
			_, _ = fmt.Fprintf(out, "fingerprint: %s\n", record.Fingerprint())
			_, _ = fmt.Fprintln(out, record.String())

			return nil
		},
	}
}
