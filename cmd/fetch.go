package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/lib/cracker"
	"github.com/unclesp1d3r/bitrecover/lib/downloader"
)

func newFetchCmd() *cobra.Command {
	var checksum string

	cmd := &cobra.Command{
		Use:   "fetch <url> [name]",
		Short: "Download a wordlist or rule file into the files directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var name string
			if len(args) == 2 {
				name = args[1]
			}

			dest, err := downloader.Destination(args[0], name)
			if err != nil {
				return err
			}

			if err := cracker.CreateDataDirs(); err != nil {
				return err
			}

			if err := downloader.DownloadFile(cmd.Context(), args[0], dest, checksum); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), dest)

			return nil
		},
	}

	cmd.Flags().StringVar(&checksum, "md5", "", "Expected MD5 checksum of the file")

	return cmd
}
