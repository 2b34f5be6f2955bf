package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/lib/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var (
		path  string
		force bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to a config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			written, err := config.WriteDefaultConfig(path, force)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), written)

			return nil
		},
	}

	initCmd.Flags().StringVar(&path, "path", "", "Where to write the file (default is the user config directory)")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)

	return cmd
}
