// Package cmd implements the bitrecover command line.
package cmd

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unclesp1d3r/bitrecover/lib/config"
)

// Version is set at build time.
var Version = "dev" //nolint:gochecknoglobals // Set by ldflags

// Execute runs the command line with ctx, which carries the process signal handling.
func Execute(ctx context.Context) error {
	return fang.Execute(ctx, NewRootCmd(), fang.WithVersion(Version))
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "bitrecover",
		Short: "Resumable BitLocker password recovery",
		Long: "bitrecover drives hashcat or John the Ripper through checkpointed attack sessions\n" +
			"against a BitLocker hash extracted with bitlocker2john.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			config.SetDefaultConfigValues()

			if err := config.InitConfig(cfgFile); err != nil {
				return err
			}

			config.SetupSharedState()
			config.InitLogger()

			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is bitrecover.yaml in the working or user config directory)")
	flags.Bool("debug", false, "Enable debug mode")
	flags.Bool("extra-debugging", false, "Log every oracle batch")
	flags.String("data-path", "", "Root directory for sessions, results and work files")

	bindFlag(rootCmd, "debug", "debug")
	bindFlag(rootCmd, "extra_debugging", "extra-debugging")
	bindFlag(rootCmd, "data_path", "data-path")

	rootCmd.AddCommand(
		newParseCmd(),
		newKeyspaceCmd(),
		newCandidatesCmd(),
		newSessionCmd(),
		newRunCmd(),
		newBenchmarkCmd(),
		newFoundCmd(),
		newFetchCmd(),
		newConfigCmd(),
	)

	return rootCmd
}

// bindFlag ties a viper key to a flag on cmd, persistent or local. Unset flags fall
// through to the config file and environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}

	cobra.CheckErr(viper.BindPFlag(key, f))
}
