package cmd

import (
	"fmt"
	"math/big"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/unclesp1d3r/bitrecover/appstate"
	"github.com/unclesp1d3r/bitrecover/lib/benchmark"
	"github.com/unclesp1d3r/bitrecover/lib/cracker"
	"github.com/unclesp1d3r/bitrecover/lib/hashcat"
	"github.com/unclesp1d3r/bitrecover/lib/session"
)

func newBenchmarkCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Measure hashcat's BitLocker speed on this machine",
		Long: "Runs hashcat's mode 22100 benchmark and caches the result. Session listings use the\n" +
			"cached speed to estimate time remaining.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := benchmark.LoadCache()
			if err != nil {
				return err
			}

			if force || results == nil {
				binary, err := cracker.FindHashcatBinary()
				if err != nil {
					return err
				}

				results, err = benchmark.Run(cmd.Context(), hashcat.Params{
					Binary:           binary,
					OptimizedKernels: appstate.State.OptimizedKernels,
					BackendDevices:   appstate.State.BackendDevices,
				})
				if err != nil {
					return err
				}

				if err := benchmark.SaveCache(results); err != nil {
					appstate.Logger.Warn("Failed to cache benchmark results", "error", err)
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "DEVICE\tSPEED")

			for _, r := range results {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", r.Device, humanize.SI(r.SpeedHs, "H/s"))
			}

			_, _ = fmt.Fprintf(w, "total\t%s\n", humanize.SI(benchmark.TotalSpeed(results), "H/s"))

			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-run even when a cached result exists")

	return cmd
}

// cachedSpeed returns the cached total benchmark speed, or zero.
func cachedSpeed() float64 {
	results, err := benchmark.LoadCache()
	if err != nil {
		appstate.Logger.Debug("Benchmark cache unavailable", "error", err)

		return 0
	}

	return benchmark.TotalSpeed(results)
}

// estimate formats the time left for s at speed, or "-" when it cannot be estimated.
func estimate(s *session.Session, keyspace *big.Int, speed float64) string {
	if s.Status.Terminal() || keyspace == nil {
		return "-"
	}

	remaining := new(big.Int).Sub(keyspace, new(big.Int).SetUint64(s.Checkpoint))
	if remaining.Sign() < 0 {
		remaining.SetInt64(0)
	}

	eta, ok := benchmark.ETA(remaining, speed)
	if !ok {
		return "-"
	}

	return eta.Round(time.Second).String()
}
