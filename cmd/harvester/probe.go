package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/app"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

var probeCmd = &cobra.Command{
	Use:   "probe <platform>",
	Short: "List dates with an edition in the availability window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, _ := cmd.Flags().GetInt("window")
		refresh, _ := cmd.Flags().GetBool("refresh")
		return withHarvester(cmd, func(ctx context.Context, h *app.Harvester) error {
			if window <= 0 {
				window = h.ProbeWindow()
			}
			var dates []time.Time
			if refresh {
				dates = h.Prober().Probe(ctx, args[0], window)
			} else {
				dates = h.Prober().Available(ctx, args[0], window)
			}
			if len(dates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no editions available")
				return nil
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), domain.FormatDay(d))
			}
			return nil
		})
	},
}

var datesCmd = &cobra.Command{
	Use:   "dates <platform>",
	Short: "List the dates a platform is scheduled to publish in the probe window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHarvester(cmd, func(_ context.Context, h *app.Harvester) error {
			dates, err := h.ScheduledDates(args[0])
			if err != nil {
				return err
			}
			for _, d := range dates {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", domain.FormatDay(d), d.Weekday())
			}
			return nil
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest every enabled platform on the configured interval",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHarvester(cmd, func(ctx context.Context, h *app.Harvester) error {
			if err := h.Run(ctx); err != nil {
				return fmt.Errorf("harvester run: %w", err)
			}
			return nil
		})
	},
}

func init() {
	probeCmd.Flags().Int("window", 0, "days to check (default: probe_window_days)")
	probeCmd.Flags().Bool("refresh", false, "ignore the cached result")
	rootCmd.AddCommand(probeCmd, datesCmd, runCmd)
}
