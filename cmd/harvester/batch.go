package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/app"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/platforms"
)

var batchCmd = &cobra.Command{
	Use:   "batch <platform>",
	Short: "Download a range of editions",
	Long: `batch downloads every date from --from to --to inclusive, or the platform's
scheduled dates among the last --days days. Dates run one after another and a
failed date does not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().String("from", "", "first date YYYY-MM-DD")
	batchCmd.Flags().String("to", "", "last date YYYY-MM-DD (default: today)")
	batchCmd.Flags().Int("days", 0, "scheduled dates in the last N days")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	days, _ := cmd.Flags().GetInt("days")
	if (from == "") == (days <= 0) {
		return errors.New("give either --from (with optional --to) or --days")
	}

	return withHarvester(cmd, func(ctx context.Context, h *app.Harvester) error {
		var dates []time.Time
		if days > 0 {
			p, ok := h.Catalog().Platform(args[0])
			if !ok {
				return fmt.Errorf("unknown platform %q", args[0])
			}
			dates = platforms.DatesForRange(p, days, time.Now())
		} else {
			var err error
			if dates, err = dateRange(from, to, time.Now()); err != nil {
				return err
			}
		}
		if len(dates) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no scheduled dates in range")
			return nil
		}

		ctrl := h.Controller()
		if _, err := ctrl.StartBatch(context.WithoutCancel(ctx), args[0], dates); err != nil {
			return err
		}
		done := follow(ctx, ctrl, cmd.OutOrStdout())
		if done.Batch != nil && done.Batch.Failed > 0 {
			return fmt.Errorf("%d of %d dates failed", done.Batch.Failed, len(dates))
		}
		return nil
	})
}

// dateRange lists the days from..to inclusive in ascending order. An empty
// to means today.
func dateRange(from, to string, now time.Time) ([]time.Time, error) {
	start, err := domain.ParseDay(from)
	if err != nil {
		return nil, err
	}
	end := domain.Day(now)
	if to != "" {
		if end, err = domain.ParseDay(to); err != nil {
			return nil, err
		}
	}
	if end.Before(start) {
		return nil, fmt.Errorf("--to %s is before --from %s", domain.FormatDay(end), domain.FormatDay(start))
	}
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}
