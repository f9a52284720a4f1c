package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/app"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/jobs"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <platform>",
	Short: "Download one edition (latest unless --date is given)",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().String("date", "", "edition date YYYY-MM-DD (default: latest)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	var day time.Time
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		d, err := domain.ParseDay(raw)
		if err != nil {
			return err
		}
		day = d
	}

	return withHarvester(cmd, func(ctx context.Context, h *app.Harvester) error {
		ctrl := h.Controller()
		if _, err := ctrl.Start(context.WithoutCancel(ctx), args[0], day); err != nil {
			return err
		}
		done := follow(ctx, ctrl, cmd.OutOrStdout())
		if done.Result == nil {
			return nil
		}
		if done.Result.State != jobs.StateDone {
			return fmt.Errorf("%s %s: %s", done.Result.PlatformID, domain.FormatDay(done.Result.Date), done.Result.Reason())
		}
		return nil
	})
}

// follow prints controller events until the active job completes. A signal
// on ctx requests cancellation; the job stops at its next checkpoint.
func follow(ctx context.Context, ctrl *jobs.Controller, w io.Writer) jobs.Event {
	cancelled := false
	for {
		select {
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				if ctrl.Cancel() {
					fmt.Fprintln(w, "cancelling...")
				}
			}
			ctx = context.Background()
		case ev := <-ctrl.Events():
			printEvent(w, ev)
			if ev.Kind == jobs.EventCompleted {
				return ev
			}
		}
	}
}

func printEvent(w io.Writer, ev jobs.Event) {
	switch ev.Kind {
	case jobs.EventLog:
		fmt.Fprintf(w, "[%s] %s\n", ev.Level, ev.Message)
	case jobs.EventState:
		fmt.Fprintf(w, "state: %s\n", ev.State)
	case jobs.EventProgress:
		if ev.Progress.Phase == domain.PhaseCompleted {
			fmt.Fprintf(w, "page %d/%d downloaded\n", ev.Page, ev.Pages)
		}
	case jobs.EventDateProgress:
		fmt.Fprintf(w, "date %d/%d: %s\n", ev.Index, ev.Total, domain.FormatDay(ev.Date))
	case jobs.EventCompleted:
		switch {
		case ev.Batch != nil:
			b := ev.Batch
			fmt.Fprintf(w, "batch finished: %d succeeded (%d skipped), %d failed, cancelled=%t\n",
				b.Succeeded, b.Skipped, b.Failed, b.Cancelled)
		case ev.Result != nil:
			r := ev.Result
			if r.State == jobs.StateDone {
				fmt.Fprintf(w, "done: %s\n", r.OutputPath)
			} else {
				fmt.Fprintf(w, "%s: %s\n", r.State, r.Reason())
			}
		}
	}
}
