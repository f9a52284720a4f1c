package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/app"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List configured platforms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		enabledOnly, _ := cmd.Flags().GetBool("enabled")
		return withHarvester(cmd, func(_ context.Context, h *app.Harvester) error {
			list := h.Catalog().All()
			if enabledOnly {
				list = h.Catalog().Enabled()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tENABLED\tUPDATE DAYS")
			for _, p := range list {
				days := "daily"
				if len(p.UpdateDays) > 0 {
					days = strings.Join(p.UpdateDays, ",")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", p.ID, p.Name, p.Type, p.EnabledValue(), days)
			}
			return w.Flush()
		})
	},
}

func init() {
	platformsCmd.Flags().Bool("enabled", false, "only list enabled platforms")
	rootCmd.AddCommand(platformsCmd)
}
