package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/app"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/config"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "Download daily newspaper editions as a single PDF",
	Long: `harvester discovers the page documents or page scans a newspaper publishes
for a date, downloads them with retries and merges them into one PDF per
edition under the output directory. Existing editions are skipped.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("output-dir", "", "root directory for downloaded editions")
	pf.String("platforms-file", "", "platforms registry (YAML or JSON)")
	pf.String("notifiers-file", "", "notifiers registry (YAML or JSON)")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.Int("max-retries", 0, "download attempts per page")
	pf.Int64("timeout-seconds", 0, "HTTP timeout per request")
	pf.String("cache-type", "", "availability cache backend: bbolt, memory or none")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "harvester: %v\n", err)
		os.Exit(1)
	}
}

// withHarvester loads config from env and flags, builds the runtime and runs
// fn with a context cancelled on SIGINT/SIGTERM.
func withHarvester(cmd *cobra.Command, fn func(ctx context.Context, h *app.Harvester) error) error {
	cfg, err := config.LoadWithFlags(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, err := app.NewHarvester(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize harvester", "error", err)
		return err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			logger.ErrorObj("harvester close failed", "error", cerr)
		}
	}()

	return fn(ctx, h)
}
