package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/assemble"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/availability"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/config"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/download"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/jobs"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/layout"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/storage"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/notify"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/platforms"
)

// Harvester represents the edition harvester runtime. It owns the platform
// catalog, the availability prober, the job runner and controller, and the
// notification fanout, and drives the scheduled harvest loop.
type Harvester struct {
	cfg             *config.Config
	log             logger.Logger
	catalog         *platforms.Catalog
	store           storage.Store
	prober          *availability.Prober
	runner          *jobs.Runner
	controller      *jobs.Controller
	fanout          *notify.Fanout
	harvestInterval time.Duration
	now             func() time.Time
}

// Option customises a Harvester.
type Option func(*options)

type options struct {
	now      func() time.Time
	adapters platforms.AdapterRegistry
	engine   assemble.Engine
}

// WithClock overrides the wall clock used for scheduling and cache freshness.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAdapterRegistry replaces the resty-backed adapter registry.
func WithAdapterRegistry(reg platforms.AdapterRegistry) Option {
	return func(o *options) { o.adapters = reg }
}

// WithEngine replaces the pdfcpu assembly engine.
func WithEngine(e assemble.Engine) Option {
	return func(o *options) { o.engine = e }
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	platformReg, err := loadPlatforms(cfg.PlatformsFile, log)
	if err != nil {
		return nil, err
	}
	all := platformReg.All()
	ids := make([]string, 0, len(all))
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	log.InfoObj("platforms registry loaded", "platforms_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	if o.adapters == nil {
		o.adapters = platforms.DefaultAdapterRegistry(cfg.Timeout, log)
	}
	catalog, err := platforms.NewCatalog(platformReg, o.adapters)
	if err != nil {
		return nil, fmt.Errorf("build platform catalog: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg.NotifiersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.CacheType, cfg.CachePath, storage.Options{RecordTTL: cfg.CacheTTL})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("availability cache initialized", "storage_config", map[string]any{
		"type":        cfg.CacheType,
		"path":        cfg.CachePath,
		"ttl_seconds": int(cfg.CacheTTL.Seconds()),
	})

	h := &Harvester{
		cfg:             cfg,
		log:             log,
		catalog:         catalog,
		store:           store,
		fanout:          fanout,
		harvestInterval: cfg.HarvestInterval,
		now:             o.now,
	}

	if err := h.wire(o); err != nil {
		_ = h.Close()
		return nil, err
	}
	return h, nil
}

func (h *Harvester) wire(o options) error {
	prober, err := availability.NewProber(h.catalog, availability.NewStoreCache(h.store, h.log), h.log, availability.WithClock(h.now))
	if err != nil {
		return fmt.Errorf("build prober: %w", err)
	}

	resolver, err := layout.NewResolver(h.cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("output layout: %w", err)
	}

	engine := o.engine
	if engine == nil {
		engine = assemble.NewPDFEngine()
	}

	runner, err := jobs.NewRunner(h.catalog, resolver, assemble.NewAssembler(engine, h.log), h.log,
		jobs.WithPolicy(download.Policy{
			MaxRetries: h.cfg.MaxRetries,
			ChunkSize:  h.cfg.ChunkSize,
			RetryDelay: h.cfg.RetryDelay,
		}),
		jobs.WithResultHook(h.notifyResult),
	)
	if err != nil {
		return fmt.Errorf("build runner: %w", err)
	}

	controller, err := jobs.NewController(runner)
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}

	h.prober = prober
	h.runner = runner
	h.controller = controller
	return nil
}

// loadPlatforms reads the platforms file, falling back to the built-in
// publishers when the file does not exist.
func loadPlatforms(path string, log logger.Logger) (*platforms.Registry, error) {
	reg, err := platforms.LoadRegistry(path)
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load platforms registry: %w", err)
	}
	log.WarnObj("platforms file not found; using built-in platforms", "platforms_file", path)
	reg, err = platforms.NewRegistry(platforms.DefaultPlatforms())
	if err != nil {
		return nil, fmt.Errorf("built-in platforms: %w", err)
	}
	return reg, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*notify.Fanout, error) {
	if path == "" {
		return notify.NewFanout(nil), nil
	}
	reg, err := notify.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load notifiers registry: %w", err)
	}
	enabled := reg.Enabled()
	built, err := notify.BuildAll(ctx, notify.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build notifiers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, n := range enabled {
		summaries = append(summaries, map[string]string{"id": n.ID, "type": n.Type})
	}
	log.InfoObj("notifiers registry loaded", "notifiers_meta", map[string]any{
		"count":     len(summaries),
		"notifiers": summaries,
	})
	return notify.NewFanout(built), nil
}

// Catalog exposes the platform catalog.
func (h *Harvester) Catalog() *platforms.Catalog { return h.catalog }

// Prober exposes the availability prober.
func (h *Harvester) Prober() *availability.Prober { return h.prober }

// Controller exposes the single-active-job controller.
func (h *Harvester) Controller() *jobs.Controller { return h.controller }

// ScheduledDates lists the dates inside the probe window the platform is
// expected to publish on, most recent first.
func (h *Harvester) ScheduledDates(platformID string) ([]time.Time, error) {
	p, ok := h.catalog.Platform(platformID)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platformID)
	}
	return platforms.DatesForRange(p, h.cfg.ProbeWindowDays, h.now()), nil
}

// ProbeWindow is the configured availability window in days.
func (h *Harvester) ProbeWindow() int { return h.cfg.ProbeWindowDays }

// HarvestPlatform downloads every scheduled and available edition of the
// platform inside the probe window. Dates run oldest first. The batch is
// admitted by the controller, so it returns jobs.ErrJobActive while another
// job is running.
func (h *Harvester) HarvestPlatform(ctx context.Context, platformID string) (jobs.BatchResult, error) {
	if id, busy := h.controller.Active(); busy {
		return jobs.BatchResult{}, fmt.Errorf("harvest %s: job %s: %w", platformID, id, jobs.ErrJobActive)
	}
	scheduled, err := h.ScheduledDates(platformID)
	if err != nil {
		return jobs.BatchResult{}, err
	}

	available := make(map[string]bool)
	for _, d := range h.prober.Available(ctx, platformID, h.cfg.ProbeWindowDays) {
		available[domain.FormatDay(d)] = true
	}

	var dates []time.Time
	for i := len(scheduled) - 1; i >= 0; i-- {
		if available[domain.FormatDay(scheduled[i])] {
			dates = append(dates, scheduled[i])
		}
	}
	if len(dates) == 0 {
		h.log.InfoObj("no editions available", "harvest", map[string]any{
			"platform":  platformID,
			"scheduled": len(scheduled),
		})
		return jobs.BatchResult{PlatformID: platformID}, nil
	}

	br, err := h.controller.RunBatch(ctx, platformID, dates)
	if err != nil {
		return jobs.BatchResult{}, fmt.Errorf("harvest %s: %w", platformID, err)
	}
	return br, nil
}

// Run starts the harvest loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.runner == nil {
		return fmt.Errorf("harvester is not initialized")
	}

	enabled := h.catalog.Enabled()
	if len(enabled) == 0 {
		h.log.WarnObj("no platforms enabled; harvester idle", "platforms_file", h.cfg.PlatformsFile)
		<-ctx.Done()
		return nil
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"platforms_count": len(enabled),
		"notifiers_count": h.fanout.Size(),
		"interval":        h.harvestInterval.String(),
		"window_days":     h.cfg.ProbeWindowDays,
	})

	h.runOnce(ctx, enabled)

	ticker := time.NewTicker(h.harvestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			h.runOnce(ctx, h.catalog.Enabled())
		}
	}
}

// runOnce harvests every enabled platform in turn.
func (h *Harvester) runOnce(ctx context.Context, enabled []platforms.Platform) {
	start := h.now()
	var succeeded, failed int
	for _, p := range enabled {
		if ctx.Err() != nil {
			return
		}
		br, err := h.HarvestPlatform(ctx, p.ID)
		if errors.Is(err, jobs.ErrJobActive) {
			h.log.InfoObj("harvest skipped; another job is running", "harvest", map[string]any{"platform": p.ID})
			continue
		}
		if err != nil {
			h.log.ErrorObj("harvest failed", "harvest", map[string]any{"platform": p.ID, "error": err.Error()})
			continue
		}
		succeeded += br.Succeeded
		failed += br.Failed
	}
	h.log.InfoObj("harvest pass completed", "harvest_meta", map[string]any{
		"platforms_count": len(enabled),
		"succeeded":       succeeded,
		"failed":          failed,
		"elapsed_ms":      h.now().Sub(start).Milliseconds(),
	})
}

func (h *Harvester) notifyResult(ctx context.Context, r jobs.Result) {
	if h.fanout.Size() == 0 {
		return
	}
	evt := notify.Event{
		JobID:      r.JobID,
		PlatformID: r.PlatformID,
		Date:       domain.FormatDay(r.Date),
		State:      r.State.String(),
		Reason:     r.Reason(),
		Skipped:    r.Skipped,
		OutputPath: r.OutputPath,
		Pages:      r.Pages,
		SizeBytes:  r.Size,
		FinishedAt: h.now().UTC(),
	}
	delivered, err := h.fanout.Notify(ctx, evt)
	if err != nil {
		h.log.WarnObj("job notification incomplete", "notify", map[string]any{
			"job_id":    r.JobID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
}

// Close releases the notifiers and the availability store.
func (h *Harvester) Close() error {
	if h == nil {
		return nil
	}
	var errs []error
	if err := h.fanout.Close(); err != nil {
		errs = append(errs, err)
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage close: %w", err))
		}
	}
	return errors.Join(errs...)
}
