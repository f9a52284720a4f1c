package jobs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/download"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/layout"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/platforms"
)

// AdapterSource instantiates the adapter for a platform id.
type AdapterSource interface {
	Adapter(id string) (platforms.Adapter, error)
}

// Assembler merges fetched pages into the final artifact.
type Assembler interface {
	Assemble(ctx context.Context, kind domain.Kind, pages []domain.PageFetchResult, outputPath string) error
}

// ResultHook observes every terminal single-edition result, batch
// sub-jobs included.
type ResultHook func(ctx context.Context, r Result)

// Runner executes jobs synchronously on the calling goroutine.
type Runner struct {
	adapters  AdapterSource
	layout    *layout.Resolver
	assembler Assembler
	policy    download.Policy
	log       logger.Logger
	hooks     []ResultHook

	adapterMu sync.Mutex
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithPolicy sets the per-page download policy.
func WithPolicy(p download.Policy) RunnerOption {
	return func(r *Runner) { r.policy = p }
}

// WithResultHook registers a hook called after each edition finishes.
func WithResultHook(h ResultHook) RunnerOption {
	return func(r *Runner) {
		if h != nil {
			r.hooks = append(r.hooks, h)
		}
	}
}

// NewRunner wires a Runner.
func NewRunner(adapters AdapterSource, resolver *layout.Resolver, assembler Assembler, log logger.Logger, opts ...RunnerOption) (*Runner, error) {
	if adapters == nil {
		return nil, errors.New("jobs: adapter source is nil")
	}
	if resolver == nil {
		return nil, errors.New("jobs: layout resolver is nil")
	}
	if assembler == nil {
		return nil, errors.New("jobs: assembler is nil")
	}
	r := &Runner{
		adapters:  adapters,
		layout:    resolver,
		assembler: assembler,
		policy:    download.DefaultPolicy(),
		log:       logger.Ensure(log),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// run carries the per-job context through the single-edition pipeline.
type run struct {
	r      *Runner
	job    domain.Job
	token  *CancelToken
	sink   EventSink
	result Result
}

func (x *run) state(s State) {
	x.result.State = s
	x.sink.emit(Event{Kind: EventState, JobID: x.job.ID, PlatformID: x.job.PlatformID, State: s})
}

func (x *run) logf(level string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fields := map[string]any{
		"job_id":   x.job.ID,
		"platform": x.job.PlatformID,
		"date":     domain.FormatDay(x.result.Date),
		"message":  msg,
	}
	switch level {
	case "error":
		x.r.log.ErrorObj("job", "job", fields)
	case "warn":
		x.r.log.WarnObj("job", "job", fields)
	case "debug":
		x.r.log.DebugObj("job", "job", fields)
	default:
		level = "info"
		x.r.log.InfoObj("job", "job", fields)
	}
	x.sink.emit(Event{Kind: EventLog, JobID: x.job.ID, PlatformID: x.job.PlatformID, Level: level, Message: msg})
}

func (x *run) fail(err error) Result {
	x.result.Err = err
	x.state(StateFailed)
	return x.result
}

func (x *run) cancel() Result {
	x.result.Err = nil
	x.logf("info", "cancelled")
	x.state(StateCancelled)
	return x.result
}

func (x *run) stopped(ctx context.Context) bool {
	return x.token.Cancelled() || ctx.Err() != nil
}

// Run executes a single-edition job. job.Dates holds at most one date; none
// or a zero date means the latest edition.
func (r *Runner) Run(ctx context.Context, job domain.Job, token *CancelToken, sink EventSink) Result {
	var day time.Time
	if len(job.Dates) > 0 {
		day = job.Dates[0]
	}
	res := r.runEdition(ctx, job, day, token, sink)
	r.finished(ctx, res)
	return res
}

func (r *Runner) runEdition(ctx context.Context, job domain.Job, day time.Time, token *CancelToken, sink EventSink) Result {
	x := &run{
		r:     r,
		job:   job,
		token: token,
		sink:  sink,
		result: Result{
			JobID:      job.ID,
			PlatformID: job.PlatformID,
			Date:       domain.Day(day),
			State:      StateIdle,
		},
	}

	if x.stopped(ctx) {
		return x.cancel()
	}
	x.state(StateResolving)

	adapter, err := r.adapter(job.PlatformID)
	if err != nil {
		x.logf("error", "%v", err)
		return x.fail(err)
	}

	ed, ok := adapter.ResolveEdition(ctx, x.result.Date)
	if !ok || ed.Empty() {
		x.logf("warn", "no edition found")
		return x.fail(ErrNoEdition)
	}
	if !ed.Date.IsZero() {
		x.result.Date = domain.Day(ed.Date)
	}
	x.result.Discovered = len(ed.PageURLs)
	name := adapter.Name()

	if r.layout.Exists(name, x.result.Date) {
		x.result.OutputPath = r.layout.Path(name, x.result.Date)
		x.result.Skipped = true
		x.result.Size = layout.FileSize(x.result.OutputPath)
		x.logf("info", "already downloaded: %s", x.result.OutputPath)
		x.state(StateDone)
		return x.result
	}

	if x.stopped(ctx) {
		return x.cancel()
	}

	out, err := r.layout.OutputPath(name, x.result.Date)
	if err != nil {
		x.logf("error", "%v", err)
		return x.fail(err)
	}
	tmp, err := r.layout.TempDir(name, x.result.Date)
	if err != nil {
		x.logf("error", "%v", err)
		return x.fail(err)
	}
	defer func() {
		if err := r.layout.CleanupTempDir(name, x.result.Date); err != nil {
			x.logf("warn", "%v", err)
		}
	}()

	fetcher, err := download.NewFetcher(adapter.Session(), r.policy, r.log)
	if err != nil {
		x.logf("error", "%v", err)
		return x.fail(err)
	}

	x.state(StateFetching)
	kind := ed.Kind()
	total := len(ed.PageURLs)
	pages := make([]domain.PageFetchResult, 0, total)
	fetched := 0
	for i, pageURL := range ed.PageURLs {
		if x.stopped(ctx) {
			return x.cancel()
		}
		index := i + 1
		dest := filepath.Join(tmp, fmt.Sprintf("page_%02d%s", index, kind.Ext()))
		ok := fetcher.Fetch(ctx, pageURL, dest, func(p domain.ProgressEvent) {
			sink.emit(Event{Kind: EventProgress, JobID: job.ID, PlatformID: job.PlatformID, Progress: p, Page: index, Pages: total})
		})
		pages = append(pages, domain.PageFetchResult{Index: index, Path: dest, OK: ok})
		if !ok {
			x.logf("warn", "page %d/%d failed: %s", index, total, pageURL)
			continue
		}
		fetched++
	}

	if fetched == 0 {
		x.logf("error", "no pages retrieved")
		return x.fail(ErrNoPages)
	}
	if x.stopped(ctx) {
		return x.cancel()
	}

	x.state(StateAssembling)
	if err := r.assembler.Assemble(ctx, kind, pages, out); err != nil {
		mergeErr := fmt.Errorf("%w: %v", ErrMerge, err)
		x.logf("error", "%v", mergeErr)
		return x.fail(mergeErr)
	}

	x.result.OutputPath = out
	x.result.Pages = fetched
	x.result.Size = layout.FileSize(out)
	x.logf("info", "saved %s (%d/%d pages, %s)", out, fetched, total, layout.FormatSize(x.result.Size))
	x.state(StateDone)
	return x.result
}

// adapter instantiates under a mutex so concurrent submissions never share
// a half-built session.
func (r *Runner) adapter(platformID string) (platforms.Adapter, error) {
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return nil, errors.New("platform id is empty")
	}
	r.adapterMu.Lock()
	defer r.adapterMu.Unlock()
	return r.adapters.Adapter(platformID)
}

func (r *Runner) finished(ctx context.Context, res Result) {
	for _, h := range r.hooks {
		h(ctx, res)
	}
}

// RunBatch runs job.Dates strictly in order as independent single-edition
// sub-jobs. Cancellation is checked before each date.
func (r *Runner) RunBatch(ctx context.Context, job domain.Job, token *CancelToken, sink EventSink) BatchResult {
	br := BatchResult{JobID: job.ID, PlatformID: job.PlatformID}
	total := len(job.Dates)

	for i, day := range job.Dates {
		if token.Cancelled() || ctx.Err() != nil {
			br.Cancelled = true
			break
		}
		sink.emit(Event{Kind: EventDateProgress, JobID: job.ID, PlatformID: job.PlatformID, Index: i + 1, Total: total, Date: domain.Day(day)})

		res := r.runEdition(ctx, job, day, token, sink)
		r.finished(ctx, res)
		br.Results = append(br.Results, res)

		switch res.State {
		case StateDone:
			br.Succeeded++
			if res.Skipped {
				br.Skipped++
			}
		case StateCancelled:
			br.Cancelled = true
		default:
			br.Failed++
		}
		if br.Cancelled {
			break
		}
	}

	r.log.InfoObj("batch finished", "job", map[string]any{
		"job_id":    job.ID,
		"platform":  job.PlatformID,
		"dates":     total,
		"succeeded": br.Succeeded,
		"failed":    br.Failed,
		"skipped":   br.Skipped,
		"cancelled": br.Cancelled,
	})
	return br
}
