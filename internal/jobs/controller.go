package jobs

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

const defaultEventBuffer = 256

// Controller admits one job at a time and runs it on its own goroutine.
// Events are delivered on a buffered channel; when the buffer is full the
// event is dropped rather than stalling the job. The completion event is
// never dropped: older events are evicted to make room for it.
type Controller struct {
	runner *Runner
	events chan Event
	newID  func() string

	mu     sync.Mutex
	active *activeJob
}

type activeJob struct {
	id    string
	token *CancelToken
	done  chan struct{}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithEventBuffer sizes the event channel.
func WithEventBuffer(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.events = make(chan Event, n)
		}
	}
}

// WithIDGenerator replaces the uuid job id generator.
func WithIDGenerator(fn func() string) ControllerOption {
	return func(c *Controller) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewController returns a Controller over runner.
func NewController(runner *Runner, opts ...ControllerOption) (*Controller, error) {
	if runner == nil {
		return nil, errors.New("jobs: runner is nil")
	}
	c := &Controller{
		runner: runner,
		events: make(chan Event, defaultEventBuffer),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Events is the stream of events of every job started by this controller.
func (c *Controller) Events() <-chan Event {
	return c.events
}

func (c *Controller) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}

// publishTerminal delivers ev even when the buffer is full by evicting the
// oldest buffered events. Only the active job produces events, so the loop
// ends once a slot is free.
func (c *Controller) publishTerminal(ev Event) {
	for {
		select {
		case c.events <- ev:
			return
		default:
		}
		select {
		case <-c.events:
		default:
		}
	}
}

// Start runs a single-edition job for day (zero = latest).
func (c *Controller) Start(ctx context.Context, platformID string, day time.Time) (string, error) {
	var dates []time.Time
	if !day.IsZero() {
		dates = []time.Time{domain.Day(day)}
	}
	return c.start(ctx, platformID, dates, false)
}

// StartBatch runs a batch over days in the given order.
func (c *Controller) StartBatch(ctx context.Context, platformID string, days []time.Time) (string, error) {
	if len(days) == 0 {
		return "", errors.New("batch needs at least one date")
	}
	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		dates = append(dates, domain.Day(d))
	}
	return c.start(ctx, platformID, dates, true)
}

func (c *Controller) start(ctx context.Context, platformID string, dates []time.Time, batch bool) (string, error) {
	if c == nil {
		return "", errors.New("controller is nil")
	}
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return "", errors.New("platform id is empty")
	}

	job, a, err := c.admit(platformID, dates, batch)
	if err != nil {
		return "", err
	}
	go c.work(ctx, job, a)
	return job.ID, nil
}

// admit claims the single active-job slot.
func (c *Controller) admit(platformID string, dates []time.Time, batch bool) (domain.Job, *activeJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return domain.Job{}, nil, ErrJobActive
	}

	job := domain.Job{
		ID:         c.newID(),
		PlatformID: platformID,
		Dates:      dates,
		Batch:      batch,
	}
	a := &activeJob{id: job.ID, token: &CancelToken{}, done: make(chan struct{})}
	c.active = a
	return job, a, nil
}

func (c *Controller) release(a *activeJob) {
	c.mu.Lock()
	if c.active == a {
		c.active = nil
	}
	c.mu.Unlock()
	close(a.done)
}

// RunBatch runs a batch on the calling goroutine under the same admission
// rule as Start: it returns ErrJobActive while another job is running.
// Events are not published; the result is returned instead. Cancel stops it
// like any other job.
func (c *Controller) RunBatch(ctx context.Context, platformID string, days []time.Time) (BatchResult, error) {
	if c == nil {
		return BatchResult{}, errors.New("controller is nil")
	}
	platformID = strings.TrimSpace(platformID)
	if platformID == "" {
		return BatchResult{}, errors.New("platform id is empty")
	}
	if len(days) == 0 {
		return BatchResult{}, errors.New("batch needs at least one date")
	}
	dates := make([]time.Time, 0, len(days))
	for _, d := range days {
		dates = append(dates, domain.Day(d))
	}

	job, a, err := c.admit(platformID, dates, true)
	if err != nil {
		return BatchResult{}, err
	}
	defer c.release(a)
	return c.runner.RunBatch(ctx, job, a.token, nil), nil
}

func (c *Controller) work(ctx context.Context, job domain.Job, a *activeJob) {
	defer c.release(a)

	sink := EventSink(c.publish)
	if job.Batch {
		br := c.runner.RunBatch(ctx, job, a.token, sink)
		c.publishTerminal(Event{Kind: EventCompleted, JobID: job.ID, PlatformID: job.PlatformID, Time: time.Now(), Batch: &br})
		return
	}
	res := c.runner.Run(ctx, job, a.token, sink)
	c.publishTerminal(Event{Kind: EventCompleted, JobID: job.ID, PlatformID: job.PlatformID, Time: time.Now(), State: res.State, Result: &res})
}

// Cancel asks the active job to stop at its next checkpoint. It reports
// whether a job was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return false
	}
	c.active.token.Cancel()
	return true
}

// Active returns the id of the running job, if any.
func (c *Controller) Active() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", false
	}
	return c.active.id, true
}

// Wait blocks until no job is running or ctx ends.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	a := c.active
	c.mu.Unlock()
	if a == nil {
		return nil
	}
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
