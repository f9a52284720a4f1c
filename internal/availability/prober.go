// Package availability answers which recent dates a platform has published,
// probing the adapter and caching the answer for a day.
package availability

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
	"github.com/samvad-hq/samvad-epaper-harvester/internal/logger"
	"github.com/samvad-hq/samvad-epaper-harvester/pkg/platforms"
)

// MaxAge is how long a probe result is served from cache.
const MaxAge = 24 * time.Hour

// DefaultWindowDays is the probe window used when callers pass 0.
const DefaultWindowDays = 7

// Entry is the probe result for one platform.
type Entry struct {
	Dates      []time.Time
	ProbedAt   time.Time
	WindowDays int
}

// Fresh reports whether the entry may still be served at now.
func (e Entry) Fresh(now time.Time) bool {
	return !e.ProbedAt.IsZero() && now.Sub(e.ProbedAt) < MaxAge
}

// Covers reports whether the entry was probed over at least windowDays days.
func (e Entry) Covers(windowDays int) bool {
	return e.WindowDays >= windowDays
}

// within returns the dates no older than windowDays days before today.
func (e Entry) within(today time.Time, windowDays int) []time.Time {
	oldest := today.AddDate(0, 0, -(windowDays - 1))
	out := make([]time.Time, 0, len(e.Dates))
	for _, d := range e.Dates {
		if !d.Before(oldest) {
			out = append(out, d)
		}
	}
	return out
}

// Cache holds one Entry per platform id.
type Cache interface {
	Get(platformID string) (Entry, bool)
	Put(platformID string, e Entry)
}

// AdapterSource instantiates the adapter for a platform id.
type AdapterSource interface {
	Adapter(id string) (platforms.Adapter, error)
}

// Prober probes publisher availability.
type Prober struct {
	adapters AdapterSource
	cache    Cache
	log      logger.Logger
	now      func() time.Time
}

// Option configures a Prober.
type Option func(*Prober)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProber builds a prober; a nil cache disables caching.
func NewProber(adapters AdapterSource, cache Cache, log logger.Logger, opts ...Option) (*Prober, error) {
	if adapters == nil {
		return nil, errors.New("availability: adapter source is nil")
	}
	if cache == nil {
		cache = nopCache{}
	}
	p := &Prober{adapters: adapters, cache: cache, log: logger.Ensure(log), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Probe checks each of the last windowDays days, most recent first, and
// records the dates whose edition has pages. Every day is probed even after
// a miss; the cache entry is replaced as a whole.
func (p *Prober) Probe(ctx context.Context, platformID string, windowDays int) []time.Time {
	if p == nil {
		return nil
	}
	platformID = strings.TrimSpace(platformID)
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	adapter, err := p.adapters.Adapter(platformID)
	if err != nil {
		p.log.WarnObj("availability probe skipped", "availability", map[string]any{
			"platform": platformID,
			"error":    err.Error(),
		})
		return nil
	}

	now := p.now()
	today := domain.Day(now)
	dates := make([]time.Time, 0, windowDays)
	for i := 0; i < windowDays; i++ {
		if ctx.Err() != nil {
			break
		}
		day := today.AddDate(0, 0, -i)
		ed, ok := adapter.ResolveEdition(ctx, day)
		if ok && !ed.Empty() {
			dates = append(dates, day)
		}
	}

	if ctx.Err() == nil {
		p.cache.Put(platformID, Entry{Dates: dates, ProbedAt: now, WindowDays: windowDays})
	}
	p.log.InfoObj("availability probed", "availability", map[string]any{
		"platform":  platformID,
		"window":    windowDays,
		"available": len(dates),
	})
	return dates
}

// Available serves a cached entry younger than MaxAge that was probed over
// at least windowDays days, trimmed to that window. Anything else reprobes.
func (p *Prober) Available(ctx context.Context, platformID string, windowDays int) []time.Time {
	if p == nil {
		return nil
	}
	platformID = strings.TrimSpace(platformID)
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	now := p.now()
	if e, ok := p.cache.Get(platformID); ok && e.Fresh(now) && e.Covers(windowDays) {
		p.log.DebugObj("availability cache hit", "availability", map[string]any{
			"platform":  platformID,
			"probed_at": e.ProbedAt,
			"window":    e.WindowDays,
		})
		return e.within(domain.Day(now), windowDays)
	}
	return p.Probe(ctx, platformID, windowDays)
}

type nopCache struct{}

func (nopCache) Get(string) (Entry, bool) { return Entry{}, false }
func (nopCache) Put(string, Entry)        {}
