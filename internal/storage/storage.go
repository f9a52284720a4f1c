// Package storage persists availability probe records per platform.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Record is the last probe outcome for one platform.
type Record struct {
	Dates      []time.Time `json:"dates"`
	ProbedAt   time.Time   `json:"probed_at"`
	WindowDays int         `json:"window_days"`
}

// Store keeps one Record per platform id. Records past the retention TTL are
// dropped on read and swept periodically.
type Store interface {
	Close() error
	Load(platformID string) (Record, bool, error)
	Save(platformID string, rec Record) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                      { return nil }
func (noopStore) Load(string) (Record, bool, error) { return Record{}, false, nil }
func (noopStore) Save(string, Record) error         { return nil }
