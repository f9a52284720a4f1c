package storage

import (
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	rec     Record
	expires time.Time
}

// memoryStore keeps records for the life of the process.
type memoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	recordTTL time.Duration
	now       func() time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{
		entries:   make(map[string]memoryEntry),
		recordTTL: opts.RecordTTL,
		now:       time.Now,
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Load(platformID string) (Record, bool, error) {
	key := strings.TrimSpace(platformID)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Record{}, false, nil
	}
	if !e.expires.After(m.now()) {
		delete(m.entries, key)
		return Record{}, false, nil
	}
	rec := e.rec
	rec.Dates = append([]time.Time(nil), e.rec.Dates...)
	return rec, true, nil
}

func (m *memoryStore) Save(platformID string, rec Record) error {
	key := strings.TrimSpace(platformID)

	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Dates = append([]time.Time(nil), rec.Dates...)
	m.entries[key] = memoryEntry{rec: rec, expires: m.now().Add(m.recordTTL)}
	return nil
}
