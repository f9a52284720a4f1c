package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func sampleRecord(now time.Time) Record {
	return Record{
		Dates: []time.Time{
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC),
		},
		ProbedAt:   now.UTC().Truncate(time.Second),
		WindowDays: 7,
	}
}

func TestBoltStoreSavesAndExpiresRecords(t *testing.T) {
	opts := Options{
		RecordTTL:       time.Hour,
		CleanupInterval: time.Hour,
	}

	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "nested", "cache.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	store.lastCleanup.Store(now.Unix())

	if _, found, err := store.Load("rmrb"); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}

	if err := store.Save("rmrb", sampleRecord(now)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, found, err := store.Load("rmrb")
	if err != nil || !found {
		t.Fatalf("expected record, found=%v err=%v", found, err)
	}
	if len(rec.Dates) != 2 || !rec.Dates[0].Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected dates %v", rec.Dates)
	}
	if !rec.ProbedAt.Equal(now) {
		t.Fatalf("ProbedAt = %v, want %v", rec.ProbedAt, now)
	}
	if rec.WindowDays != 7 {
		t.Fatalf("WindowDays = %d, want 7", rec.WindowDays)
	}

	// Past the TTL the record is gone whether or not the sweep ran.
	now = now.Add(2 * time.Hour)
	if _, found, err := store.Load("rmrb"); err != nil || found {
		t.Fatalf("expected expired record, found=%v err=%v", found, err)
	}
}

func TestBoltStoreCleanupSweepsExpired(t *testing.T) {
	storeRaw, err := openBolt(filepath.Join(t.TempDir(), "cache.db"), Options{RecordTTL: time.Minute, CleanupInterval: time.Minute})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }
	if err := store.Save("a", sampleRecord(now)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := store.maybeCleanupExpired(now); err != nil {
		t.Fatalf("maybeCleanupExpired: %v", err)
	}
	if got := store.lastCleanup.Load(); got != now.Unix() {
		t.Fatalf("lastCleanup not advanced: %d", got)
	}
	if err := store.Save("b", sampleRecord(now)); err != nil {
		t.Fatalf("Save b: %v", err)
	}
	if _, found, _ := store.Load("a"); found {
		t.Fatalf("expected a to be swept")
	}
	if _, found, _ := store.Load("b"); !found {
		t.Fatalf("expected b to remain")
	}
}

func TestNewStoreBackends(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Save("x", Record{}); err != nil {
		t.Fatalf("noop store Save: %v", err)
	}
	if _, found, _ := store.Load("x"); found {
		t.Fatalf("noop store must not retain records")
	}

	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestMemoryStoreExpiresRecords(t *testing.T) {
	raw, err := NewStore("memory", "", Options{RecordTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewStore memory: %v", err)
	}
	store := raw.(*memoryStore)
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec := sampleRecord(now)
	if err := store.Save("rmrb", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec.Dates[0] = time.Time{}

	got, found, _ := store.Load("rmrb")
	if !found || got.Dates[0].IsZero() {
		t.Fatalf("stored record must not alias the caller's slice: %+v", got)
	}

	now = now.Add(time.Hour)
	if _, found, _ := store.Load("rmrb"); found {
		t.Fatalf("expected expiry at TTL")
	}
}
