package domain

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// Domain contains core models shared by platforms, jobs and assembly.

const (
	// DateLayout is the canonical textual form of an edition date.
	DateLayout = "2006-01-02"
	// CompactDateLayout is used in file names and publisher URL segments.
	CompactDateLayout = "20060102"
)

// Kind tells whether an edition is made of PDF pages or raster page images.
type Kind int

const (
	KindDocument Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "document"
}

// Ext returns the file extension used for per-page temp files of this kind.
func (k Kind) Ext() string {
	if k == KindImage {
		return ".jpg"
	}
	return ".pdf"
}

// KindOf derives the page kind from a locator's file extension.
func KindOf(locator string) Kind {
	p := locator
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".jpg", ".jpeg", ".png":
		return KindImage
	default:
		return KindDocument
	}
}

// Edition is one platform's issue for a date, as discovered by an adapter.
// An edition without page URLs means "no edition found".
type Edition struct {
	PlatformID string
	Date       time.Time
	PageURLs   []string
	Filename   string
	MimeType   string
}

// Empty reports whether the edition carries no pages.
func (e Edition) Empty() bool {
	return len(e.PageURLs) == 0
}

// Kind is decided once from the first page locator.
func (e Edition) Kind() Kind {
	if e.Empty() {
		return KindDocument
	}
	return KindOf(e.PageURLs[0])
}

// PageFetchResult records the outcome of fetching one page. Index is 1-based
// and matches the locator position in Edition.PageURLs.
type PageFetchResult struct {
	Index int
	Path  string
	OK    bool
}

// Phase of a single resource download.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseDownloading Phase = "downloading"
	PhaseCompleted   Phase = "completed"
)

// ProgressEvent reports byte-level progress of one resource.
type ProgressEvent struct {
	Resource string
	Done     int64
	Total    int64
	Phase    Phase
}

// ProgressFunc receives progress events; it must not block.
type ProgressFunc func(ProgressEvent)

// Job is one unit of orchestrated work. A single job carries at most one
// date (zero means the latest edition); a batch job carries an ordered list.
type Job struct {
	ID         string
	PlatformID string
	Dates      []time.Time
	Batch      bool
}

// Day truncates t to its calendar day, dropping the time zone.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses YYYY-MM-DD (or YYYYMMDD) into a calendar day.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, CompactDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
}

// FormatDay renders a day as YYYY-MM-DD, or "latest" for the zero day.
func FormatDay(t time.Time) string {
	if t.IsZero() {
		return "latest"
	}
	return t.Format(DateLayout)
}
