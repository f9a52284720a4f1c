package jobs

import (
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

// EventKind names what an Event carries.
type EventKind string

const (
	EventLog          EventKind = "log"
	EventState        EventKind = "state"
	EventProgress     EventKind = "progress"
	EventDateProgress EventKind = "date_progress"
	EventCompleted    EventKind = "completed"
)

// Event is one observation of a running job. Only the fields relevant to
// Kind are set.
type Event struct {
	Kind       EventKind
	JobID      string
	PlatformID string
	Time       time.Time

	// EventLog
	Level   string
	Message string

	// EventState
	State State

	// EventProgress: byte progress of page Page out of Pages.
	Progress domain.ProgressEvent
	Page     int
	Pages    int

	// EventDateProgress: sub-job Index of Total in a batch.
	Index int
	Total int
	Date  time.Time

	// EventCompleted: exactly one of Result or Batch is set.
	Result *Result
	Batch  *BatchResult
}

// EventSink receives events. Implementations must not block.
type EventSink func(Event)

func (s EventSink) emit(ev Event) {
	if s == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s(ev)
}

// Result is the terminal outcome of one edition.
type Result struct {
	JobID      string
	PlatformID string
	Date       time.Time
	State      State
	Skipped    bool
	OutputPath string
	Pages      int
	Discovered int
	Size       int64
	Err        error
}

// Reason is a short human-readable outcome.
func (r Result) Reason() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Skipped:
		return "already downloaded"
	case r.State == StateCancelled:
		return ErrCancelled.Error()
	default:
		return ""
	}
}

// BatchResult aggregates the sub-jobs of a batch. Skipped sub-jobs count as
// successes and are also reported in Skipped.
type BatchResult struct {
	JobID      string
	PlatformID string
	Results    []Result
	Succeeded  int
	Failed     int
	Skipped    int
	Cancelled  bool
}
