// Package jobs runs edition jobs: resolve, fetch every page, assemble, with
// cooperative cancellation and one active job at a time.
package jobs

import (
	"errors"
	"sync/atomic"
)

// State of a single edition job.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateFetching
	StateAssembling
	StateDone
	StateFailed
	StateCancelled
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateResolving:  "resolving_edition",
	StateFetching:   "fetching",
	StateAssembling: "assembling",
	StateDone:       "done",
	StateFailed:     "failed",
	StateCancelled:  "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

var (
	ErrNoEdition = errors.New("no edition found")
	ErrNoPages   = errors.New("no pages retrieved")
	ErrMerge     = errors.New("merge failed")
	ErrCancelled = errors.New("cancelled")
	// ErrJobActive is returned by the Controller while another job runs.
	ErrJobActive = errors.New("a job is already running")
)

// CancelToken is a one-way cancellation flag shared between the caller and
// a running job. The zero value is ready to use.
type CancelToken struct {
	flag atomic.Bool
}

// Cancel requests cancellation; the job stops at its next checkpoint.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.flag.Store(true)
	}
}

// Cancelled reports whether Cancel was called.
func (t *CancelToken) Cancelled() bool {
	return t != nil && t.flag.Load()
}
