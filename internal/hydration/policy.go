package hydration

import (
	"fmt"
	"time"
)

// GuestPolicy decides what a guest resolution does to local items.
type GuestPolicy string

const (
	GuestClear GuestPolicy = "clear"
	GuestKeep  GuestPolicy = "keep"
)

// LoginPolicy decides how a loaded server cart combines with local items.
type LoginPolicy string

const (
	LoginReplace LoginPolicy = "replace"
	LoginMerge   LoginPolicy = "merge"
)

// ConflictPolicy decides what happens to local edits made while the server cart was loading.
type ConflictPolicy string

const (
	LastWriterWins ConflictPolicy = "last-writer-wins"
	KeepLocalEdits ConflictPolicy = "keep-local-edits"
)

const DefaultTimeout = 10 * time.Second

// Options configures hydration passes.
type Options struct {
	Timeout  time.Duration
	Guest    GuestPolicy
	Login    LoginPolicy
	Conflict ConflictPolicy
	// OnSettled runs after every pass that settled the session.
	OnSettled func()
}

// DefaultOptions returns clear/replace/last-writer-wins with a 10s timeout.
func DefaultOptions() Options {
	return Options{
		Timeout:  DefaultTimeout,
		Guest:    GuestClear,
		Login:    LoginReplace,
		Conflict: LastWriterWins,
	}
}

func (o Options) Validate() error {
	if o.Timeout <= 0 {
		return fmt.Errorf("hydration timeout must be greater than 0")
	}
	switch o.Guest {
	case GuestClear, GuestKeep:
	default:
		return fmt.Errorf("unknown guest policy %q", o.Guest)
	}
	switch o.Login {
	case LoginReplace, LoginMerge:
	default:
		return fmt.Errorf("unknown login policy %q", o.Login)
	}
	switch o.Conflict {
	case LastWriterWins, KeepLocalEdits:
	default:
		return fmt.Errorf("unknown conflict policy %q", o.Conflict)
	}
	return nil
}

// Outcome is how a hydration pass ended.
type Outcome string

const (
	OutcomeGuest      Outcome = "guest"
	OutcomeReplaced   Outcome = "replaced"
	OutcomeMerged     Outcome = "merged"
	OutcomeLocalKept  Outcome = "local_kept"
	OutcomeFailed     Outcome = "failed"
	OutcomeSuppressed Outcome = "suppressed"
	OutcomeSkipped    Outcome = "skipped"
)
