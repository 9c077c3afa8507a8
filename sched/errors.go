package sched

import "errors"

// Error codes named directly after the external contract: callers use
// errors.Is against these sentinels rather than matching strings.
var (
	ErrMem                = errors.New("sched: allocation failure")
	ErrInvalidSched       = errors.New("sched: invalid scheduler")
	ErrInvalidPoolAccess  = errors.New("sched: invalid pool access")
	ErrInvalidXStream     = errors.New("sched: invalid execution stream")
	ErrSched              = errors.New("sched: structural error")
	ErrInvalidSchedPredef = errors.New("sched: invalid scheduler predef")

	// ErrTerminated and ErrRejected are the two failure outcomes of
	// GetMigrationPool; they are distinct from the error codes above
	// because a caller may want to treat them as ordinary control flow
	// rather than a hard failure.
	ErrTerminated = errors.New("sched: scheduler terminated")
	ErrRejected   = errors.New("sched: migration rejected")
)
