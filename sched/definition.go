// Package sched implements the scheduler core: the object that binds
// pools to a scheduling policy, tracks lifecycle state, and coordinates
// stop/finish/exit requests and migration with the execution streams
// that drive it.
package sched

import (
	"context"

	"steel-orchestrator/pool"
)

// Type tags whether a scheduler definition's run hook may dispatch
// full user-level threads or is restricted to run-to-completion tasks
// only. The core records the tag but never checks it, neither at
// construction nor at dispatch; a Run hook that wants the restriction
// enforces it itself.
type Type int

const (
	ULTCapable Type = iota
	TaskOnly
)

func (t Type) String() string {
	if t == TaskOnly {
		return "task-only"
	}
	return "ULT-capable"
}

// InitFunc populates a freshly-constructed Scheduler's user data. It
// runs last in New/NewBasic, after every field (pools, mutex, state)
// is already populated, so it may call SetData and read back any of
// the scheduler's own accessors.
type InitFunc func(s *Scheduler, config Config) error

// RunFunc is the scheduling loop: pick a pool, pop a unit, dispatch
// it, and periodically call HasToStopContext. It returns once
// HasToStopContext reports true. ctx carries the calling ES (see
// WithExecutionStream).
type RunFunc func(s *Scheduler, ctx context.Context)

// FreeFunc releases any user data allocated by Init. It runs before
// the core tears down the scheduler's own bookkeeping.
type FreeFunc func(s *Scheduler)

// GetMigrationPoolFunc picks the pool a migrating unit should land in.
// A nil return defers to the scheduler core's own default ("first
// pool").
type GetMigrationPoolFunc func(s *Scheduler) pool.Pool

// Definition is the scheduler vtable: four hooks plus a type tag and a
// stable Kind string used for identity comparisons. Identity is by
// Kind, not *Definition pointer equality — a copied or re-declared
// definition meaning the same policy must still compare equal.
type Definition struct {
	// Kind identifies this definition across processes and across
	// copies — e.g. "basic", "prio", or a user-chosen name. Two
	// schedulers share a Kind iff they were built from definitions
	// meant to be the same policy.
	Kind string
	Type Type

	Init             InitFunc
	Run              RunFunc
	Free             FreeFunc
	GetMigrationPool GetMigrationPoolFunc
}

// Config carries the construction-time parameters a Definition's Init
// hook and sched.New/NewBasic consume, plus an Extra slot for
// hook-specific settings.
type Config struct {
	// Access is the access mode applied to the pools NewBasic (and so
	// NewPrio) constructs on the caller's behalf. New ignores it: its
	// default pool for a nil slot is always PR_SW.
	Access pool.AccessMode
	// Automatic marks the scheduler itself automatic: it is freed on
	// the caller's behalf when its owning thread exits — for the main
	// scheduler of an execution stream, when the stream's drive loop
	// returns. Pools the core constructs are always automatic,
	// independent of this flag.
	Automatic bool
	Extra     any
}
