package sched

import (
	"context"
	"fmt"
	"sync"

	"steel-orchestrator/internal/xstreamid"
	"steel-orchestrator/internal/xstreamlog"
	"steel-orchestrator/internal/xstreammetrics"
	"steel-orchestrator/pool"
)

// Scheduler is a scheduler instance: a definition bound to a fixed set
// of pools, with lifecycle state, pending stop requests, and an opaque
// user-data slot. A single mutex guards the structural fields; the
// request word is its own atomic so Finish/Exit never contend with
// state transitions.
type Scheduler struct {
	id  string
	def *Definition

	mu    sync.Mutex
	pools []pool.Pool
	state State
	used  Used

	automatic    bool
	owningThread string

	request requestBits

	dataMu sync.Mutex
	data   any
}

// ID returns a stable handle for logging and equality checks,
// independent of *Scheduler pointer identity.
func (s *Scheduler) ID() string { return s.id }

// Kind returns the definition's stable identity string (see
// Definition.Kind's doc comment on why this replaces pointer
// equality).
func (s *Scheduler) Kind() string { return s.def.Kind }

// Type reports whether this scheduler's definition may dispatch full
// ULTs or is restricted to run-to-completion tasks.
func (s *Scheduler) Type() Type { return s.def.Type }

// New builds a scheduler bound to an explicit pool list. A nil slot in
// pools constructs a default automatic FIFO pool with PR_SW access —
// private reader, shared writer, i.e. MPSC: any ES may push, only the
// owning ES may pop. Every resulting pool is retained before Init
// runs; if Init fails, every pool retained during this call is
// released again before the error is returned.
func New(def *Definition, pools []pool.Pool, config Config) (*Scheduler, error) {
	if def == nil {
		return nil, fmt.Errorf("sched.New: nil definition: %w", ErrInvalidSched)
	}

	resolved := make([]pool.Pool, len(pools))
	copy(resolved, pools) // caller retains ownership of the input slice

	for i, p := range resolved {
		if p == nil {
			np := pool.NewFIFO(pool.PR_SW)
			np.SetAutomatic(true)
			resolved[i] = np
		}
	}

	for _, p := range resolved {
		p.Retain()
	}

	s := &Scheduler{
		id:        xstreamid.New(),
		def:       def,
		pools:     resolved,
		state:     READY,
		used:      NotUsed,
		automatic: config.Automatic,
	}

	if def.Init != nil {
		if err := def.Init(s, config); err != nil {
			// Roll back every retain this call performed, freeing any
			// automatic pool left unreferenced.
			for _, p := range resolved {
				if p.Release() == 0 && p.Automatic() {
					p.Close()
				}
			}
			xstreamlog.Op().Error("scheduler init failed, pools released",
				"sched", s.id, "kind", def.Kind, "error", err)
			return nil, fmt.Errorf("sched.New: init: %w", err)
		}
	}

	if m := xstreammetrics.Default(); m != nil {
		m.SchedulerCreated()
	}
	xstreamlog.Op().Debug("scheduler created", "sched", s.id, "kind", def.Kind, "pools", len(resolved))
	return s, nil
}

// NewBasic is the predef-driven convenience constructor: when pools is
// nil it builds numPools default pools, reading Access from config for
// every constructed pool. Every constructed pool is marked automatic —
// its lifetime is tied to its last binding scheduler; config.Automatic
// governs the scheduler itself, not the pools.
func NewBasic(predef *Definition, numPools int, pools []pool.Pool, config Config) (*Scheduler, error) {
	if predef == nil {
		return nil, fmt.Errorf("sched.NewBasic: nil predef: %w", ErrInvalidSchedPredef)
	}

	if pools != nil {
		return New(predef, pools, config)
	}

	if numPools <= 0 {
		return nil, fmt.Errorf("sched.NewBasic: num_pools must be positive: %w", ErrInvalidSchedPredef)
	}

	built := make([]pool.Pool, numPools)
	for i := range built {
		p := pool.NewFIFO(config.Access)
		p.SetAutomatic(true)
		built[i] = p
	}
	return New(predef, built, config)
}

// Free runs the definition's Free hook, then releases every bound
// pool, freeing any automatic pool whose refcount reaches zero. Safe
// to call only once per scheduler; the caller is responsible for
// nulling its handle afterward.
func (s *Scheduler) Free() error {
	if s.def.Free != nil {
		s.def.Free(s)
	}

	s.mu.Lock()
	pools := s.pools
	s.pools = nil
	s.mu.Unlock()

	for _, p := range pools {
		if p.Release() == 0 && p.Automatic() {
			p.Close()
		}
	}

	if m := xstreammetrics.Default(); m != nil {
		m.SchedulerFreed()
	}
	xstreamlog.Op().Debug("scheduler freed", "sched", s.id, "kind", s.def.Kind)
	return nil
}

// Run transitions READY -> RUNNING and invokes the definition's Run
// hook, the entry point an execution stream calls to start draining
// this scheduler. It returns once the hook returns (i.e. once the
// hook's own HasToStopContext loop reports true).
func (s *Scheduler) Run(ctx context.Context) {
	s.markRunning()
	if s.def.Run != nil {
		s.def.Run(s, ctx)
	}
}

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Automatic reports whether this scheduler frees itself when its
// owning thread exits: the execution stream's drive loop (or whatever
// hosts this scheduler as a work unit) calls Free on its behalf once
// the Run hook returns. Set from Config.Automatic at construction and
// immutable afterward.
func (s *Scheduler) Automatic() bool { return s.automatic }

// OwningThread returns the handle of the context hosting this
// scheduler as a work unit, recorded at Associate time. Empty for the
// main scheduler of an execution stream and for an unassociated
// scheduler.
func (s *Scheduler) OwningThread() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owningThread
}

// markRunning transitions READY -> RUNNING. Called by the ES driving
// this scheduler's Run hook for the first time. A no-op if already
// past READY (idempotent against a caller that invokes it more than
// once).
func (s *Scheduler) markRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == READY {
		s.state = RUNNING
	}
}

// markStopping transitions to STOPPING on first observation of a
// request bit whose preconditions hold. A scheduler whose Run hook was
// never driven goes READY -> STOPPING directly; the lifecycle chain is
// monotonic, skipping forward is allowed, going back is not. It does
// not itself commit TERMINATED; HasToStop/commitTerminated handles
// that under the ES mutex.
func (s *Scheduler) markStopping() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == READY || s.state == RUNNING {
		s.state = STOPPING
	}
}

// SetData stores the scheduler's opaque user state. Intended for use
// only by the scheduler's own hooks (Init/Run/Free); the core does not
// synchronize concurrent access against other callers beyond making
// the single read/write itself race-free.
func (s *Scheduler) SetData(v any) {
	s.dataMu.Lock()
	s.data = v
	s.dataMu.Unlock()
}

// GetData returns the scheduler's opaque user state.
func (s *Scheduler) GetData() any {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.data
}
