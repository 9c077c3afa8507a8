package sched

import (
	"context"
	"time"

	"steel-orchestrator/internal/xstreamlog"
	"steel-orchestrator/pool"
)

// PrioLevels is the fixed pool count the PRIO predef's default
// topology constructs when NewBasic is given a nil pool list. Pool
// index 0 is drained first (highest priority), PrioLevels-1 last.
const PrioLevels = 3

// Prio is the PRIO predef: PrioLevels pools drained in strict index
// order, task-only (task-only is this predef's own policy choice, not
// a core restriction — see the note on Type).
var Prio = &Definition{
	Kind: "prio",
	Type: TaskOnly,
	Init: prioInit,
	Run:  prioRun,
	Free: prioFree,
}

// NewPrio constructs a PRIO-predef scheduler. When pools is nil it
// builds exactly PrioLevels default pools, since PRIO's topology is
// fixed.
func NewPrio(pools []pool.Pool, config Config, dispatch DispatchFunc) (*Scheduler, error) {
	config.Extra = dispatch
	if pools == nil {
		return NewBasic(Prio, PrioLevels, nil, config)
	}
	return NewBasic(Prio, len(pools), pools, config)
}

func prioInit(s *Scheduler, config Config) error {
	dispatch, ok := config.Extra.(DispatchFunc)
	if !ok || dispatch == nil {
		return ErrInvalidSchedPredef
	}
	s.SetData(dispatch)
	return nil
}

func prioRun(s *Scheduler, ctx context.Context) {
	dispatch, _ := s.GetData().(DispatchFunc)
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()

	for {
		pools, err := s.GetPools(-1, 0)
		if err != nil || len(pools) == 0 {
			return
		}

		popped := false
		for _, p := range pools { // index order == priority order, highest first
			u, err := p.Pop()
			if err != nil {
				continue
			}
			popped = true
			if dispatch != nil {
				dispatch(u)
			}
			break // redrive from the top so a fresh high-priority push preempts lower levels
		}

		// Checkpoint between work units, whether or not one was
		// dispatched: an EXIT request must be observed here even while
		// the pools still hold a backlog.
		stop, err := s.HasToStopContext(ctx, false)
		if err != nil {
			xstreamlog.Op().Warn("prio: has_to_stop", "sched", s.ID(), "error", err)
			return
		}
		if stop {
			return
		}
		if !popped {
			<-ticker.C
		}
	}
}

func prioFree(s *Scheduler) {
	s.SetData(nil)
}
