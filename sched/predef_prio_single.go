package sched

import (
	"context"
	"time"

	"steel-orchestrator/internal/xstreamlog"
	"steel-orchestrator/pool"
)

// PrioSingle is an alternate PRIO-family predef: instead of Prio's
// PrioLevels separate FIFO pools drained in index order, it binds a
// single pool.PriorityPool and lets the pool's own qHigh/qNorm/qLow
// drain order do the prioritizing.
var PrioSingle = &Definition{
	Kind: "prio-single",
	Type: TaskOnly,
	Init: prioSingleInit,
	Run:  prioSingleRun,
	Free: prioSingleFree,
}

// NewPrioSingle constructs a PrioSingle-predef scheduler bound to
// exactly one pool.PriorityPool with the given access mode.
func NewPrioSingle(access pool.AccessMode, dispatch DispatchFunc) (*Scheduler, error) {
	p := pool.NewPriority(access)
	p.SetAutomatic(true)
	config := Config{Access: access, Automatic: true, Extra: dispatch}
	return New(PrioSingle, []pool.Pool{p}, config)
}

func prioSingleInit(s *Scheduler, config Config) error {
	dispatch, ok := config.Extra.(DispatchFunc)
	if !ok || dispatch == nil {
		return ErrInvalidSchedPredef
	}
	s.SetData(dispatch)
	return nil
}

func prioSingleRun(s *Scheduler, ctx context.Context) {
	dispatch, _ := s.GetData().(DispatchFunc)
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()

	for {
		pools, err := s.GetPools(-1, 0)
		if err != nil || len(pools) == 0 {
			return
		}

		popped := false
		if u, err := pools[0].Pop(); err == nil {
			popped = true
			if dispatch != nil {
				dispatch(u)
			}
		}

		// Checkpoint between work units, whether or not one was
		// dispatched: an EXIT request must be observed here even while
		// the pool still holds a backlog.
		stop, err := s.HasToStopContext(ctx, false)
		if err != nil {
			xstreamlog.Op().Warn("prio-single: has_to_stop", "sched", s.ID(), "error", err)
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

func prioSingleFree(s *Scheduler) {
	s.SetData(nil)
}
