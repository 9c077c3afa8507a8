package sched

import (
	"context"
	"time"

	"steel-orchestrator/internal/xstreamlog"
	"steel-orchestrator/pool"
)

// DispatchFunc is invoked once per popped work unit by the built-in
// BASIC and PRIO predefs. A Config passed to NewBasic for either
// predef must set Extra to a DispatchFunc; predef Init fails
// (ErrInvalidSchedPredef) otherwise.
type DispatchFunc func(pool.Unit)

// checkpointInterval bounds how long the BASIC/PRIO run loops go
// between HasToStopContext calls when every bound pool is empty — a
// ticker rather than a busy spin.
const checkpointInterval = 10 * time.Millisecond

// Basic is the BASIC predef: one pool, strict FIFO drain order,
// ULT-capable.
var Basic = &Definition{
	Kind: "basic",
	Type: ULTCapable,
	Init: basicInit,
	Run:  basicRun,
	Free: basicFree,
}

func basicInit(s *Scheduler, config Config) error {
	dispatch, ok := config.Extra.(DispatchFunc)
	if !ok || dispatch == nil {
		return ErrInvalidSchedPredef
	}
	s.SetData(dispatch)
	return nil
}

func basicRun(s *Scheduler, ctx context.Context) {
	dispatch, _ := s.GetData().(DispatchFunc)
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()

	for {
		pools, err := s.GetPools(-1, 0)
		if err != nil || len(pools) == 0 {
			return
		}

		popped := false
		for _, p := range pools {
			u, err := p.Pop()
			if err != nil {
				continue
			}
			popped = true
			if dispatch != nil {
				dispatch(u)
			}
			break
		}

		// Checkpoint between work units, whether or not one was
		// dispatched: an EXIT request must be observed here even while
		// the pools still hold a backlog.
		stop, err := s.HasToStopContext(ctx, false)
		if err != nil {
			xstreamlog.Op().Warn("basic: has_to_stop", "sched", s.ID(), "error", err)
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

func basicFree(s *Scheduler) {
	s.SetData(nil)
}
