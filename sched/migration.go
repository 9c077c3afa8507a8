package sched

import (
	"fmt"

	"steel-orchestrator/internal/xstreammetrics"
	"steel-orchestrator/pool"
)

// GetMigrationPool is get_migration_pool: pick the pool a unit
// migrating out of source should land in, and validate the move
// against the access-mode matrix. callerES identifies the execution
// stream the migration is being requested from ("" if unknown/not
// applicable); it is used only for the ES-context half of the check,
// against pools that implement pool.OwnerStream.
func (s *Scheduler) GetMigrationPool(source pool.Pool, callerES string) (pool.Pool, error) {
	if s.State() == TERMINATED {
		return nil, ErrTerminated
	}

	candidate := s.def.GetMigrationPool
	var target pool.Pool
	if candidate != nil {
		target = candidate(s)
	}
	if target == nil {
		s.mu.Lock()
		if len(s.pools) == 0 {
			s.mu.Unlock()
			return nil, fmt.Errorf("sched.GetMigrationPool: no bound pools: %w", ErrSched)
		}
		target = s.pools[0]
		s.mu.Unlock()
	}

	accepted := acceptMigration(target, source, callerES)
	if m := xstreammetrics.Default(); m != nil {
		if accepted {
			m.Migration("accepted")
		} else {
			m.Migration("rejected")
		}
	}
	if !accepted {
		return nil, ErrRejected
	}
	return target, nil
}

// acceptMigration combines the pool-vs-pool half of the access-mode
// matrix (Pool.AcceptMigration) with the ES-context half (the target
// pool's tolerance for an ES other than its owner).
func acceptMigration(target, source pool.Pool, callerES string) bool {
	if !target.AcceptMigration(source) {
		return false
	}

	owned, ok := target.(pool.OwnerStream)
	if !ok || callerES == "" {
		return true // opaque user pool: skip the ES-context half, best effort.
	}

	owner := owned.OwnerStream()
	if owner == "" || owner == callerES {
		return true // same ES (or not yet claimed): always allowed.
	}
	return pool.CanBindFromOtherES(target.AccessMode())
}
