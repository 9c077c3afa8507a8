package sched

import (
	"fmt"

	"steel-orchestrator/pool"
)

// Associate atomically asserts that s is currently NOT_USED and sets
// its used field to the requested value. Called once when an ES binds
// s as its topmost scheduler (use=Main), and once when some other
// scheduler's Init/Run pushes s into a pool as a work unit
// (use=InPool). Double-association — calling this a second time on
// the same scheduler regardless of the requested value — fails with
// ErrSched: MAIN and IN_POOL are mutually exclusive.
//
// callerES identifies the execution stream performing the association
// ("" if the caller has no ES context). When use is Main, every pool s
// holds is checked against the access-mode matrix's binding rules
// before the association is allowed: a pool already owned by a
// different execution stream must declare a shared reader, and mixing
// an already-claimed pool with a fresh one must satisfy the
// cross-access table. A pool not yet claimed by any execution stream
// is claimed by callerES as a side effect of a successful Main
// association.
//
// An InPool association records callerES as the scheduler's owning
// thread: the handle of the context that will host it as a work unit.
// A Main association leaves it empty — the main scheduler of an
// execution stream has no owning ULT.
func (s *Scheduler) Associate(use Used, callerES string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used != NotUsed {
		return fmt.Errorf("sched.Associate: scheduler %s already used as %s: %w", s.id, s.used, ErrSched)
	}

	if use == Main && callerES != "" {
		if err := checkPoolBinding(s.pools, callerES); err != nil {
			return err
		}
	}

	if use == InPool {
		s.owningThread = callerES
	}
	s.used = use
	return nil
}

// checkPoolBinding validates the pool list against the matrix's
// foreign-ES and cross-access binding rules, then claims any pool not
// yet owned by an execution stream on callerES's behalf. Pools that
// don't implement pool.OwnerStream (a user-supplied Pool need not) are
// treated as having no ES-context opinion and always pass.
func checkPoolBinding(pools []pool.Pool, callerES string) error {
	var onThisES, fresh []pool.Pool

	for _, p := range pools {
		owned, ok := p.(pool.OwnerStream)
		if !ok {
			fresh = append(fresh, p)
			continue
		}
		switch owner := owned.OwnerStream(); {
		case owner == "":
			fresh = append(fresh, p)
		case owner == callerES:
			onThisES = append(onThisES, p)
		default:
			if !pool.CanBindFromOtherES(p.AccessMode()) {
				return fmt.Errorf("sched.Associate: pool %s rejects binding from a different execution stream: %w", p.ID(), ErrInvalidPoolAccess)
			}
			onThisES = append(onThisES, p)
		}
	}

	for _, existing := range onThisES {
		for _, p := range fresh {
			if !pool.CanBindCrossAccess(existing.AccessMode(), p.AccessMode()) {
				return fmt.Errorf("sched.Associate: pool %s's access mode rejects binding alongside pool %s: %w", p.ID(), existing.ID(), ErrInvalidPoolAccess)
			}
		}
	}

	for _, p := range fresh {
		if owned, ok := p.(pool.OwnerStream); ok {
			owned.SetOwnerStream(callerES)
		}
	}
	return nil
}

// Used reports how s is currently attached.
func (s *Scheduler) Used() Used {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}
