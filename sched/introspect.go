package sched

import (
	"fmt"

	"steel-orchestrator/pool"
)

// GetNumPools returns the number of pools bound to s.
func (s *Scheduler) GetNumPools() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pools)
}

// GetPools copies up to max bound pools starting at idx into a
// freshly-allocated slice. An out-of-range idx fails with ErrSched. A
// negative max means "to the end." The copy is taken under the lock so
// callers never see the live backing array.
func (s *Scheduler) GetPools(max, idx int) ([]pool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx < 0 || idx > len(s.pools) {
		return nil, fmt.Errorf("sched.GetPools: index %d out of range [0,%d]: %w", idx, len(s.pools), ErrSched)
	}

	end := idx + max
	if end > len(s.pools) || max < 0 {
		end = len(s.pools)
	}

	out := make([]pool.Pool, end-idx)
	copy(out, s.pools[idx:end])
	return out, nil
}

// GetSize returns the sum of Size() across every bound pool — units
// immediately available to Pop, excluding blocked/migrating ones.
func (s *Scheduler) GetSize() int {
	s.mu.Lock()
	pools := append([]pool.Pool(nil), s.pools...)
	s.mu.Unlock()

	total := 0
	for _, p := range pools {
		total += p.Size()
	}
	return total
}

// GetTotalSize returns the sum of TotalSize() across every bound pool
// — units available to Pop plus any blocked or mid-migration. This is
// the quantity the FINISH protocol must drain to zero before
// committing TERMINATED; GetSize must never be substituted for it.
//
// GetSize(s) <= GetTotalSize(s) always, since TotalSize adds a
// non-negative in-flight count on top of Size for every pool.
func (s *Scheduler) GetTotalSize() int {
	s.mu.Lock()
	pools := append([]pool.Pool(nil), s.pools...)
	s.mu.Unlock()

	total := 0
	for _, p := range pools {
		total += p.TotalSize()
	}
	return total
}
