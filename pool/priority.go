package pool

import (
	"sync"

	"steel-orchestrator/internal/xstreamlog"
)

// Priority levels recognized by the Priority pool and the PrioSingle
// predefined scheduler (package sched) built on top of it.
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// PriorityUnit is implemented by units pushed into a Priority pool.
// Units that don't implement it are treated as Normal.
type PriorityUnit interface {
	Unit
	Priority() Priority
}

// PriorityPool is a three-queue pool with a strict-preference drain:
// Pop prefers qHigh, then qNorm, then qLow, so a steady stream of
// high-priority work can starve low-priority work indefinitely. That
// is the accepted tradeoff for O(1) push/pop.
type PriorityPool struct {
	base

	mu                 sync.Mutex
	qHigh, qNorm, qLow []Unit
	inFlight           int
}

// NewPriority constructs a Priority pool with the given access mode.
func NewPriority(access AccessMode) *PriorityPool {
	return &PriorityPool{base: newBase(access)}
}

func (p *PriorityPool) Push(u Unit, callerES string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed() {
		return ErrPoolClosed
	}
	if err := p.checkPushAccess(callerES, false); err != nil {
		return err
	}
	p.pushLocked(u)
	return nil
}

func (p *PriorityPool) PushNested(u Unit, callerES string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed() {
		return ErrPoolClosed
	}
	if err := p.checkPushAccess(callerES, true); err != nil {
		return err
	}
	p.pushLocked(u)
	return nil
}

func (p *PriorityPool) pushLocked(u Unit) {
	switch priorityOf(u) {
	case High:
		p.qHigh = append(p.qHigh, u)
	case Low:
		p.qLow = append(p.qLow, u)
	default:
		p.qNorm = append(p.qNorm, u)
	}
}

func priorityOf(u Unit) Priority {
	if pu, ok := u.(PriorityUnit); ok {
		return pu.Priority()
	}
	return Normal
}

func (p *PriorityPool) Pop() (Unit, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed() {
		return nil, ErrPoolClosed
	}
	if q, u, ok := popFront(p.qHigh); ok {
		p.qHigh = q
		return u, nil
	}
	if q, u, ok := popFront(p.qNorm); ok {
		p.qNorm = q
		return u, nil
	}
	if q, u, ok := popFront(p.qLow); ok {
		p.qLow = q
		return u, nil
	}
	return nil, ErrEmpty
}

func popFront(q []Unit) ([]Unit, Unit, bool) {
	if len(q) == 0 {
		return q, nil, false
	}
	return q[1:], q[0], true
}

func (p *PriorityPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.qHigh) + len(p.qNorm) + len(p.qLow)
}

func (p *PriorityPool) TotalSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.qHigh) + len(p.qNorm) + len(p.qLow) + p.inFlight
}

func (p *PriorityPool) MarkInFlight(delta int) {
	p.mu.Lock()
	p.inFlight += delta
	p.mu.Unlock()
}

func (p *PriorityPool) AcceptMigration(src Pool) bool {
	switch p.AccessMode() {
	case PRW, PR_PW:
		return src == Pool(p)
	default:
		return true
	}
}

func (p *PriorityPool) Close() {
	if !p.markClosed() {
		return
	}
	p.mu.Lock()
	dropped := len(p.qHigh) + len(p.qNorm) + len(p.qLow)
	p.qHigh, p.qNorm, p.qLow = nil, nil, nil
	p.mu.Unlock()
	xstreamlog.Op().Debug("pool closed", "pool", short(p.ID()), "access", p.AccessMode(), "dropped", dropped)
}

var _ Pool = (*PriorityPool)(nil)
var _ OwnerStream = (*PriorityPool)(nil)
