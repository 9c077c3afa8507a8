package pool

import (
	"sync"

	"steel-orchestrator/internal/xstreamlog"
)

// FIFO is the default pool implementation: units pop in push order. A
// mutex-guarded slice rather than a channel, because Pop must never
// block — a blocking-receive channel would force every caller through
// a select, and the scheduler run loops want a plain non-blocking Pop
// to retry between stop checks.
type FIFO struct {
	base

	mu       sync.Mutex
	units    []Unit
	inFlight int // units blocked or mid-migration; counted into TotalSize only.
}

// NewFIFO constructs a FIFO pool with the given access mode. access
// governs who may Push/Pop/bind per the matrix in matrix.go; FIFO
// enforces the push half of that matrix itself, via base's
// checkPushAccess, at every Push/PushNested call.
func NewFIFO(access AccessMode) *FIFO {
	return &FIFO{base: newBase(access)}
}

func (f *FIFO) Push(u Unit, callerES string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isClosed() {
		return ErrPoolClosed
	}
	if err := f.checkPushAccess(callerES, false); err != nil {
		return err
	}
	f.units = append(f.units, u)
	return nil
}

func (f *FIFO) PushNested(u Unit, callerES string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isClosed() {
		return ErrPoolClosed
	}
	if err := f.checkPushAccess(callerES, true); err != nil {
		return err
	}
	f.units = append(f.units, u)
	return nil
}

func (f *FIFO) Pop() (Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isClosed() {
		return nil, ErrPoolClosed
	}
	if len(f.units) == 0 {
		return nil, ErrEmpty
	}
	u := f.units[0]
	f.units = f.units[1:]
	return u, nil
}

func (f *FIFO) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.units)
}

func (f *FIFO) TotalSize() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.units) + f.inFlight
}

// MarkInFlight records a unit as blocked or mid-migration so
// TotalSize keeps counting it even though it is absent from Size.
// Called by the scheduler core around a migration or a blocking ULT
// suspend.
func (f *FIFO) MarkInFlight(delta int) {
	f.mu.Lock()
	f.inFlight += delta
	f.mu.Unlock()
}

// AcceptMigration implements the pool-vs-pool half of the matrix: a
// PRW or PR_PW pool never accepts a migration from a different pool,
// since only its own owning scheduler may push into it. Every other
// mode (PR_SW, SR_PW, SR_SW) accepts from anywhere.
func (f *FIFO) AcceptMigration(src Pool) bool {
	switch f.AccessMode() {
	case PRW, PR_PW:
		return src == Pool(f)
	default:
		return true
	}
}

func (f *FIFO) Close() {
	if !f.markClosed() {
		return
	}
	f.mu.Lock()
	dropped := len(f.units)
	f.units = nil
	f.mu.Unlock()
	xstreamlog.Op().Debug("pool closed", "pool", short(f.ID()), "access", f.AccessMode(), "dropped", dropped)
}

var _ Pool = (*FIFO)(nil)
var _ OwnerStream = (*FIFO)(nil)
