// Package pool defines the ordered-multiset-of-work-units contract that
// the scheduler core binds to. A Pool is opaque to package sched except
// for this contract: push, pop, size, total_size, an immutable access
// mode, and a retain/release reference count.
//
// Pool carries no opinion about what a "work unit" is — it only moves
// values satisfying the Unit interface; what a unit does once popped is
// the dispatcher's business.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"steel-orchestrator/internal/xstreamid"
)

// Unit is the minimal shape a work unit travelling through a Pool must
// satisfy. The real ULT/task data structures and their context-switch
// primitive are treated as opaque per the core's scope; Unit is the
// smallest contract that lets a Pool hold, count, and migrate work
// without knowing anything about stacks or cooperative scheduling.
type Unit interface {
	// ID identifies the unit for logging and migration bookkeeping.
	ID() string
}

// AccessMode declares which producers/consumers may touch a Pool,
// parameterized by single/multiple reader (popper) and single/multiple
// writer (pusher). It is immutable for the lifetime of a Pool.
type AccessMode int

const (
	// PRW: private reader, private writer — only the ES that owns
	// (first claimed) the pool may push or pop.
	PRW AccessMode = iota
	// PR_PW: private reader, private writer (writer-private variant) —
	// distinguished from PRW by which side of a reader/writer pair a
	// "private" restriction binds to; see matrix.go for the full
	// policy table.
	PR_PW
	// PR_SW: private reader, shared writer — any ES may push; only the
	// owning ES may pop.
	PR_SW
	// SR_PW: shared reader, private writer — any ES may bind as a
	// popper; a foreign ES may push ordinarily but not recursively
	// (PushNested).
	SR_PW
	// SR_SW: shared reader, shared writer — any ES may push or pop.
	SR_SW
)

func (m AccessMode) String() string {
	switch m {
	case PRW:
		return "PRW"
	case PR_PW:
		return "PR_PW"
	case PR_SW:
		return "PR_SW"
	case SR_PW:
		return "SR_PW"
	case SR_SW:
		return "SR_SW"
	default:
		return "unknown"
	}
}

var (
	// ErrPoolClosed is returned by Push/Pop once Close has run.
	ErrPoolClosed = errors.New("pool: closed")
	// ErrEmpty is returned by a non-blocking Pop against an empty pool.
	ErrEmpty = errors.New("pool: empty")
	// ErrAccessDenied is returned by Push/PushNested when the
	// access-mode matrix rejects a push made on behalf of an execution
	// stream that does not own the pool.
	ErrAccessDenied = errors.New("pool: access denied")
)

// Pool is the contract package sched consumes. Concrete implementations
// (fifo.go, priority.go) are intentionally minimal — anything beyond
// this contract is the embedder's concern.
type Pool interface {
	// ID is a stable handle for logging, independent of access mode or
	// backing implementation.
	ID() string

	// Push adds a unit to the pool. callerES identifies the execution
	// stream the push is made on behalf of ("" if unknown/not
	// applicable, e.g. seeding a pool before any execution stream has
	// claimed it). A pool not yet claimed by any stream is claimed by
	// the first non-empty callerES it sees; a push from a different,
	// already-claimed stream is validated against the access-mode
	// matrix's foreign-push rules — the ordinary, non-recursive
	// outcome — before being accepted.
	Push(u Unit, callerES string) error

	// PushNested is Push performed recursively: from within the
	// dispatch of a unit that was itself delivered by a push from a
	// foreign execution stream. The matrix distinguishes this from an
	// ordinary foreign push — some access modes (PR_PW, SR_PW) permit
	// the latter but reject the former.
	PushNested(u Unit, callerES string) error

	// Pop removes and returns one unit, or ErrEmpty if none is
	// available right now. Pop never blocks; callers that want to wait
	// do so at a higher level (the scheduler's Run hook loops and
	// checks has_to_stop between attempts).
	Pop() (Unit, error)

	// Size returns the count of units immediately available to Pop
	// (excludes blocked/migrating units).
	Size() int

	// TotalSize returns Size plus any units blocked or in the middle of
	// a migration into or out of this pool. The finish protocol's
	// drained-check must use this, not Size.
	TotalSize() int

	// AccessMode returns the pool's immutable access mode.
	AccessMode() AccessMode

	// AcceptMigration validates a proposed migration of a unit that
	// currently lives in src into this pool, per the pool-vs-pool half
	// of the access-mode matrix. The ES-context half of that check
	// (whether the calling ES is the pool's owning stream) is applied
	// by the scheduler core, which additionally consults OwnerStream
	// on pools that support it — see matrix.go.
	AcceptMigration(src Pool) bool

	// Retain increments the binding-scheduler refcount. Called once per
	// scheduler that binds this pool.
	Retain()
	// Release decrements the binding-scheduler refcount and returns the
	// count after decrementing, so the caller can decide whether to
	// free an automatic pool whose last binder just released it.
	Release() int
	// NumScheds returns the current number of schedulers bound to this
	// pool.
	NumScheds() int

	// Automatic reports whether this pool is owned by the scheduler
	// that last released it — i.e. whether the pool should be freed
	// when its refcount reaches zero.
	Automatic() bool
	// SetAutomatic is called by sched.New when it constructs a default
	// pool for a nil slot.
	SetAutomatic(bool)

	// Close releases any resources held by the pool. Safe to call more
	// than once.
	Close()
}

// base holds the bookkeeping shared by every concrete Pool
// implementation: identity, access mode, the automatic flag, and the
// binding refcount. Concrete pools embed base and add their own
// storage and Push/Pop/Size/TotalSize/AcceptMigration logic. A single
// mutex protects the small set of fields that change together.
type base struct {
	mu        sync.Mutex
	id        string
	access    AccessMode
	automatic bool
	numScheds int32
	closed    atomic.Bool
	owner     string
}

func newBase(access AccessMode) base {
	return base{
		id:     xstreamid.New(),
		access: access,
	}
}

func (b *base) ID() string               { return b.id }
func (b *base) AccessMode() AccessMode   { return b.access }
func (b *base) Automatic() bool          { b.mu.Lock(); defer b.mu.Unlock(); return b.automatic }
func (b *base) SetAutomatic(v bool)      { b.mu.Lock(); b.automatic = v; b.mu.Unlock() }
func (b *base) NumScheds() int           { return int(atomic.LoadInt32(&b.numScheds)) }
func (b *base) Retain()                  { atomic.AddInt32(&b.numScheds, 1) }
func (b *base) Release() int             { return int(atomic.AddInt32(&b.numScheds, -1)) }
func (b *base) isClosed() bool           { return b.closed.Load() }
func (b *base) markClosed() (first bool) { return b.closed.CompareAndSwap(false, true) }

// OwnerStream returns the execution stream that first claimed this
// pool (via Push, PushNested, or a scheduler binding), or "" if none
// has yet.
func (b *base) OwnerStream() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.owner
}

// SetOwnerStream claims the pool for id if it has no owner yet. A
// second claim by a different id is silently ignored — ownership is
// sticky to whichever execution stream bound or pushed to this pool
// first.
func (b *base) SetOwnerStream(id string) {
	b.mu.Lock()
	if b.owner == "" {
		b.owner = id
	}
	b.mu.Unlock()
}

// checkPushAccess enforces the access-mode matrix's foreign-push rules
// for a Push/PushNested call made on behalf of callerES. recursive
// selects which of CanPushFromOtherES's two outcomes governs: false
// for an ordinary push from a task running on the foreign stream, true
// for a push performed recursively from within that task's own
// dispatch. callerES == "" skips the check entirely — there is no ES
// context to evaluate.
func (b *base) checkPushAccess(callerES string, recursive bool) error {
	if callerES == "" {
		return nil
	}

	b.mu.Lock()
	if b.owner == "" {
		b.owner = callerES
		b.mu.Unlock()
		return nil
	}
	owner := b.owner
	b.mu.Unlock()

	if owner == callerES {
		return nil
	}

	within, rec := CanPushFromOtherES(b.access)
	allowed := within
	if recursive {
		allowed = rec
	}
	if !allowed {
		return ErrAccessDenied
	}
	return nil
}

// short exposes a uuid-derived log tag without importing xstreamid into
// every call site.
func short(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()[:8]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
