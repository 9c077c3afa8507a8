package pool

// This file holds the access-mode matrix: the policy tables deciding
// which execution streams may bind or push into a pool, keyed by the
// pool's access mode. The tables encode deliberate asymmetries (e.g.
// the PRW row of CanBindCrossAccess) — they are policy, not derivable
// from the mode letters alone, and changing a cell is a behavior
// change for every embedder.

// OwnerStream is implemented by pool types that track which execution
// stream first bound them (fifo.go, priority.go). It is not part of
// the Pool contract itself — it is additional bookkeeping the
// scheduler core uses, on a best-effort basis, to evaluate the ES-
// context half of the access-mode matrix. A user-supplied Pool that
// does not implement OwnerStream simply skips that half of the check.
type OwnerStream interface {
	OwnerStream() string
	SetOwnerStream(string)
}

// CanBindFromOtherES decides whether a scheduler may bind this pool
// from inside another ES. A pool that already has a binder on a
// different execution stream accepts a new binder only if its access
// mode declares a shared reader (SR_PW, SR_SW).
func CanBindFromOtherES(access AccessMode) bool {
	switch access {
	case SR_PW, SR_SW:
		return true
	default:
		return false
	}
}

// CanBindCrossAccess decides whether a scheduler may bind to the same
// ES when its pools mix access modes. esAccess is the access mode of
// the ES's already-associated main pool; secondaryAccess is the access
// mode of the pool the new, same-ES scheduler binding also touches.
func CanBindCrossAccess(esAccess, secondaryAccess AccessMode) bool {
	switch esAccess {
	case PRW, PR_PW, PR_SW:
		switch secondaryAccess {
		case SR_PW, SR_SW:
			return false
		default:
			return true
		}
	case SR_PW, SR_SW:
		return true
	default:
		return true
	}
}

// CanPushFromOtherES decides whether a foreign ES may push into a
// pool. access is the access mode of the pool being pushed into. The
// two results cover the two sub-cases: pushing a single work unit from
// a task running on the foreign ES (createWithin), and recursively
// pushing from within that pushed unit's own dispatch
// (createRecursive).
func CanPushFromOtherES(access AccessMode) (createWithin, createRecursive bool) {
	switch access {
	case PRW:
		return false, false
	case PR_PW:
		return true, false
	case PR_SW:
		return true, true
	case SR_PW:
		return true, false
	case SR_SW:
		return true, true
	default:
		return false, false
	}
}
