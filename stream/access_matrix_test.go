package stream

import (
	"testing"

	"steel-orchestrator/pool"
	"steel-orchestrator/sched"
)

// TestBindFromOtherESHonorsAccessMode drives the foreign-ES binding
// rule through two real ExecutionStreams and a real
// Scheduler.Associate call, not just pool.CanBindFromOtherES in
// isolation.
func TestBindFromOtherESHonorsAccessMode(t *testing.T) {
	p := pool.NewFIFO(pool.PRW) // private reader: must reject a foreign ES
	s, err := sched.New(sched.Basic, []pool.Pool{p}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	owner := New(false)
	if err := owner.Push(s); err != nil {
		t.Fatalf("owner Push (claims the pool for owner's ES): %v", err)
	}
	if got := p.OwnerStream(); got != owner.ID() {
		t.Fatalf("OwnerStream() = %s, want %s", got, owner.ID())
	}

	// A second scheduler sharing the same pool, bound from a different
	// ES, must be rejected: PRW declares neither reader shared.
	s2, err := sched.New(sched.Basic, []pool.Pool{p}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New (second scheduler): %v", err)
	}
	defer s2.Free()

	foreign := New(false)
	if err := foreign.Push(s2); err == nil {
		t.Fatal("Push from a different ES onto a PRW pool: want error, got nil")
	}
}

// TestBindFromOtherESAllowedWhenSharedReader shows the SR_SW
// counterpart succeeding where PRW above failed.
func TestBindFromOtherESAllowedWhenSharedReader(t *testing.T) {
	p := pool.NewFIFO(pool.SR_SW)
	s, err := sched.New(sched.Basic, []pool.Pool{p}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	owner := New(false)
	if err := owner.Push(s); err != nil {
		t.Fatalf("owner Push: %v", err)
	}

	s2, err := sched.New(sched.Basic, []pool.Pool{p}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New (second scheduler): %v", err)
	}
	defer s2.Free()

	foreign := New(false)
	if err := foreign.Push(s2); err != nil {
		t.Fatalf("Push from a different ES onto an SR_SW pool: want nil, got %v", err)
	}
}

// TestCrossAccessSecondaryPoolRejected covers the same ES binding a
// second scheduler whose pool list mixes a private main pool with a
// freshly-claimed shared secondary pool.
func TestCrossAccessSecondaryPoolRejected(t *testing.T) {
	main := pool.NewFIFO(pool.PRW)
	s, err := sched.New(sched.Basic, []pool.Pool{main}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	es := New(false)
	if err := es.Push(s); err != nil {
		t.Fatalf("Push: %v", err)
	}

	secondary := pool.NewFIFO(pool.SR_SW)
	s2, err := sched.New(sched.Basic, []pool.Pool{main, secondary}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New (second scheduler): %v", err)
	}
	defer s2.Free()

	if err := es.Push(s2); err == nil {
		t.Fatal("Push with a PRW main pool alongside a fresh SR_SW secondary: want error, got nil")
	}
}

// TestCrossAccessSecondaryPoolAllowed shows the same shape succeeding
// when the already-bound pool's mode permits mixing with a fresh
// secondary pool of any mode.
func TestCrossAccessSecondaryPoolAllowed(t *testing.T) {
	main := pool.NewFIFO(pool.SR_SW)
	s, err := sched.New(sched.Basic, []pool.Pool{main}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	es := New(false)
	if err := es.Push(s); err != nil {
		t.Fatalf("Push: %v", err)
	}

	secondary := pool.NewFIFO(pool.PRW)
	s2, err := sched.New(sched.Basic, []pool.Pool{main, secondary}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New (second scheduler): %v", err)
	}
	defer s2.Free()

	if err := es.Push(s2); err != nil {
		t.Fatalf("Push with an SR_SW main pool alongside a fresh secondary: want nil, got %v", err)
	}
}

// TestPushFromOtherESHonorsAccessMode drives the foreign-push rules
// through pool.Pool.Push directly, against a pool claimed by a real
// ExecutionStream via sched+stream.
func TestPushFromOtherESHonorsAccessMode(t *testing.T) {
	p := pool.NewFIFO(pool.PRW) // neither sub-case permitted
	s, err := sched.New(sched.Basic, []pool.Pool{p}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	owner := New(false)
	if err := owner.Push(s); err != nil {
		t.Fatalf("owner Push: %v", err)
	}

	foreign := New(false)
	if err := p.Push(unit("from-foreign"), foreign.ID()); err == nil {
		t.Fatal("Push from a foreign ES onto a PRW pool: want error, got nil")
	}
	if err := p.PushNested(unit("from-foreign-nested"), foreign.ID()); err == nil {
		t.Fatal("PushNested from a foreign ES onto a PRW pool: want error, got nil")
	}

	// The owning ES may always push/push-nested to its own pool.
	if err := p.Push(unit("from-owner"), owner.ID()); err != nil {
		t.Fatalf("Push from the owning ES: want nil, got %v", err)
	}
}

// TestPushFromOtherESWithinButNotRecursive exercises PR_PW's split
// outcome: an ordinary foreign push is allowed, a recursive one is not.
func TestPushFromOtherESWithinButNotRecursive(t *testing.T) {
	p := pool.NewFIFO(pool.PR_PW)
	s, err := sched.New(sched.Basic, []pool.Pool{p}, sched.Config{Extra: sched.DispatchFunc(dispatchNoop)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	owner := New(false)
	if err := owner.Push(s); err != nil {
		t.Fatalf("owner Push: %v", err)
	}

	foreign := New(false)
	if err := p.Push(unit("within"), foreign.ID()); err != nil {
		t.Fatalf("Push (create-from-within) from a foreign ES on PR_PW: want nil, got %v", err)
	}
	if err := p.PushNested(unit("recursive"), foreign.ID()); err == nil {
		t.Fatal("PushNested (create-recursively) from a foreign ES on PR_PW: want error, got nil")
	}
}
