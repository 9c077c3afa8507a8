package sched

import (
	"context"
	"fmt"
	"testing"
	"time"

	"steel-orchestrator/pool"
)

// fakeES is a minimal ExecutionStream for tests: a real mutex plus a
// counter for how many times YieldToMain was invoked.
type fakeES struct {
	mu      chanMutex
	yields  int
	hasMain bool
}

// chanMutex implements Lock/Unlock without embedding sync.Mutex
// directly, so fakeES's zero value is immediately usable the same way
// a real sync.Mutex's is.
type chanMutex struct{ c chan struct{} }

func (m *chanMutex) Lock() {
	if m.c == nil {
		m.c = make(chan struct{}, 1)
	}
	m.c <- struct{}{}
}

func (m *chanMutex) Unlock() { <-m.c }

func (es *fakeES) Lock()   { es.mu.Lock() }
func (es *fakeES) Unlock() { es.mu.Unlock() }
func (es *fakeES) YieldToMain() bool {
	es.yields++
	return es.hasMain
}

func noopDispatch(pool.Unit) {}

func testConfig(access pool.AccessMode) Config {
	return Config{Access: access, Automatic: true, Extra: DispatchFunc(noopDispatch)}
}

func TestNewBasicLeavesNoLeakedPool(t *testing.T) {
	s, err := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	if err != nil {
		t.Fatalf("NewBasic: %v", err)
	}
	pools, _ := s.GetPools(-1, 0)
	if len(pools) != 1 {
		t.Fatalf("GetNumPools() = %d, want 1", len(pools))
	}
	p := pools[0]
	if !p.Automatic() {
		t.Fatalf("default pool not automatic")
	}
	if p.NumScheds() != 1 {
		t.Fatalf("NumScheds() = %d, want 1", p.NumScheds())
	}

	if err := s.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if p.NumScheds() != 0 {
		t.Fatalf("NumScheds() after Free = %d, want 0", p.NumScheds())
	}
}

func TestInitFailureRollsBackRetain(t *testing.T) {
	boom := &Definition{
		Kind: "boom",
		Init: func(s *Scheduler, c Config) error { return ErrMem },
	}
	p := pool.NewFIFO(pool.PRW)

	_, err := New(boom, []pool.Pool{p}, Config{})
	if err == nil {
		t.Fatal("New: want error from failing Init")
	}
	if got := p.NumScheds(); got != 0 {
		t.Fatalf("NumScheds() after failed Init = %d, want 0 (rollback)", got)
	}
}

func TestFinishIdempotent(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	s.Finish()
	s.Finish()

	es := &fakeES{}
	stop, err := s.HasToStop(es, false)
	if err != nil {
		t.Fatalf("HasToStop: %v", err)
	}
	if !stop {
		t.Fatal("HasToStop() = false, want true (FINISH on empty pool)")
	}
	if s.State() != TERMINATED {
		t.Fatalf("State() = %s, want TERMINATED", s.State())
	}
}

func TestFinishWaitsForDrain(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	pools, _ := s.GetPools(-1, 0)
	pools[0].Push(testUnit("a"), "")

	s.Finish()
	es := &fakeES{}

	stop, err := s.HasToStop(es, false)
	if err != nil {
		t.Fatalf("HasToStop: %v", err)
	}
	if stop {
		t.Fatal("HasToStop() = true with non-empty pool, want false")
	}
	if s.State() != STOPPING {
		t.Fatalf("State() while waiting for drain = %s, want STOPPING", s.State())
	}

	pools[0].Pop()
	stop, err = s.HasToStop(es, false)
	if err != nil {
		t.Fatalf("HasToStop: %v", err)
	}
	if !stop {
		t.Fatal("HasToStop() = false after drain, want true")
	}
	if s.State() != TERMINATED {
		t.Fatalf("State() after drain = %s, want TERMINATED", s.State())
	}
}

func TestExitTerminatesWithResidualWork(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	pools, _ := s.GetPools(-1, 0)
	pools[0].Push(testUnit("leftover"), "")

	s.Exit()
	es := &fakeES{}
	stop, err := s.HasToStop(es, false)
	if err != nil {
		t.Fatalf("HasToStop: %v", err)
	}
	if !stop {
		t.Fatal("HasToStop() with EXIT = false, want true")
	}
	if s.State() != TERMINATED {
		t.Fatalf("State() = %s, want TERMINATED", s.State())
	}
	if pools[0].Size() != 1 {
		t.Fatalf("residual pool size = %d, want 1 (leftover not auto-drained)", pools[0].Size())
	}
}

// TestExitObservedMidBacklogThroughRun drives EXIT through the Basic
// predef's actual Run loop under a large backlog: the loop must observe
// the request at its next between-units checkpoint and return with the
// bulk of the backlog still in the pool, not keep dispatching until the
// pool drains.
func TestExitObservedMidBacklogThroughRun(t *testing.T) {
	const backlog = 100

	var s *Scheduler
	dispatched := 0
	dispatch := DispatchFunc(func(pool.Unit) {
		dispatched++
		if dispatched == 3 {
			s.Exit()
		}
	})

	s, err := NewBasic(Basic, 1, nil, Config{Access: pool.SR_SW, Extra: dispatch})
	if err != nil {
		t.Fatalf("NewBasic: %v", err)
	}
	defer s.Free()

	pools, _ := s.GetPools(-1, 0)
	for i := 0; i < backlog; i++ {
		pools[0].Push(testUnit(fmt.Sprintf("u-%d", i)), "")
	}

	ctx := WithExecutionStream(context.Background(), &fakeES{})
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after Exit with a backlog")
	}

	if s.State() != TERMINATED {
		t.Fatalf("State() = %s, want TERMINATED", s.State())
	}
	if dispatched != 3 {
		t.Fatalf("dispatched %d units before stopping, want 3 (exit observed at the next checkpoint)", dispatched)
	}
	if got := pools[0].Size(); got != backlog-3 {
		t.Fatalf("residual pool size = %d, want %d", got, backlog-3)
	}
}

func TestHasToStopRequiresES(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	if _, err := s.HasToStop(nil, false); err != ErrInvalidXStream {
		t.Fatalf("HasToStop(nil, ...) error = %v, want ErrInvalidXStream", err)
	}
}

func TestHasToStopYieldsToMainWhenIdleAndNoRequest(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	es := &fakeES{hasMain: true}
	stop, err := s.HasToStop(es, true)
	if err != nil {
		t.Fatalf("HasToStop: %v", err)
	}
	if stop {
		t.Fatal("HasToStop() = true with no request bits set, want false")
	}
	if es.yields != 1 {
		t.Fatalf("YieldToMain called %d times, want 1", es.yields)
	}
}

func TestDoubleAssociateFails(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	if err := s.Associate(Main, ""); err != nil {
		t.Fatalf("first Associate: %v", err)
	}
	if err := s.Associate(InPool, ""); err == nil {
		t.Fatal("second Associate: want error")
	}
}

func TestAssociateInPoolRecordsOwningThread(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	if got := s.OwningThread(); got != "" {
		t.Fatalf("OwningThread() before Associate = %q, want empty", got)
	}
	if err := s.Associate(InPool, "host-ult"); err != nil {
		t.Fatalf("Associate: %v", err)
	}
	if got := s.OwningThread(); got != "host-ult" {
		t.Fatalf("OwningThread() = %q, want %q", got, "host-ult")
	}
}

func TestGetSizeNeverExceedsGetTotalSize(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	defer s.Free()

	pools, _ := s.GetPools(-1, 0)
	fifo := pools[0].(*pool.FIFO)
	fifo.Push(testUnit("a"), "")
	fifo.MarkInFlight(2)

	if s.GetSize() > s.GetTotalSize() {
		t.Fatalf("GetSize() = %d > GetTotalSize() = %d", s.GetSize(), s.GetTotalSize())
	}
}

func TestGetMigrationPoolRejection(t *testing.T) {
	target := pool.NewFIFO(pool.PRW)
	source := pool.NewFIFO(pool.PRW)

	def := &Definition{
		Kind: "custom-migrate",
		GetMigrationPool: func(s *Scheduler) pool.Pool {
			return target
		},
	}
	s, err := New(def, []pool.Pool{target}, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Free()

	if _, err := s.GetMigrationPool(source, ""); err != ErrRejected {
		t.Fatalf("GetMigrationPool() error = %v, want ErrRejected", err)
	}
}

func TestGetMigrationPoolTerminated(t *testing.T) {
	s, _ := NewBasic(Basic, 1, nil, testConfig(pool.SR_SW))
	s.Exit()
	s.HasToStop(&fakeES{}, false)

	if _, err := s.GetMigrationPool(pool.NewFIFO(pool.SR_SW), ""); err != ErrTerminated {
		t.Fatalf("GetMigrationPool() on terminated sched = %v, want ErrTerminated", err)
	}
}

type testUnit string

func (u testUnit) ID() string { return string(u) }
