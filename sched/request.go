package sched

import (
	"context"
	"sync/atomic"

	"steel-orchestrator/internal/xstreammetrics"
)

const (
	reqFinish uint32 = 1 << iota
	reqExit
)

// requestBits is the atomic FINISH/EXIT word. Set via fetch-or with
// release semantics, read with acquire — sync/atomic's CompareAndSwap
// loop and Load already provide that on all supported platforms, so
// no explicit fence is needed beyond using the atomic type itself.
type requestBits struct {
	word atomic.Uint32
}

func (r *requestBits) set(bit uint32) {
	for {
		old := r.word.Load()
		if old&bit != 0 {
			return // already set; OR is idempotent, nothing to do
		}
		if r.word.CompareAndSwap(old, old|bit) {
			return
		}
	}
}

func (r *requestBits) has(bit uint32) bool {
	return r.word.Load()&bit != 0
}

// Finish asks s to stop once every bound pool has drained (FINISH
// bit). Safe to call from any goroutine; idempotent.
func (s *Scheduler) Finish() {
	s.request.set(reqFinish)
}

// Exit asks s to stop at the next checkpoint regardless of pool
// contents (EXIT bit). Safe to call from any goroutine; idempotent.
func (s *Scheduler) Exit() {
	s.request.set(reqExit)
}

// ExecutionStream is the minimal contract HasToStop needs from the ES
// hosting the calling thread: the ES's top-scheduler mutex (held
// across a termination commit) and a way to cooperatively yield back
// to the ES's main ULT, if any. It is defined here rather than
// imported from package stream to avoid a stream<->sched import cycle
// — package stream's ExecutionStream type satisfies this interface
// structurally, the same way pool's concrete pools satisfy
// pool.OwnerStream without pool depending on them.
type ExecutionStream interface {
	// Lock/Unlock guard the ES's top_sched_mutex.
	Lock()
	Unlock()

	// YieldToMain cooperatively switches to the ES's main ULT, if the
	// ES has one and the calling work unit is itself a ULT. It
	// returns once control is handed back, and reports whether a
	// yield actually happened.
	YieldToMain() bool
}

// HasToStop is the single inspection primitive a running scheduler
// calls at its cooperative checkpoints. es is the execution stream the
// calling OS thread is attached to, or nil if it is not attached to
// any (callers get ErrInvalidXStream in that case). isULT reports
// whether the caller is itself a dispatched ULT, which governs whether
// step 5's yield-to-main is eligible.
//
// Every path that takes the ES lock releases it before returning,
// including the path that commits TERMINATED.
func (s *Scheduler) HasToStop(es ExecutionStream, isULT bool) (bool, error) {
	if es == nil {
		return false, ErrInvalidXStream
	}

	// The lifecycle transitions to STOPPING on first observation of a
	// pending request bit, before TERMINATED is ever committed — do
	// that regardless of which branch below ends up applying.
	if s.request.has(reqFinish) || s.request.has(reqExit) {
		s.markStopping()
	}

	if s.request.has(reqExit) {
		es.Lock()
		s.commitTerminated("exit")
		es.Unlock()
		return true, nil
	}

	total := s.GetTotalSize()
	if total == 0 && s.request.has(reqFinish) {
		es.Lock()
		defer es.Unlock()
		// Re-read under the ES lock: a racing push/migration between
		// the unlocked check above and this point must not be missed.
		if s.GetTotalSize() == 0 {
			s.commitTerminated("finish")
			return true, nil
		}
		return false, nil
	}

	if total == 0 {
		if isULT {
			es.YieldToMain()
		}
		return false, nil
	}

	return false, nil
}

// executionStreamKey is the context key package stream stores an
// ExecutionStream under, standing in for the thread-local lookup an
// OS-threaded runtime would use. Exported accessors, not the key type
// itself, are the public surface.
type executionStreamKey struct{}

// WithExecutionStream attaches es to ctx so HasToStopContext (and
// package stream's own bookkeeping) can recover it later. Package
// stream calls this once per ES when it starts driving a scheduler.
func WithExecutionStream(ctx context.Context, es ExecutionStream) context.Context {
	return context.WithValue(ctx, executionStreamKey{}, es)
}

// ExecutionStreamFromContext recovers the ExecutionStream attached by
// WithExecutionStream, or nil if ctx carries none (i.e. the calling
// goroutine is not attached to any ES).
func ExecutionStreamFromContext(ctx context.Context) ExecutionStream {
	es, _ := ctx.Value(executionStreamKey{}).(ExecutionStream)
	return es
}

// HasToStopContext is the context-idiomatic wrapper a Definition's Run
// hook calls: it recovers the ExecutionStream from ctx and delegates
// to HasToStop.
func (s *Scheduler) HasToStopContext(ctx context.Context, isULT bool) (bool, error) {
	return s.HasToStop(ExecutionStreamFromContext(ctx), isULT)
}

// commitTerminated performs the monotonic READY/RUNNING/STOPPING ->
// TERMINATED transition. Callers must hold the ES top_sched_mutex
// already (HasToStop does); this only guards the scheduler's own
// state field against concurrent readers of State(). reason labels
// which request bit drove the commit ("exit" or "finish") and is
// recorded exactly once, on the transition itself.
func (s *Scheduler) commitTerminated(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != TERMINATED {
		s.state = TERMINATED
		if m := xstreammetrics.Default(); m != nil {
			m.SchedulerTerminated(reason)
		}
	}
}
