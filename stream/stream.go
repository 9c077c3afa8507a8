// Package stream implements the execution-stream side of the
// scheduler core's external contract: an OS-level worker that hosts a
// stack of schedulers, drives the topmost one's run hook, and exposes
// the top-scheduler mutex and cooperative-yield primitives package
// sched needs at its checkpoints.
//
// An ExecutionStream here is a goroutine-hosted worker, not a real OS
// thread pinned with runtime.LockOSThread — the core's contract only
// requires "an OS-level worker," and a goroutine satisfies every
// observable property (mutual exclusion via top_sched_mutex, one
// active scheduler at a time) the core depends on.
package stream

import (
	"context"
	"fmt"
	"sync"

	"steel-orchestrator/internal/xstreamid"
	"steel-orchestrator/internal/xstreamlog"
	"steel-orchestrator/sched"
)

// ExecutionStream hosts a stack of scheduler instances. The topmost
// entry's Run hook is the one actively draining pools; Push models a
// scheduler yielding control to a nested scheduler.
type ExecutionStream struct {
	id string

	mu    sync.Mutex // top_sched_mutex
	stack []*sched.Scheduler

	main *mainULT
}

// New constructs an ExecutionStream. withMain controls whether this ES
// has a "main ULT" that scheduling yields back to when it drains — a
// secondary ES spun up purely to run a scheduler usually passes false.
func New(withMain bool) *ExecutionStream {
	es := &ExecutionStream{id: xstreamid.New()}
	if withMain {
		es.main = newMainULT()
	}
	return es
}

// ID returns a stable handle used as the callerES argument to
// sched.Scheduler.GetMigrationPool and stored via pool.OwnerStream.
func (es *ExecutionStream) ID() string { return es.id }

// Lock/Unlock satisfy sched.ExecutionStream: they guard the
// top-scheduler mutex, the lock HasToStop acquires around a
// termination commit and Push acquires around a top-scheduler change
// (GetMigrationPool does not take it). This is
// always the outermost lock — nothing in this package acquires a
// scheduler's own internal mutex before calling Lock here.
func (es *ExecutionStream) Lock()   { es.mu.Lock() }
func (es *ExecutionStream) Unlock() { es.mu.Unlock() }

// YieldToMain implements the cooperative switch HasToStop performs
// when a drained scheduler has no pending request: if this ES has a
// main ULT, hand control to it and block until it resumes us. See
// contextswitch.go for the rendezvous.
func (es *ExecutionStream) YieldToMain() bool {
	if es.main == nil {
		return false
	}
	es.main.switchTo()
	return true
}

// Context returns a context.Context with this ES attached, the Go
// substitute for a thread-local ES lookup. A Definition's Run hook
// receives exactly this context.
func (es *ExecutionStream) Context(parent context.Context) context.Context {
	return sched.WithExecutionStream(parent, es)
}

// FromContext recovers the ExecutionStream package stream attached to
// ctx, or nil if ctx carries none or carries one from a different ES
// implementation (which cannot happen in practice, since package
// stream is the only implementor in this module).
func FromContext(ctx context.Context) *ExecutionStream {
	es, _ := sched.ExecutionStreamFromContext(ctx).(*ExecutionStream)
	return es
}

// Push makes s the topmost scheduler on this ES and always associates
// it as Main; IN_POOL-style nesting is out of this package's scope.
// Scheduler.Associate itself rejects a scheduler that is already
// associated (e.g. the same scheduler pushed twice) and one whose pools
// fail the access-mode binding rules. Pushing a different scheduler
// onto an ES that already hosts one is not rejected.
func (es *ExecutionStream) Push(s *sched.Scheduler) error {
	if err := s.Associate(sched.Main, es.id); err != nil {
		return fmt.Errorf("stream.Push: %w", err)
	}
	es.mu.Lock()
	es.stack = append(es.stack, s)
	es.mu.Unlock()
	return nil
}

// Top returns the currently-driven scheduler, or nil if none has been
// pushed.
func (es *ExecutionStream) Top() *sched.Scheduler {
	es.mu.Lock()
	defer es.mu.Unlock()
	if len(es.stack) == 0 {
		return nil
	}
	return es.stack[len(es.stack)-1]
}

// Run drives s's definition Run hook to completion: it pushes s as the
// top scheduler, attaches this ES to ctx, and invokes the hook
// synchronously. A goroutine-per-ES caller gets concurrent streams by
// calling Run in its own goroutine.
//
// An automatic scheduler is freed here once its Run hook returns —
// the drive loop exiting is its owning thread exiting, so the caller
// must not Free it again.
func (es *ExecutionStream) Run(ctx context.Context, s *sched.Scheduler) error {
	if err := es.Push(s); err != nil {
		return err
	}
	xstreamlog.Op().Debug("execution stream driving scheduler", "es", es.id, "sched", s.ID(), "kind", s.Kind())

	runCtx := es.Context(ctx)
	s.Run(runCtx)

	xstreamlog.Op().Debug("execution stream scheduler drained", "es", es.id, "sched", s.ID())
	if s.Automatic() {
		if err := s.Free(); err != nil {
			return fmt.Errorf("stream.Run: freeing automatic scheduler: %w", err)
		}
		xstreamlog.Op().Debug("automatic scheduler freed", "es", es.id, "sched", s.ID())
	}
	return nil
}
