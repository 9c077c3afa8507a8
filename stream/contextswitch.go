package stream

// mainULT models the ES's "main ULT" — the user context control
// returns to when a drained scheduler yields. A real context-switch
// primitive swaps stacks; here only the observable handshake matters:
// the caller blocks until resumed, and the main side can tell a yield
// happened. The buffered channels are pure rendezvous points, not data
// queues.
type mainULT struct {
	toMain  chan struct{}
	resumed chan struct{}
}

func newMainULT() *mainULT {
	return &mainULT{
		toMain:  make(chan struct{}, 1),
		resumed: make(chan struct{}, 1),
	}
}

// switchTo signals the main side and blocks until resume is called.
// Safe to call only from the ULT/goroutine currently driving the
// scheduler that owns this ES.
func (m *mainULT) switchTo() {
	select {
	case m.toMain <- struct{}{}:
	default:
	}
	<-m.resumed
}

// wait blocks the main-side goroutine until some scheduler yields to
// it via switchTo. WaitForYield exposes it to callers that want to
// learn when the ES they own has drained.
func (m *mainULT) wait() {
	<-m.toMain
}

// resume hands control back to whichever goroutine is blocked in
// switchTo.
func (m *mainULT) resume() {
	select {
	case m.resumed <- struct{}{}:
	default:
	}
}

// WaitForYield blocks until the ES's scheduler yields back to the
// main ULT (i.e. some stop check found the pools drained with no
// pending request). It returns immediately, false, if this ES has no
// main ULT.
func (es *ExecutionStream) WaitForYield() bool {
	if es.main == nil {
		return false
	}
	es.main.wait()
	return true
}

// ResumeFromYield hands control back to the scheduler blocked in
// YieldToMain. A no-op if this ES has no main ULT.
func (es *ExecutionStream) ResumeFromYield() {
	if es.main == nil {
		return
	}
	es.main.resume()
}
