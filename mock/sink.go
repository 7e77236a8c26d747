package mock

import (
	"sync"

	"github.com/fwojciec/parley"
)

// Interface compliance check.
var _ parley.Sink = (*Sink)(nil)

// Sink is a test double for parley.Sink. Function fields are optional; every
// call is also recorded and can be inspected with Deltas and Terminal.
type Sink struct {
	OnTextDeltaFn func(text string)
	OnDoneFn      func()
	OnCancelledFn func()
	OnErrorFn     func(kind parley.ErrorKind, message string)

	mu       sync.Mutex
	deltas   []string
	terminal []string
	kind     parley.ErrorKind
	message  string
}

// OnTextDelta records text and delegates to OnTextDeltaFn.
func (s *Sink) OnTextDelta(text string) {
	s.mu.Lock()
	s.deltas = append(s.deltas, text)
	s.mu.Unlock()
	if s.OnTextDeltaFn != nil {
		s.OnTextDeltaFn(text)
	}
}

// OnDone records completion and delegates to OnDoneFn.
func (s *Sink) OnDone() {
	s.record("done")
	if s.OnDoneFn != nil {
		s.OnDoneFn()
	}
}

// OnCancelled records cancellation and delegates to OnCancelledFn.
func (s *Sink) OnCancelled() {
	s.record("cancelled")
	if s.OnCancelledFn != nil {
		s.OnCancelledFn()
	}
}

// OnError records the failure and delegates to OnErrorFn.
func (s *Sink) OnError(kind parley.ErrorKind, message string) {
	s.mu.Lock()
	s.kind, s.message = kind, message
	s.mu.Unlock()
	s.record("error")
	if s.OnErrorFn != nil {
		s.OnErrorFn(kind, message)
	}
}

func (s *Sink) record(event string) {
	s.mu.Lock()
	s.terminal = append(s.terminal, event)
	s.mu.Unlock()
}

// Deltas returns a copy of the text deltas received so far.
func (s *Sink) Deltas() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deltas...)
}

// Terminal returns the terminal callbacks received so far, in order:
// "done", "cancelled", or "error".
func (s *Sink) Terminal() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terminal...)
}

// Err returns the kind and message of the last OnError call.
func (s *Sink) Err() (parley.ErrorKind, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind, s.message
}
