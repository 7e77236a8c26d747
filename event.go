package parley

// Event is a sealed interface representing a streaming event.
// Transport and protocol errors come from Next()'s error return, not from
// events. The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventTextDelta represents an increment of assistant text.
type EventTextDelta struct {
	Delta string
}

func (EventTextDelta) event() {}

var _ Event = EventTextDelta{}
