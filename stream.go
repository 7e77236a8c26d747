package parley

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving deltas.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

func (s StreamState) String() string {
	switch s {
	case StreamStateNew:
		return "new"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateComplete:
		return "complete"
	case StreamStateError:
		return "error"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream uses a pull-based iterator pattern. Next returns io.EOF once the
// provider signals end of stream. Errors returned by Next are classified
// *Error values wherever the provider can tell why the request failed.
// Cancellation flows through the context passed to Provider.Stream(); after
// Close, Next returns ErrStreamClosed.
type Stream interface {
	Next() (Event, error)
	State() StreamState
	Close() error
}
