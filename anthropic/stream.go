package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/parley"
)

// stream implements [parley.Stream] by parsing SSE events from an HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   parley.StreamState
	err     error // terminal error, if any
}

// Interface compliance check.
var _ parley.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
		state:   parley.StreamStateNew,
	}
}

// Next reads the next text delta from the SSE stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (parley.Event, error) {
	switch s.state {
	case parley.StreamStateComplete:
		return nil, io.EOF
	case parley.StreamStateError:
		return nil, s.err
	case parley.StreamStateClosed:
		return nil, fmt.Errorf("anthropic: %w", parley.ErrStreamClosed)
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		s.state = parley.StreamStateStreaming

		evt, err := s.processEvent(eventType, data)
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		// processEvent may set a terminal state (message_stop).
		if s.state == parley.StreamStateComplete {
			return nil, io.EOF
		}

		if evt != nil {
			return evt, nil
		}
		// Non-text event (ping, message_start, etc.) - keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() parley.StreamState {
	return s.state
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != parley.StreamStateComplete && s.state != parley.StreamStateError {
		s.state = parley.StreamStateClosed
	}
	return s.body.Close()
}

// terminate records a terminal error.
func (s *stream) terminate(err error) {
	s.state = parley.StreamStateError
	if err == io.EOF {
		// message_stop sets StreamStateComplete before we get here, so a
		// raw EOF means the stream ended early.
		s.err = fmt.Errorf("anthropic: unexpected end of stream")
		return
	}
	if s.ctx.Err() != nil {
		s.err = fmt.Errorf("anthropic: %w", s.ctx.Err())
		return
	}
	s.err = err
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			// Empty line signals end of event.
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}

	// Scanner exhausted without error = EOF.
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to a parley.Event.
// Returns nil event for events that carry no text.
func (s *stream) processEvent(eventType, data string) (parley.Event, error) {
	switch eventType {
	case "content_block_delta":
		return s.handleContentBlockDelta(data)
	case "message_stop":
		s.state = parley.StreamStateComplete
		return nil, nil
	case "error":
		return nil, s.handleError(data)
	default:
		// message_start, content_block_start/stop, message_delta, ping, and
		// unknown event types carry no text.
		return nil, nil
	}
}

func (s *stream) handleContentBlockDelta(data string) (parley.Event, error) {
	var evt sseContentBlockDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
	}
	if evt.Delta.Type != "text_delta" || evt.Delta.Text == "" {
		return nil, nil
	}
	return parley.EventTextDelta{Delta: evt.Delta.Text}, nil
}

func (s *stream) handleError(data string) error {
	var evt sseError
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse error event: %w", err)
	}
	cause := fmt.Errorf("%s: %s", evt.Error.Type, evt.Error.Message)
	kind := parley.KindUnexpected
	if evt.Error.Type == "overloaded_error" {
		kind = parley.KindProviderUnavailable
	}
	return fmt.Errorf("anthropic: %w", parley.NewError(kind, "An unexpected error occurred: "+evt.Error.Message, cause))
}
