package openai

import (
	"context"
	"fmt"
	"io"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/fwojciec/parley"
)

// stream adapts an SDK chunk stream to [parley.Stream].
type stream struct {
	sse    *ssestream.Stream[oai.ChatCompletionChunk]
	ctx    context.Context
	client *Client
	state  parley.StreamState
	err    error
}

// Interface compliance check.
var _ parley.Stream = (*stream)(nil)

func newStream(ctx context.Context, sse *ssestream.Stream[oai.ChatCompletionChunk], c *Client) *stream {
	return &stream{sse: sse, ctx: ctx, client: c, state: parley.StreamStateNew}
}

// Next returns the next text delta. Chunks without content are skipped.
// Returns io.EOF when the server ends the stream.
func (s *stream) Next() (parley.Event, error) {
	switch s.state {
	case parley.StreamStateComplete:
		return nil, io.EOF
	case parley.StreamStateError:
		return nil, s.err
	case parley.StreamStateClosed:
		return nil, fmt.Errorf("openai: %w", parley.ErrStreamClosed)
	}

	for s.sse.Next() {
		s.state = parley.StreamStateStreaming
		chunk := s.sse.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return parley.EventTextDelta{Delta: delta}, nil
		}
	}

	if err := s.sse.Err(); err != nil {
		s.state = parley.StreamStateError
		if s.ctx.Err() != nil {
			err = s.ctx.Err()
		}
		s.err = fmt.Errorf("openai: %w", s.client.classify(err))
		return nil, s.err
	}
	s.state = parley.StreamStateComplete
	return nil, io.EOF
}

// State returns the current stream state.
func (s *stream) State() parley.StreamState {
	return s.state
}

// Close releases the underlying HTTP response.
func (s *stream) Close() error {
	if s.state != parley.StreamStateComplete && s.state != parley.StreamStateError {
		s.state = parley.StreamStateClosed
	}
	return s.sse.Close()
}
