package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/fwojciec/parley"
	"google.golang.org/genai"
)

// stream implements [parley.Stream] by pulling from the genai SDK's
// streaming iterator.
type stream struct {
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	ctx     context.Context
	state   parley.StreamState
	err     error
	pending []string
}

// Interface compliance check.
var _ parley.Stream = (*stream)(nil)

// NewStreamFromIter wraps a genai response iterator as a [parley.Stream].
// Exported for testing.
func NewStreamFromIter(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) parley.Stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		pull:  next,
		stop:  stop,
		ctx:   ctx,
		state: parley.StreamStateNew,
	}
}

// Next returns the next text delta. Thought parts and empty chunks are
// skipped. Returns io.EOF when the iterator is exhausted.
func (s *stream) Next() (parley.Event, error) {
	switch s.state {
	case parley.StreamStateComplete:
		return nil, io.EOF
	case parley.StreamStateError:
		return nil, s.err
	case parley.StreamStateClosed:
		return nil, fmt.Errorf("gemini: %w", parley.ErrStreamClosed)
	}

	for {
		if len(s.pending) > 0 {
			delta := s.pending[0]
			s.pending = s.pending[1:]
			s.state = parley.StreamStateStreaming
			return parley.EventTextDelta{Delta: delta}, nil
		}
		if err := s.ctx.Err(); err != nil {
			return nil, s.fail(err)
		}

		resp, err, ok := s.pull()
		if !ok {
			s.state = parley.StreamStateComplete
			return nil, io.EOF
		}
		if err != nil {
			return nil, s.fail(err)
		}
		if resp == nil {
			continue
		}
		if len(resp.Candidates) == 0 && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, s.fail(fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
		}
		s.state = parley.StreamStateStreaming
		s.pending = textParts(resp)
	}
}

func (s *stream) fail(err error) error {
	s.state = parley.StreamStateError
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	s.err = fmt.Errorf("gemini: %w", classify(err))
	return s.err
}

func textParts(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		out = append(out, p.Text)
	}
	return out
}

// State returns the current stream state.
func (s *stream) State() parley.StreamState {
	return s.state
}

// Close stops the underlying iterator.
func (s *stream) Close() error {
	if s.state != parley.StreamStateComplete && s.state != parley.StreamStateError {
		s.state = parley.StreamStateClosed
	}
	s.stop()
	return nil
}
