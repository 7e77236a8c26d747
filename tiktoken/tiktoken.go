// Package tiktoken implements parley.TokenCounter on top of the tiktoken BPE
// encodings, loaded from the embedded offline vocabulary files.
package tiktoken

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fwojciec/parley"
	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding is used for models tiktoken does not know.
const DefaultEncoding = "cl100k_base"

var _ parley.TokenCounter = (*Counter)(nil)

var loaderOnce sync.Once

// Counter counts tokens with the encoding tiktoken assigns to each model.
// Encodings are cached per model id. It is safe for concurrent use.
type Counter struct {
	logger   *slog.Logger
	fallback *tiktoken.Tiktoken

	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

// Option configures a Counter.
type Option func(*Counter)

// WithLogger sets the logger used to report encoding fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Counter) { c.logger = l }
}

// New returns a Counter. It fails only if the default encoding cannot be
// loaded.
func New(opts ...Option) (*Counter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	fallback, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken: load %s: %w", DefaultEncoding, err)
	}
	c := &Counter{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		fallback: fallback,
		cache:    make(map[string]*tiktoken.Tiktoken),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Count returns the prompt token count of msgs for model, including the
// per-message framing and the reply priming.
func (c *Counter) Count(msgs []parley.Message, model string) int {
	enc := c.encoding(model)
	return parley.CountWith(msgs, model, func(s string) int {
		return len(enc.EncodeOrdinary(s))
	})
}

// Encode returns the token ids of text. Special-token markup in text is
// encoded as ordinary text.
func (c *Counter) Encode(text, model string) []int {
	return c.encoding(model).EncodeOrdinary(text)
}

// Decode returns the text of tokens.
func (c *Counter) Decode(tokens []int, model string) string {
	return c.encoding(model).Decode(tokens)
}

func (c *Counter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.RLock()
	enc, ok := c.cache[model]
	c.mu.RUnlock()
	if ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		c.logger.Debug("model not found for token counter, using default encoding",
			"model", model, "encoding", DefaultEncoding)
		enc = c.fallback
	}
	c.mu.Lock()
	c.cache[model] = enc
	c.mu.Unlock()
	return enc
}
