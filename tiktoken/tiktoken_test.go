package tiktoken_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/tiktoken"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T, opts ...tiktoken.Option) *tiktoken.Counter {
	t.Helper()
	c, err := tiktoken.New(opts...)
	require.NoError(t, err)
	return c
}

func TestCounter_EncodeDecode(t *testing.T) {
	t.Parallel()
	c := newCounter(t)
	text := "Hello, world! Ünïcödé and <|endoftext|> markup."
	tokens := c.Encode(text, "gpt-4")
	assert.NotEmpty(t, tokens)
	assert.Equal(t, text, c.Decode(tokens, "gpt-4"))
	assert.Empty(t, c.Encode("", "gpt-4"))
}

func TestCounter_Count(t *testing.T) {
	t.Parallel()
	c := newCounter(t)
	msgs := []parley.Message{
		{Role: parley.RoleSystem, Content: "You are a helpful assistant."},
		{Role: parley.RoleUser, Content: "Hello!"},
	}
	want := parley.CountWith(msgs, "gpt-4", func(s string) int { return len(c.Encode(s, "gpt-4")) })
	assert.Equal(t, want, c.Count(msgs, "gpt-4"))
	assert.Equal(t, parley.ReplyPrimingTokens, c.Count(nil, "gpt-4"))

	// gpt-3.5-turbo models pay one more framing token per message.
	assert.Equal(t, c.Count(msgs, "gpt-4")+len(msgs), c.Count(msgs, "gpt-3.5-turbo"))
}

func TestCounter_UnknownModelFallsBack(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	c := newCounter(t, tiktoken.WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	text := "the quick brown fox"
	assert.Equal(t, c.Encode(text, "gpt-4"), c.Encode(text, "claude-3-opus-20240229"))
	assert.Contains(t, buf.String(), "using default encoding")
}

func TestCounter_Monotonic(t *testing.T) {
	t.Parallel()
	c := newCounter(t)
	var msgs []parley.Message
	prev := c.Count(msgs, "gpt-4")
	for _, s := range []string{"a", " ", "longer message here", "🙂"} {
		msgs = append(msgs, parley.Message{Role: parley.RoleUser, Content: s})
		got := c.Count(msgs, "gpt-4")
		assert.Greater(t, got, prev)
		prev = got
	}
}

// Scenario: gpt-4 with its 8192-token window, one long unimportant message
// followed by twenty short turns, and 1000 tokens reserved for the reply.
func TestTrimmer_GPT4Scenario(t *testing.T) {
	t.Parallel()
	c := newCounter(t)
	long := strings.Repeat(" hello", 5000)
	msgs := []parley.Message{
		{Role: parley.RoleSystem, Content: "You are a helpful assistant."},
		{Role: parley.RoleUser, Content: long},
	}
	for i := 0; i < 20; i++ {
		role := parley.RoleAssistant
		if i%2 == 1 {
			role = parley.RoleUser
		}
		msgs = append(msgs, parley.Message{Role: role, Content: strings.Repeat(" word", 120)})
	}
	require.Greater(t, c.Count(msgs, "gpt-4"), 7192)

	res, err := parley.NewTrimmer(c).Trim(msgs, "gpt-4", 8192-1000)
	require.NoError(t, err)
	assert.LessOrEqual(t, c.Count(res.Messages, "gpt-4"), 7192)
	for i, m := range msgs {
		if i == 1 {
			continue
		}
		assert.Equal(t, m, res.Messages[i], "message %d untouched", i)
	}
	cut := res.Messages[1].Content
	assert.Less(t, len(cut), len(long))
	assert.True(t, strings.HasPrefix(long, cut))
}
