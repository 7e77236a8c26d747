package mock

import (
	"unicode/utf8"

	"github.com/fwojciec/parley"
)

// Interface compliance checks.
var (
	_ parley.TokenCounter = (*TokenCounter)(nil)
	_ parley.TokenCounter = RuneCounter{}
)

// TokenCounter is a test double for parley.TokenCounter.
type TokenCounter struct {
	CountFn  func(msgs []parley.Message, model string) int
	EncodeFn func(text, model string) []int
	DecodeFn func(tokens []int, model string) string
}

// Count delegates to CountFn.
func (c *TokenCounter) Count(msgs []parley.Message, model string) int {
	return c.CountFn(msgs, model)
}

// Encode delegates to EncodeFn.
func (c *TokenCounter) Encode(text, model string) []int {
	return c.EncodeFn(text, model)
}

// Decode delegates to DecodeFn.
func (c *TokenCounter) Decode(tokens []int, model string) string {
	return c.DecodeFn(tokens, model)
}

// RuneCounter is a deterministic parley.TokenCounter that treats every
// CharsPerToken runes as one token. Encode returns one placeholder id per
// token, so only its length is meaningful; Decode is not supported.
type RuneCounter struct{}

// Count applies the standard accounting with rune-based lengths.
func (RuneCounter) Count(msgs []parley.Message, model string) int {
	return parley.CountWith(msgs, model, runeTokens)
}

// Encode returns one token id per started group of CharsPerToken runes. The
// id is the index of the group's first rune.
func (RuneCounter) Encode(text, _ string) []int {
	n := runeTokens(text)
	out := make([]int, n)
	for i := range out {
		out[i] = i * parley.CharsPerToken
	}
	return out
}

// Decode is not supported by RuneCounter and returns an empty string.
func (RuneCounter) Decode([]int, string) string { return "" }

func runeTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + parley.CharsPerToken - 1) / parley.CharsPerToken
}
