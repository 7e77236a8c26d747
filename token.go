package parley

import "strings"

// ReplyPrimingTokens is charged once per accounting pass for the framing
// that starts the assistant reply.
const ReplyPrimingTokens = 3

// TokenCounter counts, encodes, and decodes tokens for a model. Unknown
// models fall back to a default encoding; implementations never fail.
type TokenCounter interface {
	Count(msgs []Message, model string) int
	Encode(text, model string) []int
	Decode(tokens []int, model string) string
}

// MessageOverhead returns the fixed per-message framing cost and the
// adjustment applied when a message carries a name.
func MessageOverhead(model string) (perMessage, perName int) {
	if strings.Contains(model, "gpt-3.5-turbo") {
		return 4, -1
	}
	return 3, 1
}

// CountWith performs one accounting pass over msgs using length to measure
// each encoded string. Role, content, and name are all encoded.
func CountWith(msgs []Message, model string, length func(string) int) int {
	perMessage, perName := MessageOverhead(model)
	n := 0
	for _, m := range msgs {
		n += perMessage
		n += length(string(m.Role))
		n += length(m.Content)
		if m.Name != "" {
			n += length(m.Name) + perName
		}
	}
	return n + ReplyPrimingTokens
}

// messageTokens is the cost of a single message without reply priming.
func messageTokens(c TokenCounter, m Message, model string) int {
	return c.Count([]Message{m}, model) - ReplyPrimingTokens
}
