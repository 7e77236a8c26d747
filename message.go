package parley

import "fmt"

// Message is one turn of the canonical, provider-independent conversation.
type Message struct {
	Role    Role
	Content string

	// Name is an optional author name. It is counted with the per-name
	// token adjustment and forwarded to providers that accept it.
	Name string

	// Important exempts the message from the first trimming pass.
	// Session-local: it is never persisted.
	Important bool
}

// CloneMessages returns a copy of msgs that shares no backing array with it.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Conversation is the UI-owned transcript: a persistent system prompt plus
// the ordered history. Core components never hold a Conversation; they
// operate on the snapshot returned by Messages.
type Conversation struct {
	SystemMessage string
	History       []Message
}

// Messages returns the canonical message list for a request: the system
// prompt as the index-0 system message followed by a copy of the history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, 0, len(c.History)+1)
	out = append(out, Message{Role: RoleSystem, Content: c.SystemMessage})
	return append(out, c.History...)
}

// Append adds a message to the end of the history.
func (c *Conversation) Append(role Role, content string) {
	c.History = append(c.History, Message{Role: role, Content: content})
}

// AppendEmptyUserTurn adds the fresh user turn that follows a completed
// assistant response.
func (c *Conversation) AppendEmptyUserTurn() {
	c.Append(RoleUser, "")
}

// AppendToLast streams text into the conversation: it extends the last
// message when that message is an assistant turn, and otherwise starts a
// new assistant turn.
func (c *Conversation) AppendToLast(text string) {
	if n := len(c.History); n > 0 && c.History[n-1].Role == RoleAssistant {
		c.History[n-1].Content += text
		return
	}
	c.Append(RoleAssistant, text)
}

// ToggleRole cycles the role of the message at index i.
func (c *Conversation) ToggleRole(i int) error {
	if i < 0 || i >= len(c.History) {
		return fmt.Errorf("toggle role: index %d out of range [0, %d): %w", i, len(c.History), ErrValidation)
	}
	c.History[i].Role = c.History[i].Role.Next()
	return nil
}

// ToggleImportant flips the important flag of the message at index i.
func (c *Conversation) ToggleImportant(i int) error {
	if i < 0 || i >= len(c.History) {
		return fmt.Errorf("toggle important: index %d out of range [0, %d): %w", i, len(c.History), ErrValidation)
	}
	c.History[i].Important = !c.History[i].Important
	return nil
}

// Delete removes the message at index i.
func (c *Conversation) Delete(i int) error {
	if i < 0 || i >= len(c.History) {
		return fmt.Errorf("delete: index %d out of range [0, %d): %w", i, len(c.History), ErrValidation)
	}
	c.History = append(c.History[:i], c.History[i+1:]...)
	return nil
}

// Clear drops the history but keeps the system prompt.
func (c *Conversation) Clear() {
	c.History = nil
}
