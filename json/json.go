// Package json persists conversations as JSON chat logs.
//
// A log holds the system prompt and the ordered history:
//
//	{
//	    "system_message": "...",
//	    "chat_history": [{"role": "user", "content": "..."}]
//	}
//
// The importance flag is session-only and never written.
package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fwojciec/parley"
)

// chatLog is the wire format for a persisted conversation.
type chatLog struct {
	SystemMessage string       `json:"system_message"`
	ChatHistory   []messageDTO `json:"chat_history"`
}

type messageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MarshalConversation serializes a Conversation with four-space indentation.
// Surrounding whitespace is stripped from every text field.
func MarshalConversation(c parley.Conversation) ([]byte, error) {
	log := chatLog{
		SystemMessage: strings.TrimSpace(c.SystemMessage),
		ChatHistory:   make([]messageDTO, len(c.History)),
	}
	for i, m := range c.History {
		log.ChatHistory[i] = messageDTO{Role: string(m.Role), Content: strings.TrimSpace(m.Content)}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(log); err != nil {
		return nil, fmt.Errorf("encode chat log: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalConversation deserializes a chat log. Unknown roles are rejected.
func UnmarshalConversation(data []byte) (parley.Conversation, error) {
	var log chatLog
	if err := json.Unmarshal(data, &log); err != nil {
		return parley.Conversation{}, fmt.Errorf("decode chat log: %w", err)
	}
	c := parley.Conversation{
		SystemMessage: log.SystemMessage,
		History:       make([]parley.Message, len(log.ChatHistory)),
	}
	for i, dto := range log.ChatHistory {
		role := parley.Role(dto.Role)
		if !role.IsValid() {
			return parley.Conversation{}, fmt.Errorf("message %d: unknown role %q: %w", i, dto.Role, parley.ErrValidation)
		}
		c.History[i] = parley.Message{Role: role, Content: dto.Content}
	}
	return c, nil
}
