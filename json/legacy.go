package json

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/parley"
)

var legacyPrefixes = []parley.Role{parley.RoleSystem, parley.RoleUser, parley.RoleAssistant}

// DecodeLegacy reads the plain-text log format that predates JSON logs.
// Each message starts with a line `role: "content` and runs until the next
// such line; the trailing quote and newlines are dropped. The first system
// message becomes the system prompt.
func DecodeLegacy(r io.Reader) (parley.Conversation, error) {
	var (
		c           parley.Conversation
		current     *parley.Message
		firstSystem = true
	)
	finish := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimRight(current.Content, "\n\"")
		c.History = append(c.History, *current)
		current = nil
	}

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if role, content, ok := legacyHeader(line); ok {
				finish()
				if role == parley.RoleSystem && firstSystem {
					c.SystemMessage = strings.TrimRight(content, "\n\"")
					firstSystem = false
				} else {
					current = &parley.Message{Role: role, Content: content}
				}
			} else if current != nil {
				current.Content += "\n" + strings.TrimRight(line, "\r\n")
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return parley.Conversation{}, fmt.Errorf("read legacy log: %w", err)
		}
	}
	finish()
	return c, nil
}

func legacyHeader(line string) (parley.Role, string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, role := range legacyPrefixes {
		prefix := string(role) + `: "`
		if strings.HasPrefix(trimmed, prefix) {
			return role, strings.TrimPrefix(trimmed, prefix), true
		}
	}
	return "", "", false
}
