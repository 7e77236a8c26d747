package parley_test

import (
	"testing"

	"github.com/fwojciec/parley"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Next(t *testing.T) {
	t.Parallel()
	assert.Equal(t, parley.RoleAssistant, parley.RoleUser.Next())
	assert.Equal(t, parley.RoleSystem, parley.RoleAssistant.Next())
	assert.Equal(t, parley.RoleUser, parley.RoleSystem.Next())
	assert.False(t, parley.Role("tool").IsValid())
}

func TestConversation_Messages(t *testing.T) {
	t.Parallel()
	c := parley.Conversation{SystemMessage: "be brief"}
	c.Append(parley.RoleUser, "hi")

	got := c.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, parley.Message{Role: parley.RoleSystem, Content: "be brief"}, got[0])
	assert.Equal(t, parley.Message{Role: parley.RoleUser, Content: "hi"}, got[1])

	got[1].Content = "changed"
	assert.Equal(t, "hi", c.History[0].Content, "snapshot must not alias history")
}

func TestConversation_AppendToLast(t *testing.T) {
	t.Parallel()

	t.Run("extends trailing assistant message", func(t *testing.T) {
		t.Parallel()
		c := parley.Conversation{}
		c.Append(parley.RoleUser, "hi")
		c.AppendToLast("Hel")
		c.AppendToLast("lo")
		require.Len(t, c.History, 2)
		assert.Equal(t, parley.Message{Role: parley.RoleAssistant, Content: "Hello"}, c.History[1])
	})

	t.Run("starts assistant turn after user message", func(t *testing.T) {
		t.Parallel()
		c := parley.Conversation{}
		c.Append(parley.RoleUser, "q")
		c.AppendToLast("a")
		assert.Equal(t, parley.RoleAssistant, c.History[1].Role)
	})

	t.Run("starts assistant turn on empty history", func(t *testing.T) {
		t.Parallel()
		c := parley.Conversation{}
		c.AppendToLast("a")
		assert.Equal(t, []parley.Message{{Role: parley.RoleAssistant, Content: "a"}}, c.History)
	})
}

func TestConversation_Edits(t *testing.T) {
	t.Parallel()

	c := parley.Conversation{SystemMessage: "sys"}
	c.Append(parley.RoleUser, "one")
	c.Append(parley.RoleAssistant, "two")
	c.AppendEmptyUserTurn()

	require.NoError(t, c.ToggleRole(0))
	assert.Equal(t, parley.RoleAssistant, c.History[0].Role)
	require.NoError(t, c.ToggleImportant(1))
	assert.True(t, c.History[1].Important)
	require.NoError(t, c.Delete(0))
	require.Len(t, c.History, 2)
	assert.Equal(t, "two", c.History[0].Content)
	assert.Equal(t, parley.Message{Role: parley.RoleUser}, c.History[1])

	assert.ErrorIs(t, c.ToggleRole(5), parley.ErrValidation)
	assert.ErrorIs(t, c.ToggleImportant(-1), parley.ErrValidation)
	assert.ErrorIs(t, c.Delete(2), parley.ErrValidation)

	c.Clear()
	assert.Empty(t, c.History)
	assert.Equal(t, "sys", c.SystemMessage)
}

func TestCloneMessages(t *testing.T) {
	t.Parallel()
	assert.Nil(t, parley.CloneMessages(nil))
	in := []parley.Message{{Role: parley.RoleUser, Content: "a"}}
	out := parley.CloneMessages(in)
	out[0].Content = "b"
	assert.Equal(t, "a", in[0].Content)
}
