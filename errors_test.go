package parley_test

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/fwojciec/parley"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticationMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "API key is incorrect, please configure it in the settings.",
		parley.AuthenticationMessage("Incorrect API key provided: sk-***"))
	assert.Equal(t, "Organization not found, please configure it in the settings.",
		parley.AuthenticationMessage("No such organization: org-123"))
	assert.Contains(t, parley.AuthenticationMessage("forbidden"), "forbidden")
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status int
		want   parley.ErrorKind
	}{
		{401, parley.KindAuthentication},
		{403, parley.KindAuthentication},
		{404, parley.KindModelNotFound},
		{500, parley.KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			t.Parallel()
			err := parley.ClassifyStatus(tt.status, "boom", nil)
			assert.Equal(t, tt.want, err.Kind)
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("openai: %w", parley.NewError(parley.KindAuthentication, "bad key", nil))
	assert.Equal(t, parley.KindAuthentication, parley.KindOf(wrapped))
	assert.Equal(t, parley.KindModelNotFound, parley.KindOf(parley.ErrModelNotFound))
	assert.Equal(t, parley.KindTokenBudgetUnsatisfiable, parley.KindOf(parley.ErrBudgetUnsatisfiable))
	assert.Equal(t, parley.KindUnexpected, parley.KindOf(errors.New("boom")))

	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.Equal(t, parley.KindProviderUnavailable, parley.KindOf(fmt.Errorf("x: %w", netErr)))
}

func TestMessageOf(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "bad key", parley.MessageOf(parley.NewError(parley.KindAuthentication, "bad key", nil)))
	assert.Equal(t, "An unexpected error occurred: boom", parley.MessageOf(errors.New("boom")))
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("cause")
	err := parley.NewError(parley.KindNetwork, "", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "network: cause", err.Error())
	assert.Equal(t, "token_budget_unsatisfiable", parley.KindTokenBudgetUnsatisfiable.String())
}
