package parley

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request, message, or setting failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrBusy indicates a submission while another request is in flight.
	ErrBusy = errors.New("request already in flight")

	// ErrModelNotFound indicates the model id is absent from the registry.
	ErrModelNotFound = errors.New("model not found")

	// ErrBudgetUnsatisfiable indicates trimming could not fit the prompt
	// into the context window.
	ErrBudgetUnsatisfiable = errors.New("token budget unsatisfiable")
)

// ErrorKind classifies failures surfaced to the caller.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindAuthentication
	KindProviderUnavailable
	KindModelNotFound
	KindNetwork
	KindTokenBudgetUnsatisfiable
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindModelNotFound:
		return "model_not_found"
	case KindNetwork:
		return "network"
	case KindTokenBudgetUnsatisfiable:
		return "token_budget_unsatisfiable"
	default:
		return "unexpected"
	}
}

// Error is a classified failure. Message is the text meant for display;
// Err, when set, is the underlying cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError returns an *Error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the ErrorKind carried by err. Unclassified errors are
// KindUnexpected.
func KindOf(err error) ErrorKind {
	var e *Error
	switch {
	case errors.As(err, &e):
		return e.Kind
	case errors.Is(err, ErrModelNotFound):
		return KindModelNotFound
	case errors.Is(err, ErrBudgetUnsatisfiable):
		return KindTokenBudgetUnsatisfiable
	case IsNetworkError(err):
		return KindProviderUnavailable
	default:
		return KindUnexpected
	}
}

// MessageOf returns the display text for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "An unexpected error occurred: " + err.Error()
}

// IsNetworkError reports whether err originates from the network layer
// (dial failures, resets, DNS errors, transport timeouts).
func IsNetworkError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne)
}

// AuthenticationMessage turns provider authentication error text into a
// message that tells the user which credential to fix.
func AuthenticationMessage(providerText string) string {
	switch {
	case strings.Contains(providerText, "Incorrect API key"),
		strings.Contains(providerText, "invalid x-api-key"),
		strings.Contains(providerText, "API key not valid"):
		return "API key is incorrect, please configure it in the settings."
	case strings.Contains(providerText, "No such organization"):
		return "Organization not found, please configure it in the settings."
	default:
		return "Authentication failed, please check your credentials in the settings: " + providerText
	}
}

// ClassifyStatus maps an HTTP status from a provider API to an *Error.
// providerText is the provider's own error message.
func ClassifyStatus(status int, providerText string, err error) *Error {
	switch status {
	case 401, 403:
		return NewError(KindAuthentication, AuthenticationMessage(providerText), err)
	case 404:
		return NewError(KindModelNotFound, "Model not found: "+providerText, err)
	default:
		return NewError(KindUnexpected, "An unexpected error occurred: "+providerText, err)
	}
}
