package parley

import "context"

// Provider is a strategy pattern interface for LLM providers.
type Provider interface {
	Stream(ctx context.Context, req Request) (Stream, error)
}

// ProviderResolver returns the Provider that serves a model. Implementations
// return an *Error of KindProviderUnavailable when no client can be built
// for the model's provider.
type ProviderResolver interface {
	Provider(model ModelDescriptor) (Provider, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (Stream, error)

func (f ProviderFunc) Stream(ctx context.Context, req Request) (Stream, error) {
	return f(ctx, req)
}
