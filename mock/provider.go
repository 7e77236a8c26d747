// Package mock provides test doubles for parley interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/parley"
)

// Interface compliance checks.
var (
	_ parley.Provider         = (*Provider)(nil)
	_ parley.ProviderResolver = (*Resolver)(nil)
)

// Provider is a test double for parley.Provider.
// Set StreamFn before calling Stream.
type Provider struct {
	StreamFn func(ctx context.Context, req parley.Request) (parley.Stream, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req parley.Request) (parley.Stream, error) {
	return p.StreamFn(ctx, req)
}

// Resolver is a test double for parley.ProviderResolver.
type Resolver struct {
	ProviderFn func(model parley.ModelDescriptor) (parley.Provider, error)
}

// Provider delegates to ProviderFn.
func (r *Resolver) Provider(model parley.ModelDescriptor) (parley.Provider, error) {
	return r.ProviderFn(model)
}
