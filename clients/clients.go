// Package clients builds and caches provider clients from user credentials.
//
// A [Registry] hands out one client per provider kind and endpoint. Clients
// are reused across requests and rebuilt only after the credentials change.
package clients

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/anthropic"
	"github.com/fwojciec/parley/gemini"
	"github.com/fwojciec/parley/openai"
)

// Interface compliance check.
var _ parley.ProviderResolver = (*Registry)(nil)

// Credentials holds the API keys for the public provider endpoints.
type Credentials struct {
	OpenAIKey    string
	OpenAIOrg    string
	AnthropicKey string
	GoogleKey    string
}

type cacheKey struct {
	kind     parley.ProviderKind
	endpoint parley.Endpoint
}

// Registry implements [parley.ProviderResolver]. It is safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	creds  Credentials
	cache  map[cacheKey]parley.Provider
	logger *slog.Logger

	openaiOpts    []openai.Option
	anthropicOpts []anthropic.Option
	geminiOpts    []gemini.Option
}

// Option configures a [Registry].
type Option func(*Registry)

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithOpenAIOptions appends options applied to every OpenAI client built
// for the public endpoint.
func WithOpenAIOptions(opts ...openai.Option) Option {
	return func(r *Registry) { r.openaiOpts = append(r.openaiOpts, opts...) }
}

// WithAnthropicOptions appends options applied to every Anthropic client.
func WithAnthropicOptions(opts ...anthropic.Option) Option {
	return func(r *Registry) { r.anthropicOpts = append(r.anthropicOpts, opts...) }
}

// WithGeminiOptions appends options applied to every Gemini client.
func WithGeminiOptions(opts ...gemini.Option) Option {
	return func(r *Registry) { r.geminiOpts = append(r.geminiOpts, opts...) }
}

// New creates a [Registry] for the given credentials.
func New(creds Credentials, opts ...Option) *Registry {
	r := &Registry{
		creds:  creds,
		cache:  make(map[cacheKey]parley.Provider),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Credentials returns the current credentials.
func (r *Registry) Credentials() Credentials {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creds
}

// SetCredentials replaces the credentials. Cached clients are dropped only
// when the credentials differ from the current ones.
func (r *Registry) SetCredentials(c Credentials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c == r.creds {
		return
	}
	r.creds = c
	clear(r.cache)
	r.logger.Debug("credentials changed, provider clients reset")
}

// Provider returns the client serving model, building it on first use.
func (r *Registry) Provider(model parley.ModelDescriptor) (parley.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{kind: model.Provider, endpoint: model.Endpoint}
	if p, ok := r.cache[key]; ok {
		return p, nil
	}
	p, err := r.build(model)
	if err != nil {
		return nil, err
	}
	r.cache[key] = p
	r.logger.Debug("provider client built", "provider", model.Provider.String(), "endpoint", model.Endpoint.Name)
	return p, nil
}

func (r *Registry) build(model parley.ModelDescriptor) (parley.Provider, error) {
	switch model.Provider {
	case parley.ProviderOpenAICompatible:
		if !model.Endpoint.IsZero() {
			return openai.NewForEndpoint(model.Endpoint), nil
		}
		if r.creds.OpenAIKey == "" {
			return nil, missingKey("OpenAI")
		}
		opts := append([]openai.Option{openai.WithOrganization(r.creds.OpenAIOrg)}, r.openaiOpts...)
		return openai.New(r.creds.OpenAIKey, opts...), nil
	case parley.ProviderAnthropic:
		if r.creds.AnthropicKey == "" {
			return nil, missingKey("Anthropic")
		}
		return anthropic.New(r.creds.AnthropicKey, r.anthropicOpts...), nil
	case parley.ProviderGoogle:
		if r.creds.GoogleKey == "" {
			return nil, missingKey("Google")
		}
		c, err := gemini.New(context.Background(), r.creds.GoogleKey, r.geminiOpts...)
		if err != nil {
			return nil, parley.NewError(parley.KindProviderUnavailable, "Could not create the Gemini client: "+err.Error(), err)
		}
		return c, nil
	default:
		return nil, parley.NewError(parley.KindProviderUnavailable,
			fmt.Sprintf("No client available for provider %s.", model.Provider), nil)
	}
}

func missingKey(provider string) error {
	return parley.NewError(parley.KindProviderUnavailable,
		provider+" API key is not set, please configure it in the settings.", nil)
}
