package parley

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultContextWindow is assumed for models whose window is not known.
const DefaultContextWindow = 128000

// CustomServer is a user-registered OpenAI-compatible endpoint and the model
// ids it serves.
type CustomServer struct {
	Name         string
	BaseURL      string
	APIKey       string
	Organization string
	Models       []string
}

// Endpoint returns the connection details of s.
func (s CustomServer) Endpoint() Endpoint {
	return Endpoint{Name: s.Name, BaseURL: s.BaseURL, APIKey: s.APIKey, Organization: s.Organization}
}

// Registry resolves model ids to descriptors. Built-in entries are fixed;
// custom servers are layered on top and may alias built-in ids. It is safe
// for concurrent use; SetServers replaces the server list atomically.
type Registry struct {
	mu      sync.RWMutex
	builtin map[string]ModelDescriptor
	servers []CustomServer
}

// NewRegistry returns a Registry seeded with the built-in models.
func NewRegistry() *Registry {
	r := &Registry{builtin: make(map[string]ModelDescriptor, len(builtinModels))}
	for _, m := range builtinModels {
		r.builtin[m.ID] = m
	}
	return r
}

// Register appends a custom server. Its models take precedence over built-in
// entries and over servers registered earlier.
func (r *Registry) Register(s CustomServer) error {
	if err := validateServer(s); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = append(r.servers, cloneServer(s))
	return nil
}

// SetServers replaces all custom servers.
func (r *Registry) SetServers(servers []CustomServer) error {
	next := make([]CustomServer, 0, len(servers))
	for _, s := range servers {
		if err := validateServer(s); err != nil {
			return err
		}
		next = append(next, cloneServer(s))
	}
	r.mu.Lock()
	r.servers = next
	r.mu.Unlock()
	return nil
}

// Servers returns a copy of the registered custom servers.
func (r *Registry) Servers() []CustomServer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CustomServer, len(r.servers))
	for i, s := range r.servers {
		out[i] = cloneServer(s)
	}
	return out
}

// Resolve returns the descriptor for id. Custom servers are searched newest
// first, so the last registration of an aliased id wins.
func (r *Registry) Resolve(id string) (ModelDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.servers) - 1; i >= 0; i-- {
		s := r.servers[i]
		for _, m := range s.Models {
			if m == id {
				return r.customDescriptor(id, s), nil
			}
		}
	}
	if m, ok := r.builtin[id]; ok {
		return m, nil
	}
	return ModelDescriptor{}, fmt.Errorf("resolve %q: %w", id, ErrModelNotFound)
}

// customDescriptor borrows pricing and window from a built-in entry of the
// same id, if any. Custom servers are never treated as vision-capable.
func (r *Registry) customDescriptor(id string, s CustomServer) ModelDescriptor {
	d := ModelDescriptor{ID: id, Provider: ProviderOpenAICompatible}
	if b, ok := r.builtin[id]; ok {
		d.MaxContextTokens = b.MaxContextTokens
		d.InputPricePer1K = b.InputPricePer1K
		d.OutputPricePer1K = b.OutputPricePer1K
	}
	d.Endpoint = s.Endpoint()
	return d
}

// Models returns every selectable model id, sorted and deduplicated.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{}, len(r.builtin))
	for id := range r.builtin {
		seen[id] = struct{}{}
	}
	for _, s := range r.servers {
		for _, m := range s.Models {
			seen[m] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func validateServer(s CustomServer) error {
	if s.BaseURL == "" {
		return fmt.Errorf("custom server %q: base url is required: %w", s.Name, ErrValidation)
	}
	if len(s.Models) == 0 {
		return fmt.Errorf("custom server %q: at least one model is required: %w", s.Name, ErrValidation)
	}
	return nil
}

func cloneServer(s CustomServer) CustomServer {
	s.Models = append([]string(nil), s.Models...)
	return s
}

func openAIModel(id string, window int, in, out float64, vision bool) ModelDescriptor {
	return ModelDescriptor{ID: id, Provider: ProviderOpenAICompatible, MaxContextTokens: window, InputPricePer1K: in, OutputPricePer1K: out, SupportsVision: vision}
}

func anthropicModel(id string, in, out float64) ModelDescriptor {
	return ModelDescriptor{ID: id, Provider: ProviderAnthropic, MaxContextTokens: 128000, InputPricePer1K: in, OutputPricePer1K: out}
}

func googleModel(id string, window int, in, out float64) ModelDescriptor {
	return ModelDescriptor{ID: id, Provider: ProviderGoogle, MaxContextTokens: window, InputPricePer1K: in, OutputPricePer1K: out}
}

var builtinModels = []ModelDescriptor{
	openAIModel("gpt-4-turbo", 128000, 0.01, 0.03, true),
	openAIModel("gpt-4-turbo-2024-04-09", 128000, 0.01, 0.03, true),
	openAIModel("gpt-4-turbo-preview", 128000, 0.01, 0.03, false),
	openAIModel("gpt-4-0125-preview", 128000, 0.01, 0.03, false),
	openAIModel("gpt-4-1106-preview", 128000, 0.01, 0.03, false),
	openAIModel("gpt-4-1106-vision-preview", 128000, 0.01, 0.03, true),
	openAIModel("gpt-4-vision-preview", 128000, 0.01, 0.03, true),
	openAIModel("gpt-4", 8192, 0.03, 0.06, false),
	openAIModel("gpt-4-0613", 8192, 0.03, 0.06, false),
	openAIModel("gpt-4-0314", 8192, 0.03, 0.06, false),
	openAIModel("gpt-4-32k", 32768, 0.06, 0.12, false),
	openAIModel("gpt-3.5-turbo", 16385, 0.0010, 0.0020, false),
	openAIModel("gpt-3.5-turbo-0125", 16385, 0.0005, 0.0015, false),
	openAIModel("gpt-3.5-turbo-0613", 4096, 0.0010, 0.0020, false),
	openAIModel("gpt-3.5-turbo-0301", 4096, 0.0010, 0.0020, false),
	openAIModel("gpt-3.5-turbo-16k", 16384, 0.0010, 0.0020, false),
	openAIModel("gpt-3.5-turbo-16k-0613", 16385, 0.0010, 0.0020, false),
	openAIModel("gpt-3.5-turbo-1106", 16385, 0.0010, 0.0020, false),
	openAIModel("gpt-3.5-turbo-instruct", 4096, 0.0015, 0.0020, false),
	anthropicModel("claude-3-opus-20240229", 0.015, 0.075),
	anthropicModel("claude-3-sonnet-20240229", 0.003, 0.015),
	anthropicModel("claude-3-haiku-20240307", 0.00025, 0.00125),
	anthropicModel("claude-2.1", 0.008, 0.024),
	anthropicModel("claude-2.0", 0.008, 0.024),
	anthropicModel("claude-instant-1.2", 0.0008, 0.0024),
	googleModel("gemini-1.5-pro", 1048576, 0.0035, 0.0105),
	googleModel("gemini-1.5-flash", 1048576, 0.00035, 0.00105),
	googleModel("gemini-1.0-pro", 30720, 0.0005, 0.0015),
}
