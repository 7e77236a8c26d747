package clients_test

import (
	"testing"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/anthropic"
	"github.com/fwojciec/parley/clients"
	"github.com/fwojciec/parley/gemini"
	"github.com/fwojciec/parley/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	gpt4   = parley.ModelDescriptor{ID: "gpt-4", Provider: parley.ProviderOpenAICompatible}
	claude = parley.ModelDescriptor{ID: "claude-3-opus-20240229", Provider: parley.ProviderAnthropic}
	gem    = parley.ModelDescriptor{ID: "gemini-1.5-pro", Provider: parley.ProviderGoogle}
)

func allKeys() clients.Credentials {
	return clients.Credentials{OpenAIKey: "sk", AnthropicKey: "ak", GoogleKey: "gk"}
}

func TestRegistry_BuildsClientPerProvider(t *testing.T) {
	t.Parallel()
	r := clients.New(allKeys())

	p, err := r.Provider(gpt4)
	require.NoError(t, err)
	assert.IsType(t, &openai.Client{}, p)

	p, err = r.Provider(claude)
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Client{}, p)

	p, err = r.Provider(gem)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, p)
}

func TestRegistry_CachesClients(t *testing.T) {
	t.Parallel()
	r := clients.New(allKeys())

	first, err := r.Provider(gpt4)
	require.NoError(t, err)
	second, err := r.Provider(parley.ModelDescriptor{ID: "gpt-3.5-turbo", Provider: parley.ProviderOpenAICompatible})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistry_RebuildsOnlyOnCredentialChange(t *testing.T) {
	t.Parallel()
	r := clients.New(allKeys())

	first, err := r.Provider(claude)
	require.NoError(t, err)

	r.SetCredentials(allKeys())
	same, err := r.Provider(claude)
	require.NoError(t, err)
	assert.Same(t, first, same)

	creds := allKeys()
	creds.AnthropicKey = "new"
	r.SetCredentials(creds)
	rebuilt, err := r.Provider(claude)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)
	assert.Equal(t, creds, r.Credentials())
}

func TestRegistry_MissingKey(t *testing.T) {
	t.Parallel()
	r := clients.New(clients.Credentials{})

	for _, m := range []parley.ModelDescriptor{gpt4, claude, gem} {
		_, err := r.Provider(m)
		require.Error(t, err, m.ID)
		assert.Equal(t, parley.KindProviderUnavailable, parley.KindOf(err))
		assert.Contains(t, parley.MessageOf(err), "please configure it in the settings")
	}
}

func TestRegistry_CustomEndpoint(t *testing.T) {
	t.Parallel()
	r := clients.New(clients.Credentials{})

	local := parley.Endpoint{Name: "local", BaseURL: "http://localhost:8000/v1", APIKey: "x"}
	other := parley.Endpoint{Name: "other", BaseURL: "http://localhost:9000/v1"}

	a, err := r.Provider(parley.ModelDescriptor{ID: "llama3", Provider: parley.ProviderOpenAICompatible, Endpoint: local})
	require.NoError(t, err)
	b, err := r.Provider(parley.ModelDescriptor{ID: "mistral", Provider: parley.ProviderOpenAICompatible, Endpoint: local})
	require.NoError(t, err)
	c, err := r.Provider(parley.ModelDescriptor{ID: "llama3", Provider: parley.ProviderOpenAICompatible, Endpoint: other})
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestRegistry_UnknownProvider(t *testing.T) {
	t.Parallel()
	r := clients.New(allKeys())
	_, err := r.Provider(parley.ModelDescriptor{ID: "x", Provider: parley.ProviderKind(99)})
	require.Error(t, err)
	assert.Equal(t, parley.KindProviderUnavailable, parley.KindOf(err))
}
