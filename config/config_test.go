package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/clients"
	"github.com/fwojciec/parley/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullYAML = `
log_level: debug
last_used_model: gpt-4
system_message: Be terse.
generation:
  temperature: 0.5
  max_tokens: 1000
  image_detail: high
paths:
  chat_logs: logs
  backups: bak
credentials:
  openai_api_key: sk-1
  openai_org: org-1
  anthropic_api_key: ak-1
  google_api_key: gk-1
custom_servers:
  - name: local
    base_url: http://localhost:8000/v1
    api_key: ollama
    models: [llama3, mistral]
metrics_addr: ":9464"
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, config.LogDebug, cfg.LogLevel)
	assert.Equal(t, "gpt-4", cfg.LastUsedModel)
	assert.Equal(t, "Be terse.", cfg.SystemMessage)
	assert.Equal(t, config.Generation{Temperature: 0.5, MaxTokens: 1000, ImageDetail: parley.ImageDetailHigh}, cfg.Generation)
	assert.Equal(t, config.Paths{ChatLogs: "logs", Backups: "bak"}, cfg.Paths)
	assert.Equal(t, ":9464", cfg.MetricsAddr)

	assert.Equal(t, clients.Credentials{OpenAIKey: "sk-1", OpenAIOrg: "org-1", AnthropicKey: "ak-1", GoogleKey: "gk-1"}, cfg.ClientCredentials())
	assert.Equal(t, []parley.CustomServer{{
		Name:    "local",
		BaseURL: "http://localhost:8000/v1",
		APIKey:  "ollama",
		Models:  []string{"llama3", "mistral"},
	}}, cfg.Servers())

	gen := cfg.GenerationParams()
	require.NotNil(t, gen.Temperature)
	assert.Equal(t, 0.5, *gen.Temperature)
	assert.Equal(t, 1000, gen.MaxTokens)
	assert.Equal(t, parley.ImageDetailHigh, gen.ImageDetail)
}

func TestLoadFromReader_DefaultsForMissingFields(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("last_used_model: claude-3-opus-20240229\n"))
	require.NoError(t, err)

	want := config.Default()
	want.LastUsedModel = "claude-3-opus-20240229"
	assert.Equal(t, want, cfg)
}

func TestLoadFromReader_Empty(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("dark_mode: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dark_mode")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	yaml := `
log_level: loud
generation:
  temperature: 2.5
  max_tokens: -1
  image_detail: medium
custom_servers:
  - name: a
    base_url: localhost:8000
    models: [x]
  - name: a
    base_url: ftp://host/v1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"log_level",
		"generation.temperature",
		"generation.max_tokens",
		"generation.image_detail",
		"custom_servers[0].base_url",
		"custom_servers[1].name \"a\" is a duplicate",
		"custom_servers[1].base_url",
		"custom_servers[1].models",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Credentials.AnthropicAPIKey = "from-file"
	cfg.Credentials.GoogleAPIKey = "keep"
	env := map[string]string{
		"OPENAI_API_KEY":    "sk-env",
		"OPENAI_ORG_ID":     "org-env",
		"ANTHROPIC_API_KEY": "ak-env",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, config.Credentials{
		OpenAIAPIKey:    "sk-env",
		OpenAIOrg:       "org-env",
		AnthropicAPIKey: "ak-env",
		GoogleAPIKey:    "keep",
	}, cfg.Credentials)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	require.NoError(t, err)
	cfg.LastUsedModel = "gemini-1.5-pro"

	path := filepath.Join(t.TempDir(), "conf", "parley.yaml")
	require.NoError(t, config.Save(path, cfg))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLoadOrCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "parley.yaml")
	cfg, err := config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, err := config.LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
