// Package config loads and saves the user settings file.
package config

import (
	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/clients"
)

// DefaultSystemMessage is the system prompt of a new conversation.
const DefaultSystemMessage = "You are a helpful assistant."

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root settings document.
type Config struct {
	LogLevel      LogLevel       `yaml:"log_level"`
	LastUsedModel string         `yaml:"last_used_model"`
	SystemMessage string         `yaml:"system_message"`
	Generation    Generation     `yaml:"generation"`
	Paths         Paths          `yaml:"paths"`
	Credentials   Credentials    `yaml:"credentials"`
	CustomServers []CustomServer `yaml:"custom_servers,omitempty"`

	// MetricsAddr, when set, is the listen address for the Prometheus
	// /metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr"`
}

// Generation holds the sampling defaults sent with every request.
type Generation struct {
	Temperature float64            `yaml:"temperature"`
	MaxTokens   int                `yaml:"max_tokens"`
	ImageDetail parley.ImageDetail `yaml:"image_detail"`
}

// Paths holds the on-disk locations of chat logs and backups.
type Paths struct {
	ChatLogs string `yaml:"chat_logs"`
	Backups  string `yaml:"backups"`
}

// Credentials holds the API keys for the public provider endpoints.
type Credentials struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIOrg       string `yaml:"openai_org"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	GoogleAPIKey    string `yaml:"google_api_key"`
}

// CustomServer is a self-hosted OpenAI-compatible server.
type CustomServer struct {
	Name         string   `yaml:"name"`
	BaseURL      string   `yaml:"base_url"`
	APIKey       string   `yaml:"api_key"`
	Organization string   `yaml:"organization"`
	Models       []string `yaml:"models"`
}

// Default returns the settings used when no file exists yet.
func Default() *Config {
	return &Config{
		LogLevel:      LogInfo,
		LastUsedModel: "gpt-4-turbo",
		SystemMessage: DefaultSystemMessage,
		Generation: Generation{
			Temperature: 0.7,
			MaxTokens:   4000,
			ImageDetail: parley.ImageDetailLow,
		},
		Paths: Paths{
			ChatLogs: "chat_logs",
			Backups:  "temp/backup",
		},
	}
}

// ClientCredentials converts the credentials for the client registry.
func (c *Config) ClientCredentials() clients.Credentials {
	return clients.Credentials{
		OpenAIKey:    c.Credentials.OpenAIAPIKey,
		OpenAIOrg:    c.Credentials.OpenAIOrg,
		AnthropicKey: c.Credentials.AnthropicAPIKey,
		GoogleKey:    c.Credentials.GoogleAPIKey,
	}
}

// Servers converts the custom servers for the model registry.
func (c *Config) Servers() []parley.CustomServer {
	out := make([]parley.CustomServer, 0, len(c.CustomServers))
	for _, s := range c.CustomServers {
		out = append(out, parley.CustomServer{
			Name:         s.Name,
			BaseURL:      s.BaseURL,
			APIKey:       s.APIKey,
			Organization: s.Organization,
			Models:       append([]string(nil), s.Models...),
		})
	}
	return out
}

// GenerationParams converts the sampling defaults for the pipeline.
func (c *Config) GenerationParams() parley.Generation {
	temp := c.Generation.Temperature
	return parley.Generation{
		Temperature: &temp,
		MaxTokens:   c.Generation.MaxTokens,
		ImageDetail: c.Generation.ImageDetail,
	}
}

// ApplyEnv overrides credentials with non-empty values from getenv.
// Recognised keys: OPENAI_API_KEY, OPENAI_ORG_ID, ANTHROPIC_API_KEY,
// GEMINI_API_KEY.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Credentials.OpenAIAPIKey, "OPENAI_API_KEY")
	set(&c.Credentials.OpenAIOrg, "OPENAI_ORG_ID")
	set(&c.Credentials.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	set(&c.Credentials.GoogleAPIKey, "GEMINI_API_KEY")
}
