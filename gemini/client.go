package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/parley"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ parley.Provider = (*Client)(nil)

// Client implements [parley.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
}

type config struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*config)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) { c.httpClient = hc }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{client: gc}, nil
}

// Stream sends a streaming request to the Gemini API. The SDK reports HTTP
// failures through its iterator, so they surface from the first
// [parley.Stream.Next].
func (c *Client) Stream(ctx context.Context, req parley.Request) (parley.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	contents, system := ConvertMessages(req.Messages)
	if req.System != nil && *req.System != "" {
		system = append([]string{*req.System}, system...)
	}
	iter := c.client.Models.GenerateContentStream(ctx, req.Model, contents, buildConfig(req, system))
	return NewStreamFromIter(ctx, iter), nil
}

func buildConfig(req parley.Request, system []string) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if len(system) > 0 {
		parts := make([]*genai.Part, 0, len(system))
		for _, s := range system {
			parts = append(parts, &genai.Part{Text: s})
		}
		config.SystemInstruction = &genai.Content{Parts: parts}
	}
	return config
}

// ConvertMessages converts adapted messages to genai Contents. System
// messages are returned separately for the system instruction.
// Exported for testing.
func ConvertMessages(msgs []parley.AdaptedMessage) ([]*genai.Content, []string) {
	var contents []*genai.Content
	var system []string
	for _, m := range msgs {
		switch m.Role {
		case parley.RoleSystem:
			if text := m.Text(); text != "" {
				system = append(system, text)
			}
		case parley.RoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: m.Text()}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: m.Text()}},
			})
		}
	}
	return contents, system
}

// classify maps genai API errors to *parley.Error.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.Code
		// Gemini reports a bad key as 400 INVALID_ARGUMENT.
		if status == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key not valid") {
			status = http.StatusUnauthorized
		}
		if status == http.StatusServiceUnavailable {
			return parley.NewError(parley.KindProviderUnavailable, "Gemini is unavailable: "+apiErr.Message, err)
		}
		return parley.ClassifyStatus(status, apiErr.Message, err)
	}
	if parley.IsNetworkError(err) {
		return parley.NewError(parley.KindProviderUnavailable, "Could not reach the Gemini API: "+err.Error(), err)
	}
	return err
}
