// Package openai implements [parley.Provider] for OpenAI and any server that
// speaks the OpenAI chat completions protocol.
//
// It wraps the official openai-go SDK and exposes its SSE chunk stream
// through the pull-based [parley.Stream] interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/fwojciec/parley"
)

// Interface compliance check.
var _ parley.Provider = (*Client)(nil)

// Client implements [parley.Provider] for the chat completions API.
type Client struct {
	client oai.Client
	name   string
}

// Option configures a [Client].
type Option func(*config)

type config struct {
	name       string
	baseURL    string
	org        string
	httpClient option.HTTPClient
}

// WithBaseURL points the client at a custom OpenAI-compatible server.
func WithBaseURL(url string) Option {
	return func(c *config) { c.baseURL = url }
}

// WithOrganization sets the OpenAI organization ID on all requests.
func WithOrganization(org string) Option {
	return func(c *config) { c.org = org }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc option.HTTPClient) Option {
	return func(c *config) { c.httpClient = hc }
}

// WithName sets the display name used in error messages. Defaults to "OpenAI".
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// New creates a [Client]. Retries are disabled so failures surface at once.
func New(apiKey string, opts ...Option) *Client {
	cfg := &config{name: "OpenAI"}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.org != "" {
		reqOpts = append(reqOpts, option.WithOrganization(cfg.org))
	}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}
	return &Client{client: oai.NewClient(reqOpts...), name: cfg.name}
}

// NewForEndpoint creates a [Client] for a custom server endpoint.
func NewForEndpoint(e parley.Endpoint, opts ...Option) *Client {
	base := []Option{WithBaseURL(e.BaseURL), WithOrganization(e.Organization)}
	if e.Name != "" {
		base = append(base, WithName(e.Name))
	}
	return New(e.APIKey, append(base, opts...)...)
}

// Stream starts a streaming chat completion. HTTP failures are returned
// here; failures after the first byte surface from [parley.Stream.Next].
func (c *Client) Stream(ctx context.Context, req parley.Request) (parley.Stream, error) {
	params, err := buildParams(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	s := c.client.Chat.Completions.NewStreaming(ctx, params)
	if err := s.Err(); err != nil {
		s.Close()
		return nil, fmt.Errorf("openai: %w", c.classify(err))
	}
	return newStream(ctx, s, c), nil
}

func buildParams(req parley.Request) (oai.ChatCompletionNewParams, error) {
	if err := req.Validate(); err != nil {
		return oai.ChatCompletionNewParams{}, err
	}
	msgs := make([]oai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != nil {
		msgs = append(msgs, oai.SystemMessage(*req.System))
	}
	for _, m := range req.Messages {
		msgs = append(msgs, convertMessage(m))
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: msgs,
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = oai.Int(int64(req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = oai.Float(*req.Temperature)
	}
	return params, nil
}

func convertMessage(m parley.AdaptedMessage) oai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case parley.RoleSystem:
		msg := oai.SystemMessage(m.Text())
		if m.Name != "" {
			msg.OfSystem.Name = oai.String(m.Name)
		}
		return msg
	case parley.RoleAssistant:
		msg := oai.AssistantMessage(m.Text())
		if m.Name != "" {
			msg.OfAssistant.Name = oai.String(m.Name)
		}
		return msg
	}

	var msg oai.ChatCompletionMessageParamUnion
	if m.HasImages() {
		msg = oai.UserMessage(contentParts(m.Blocks))
	} else {
		msg = oai.UserMessage(m.Text())
	}
	if m.Name != "" {
		msg.OfUser.Name = oai.String(m.Name)
	}
	return msg
}

func contentParts(blocks []parley.ContentBlock) []oai.ChatCompletionContentPartUnionParam {
	parts := make([]oai.ChatCompletionContentPartUnionParam, 0, len(blocks))
	for _, b := range blocks {
		switch b := b.(type) {
		case parley.TextBlock:
			parts = append(parts, oai.TextContentPart(b.Text))
		case parley.ImageURLBlock:
			parts = append(parts, oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
				URL:    b.URL,
				Detail: string(b.Detail),
			}))
		}
	}
	return parts
}

// classify maps SDK and transport errors to *parley.Error.
func (c *Client) classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		text := apiErr.Message
		if text == "" {
			text = apiErr.RawJSON()
		}
		if apiErr.StatusCode == 503 {
			return parley.NewError(parley.KindProviderUnavailable, c.name+" is unavailable: "+text, err)
		}
		return parley.ClassifyStatus(apiErr.StatusCode, text, err)
	}
	if parley.IsNetworkError(err) {
		return parley.NewError(parley.KindProviderUnavailable, "Could not reach "+c.name+": "+err.Error(), err)
	}
	return err
}
