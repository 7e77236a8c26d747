package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/parley"
)

// Interface compliance check.
var _ parley.Provider = (*Client)(nil)

// Client implements [parley.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [parley.Stream] of text deltas. Messages must already be adapted: system
// text in req.System and strictly alternating user and assistant turns.
func (c *Client) Stream(ctx context.Context, req parley.Request) (parley.Stream, error) {
	body, err := buildRequestBody(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", classifyTransport(err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

func buildRequestBody(req parley.Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	apiReq := apiRequest{
		Model:       req.Model,
		MaxTokens:   clampMaxTokens(req.MaxTokens),
		Stream:      true,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
	}
	if req.System != nil {
		apiReq.System = *req.System
	}
	return json.Marshal(apiReq)
}

func clampMaxTokens(n int) int {
	if n <= 0 || n > MaxOutputTokens {
		return MaxOutputTokens
	}
	return n
}

func convertMessages(msgs []parley.AdaptedMessage) []apiMessage {
	result := make([]apiMessage, 0, len(msgs))
	for _, m := range msgs {
		result = append(result, apiMessage{Role: string(m.Role), Content: m.Text()})
	}
	return result
}

func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return parley.NewError(parley.KindProviderUnavailable, "Could not reach the Anthropic API: "+err.Error(), err)
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	text := string(body)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		text = apiErr.Error.Message
	}
	cause := fmt.Errorf("HTTP %d: %s", resp.StatusCode, text)
	if resp.StatusCode == http.StatusServiceUnavailable || apiErr.Error.Type == "overloaded_error" {
		return fmt.Errorf("anthropic: %w", parley.NewError(parley.KindProviderUnavailable, "Anthropic is unavailable: "+text, cause))
	}
	return fmt.Errorf("anthropic: %w", parley.ClassifyStatus(resp.StatusCode, text, cause))
}
