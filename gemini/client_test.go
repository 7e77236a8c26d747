package gemini_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fwojciec/parley"
	"github.com/fwojciec/parley/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	t.Parallel()

	contents, system := gemini.ConvertMessages([]parley.AdaptedMessage{
		{Role: parley.RoleSystem, Content: "Be terse."},
		{Role: parley.RoleUser, Content: "Hi"},
		{Role: parley.RoleAssistant, Content: "Hello"},
		{Role: parley.RoleSystem, Content: ""},
		{Role: parley.RoleUser, Content: "Bye"},
	})

	assert.Equal(t, []string{"Be terse."}, system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "Hi", contents[0].Parts[0].Text)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "Hello", contents[1].Parts[0].Text)
	assert.Equal(t, "user", contents[2].Role)
}

type capturedRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	GenerationConfig struct {
		MaxOutputTokens int     `json:"maxOutputTokens"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

func newClient(t *testing.T, h http.HandlerFunc) *gemini.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := gemini.New(context.Background(), "test-key", gemini.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestClient_Stream(t *testing.T) {
	t.Parallel()

	var got capturedRequest
	var path, key string
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("X-Goog-Api-Key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, text := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":%q}]}}]}\n\n", text)
		}
	})

	system := "Be terse."
	temp := 0.3
	s, err := client.Stream(context.Background(), parley.Request{
		Model:       "gemini-1.5-pro",
		System:      &system,
		Messages:    []parley.AdaptedMessage{{Role: parley.RoleUser, Content: "Hi"}},
		MaxTokens:   512,
		Temperature: &temp,
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, []parley.Event{
		parley.EventTextDelta{Delta: "Hel"},
		parley.EventTextDelta{Delta: "lo"},
	}, collectStreamEvents(t, s))

	assert.True(t, strings.HasSuffix(path, "models/gemini-1.5-pro:streamGenerateContent"), path)
	assert.Equal(t, "test-key", key)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "Hi", got.Contents[0].Parts[0].Text)
	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "Be terse.", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 512, got.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.3, got.GenerationConfig.Temperature, 1e-6)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		wantKind parley.ErrorKind
	}{
		{"bad key", 400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, parley.KindAuthentication},
		{"forbidden", 403, `{"error":{"code":403,"message":"Permission denied","status":"PERMISSION_DENIED"}}`, parley.KindAuthentication},
		{"unknown model", 404, `{"error":{"code":404,"message":"models/gemini-9 is not found","status":"NOT_FOUND"}}`, parley.KindModelNotFound},
		{"unavailable", 503, `{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`, parley.KindProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			s, err := client.Stream(context.Background(), parley.Request{
				Model:    "gemini-1.5-pro",
				Messages: []parley.AdaptedMessage{{Role: parley.RoleUser, Content: "Hi"}},
			})
			require.NoError(t, err)
			defer s.Close()

			_, err = s.Next()
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, parley.KindOf(err))
			assert.Equal(t, parley.StreamStateError, s.State())
		})
	}
}

func TestClient_InvalidRequest(t *testing.T) {
	t.Parallel()
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := client.Stream(context.Background(), parley.Request{})
	assert.ErrorIs(t, err, parley.ErrValidation)
}
