package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/penpath/internal/config"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var got openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"ok\":true}  "}}]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(&config.LLMConfig{APIKey: "test-key", BaseURL: server.URL + "/", Model: "gpt-4o-mini"})
	out, err := client.Complete(context.Background(), Request{
		System:      "You are a writing coach.",
		Prompt:      "Score this.",
		Temperature: 0.3,
		JSON:        true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Score this.", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIClient_StatusErrors(t *testing.T) {
	tests := []struct {
		status   int
		wantAuth bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			client := NewOpenAIClient(&config.LLMConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Complete(context.Background(), Request{Prompt: "hi"})

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProvider))
			assert.Equal(t, tt.wantAuth, errors.Is(err, ErrProviderAuth))
			assert.Equal(t, 1, calls, "provider calls must not be retried")
		})
	}
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewOpenAIClient(&config.LLMConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrProvider)
}

func TestOpenAIClient_MissingKey(t *testing.T) {
	client := NewOpenAIClient(&config.LLMConfig{})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrProviderAuth)
}

func TestOpenAIClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewOpenAIClient(&config.LLMConfig{APIKey: "k", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrProvider)
}

func TestGeminiClient_Complete(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[1,2,3]"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), &config.LLMConfig{
		APIKey:  "k",
		BaseURL: server.URL + "/",
		Model:   "gemini-2.5-flash",
	})
	require.NoError(t, err)

	out, err := client.Complete(context.Background(), Request{System: "sys", Prompt: "p", Temperature: 0.7, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", out)

	genCfg, ok := body["generationConfig"].(map[string]interface{})
	require.True(t, ok, "expected generationConfig in request")
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiClient_AuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"bad key","status":"PERMISSION_DENIED"}}`))
	}))
	defer server.Close()

	client, err := NewGeminiClient(context.Background(), &config.LLMConfig{APIKey: "k", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, ErrProviderAuth)
}

func TestNew(t *testing.T) {
	client, err := New(context.Background(), &config.LLMConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, client)

	client, err = New(context.Background(), &config.LLMConfig{Provider: "Gemini", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiClient{}, client)

	_, err = New(context.Background(), &config.LLMConfig{Provider: "mystery"})
	assert.Error(t, err)
}
