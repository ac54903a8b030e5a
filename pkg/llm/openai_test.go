package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "all systems nominal"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	}, zap.NewNop())

	got, err := client.Complete(context.Background(), Request{
		System:      "You are a monitoring assistant.",
		Prompt:      "how is cpu?",
		MaxTokens:   100,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "all systems nominal", got)

	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, "how is cpu?", gotReq.Messages[1].Content)
}

func TestOpenAIClient_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"upstream error status", http.StatusBadGateway, "", errCompletion},
		{"empty choices", http.StatusOK, `{"choices": []}`, errNoChoices},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewOpenAIClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())

			_, err := client.Complete(context.Background(), Request{Prompt: "hi"})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOpenAIClient_RateLimitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOpenAIClient(Config{APIKey: "k", BaseURL: "http://unused"}, zap.NewNop())

	// burst exhausted under a canceled context surfaces the limiter error
	_, err := client.Complete(ctx, Request{Prompt: "hi"})
	require.Error(t, err)
}
