package ai

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
)

func sseServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(baseURL string) *OpenAICompatibleClient {
	return NewOpenAICompatibleClient(ChatConfig{BaseURL: baseURL, APIKey: "sk-test", Model: "gpt-4o-mini"})
}

func TestStream_DeliversFragmentsAndCompletion(t *testing.T) {
	var captured map[string]interface{}
	server := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"가족관계\"}}]}\n\n"))
		w.Write([]byte(": keep-alive\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"증명서\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	})

	client := newTestClient(server.URL)
	var chunks []string
	full, err := Collect(client.Stream(context.Background(), "system text", []ChatMessage{
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "question"},
	}), func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "가족관계증명서", full)
	assert.Equal(t, []string{"가족관계", "증명서"}, chunks)

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, true, captured["stream"])
	assert.Equal(t, 0.7, captured["temperature"])
	assert.Equal(t, float64(1000), captured["max_tokens"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 3)
	first := messages[0].(map[string]interface{})
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "system text", first["content"])
}

func TestStream_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
	}{
		{
			name: "status error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
			},
		},
		{
			name: "provider error payload mid-stream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"))
				w.Write([]byte("data: {\"error\":{\"message\":\"overloaded\"}}\n\n"))
			},
		},
		{
			name: "stream truncated before done",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := sseServer(t, tt.handler)
			client := newTestClient(server.URL)

			var terminal []Fragment
			for frag := range client.Stream(context.Background(), "sys", nil) {
				if frag.Err != nil || frag.Done {
					terminal = append(terminal, frag)
				}
			}
			require.Len(t, terminal, 1)
			assert.ErrorIs(t, terminal[0].Err, ErrCompletionFailed)
			assert.False(t, terminal[0].Done)
		})
	}
}

func TestStream_UnreachableProvider(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	full, err := Collect(client.Stream(context.Background(), "sys", nil), nil)
	assert.ErrorIs(t, err, ErrCompletionFailed)
	assert.Empty(t, full)
}

func TestStream_CallerDeadline(t *testing.T) {
	server := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"slow\"}}]}\n\n"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client := newTestClient(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Collect(client.Stream(ctx, "sys", nil), nil)
	assert.Error(t, err)
}

func TestCollect_ChunkCallbackError(t *testing.T) {
	stream := make(chan Fragment, 2)
	stream <- Fragment{Text: "a"}
	stream <- Fragment{Done: true}
	close(stream)

	_, err := Collect(stream, func(string) error { return errors.New("client gone") })
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestCollect_ClosedWithoutTerminal(t *testing.T) {
	stream := make(chan Fragment, 1)
	stream <- Fragment{Text: "a"}
	close(stream)

	_, err := Collect(stream, nil)
	assert.ErrorIs(t, err, ErrCompletionFailed)
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewOpenAICompatibleClient(ChatConfig{Model: "m"})
	assert.Equal(t, 0.7, client.cfg.Temperature)
	assert.Equal(t, 1000, client.cfg.MaxTokens)
	assert.Equal(t, "m", client.Model())
}
