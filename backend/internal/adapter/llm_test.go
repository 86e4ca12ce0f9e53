package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kgerrors "kg-extractor/backend/pkg/errors"
)

// chatServer answers /v1/chat/completions with a fixed content and records the last request
func chatServer(t *testing.T, content string, lastReq *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if lastReq != nil {
			_ = json.NewDecoder(r.Body).Decode(lastReq)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLMAdapter_GenerateTriplets(t *testing.T) {
	var req map[string]interface{}
	srv := chatServer(t, "Output: <triplet> Bill <subj> doctor <obj> occupation\n", &req)

	a := NewLLMAdapter(srv.URL, "", "test-model", "")
	stream, err := a.GenerateTriplets(context.Background(), "Bill is a doctor.")

	require.NoError(t, err)
	assert.Equal(t, "<triplet> Bill <subj> doctor <obj> occupation", stream)
	assert.Equal(t, "test-model", req["model"])

	messages, ok := req["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]interface{})
	assert.Equal(t, "Text: Bill is a doctor.", user["content"])
}

func TestLLMAdapter_ResolveCoreferences(t *testing.T) {
	var req map[string]interface{}
	srv := chatServer(t, "  John is a doctor. John works at a hospital.  ", &req)

	a := NewLLMAdapter(srv.URL, "key", "gen-model", "coref-model")
	out, err := a.ResolveCoreferences(context.Background(), "John is a doctor. He works at a hospital.")

	require.NoError(t, err)
	assert.Equal(t, "John is a doctor. John works at a hospital.", out)
	assert.Equal(t, "coref-model", req["model"])
}

func TestLLMAdapter_ResolveCoreferences_EmptyText(t *testing.T) {
	a := NewLLMAdapter("http://127.0.0.1:0", "", "m", "")

	_, err := a.ResolveCoreferences(context.Background(), "   ")

	assert.ErrorIs(t, err, kgerrors.ErrEmptyText)
}

func TestLLMAdapter_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewLLMAdapter(srv.URL, "", "m", "").GenerateTriplets(context.Background(), "text")

	assert.ErrorIs(t, err, kgerrors.ErrNoOutput)
}

func TestLLMAdapter_ServerErrorRetriesThenFails(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping retry test with backoff")
	}
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
	}))
	defer srv.Close()

	_, err := NewLLMAdapter(srv.URL, "", "m", "").GenerateTriplets(context.Background(), "text")

	require.Error(t, err)
	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeGeneration))
	assert.EqualValues(t, maxRetries, atomic.LoadInt32(&calls))
	var failed *kgerrors.ErrGenerationFailed
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, http.StatusBadGateway, failed.StatusCode)
	assert.Equal(t, maxRetries, failed.Attempts)
}

func TestLLMAdapter_RejectedRequestIsNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"bad request", http.StatusBadRequest},
		{"unknown model", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"rejected","type":"invalid_request_error"}}`))
			}))
			defer srv.Close()

			_, err := NewLLMAdapter(srv.URL, "", "m", "").GenerateTriplets(context.Background(), "text")

			require.Error(t, err)
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
			assert.False(t, kgerrors.IsRetryable(err))
			var failed *kgerrors.ErrGenerationFailed
			require.True(t, errors.As(err, &failed))
			assert.Equal(t, tt.status, failed.StatusCode)
			assert.Equal(t, 1, failed.Attempts)
		})
	}
}

func TestLLMAdapter_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","model":"e","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		]}`))
	}))
	defer srv.Close()

	vectors, err := NewLLMAdapter(srv.URL, "", "m", "").WithEmbeddingModel("e").
		Embed(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}
