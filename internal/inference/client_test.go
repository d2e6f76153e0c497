package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/logger"
)

func testClient(t *testing.T) *HTTPClient {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return NewHTTPClient(Config{TimeoutSeconds: 5}, log)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("http://localhost:11434"))
	assert.True(t, ValidAddress("https://inference.internal"))
	assert.False(t, ValidAddress("localhost:11434"))
	assert.False(t, ValidAddress("unix:///var/run/ollama.sock"))
	assert.False(t, ValidAddress(""))
}

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			// reachability probe
			w.WriteHeader(http.StatusOK)
			return
		}

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)

		_ = json.NewEncoder(w).Encode(generateResponse{
			Model:    req.Model,
			Response: "summary of the page",
			Done:     true,
		})
	}))
	defer srv.Close()

	got, err := testClient(t).Generate(context.Background(), Request{
		Address: srv.URL,
		Model:   "llama3",
		Prompt:  "Summarize: hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "summary of the page", got)
}

func TestGenerate_Unreachable(t *testing.T) {
	// Closed server: the reachability probe fails before any generation call.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := testClient(t).Generate(context.Background(), Request{
		Address: srv.URL,
		Model:   "llama3",
		Prompt:  "p",
	})
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestGenerate_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Done: true})
	}))
	defer srv.Close()

	_, err := testClient(t).Generate(context.Background(), Request{
		Address: srv.URL,
		Model:   "llama3",
		Prompt:  "p",
	})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerate_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(generateResponse{Error: "model not found"})
	}))
	defer srv.Close()

	_, err := testClient(t).Generate(context.Background(), Request{
		Address: srv.URL,
		Model:   "missing",
		Prompt:  "p",
	})
	assert.ErrorContains(t, err, "model not found")
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient("ok")
	got, err := mock.Generate(context.Background(), Request{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	require.Len(t, mock.Calls(), 1)
	assert.Equal(t, "m", mock.Calls()[0].Model)
}
