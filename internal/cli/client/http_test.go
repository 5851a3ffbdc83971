package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIClient_Post(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["message"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"session_id":"sess-1","reply":"hi"}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("secret", server.URL)
	require.NoError(t, err)

	resp, err := api.Post("/chat", map[string]string{"message": "hello"})
	require.NoError(t, err)

	var chat ChatResponse
	require.NoError(t, json.Unmarshal(resp.Data, &chat))
	assert.Equal(t, "sess-1", chat.SessionID)
}

func TestAPIClient_NoTokenOmitsAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/health")
	require.NoError(t, err)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"character not found"}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("secret", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/characters/gone")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "character not found", apiErr.Message)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("secret", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/chat")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "upstream exploded")
}

func TestAPIClient_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("secret", server.URL)
	require.NoError(t, err)

	resp, err := api.Delete("/characters/char-1")
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
}
