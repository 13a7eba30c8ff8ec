package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintTokenNotConfigured(t *testing.T) {
	client := NewHTTPTokenClient("")
	_, err := client.MintToken(context.Background(), "room-1", 7)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMintTokenSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "room-1", r.URL.Query().Get("channel"))
		assert.Equal(t, "7", r.URL.Query().Get("uid"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":"tok-123"}`))
	}))
	defer server.Close()

	client := NewHTTPTokenClient(server.URL)
	token, err := client.MintToken(context.Background(), "room-1", 7)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestMintTokenUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPTokenClient(server.URL)
	_, err := client.MintToken(context.Background(), "room-1", 7)
	assert.Error(t, err)
}

func TestMintTokenEmptyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token":""}`))
	}))
	defer server.Close()

	client := NewHTTPTokenClient(server.URL)
	_, err := client.MintToken(context.Background(), "room-1", 7)
	assert.Error(t, err)
}
