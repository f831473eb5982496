package anchor

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit(t *testing.T) {
	digest := []byte("0123456789abcdef0123456789abcdef")

	t.Run("Submit returns pending proof", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/digest", r.URL.Path)

			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, digest, body)

			w.Write([]byte("pending-proof"))
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, 5*time.Second)
		proof, err := client.Submit(context.Background(), digest)
		require.NoError(t, err)
		assert.Equal(t, []byte("pending-proof"), proof)
	})

	t.Run("Submit fails on non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, 5*time.Second)
		_, err := client.Submit(context.Background(), digest)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})

	t.Run("Submit fails on empty proof", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, 5*time.Second)
		_, err := client.Submit(context.Background(), digest)
		assert.Error(t, err)
	})

	t.Run("Submit fails when server unreachable", func(t *testing.T) {
		client := NewHTTPClient("http://127.0.0.1:1", time.Second)
		_, err := client.Submit(context.Background(), digest)
		assert.Error(t, err)
	})
}

func TestUpgrade(t *testing.T) {
	digest := []byte("0123456789abcdef0123456789abcdef")
	pending := []byte("pending-proof")

	t.Run("Upgrade returns confirmed proof on 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/timestamp/"+hex.EncodeToString(digest), r.URL.Path)

			w.Write([]byte("confirmed-proof"))
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, 5*time.Second)
		proof, confirmed, err := client.Upgrade(context.Background(), digest, pending)
		require.NoError(t, err)
		assert.True(t, confirmed)
		assert.Equal(t, []byte("confirmed-proof"), proof)
	})

	t.Run("404 means not yet, not an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, 5*time.Second)
		proof, confirmed, err := client.Upgrade(context.Background(), digest, pending)
		require.NoError(t, err)
		assert.False(t, confirmed)
		// The original proof is handed back untouched
		assert.Equal(t, pending, proof)
	})

	t.Run("Upgrade fails on unexpected status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, 5*time.Second)
		proof, confirmed, err := client.Upgrade(context.Background(), digest, pending)
		assert.Error(t, err)
		assert.False(t, confirmed)
		assert.Equal(t, pending, proof)
	})
}
