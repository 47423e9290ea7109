package credentials

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlearnhq/learning-paths/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.CredentialsConfig{
		BaseURL: baseURL,
		Token:   "secret",
		Timeout: 2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestRevokeForLearningPathRevokesAwardedCredentials(t *testing.T) {
	var patched []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v2/credentials/":
			assert.Equal(t, "alice", r.URL.Query().Get("username"))
			assert.Equal(t, "path-v1:OLX+LP1+2026+all", r.URL.Query().Get("program"))
			assert.Equal(t, "awarded", r.URL.Query().Get("status"))
			_ = json.NewEncoder(w).Encode(listResponse{Results: []Credential{
				{UUID: "cred-1", Username: "alice", Status: "awarded"},
				{UUID: "cred-2", Username: "alice", Status: "awarded"},
			}})
		case r.Method == http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"status":"revoked"}`, string(body))
			patched = append(patched, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.RevokeForLearningPath(context.Background(), "alice", "path-v1:OLX+LP1+2026+all")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/v2/credentials/cred-1/",
		"/api/v2/credentials/cred-2/",
	}, patched)
}

func TestRevokeForLearningPathNothingAwarded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(listResponse{})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.RevokeForLearningPath(context.Background(), "alice", "path-v1:OLX+LP1+2026+all")
	require.NoError(t, err)
}

func TestListAwardedSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.ListAwarded(context.Background(), "alice", "path-v1:OLX+LP1+2026+all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestRevokeSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Revoke(context.Background(), "cred-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(config.CredentialsConfig{}, nil)
	require.Error(t, err)
}
