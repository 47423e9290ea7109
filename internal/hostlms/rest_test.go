package hostlms

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
	"github.com/openlearnhq/learning-paths/pkg/enums"
)

func newTestRESTClient(t *testing.T, baseURL string) *RESTClient {
	t.Helper()
	client, err := NewRESTClient(config.HostLMSConfig{
		BaseURL: baseURL,
		Token:   "secret",
		Timeout: 2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestRESTClientEnrollCreatesEnrollment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/course-enrollments/", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"username":"alice","course_key":"course-v1:OLX+C1+2026","mode":"audit"}`, string(body))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	ok, err := client.EnrollUserInCourse(context.Background(), "alice", "course-v1:OLX+C1+2026", enums.ModeAudit)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRESTClientEnrollTreatsConflictAsAlreadyEnrolled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	ok, err := client.EnrollUserInCourse(context.Background(), "alice", "course-v1:OLX+C1+2026", enums.ModeAudit)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRESTClientEnrollSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	_, err := client.EnrollUserInCourse(context.Background(), "alice", "course-v1:OLX+C1+2026", enums.ModeAudit)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestRESTClientUnenroll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/course-enrollments/deactivate/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	require.NoError(t, client.UnenrollUserFromCourse(context.Background(), "alice", "course-v1:OLX+C1+2026"))
}

func TestRESTClientCourseGrade(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/grades/", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("username"))
		assert.Equal(t, "course-v1:OLX+C1+2026", r.URL.Query().Get("course_key"))
		_ = json.NewEncoder(w).Encode(gradeResponse{Percent: 0.87, Passed: true})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	grade, err := client.CourseGrade(context.Background(), "alice", "course-v1:OLX+C1+2026")
	require.NoError(t, err)
	assert.InDelta(t, 0.87, grade.Percent, 1e-9)
	assert.True(t, grade.Passed)
}

func TestRESTClientCourseCompletionPercent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/completions/", r.URL.Path)
		_ = json.NewEncoder(w).Encode(completionResponse{Percent: 96.5})
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	percent, err := client.CourseCompletionPercent(context.Background(), "alice", "course-v1:OLX+C1+2026")
	require.NoError(t, err)
	assert.InDelta(t, 96.5, percent, 1e-9)
}

func TestRESTClientFulfillMilestone(t *testing.T) {
	var fulfilled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/milestones/fulfill/", r.URL.Path)
		fulfilled = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestRESTClient(t, server.URL)
	require.NoError(t, client.FulfillMilestone(context.Background(), "alice", "course-v1:OLX+C1+2026"))
	assert.True(t, fulfilled)
}

func TestNewRESTClientRequiresBaseURL(t *testing.T) {
	_, err := NewRESTClient(config.HostLMSConfig{}, nil)
	require.Error(t, err)
}
