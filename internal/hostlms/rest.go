package hostlms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openlearnhq/learning-paths/pkg/config"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

// RESTClient talks to the host LMS enrollment and grades APIs over HTTP.
// The host reports an already-enrolled user with 409; that maps to the
// (false, nil) contract of [Client], never to an error.
type RESTClient struct {
	baseURL string
	token   string
	http    *http.Client
	logg    *logger.Logger
}

var _ Client = (*RESTClient)(nil)

// NewRESTClient builds a host LMS client from configuration.
func NewRESTClient(cfg config.HostLMSConfig, logg *logger.Logger) (*RESTClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("host lms base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logg:    logg,
	}, nil
}

type courseEnrollmentBody struct {
	Username  string `json:"username"`
	CourseKey string `json:"course_key"`
	Mode      string `json:"mode,omitempty"`
}

func (c *RESTClient) EnrollUserInCourse(ctx context.Context, username, courseKey string, mode enums.EnrollmentMode) (bool, error) {
	body := courseEnrollmentBody{Username: username, CourseKey: courseKey, Mode: string(mode)}
	resp, err := c.postJSON(ctx, "/api/v1/course-enrollments/", body)
	if err != nil {
		return false, fmt.Errorf("enrolling user in course: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, fmt.Errorf("enrolling user in course: unexpected status %d", resp.StatusCode)
	}
}

func (c *RESTClient) UnenrollUserFromCourse(ctx context.Context, username, courseKey string) error {
	body := courseEnrollmentBody{Username: username, CourseKey: courseKey}
	resp, err := c.postJSON(ctx, "/api/v1/course-enrollments/deactivate/", body)
	if err != nil {
		return fmt.Errorf("unenrolling user from course: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unenrolling user from course: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type gradeResponse struct {
	Percent float64 `json:"percent"`
	Passed  bool    `json:"passed"`
}

func (c *RESTClient) CourseGrade(ctx context.Context, username, courseKey string) (Grade, error) {
	resp, err := c.get(ctx, "/api/v1/grades/", username, courseKey)
	if err != nil {
		return Grade{}, fmt.Errorf("fetching course grade: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Grade{}, fmt.Errorf("fetching course grade: unexpected status %d", resp.StatusCode)
	}
	var body gradeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Grade{}, fmt.Errorf("decoding grade response: %w", err)
	}
	return Grade{Percent: body.Percent, Passed: body.Passed}, nil
}

type completionResponse struct {
	Percent float64 `json:"percent"`
}

func (c *RESTClient) CourseCompletionPercent(ctx context.Context, username, courseKey string) (float64, error) {
	resp, err := c.get(ctx, "/api/v1/completions/", username, courseKey)
	if err != nil {
		return 0, fmt.Errorf("fetching course completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetching course completion: unexpected status %d", resp.StatusCode)
	}
	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding completion response: %w", err)
	}
	return body.Percent, nil
}

func (c *RESTClient) FulfillMilestone(ctx context.Context, username, courseKey string) error {
	body := courseEnrollmentBody{Username: username, CourseKey: courseKey}
	resp, err := c.postJSON(ctx, "/api/v1/milestones/fulfill/", body)
	if err != nil {
		return fmt.Errorf("fulfilling milestone: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("fulfilling milestone: unexpected status %d", resp.StatusCode)
	}
	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"username": username,
			"course":   courseKey,
		})
		c.logg.Debug(logCtx, "milestone fulfillment sent to host")
	}
	return nil
}

func (c *RESTClient) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	return c.http.Do(req)
}

func (c *RESTClient) get(ctx context.Context, path, username, courseKey string) (*http.Response, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("course_key", courseKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	return c.http.Do(req)
}

func (c *RESTClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
