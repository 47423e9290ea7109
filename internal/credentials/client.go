// Package credentials talks to the certificate service. The enrollment flow
// uses it to revoke issued learning path credentials after an unenrollment.
package credentials

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
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

const (
	statusAwarded = "awarded"
	statusRevoked = "revoked"
)

// Credential is one issued certificate as the service reports it.
type Credential struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Program  string `json:"program"`
	Status   string `json:"status"`
}

type listResponse struct {
	Results []Credential `json:"results"`
}

// Client is an HTTP client for the certificate service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logg    *logger.Logger
}

// NewClient builds a certificate service client from configuration.
func NewClient(cfg config.CredentialsConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("credentials base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		logg:    logg,
	}, nil
}

// ListAwarded returns the awarded credentials of a user for one program.
func (c *Client) ListAwarded(ctx context.Context, username, program string) ([]Credential, error) {
	endpoint := c.baseURL + "/api/v2/credentials/"
	query := url.Values{}
	query.Set("username", username)
	query.Set("program", program)
	query.Set("status", statusAwarded)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing credentials: unexpected status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding credentials response: %w", err)
	}
	return body.Results, nil
}

// Revoke flips one credential to revoked.
func (c *Client) Revoke(ctx context.Context, credentialUUID string) error {
	endpoint := fmt.Sprintf("%s/api/v2/credentials/%s/", c.baseURL, credentialUUID)

	payload, err := json.Marshal(map[string]string{"status": statusRevoked})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("revoking credential: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("revoking credential %s: unexpected status %d", credentialUUID, resp.StatusCode)
	}
	return nil
}

// RevokeForLearningPath revokes every awarded credential the user holds for
// the learning path. Implements the revocation hook of the enrollment flow.
func (c *Client) RevokeForLearningPath(ctx context.Context, username, pathKey string) error {
	awarded, err := c.ListAwarded(ctx, username, pathKey)
	if err != nil {
		return err
	}
	for _, credential := range awarded {
		if err := c.Revoke(ctx, credential.UUID); err != nil {
			return err
		}
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"username":      username,
				"learning_path": pathKey,
				"credential":    credential.UUID,
			})
			c.logg.Info(logCtx, "credential revoked")
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
