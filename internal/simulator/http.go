package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Hour

// Outcome of submitting one event.
type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeIgnored
	outcomeFailed
)

// client wraps http.Client and signs requests on behalf of users when a
// JWT secret is configured.
type client struct {
	http    *http.Client
	baseURL string
	secret  []byte
}

func newClient(cfg *Config) *client {
	c := &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}
	if cfg.JWTSecret != "" {
		c.secret = []byte(cfg.JWTSecret)
	}
	return c
}

func (c *client) token(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// do sends a JSON request as userID and decodes a 2xx response into out.
// It returns the status code.
func (c *client) do(ctx context.Context, method, path, userID string, body, out any) (int, error) {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != nil && userID != "" {
		tok, err := c.token(userID)
		if err != nil {
			return 0, fmt.Errorf("failed to sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// submit posts one event and classifies the response.
func (c *client) submit(ctx context.Context, async bool, e Event) outcome { //nolint:gocritic // hugeParam: events travel by value
	path := "/events"
	if async {
		path = "/events/async"
	}
	var res struct {
		Duplicate bool `json:"duplicate"`
		Ignored   bool `json:"ignored"`
	}
	status, err := c.do(ctx, http.MethodPost, path, e.UserID, e, &res)
	switch {
	case err != nil:
		return outcomeFailed
	case res.Duplicate:
		return outcomeDuplicate
	case res.Ignored:
		return outcomeIgnored
	case status == http.StatusOK, status == http.StatusAccepted:
		return outcomeAccepted
	default:
		return outcomeFailed
	}
}
