// Package wolfram queries the Wolfram|Alpha short-answer API for real facts
// used to seed puzzle generation.
package wolfram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoAnswer is returned when Wolfram|Alpha has no short answer for a query.
var ErrNoAnswer = errors.New("wolfram: no short answer")

// ErrDisabled is returned when no app id is configured.
var ErrDisabled = errors.New("wolfram: app id not configured")

// Client calls the short-answer endpoint.
type Client struct {
	appID   string
	baseURL string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL (default: https://api.wolframalpha.com).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the HTTP timeout (default: 5s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.client.Timeout = d }
}

// New creates a short-answer client.
func New(appID string, opts ...Option) *Client {
	c := &Client{
		appID:   appID,
		baseURL: "https://api.wolframalpha.com",
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the client has an app id.
func (c *Client) Enabled() bool {
	return c != nil && c.appID != ""
}

// ShortAnswer returns the plain-text answer for query.
func (c *Client) ShortAnswer(ctx context.Context, query string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("i", query)
	endpoint := c.baseURL + "/v1/result?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	// The API answers 501 for queries it cannot interpret.
	if resp.StatusCode == http.StatusNotImplemented {
		return "", ErrNoAnswer
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wolfram %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}

	text := strings.TrimSpace(string(body))
	if text == "" ||
		strings.Contains(text, "No short answer available") ||
		strings.Contains(text, "Wolfram|Alpha did not understand") {
		return "", ErrNoAnswer
	}
	return text, nil
}

// FirstAnswer tries each query in order and returns the first answer found
// along with the query that produced it.
func (c *Client) FirstAnswer(ctx context.Context, queries ...string) (query, answer string, err error) {
	err = ErrNoAnswer
	for _, q := range queries {
		a, qErr := c.ShortAnswer(ctx, q)
		if qErr == nil {
			return q, a, nil
		}
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		err = qErr
	}
	return "", "", err
}
