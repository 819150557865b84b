// Package httpclient talks to the admin endpoints of a running server.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucasew/dircache"
	"github.com/lucasew/dircache/internal/errutil"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the admin API at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Invalidate drops the cached listing of path, or every listing when path is nil.
func (c *Client) Invalidate(ctx context.Context, path *string) error {
	target := c.BaseURL + "/admin/invalidate"
	if path != nil {
		target += "?" + url.Values{"path": {*path}}.Encode()
	}
	return c.do(ctx, http.MethodPost, target, nil)
}

func (c *Client) Flush(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, c.BaseURL+"/admin/flush", nil)
}

func (c *Client) Stats(ctx context.Context) (dircache.Stats, error) {
	var stats dircache.Stats
	err := c.do(ctx, http.MethodGet, c.BaseURL+"/admin/stats", &stats)
	return stats, err
}

func (c *Client) do(ctx context.Context, method, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() {
		errutil.LogMsg(resp.Body.Close(), "Failed to close response body")
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
