// Package fetch retrieves page content over plain HTTP and converts HTML
// bodies to markdown. Browser-rendered retrieval lives in internal/render;
// this client covers everything a GET can reach.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultUserAgent = "bookstitch/1.0 (+documentation mirroring)"

// Client is a size- and redirect-bounded HTTP fetcher.
type Client struct {
	http         *http.Client
	userAgent    string
	maxBodyBytes int64
}

// NewClient builds a fetcher with the given per-request timeout.
func NewClient(timeout time.Duration, maxBodyBytes int64) *Client {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 10 << 20
	}
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				return nil
			},
		},
		userAgent:    defaultUserAgent,
		maxBodyBytes: maxBodyBytes,
	}
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// IsNotFound reports whether err is a 404 status error.
func IsNotFound(err error) bool {
	se, ok := err.(*StatusError)
	return ok && se.StatusCode == http.StatusNotFound
}

// Get fetches a URL and returns its body. Non-200 responses return a
// *StatusError with the body discarded.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", url, err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("body of %s exceeds %d bytes", url, c.maxBodyBytes)
	}
	return body, nil
}

// GetString is Get with a string result.
func (c *Client) GetString(ctx context.Context, url string) (string, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
