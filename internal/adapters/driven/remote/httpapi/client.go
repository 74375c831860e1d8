// Package httpapi implements the remote store port over plain HTTP.
// The engine treats the platform API as opaque; this adapter only
// shapes requests, applies the per-request timeout and rate limit, and
// maps transport failures to domain.ErrNetwork.
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// Ensure Client implements the interfaces.
var (
	_ driven.RemoteStore       = (*Client)(nil)
	_ driven.ConnectivityProbe = (*Client)(nil)
)

// maxResponseBytes caps how much of a remote reply is buffered.
const maxResponseBytes = 8 * 1024 * 1024

// Client talks to the remote platform API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a remote API client. Relative request URLs are
// resolved against baseURL; absolute URLs pass through untouched.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// Fetch performs one HTTP request. Transport failures come back as
// wrapped domain.ErrNetwork; an HTTP error status is a non-OK response,
// not an error.
func (c *Client) Fetch(ctx context.Context, req driven.Request) (*driven.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	url := req.URL
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %s", domain.ErrInvalidInput, err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(req.Body) > 0 && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", method, url, errors.Join(domain.ErrNetwork, err))
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", errors.Join(domain.ErrNetwork, err))
	}

	return &driven.Response{
		Status:      httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Body:        payload,
	}, nil
}

// Online probes the platform health endpoint with a short deadline.
func (c *Client) Online(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	// Any answer at all means the network path is up.
	return resp.StatusCode < 500
}
