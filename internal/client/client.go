// Package client talks to the VVA Dock companion service over HTTP/JSON.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vaaniagent/internal/config"
	"vaaniagent/internal/network"
	"vaaniagent/internal/sysinfo"
)

const (
	validatePath = "/validate_token"
	updatesPath  = "/check_updates"
	syncPath     = "/sync_system_info"
	loginPath    = "/login"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

var (
	// ErrTransport wraps network-level failures: refused connections, DNS, timeouts.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse is returned for non-JSON bodies or missing fields.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned when the service answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP %d: %s", e.StatusCode, e.Body)
}

// Validation is the decoded /validate_token response.
type Validation struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Valid reports whether the service accepted the token.
func (v *Validation) Valid() bool {
	return v.Status == "valid"
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	SOCKS   config.SOCKSConfig
}

// Client is a thin, typed wrapper around the companion service API.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
}

// New creates a Client. Every request is bounded by opts.Timeout (10s when unset).
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport, err := network.NewTransport(opts.SOCKS)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP transport: %w", err)
	}

	return &Client{
		http:    &http.Client{Transport: transport, Timeout: timeout},
		baseURL: ensureHTTPScheme(strings.TrimRight(opts.BaseURL, "/")),
		timeout: timeout,
	}, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginURL returns the browser login page.
func (c *Client) LoginURL() string {
	return c.baseURL + loginPath
}

// Close releases idle keep-alive connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// ValidateToken posts {"token": token} to /validate_token.
func (c *Client) ValidateToken(ctx context.Context, token string) (*Validation, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, err
	}

	data, err := c.do(ctx, http.MethodPost, validatePath, "", body)
	if err != nil {
		return nil, err
	}

	var v Validation
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &v, nil
}

// CheckUpdates fetches the pending command label from /check_updates.
// The "No updates" sentinel is returned verbatim; interpreting it is up to the caller.
func (c *Client) CheckUpdates(ctx context.Context, token string) (string, error) {
	data, err := c.do(ctx, http.MethodGet, updatesPath, token, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Data *json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if resp.Data == nil {
		return "", fmt.Errorf("%w: missing data field", ErrMalformedResponse)
	}

	var command string
	if err := json.Unmarshal(*resp.Data, &command); err != nil {
		return "", fmt.Errorf("%w: data is not a string", ErrMalformedResponse)
	}
	return command, nil
}

// SyncSystemInfo posts the snapshot to /sync_system_info.
func (c *Client) SyncSystemInfo(ctx context.Context, token string, info *sysinfo.SystemInfo) error {
	body, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, syncPath, token, body)
	return err
}

// do performs one request and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, method, path, token string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrTransport, path, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, nil
}

func ensureHTTPScheme(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}
