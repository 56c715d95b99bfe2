// Package httpclient provides a bounded outbound HTTP client: explicit
// timeouts, capped response reads, and no ambient proxy surprises.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/pantrylink/pantrylink-go/internal/config"
)

var (
	ErrResponseTooLarge = errors.New("response body too large")
	ErrInvalidURL       = errors.New("invalid URL")
)

// Client is an outbound HTTP client with bounded behavior.
type Client struct {
	cfg        *config.OutboundHTTPConfig
	httpClient *http.Client
}

// New creates a new outbound HTTP client.
// The client ignores proxy environment variables (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
func New(cfg *config.OutboundHTTPConfig) *Client {
	if cfg == nil {
		cfg = &config.OutboundHTTPConfig{
			TimeoutMS:        10000,
			ConnectTimeoutMS: 2000,
			MaxResponseBytes: 1048576,
		}
	}

	dialer := &net.Dialer{
		Timeout: time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond,
	}

	transport := &http.Transport{
		// Explicitly ignore proxy environment variables
		Proxy:       nil,
		DialContext: dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		MaxIdleConns:      10,
		IdleConnTimeout:   30 * time.Second,
		DisableKeepAlives: false,
	}

	if cfg.EnableHTTP2 {
		// Best effort; falls back to h1 when the server does not negotiate h2.
		http2.ConfigureTransport(transport)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// Do performs an HTTP request.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// GetJSON performs a GET request and reads the response body with a size limit.
// The caller owns interpreting the status code; resp.Body is already consumed.
func (c *Client) GetJSON(ctx context.Context, urlStr string, headers http.Header) ([]byte, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "application/json")
	mergeHeaders(req, headers)

	return c.doRead(req)
}

// PostJSON marshals body as JSON, performs a POST, and reads the response
// body with a size limit.
func (c *Client) PostJSON(ctx context.Context, urlStr string, body any, headers http.Header) ([]byte, *http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	mergeHeaders(req, headers)

	return c.doRead(req)
}

// doRead executes the request and drains the body under the configured cap.
func (c *Client) doRead(req *http.Request) ([]byte, *http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, c.cfg.MaxResponseBytes+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, resp, err
	}

	if int64(len(body)) > c.cfg.MaxResponseBytes {
		return nil, resp, ErrResponseTooLarge
	}

	return body, resp, nil
}

func mergeHeaders(req *http.Request, headers http.Header) {
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}
