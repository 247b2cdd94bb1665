// Package render converts Mermaid markup to PNG through a Kroki-compatible HTTP service.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/flowchart-backend/internal/config"
)

const DefaultEndpoint = "https://kroki.io/mermaid/png"

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	if body == "" {
		return fmt.Sprintf("render: http %d", e.StatusCode)
	}
	return fmt.Sprintf("render: http %d: %s", e.StatusCode, body)
}

type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

func New(cfg config.RenderConfig) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{endpoint: endpoint, timeout: timeout, httpClient: &http.Client{Transport: tr}}
}

// NewWithHTTPClient swaps the transport; tests use it to stay off the network.
func NewWithHTTPClient(cfg config.RenderConfig, httpClient *http.Client) *Client {
	c := New(cfg)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

type renderRequest struct {
	DiagramSource string `json:"diagram_source"`
}

// Render posts diagram and returns the PNG body. Non-2xx answers come back as *HTTPError.
func (c *Client) Render(ctx context.Context, diagram string) ([]byte, error) {
	if strings.TrimSpace(diagram) == "" {
		return nil, errors.New("render: empty diagram")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(renderRequest{DiagramSource: diagram})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("render: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if len(body) == 0 {
		return nil, errors.New("render: empty response")
	}
	return body, nil
}
