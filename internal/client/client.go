// Package client calls a remote flowchart HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/flowchart-backend/internal/flowchart"
	"github.com/yungbote/flowchart-backend/internal/mermaid"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		timeout:    timeout,
		maxRetries: max(opts.MaxRetries, 0),
		httpClient: hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

type RepairResult struct {
	MermaidCode string         `json:"mermaid_code"`
	Outcome     string         `json:"outcome"`
	Degraded    bool           `json:"degraded"`
	Path        []string       `json:"path"`
	Reason      string         `json:"reason,omitempty"`
	Report      mermaid.Report `json:"report"`
}

type ValidateResult struct {
	Valid  bool           `json:"valid"`
	Errors []string       `json:"errors"`
	Report mermaid.Report `json:"report"`
}

type markupRequest struct {
	MermaidCode string `json:"mermaid_code"`
	Description string `json:"description,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req flowchart.Request) (*flowchart.Response, error) {
	var resp flowchart.Response
	if err := c.doJSON(ctx, http.MethodPost, "/api/flowcharts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Repair(ctx context.Context, markup, description string) (*RepairResult, error) {
	var resp RepairResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/flowcharts/repair", markupRequest{MermaidCode: markup, Description: description}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Validate(ctx context.Context, markup string) (*ValidateResult, error) {
	var resp ValidateResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/flowcharts/validate", markupRequest{MermaidCode: markup}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Modes(ctx context.Context) ([]flowchart.Mode, error) {
	var resp struct {
		Modes []flowchart.Mode `json:"modes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/flowcharts/modes", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Modes, nil
}

// doJSON retries transport failures and 5xx answers with exponential backoff. 4xx answers
// are returned immediately.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			switch {
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				if out == nil {
					return nil
				}
				return json.Unmarshal(raw, out)
			case resp.StatusCode < 500:
				return parseHTTPError(resp.StatusCode, raw)
			default:
				lastErr = parseHTTPError(resp.StatusCode, raw)
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}
