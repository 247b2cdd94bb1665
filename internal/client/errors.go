package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx answer. Code is the server's machine-readable error code
// (invalid_request, not_configured, internal_error) when the body carried one.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Body       string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("http error: status=%d code=%s message=%s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("http error: status=%d message=%s", e.StatusCode, msg)
}

func parseHTTPError(status int, raw []byte) error {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code,omitempty"`
		} `json:"error"`
	}
	herr := &HTTPError{StatusCode: status, Body: strings.TrimSpace(string(raw))}
	if err := json.Unmarshal(raw, &env); err == nil {
		herr.Message = strings.TrimSpace(env.Error.Message)
		herr.Code = strings.TrimSpace(env.Error.Code)
	}
	return herr
}
