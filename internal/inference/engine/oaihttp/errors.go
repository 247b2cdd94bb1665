package oaihttp

import (
	"fmt"
	"net/http"

	"github.com/yungbote/flowchart-backend/internal/inference/engine"
)

// HTTPError is a non-2xx answer from the upstream server.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

// Is reports a rejected credential as engine.ErrNotConfigured.
func (e *HTTPError) Is(target error) bool {
	if e == nil || target != engine.ErrNotConfigured {
		return false
	}
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
