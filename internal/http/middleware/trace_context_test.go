package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flowchart-backend/internal/platform/ctxutil"
)

func traceRouter(seen **ctxutil.TraceData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		*seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAttachTraceContextKeepsClientIDs(t *testing.T) {
	var td *ctxutil.TraceData
	r := traceRouter(&td)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-42")
	req.Header.Set(headerTraceID, "trace-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if td == nil || td.RequestID != "req-42" || td.TraceID != "trace-7" {
		t.Fatalf("trace data=%+v", td)
	}
	if got := w.Header().Get(headerRequestID); got != "req-42" {
		t.Fatalf("request id header=%q", got)
	}
}

func TestAttachTraceContextReplacesUnusableIDs(t *testing.T) {
	var td *ctxutil.TraceData
	r := traceRouter(&td)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "evil\tid")
	req.Header.Set(headerTraceID, strings.Repeat("a", maxClientIDLen+1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if td == nil || td.RequestID == "evil\tid" || len(td.TraceID) > maxClientIDLen {
		t.Fatalf("trace data=%+v", td)
	}
	if td.RequestID == "" || td.TraceID == "" {
		t.Fatalf("missing generated ids: %+v", td)
	}
	if w.Header().Get(headerTraceID) != td.TraceID {
		t.Fatalf("trace header=%q want %q", w.Header().Get(headerTraceID), td.TraceID)
	}
}
