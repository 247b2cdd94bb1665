package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/flowchart-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"

	maxClientIDLen = 128
)

// AttachTraceContext gives every request a request id and a trace id, echoes both as
// response headers and stores them for logging. Client-supplied ids are kept only when
// they are short and printable. The trace id comes from the active otelgin span when
// there is one, so it must be installed after otelgin.
func AttachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)

		td := &ctxutil.TraceData{
			RequestID: clientID(c.GetHeader(headerRequestID)),
			TraceID:   clientID(c.GetHeader(headerTraceID)),
		}
		if td.RequestID == "" {
			td.RequestID = uuid.NewString()
		}
		if sc := span.SpanContext(); td.TraceID == "" && sc.HasTraceID() {
			td.TraceID = sc.TraceID().String()
		}
		if td.TraceID == "" {
			td.TraceID = uuid.NewString()
		}
		span.SetAttributes(attribute.String("flowchart.request_id", td.RequestID))

		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Header(headerRequestID, td.RequestID)
		c.Header(headerTraceID, td.TraceID)
		c.Next()
	}
}

// clientID returns v if it is usable as a log field, "" otherwise.
func clientID(v string) string {
	if v == "" || len(v) > maxClientIDLen {
		return ""
	}
	for i := 0; i < len(v); i++ {
		if c := v[i]; c <= ' ' || c > '~' {
			return ""
		}
	}
	return v
}
