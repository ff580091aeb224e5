package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	appctx "taller/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace assigns request and trace ids and echoes them in the response.
// An active OpenTelemetry span wins over a client supplied trace id.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		tc := appctx.NewTraceContext(c.GetHeader(HeaderRequestID))
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			tc.TraceID = sc.TraceID().String()
		} else if h := c.GetHeader(HeaderTraceID); h != "" {
			tc.TraceID = h
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", tc.RequestID)

		c.Header(HeaderRequestID, tc.RequestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()
	}
}
