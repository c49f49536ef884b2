package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/worldloom/worldloom-backend/internal/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-Id"
)

type RequestIDMiddleware struct {
	log *logger.Logger
}

func NewRequestIDMiddleware(log *logger.Logger) *RequestIDMiddleware {
	return &RequestIDMiddleware{log: log.With("Middleware", "RequestID")}
}

// Tag assigns every request a uuid (honoring an inbound header), exposes it
// on the context and response together with the active trace id, and logs
// the request with both.
func (m *RequestIDMiddleware) Tag() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
				traceID = spanCtx.TraceID().String()
			}
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Set("trace_id", traceID)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Writer.Header().Set(TraceIDHeader, traceID)

		c.Next()

		m.log.Info("Request handled",
			"request_id", id,
			"trace_id", traceID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status())
	}
}
