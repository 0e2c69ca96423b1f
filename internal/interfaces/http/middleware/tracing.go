// Package middleware provides the gin middleware of the donation API.
package middleware

import (
	"net/http"

	"github.com/donation/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader exposes the trace id so a client report can be matched to a trace
const TraceIDHeader = "X-Trace-ID"

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// Filter excludes requests from tracing when it returns false
	Filter func(*http.Request) bool
}

// Tracing wraps otelgin. The server span is named after the route pattern,
// tagged with the request id and its trace id is echoed in X-Trace-ID.
// Responses with status 400 and above mark the span failed.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	var opts []otelgin.Option
	if cfg.Filter != nil {
		opts = append(opts, otelgin.WithFilter(cfg.Filter))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanEnricher must run inside Tracing. It tags the span and marks client
// and server errors once the handler chain has finished.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			c.Next()
			return
		}

		if requestID := GetRequestID(c); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		if traceID := telemetry.TraceID(ctx); traceID != "" {
			c.Header(TraceIDHeader, traceID)
		}

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetAttributes(telemetry.AttrHTTPStatusCode.Int(status))
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
