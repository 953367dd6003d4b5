package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"quartermaster/internal/observability"
	id "quartermaster/internal/utils/id"
)

const requestIDHeader = "X-Request-ID"

// requestIDMiddleware accepts a caller-provided request ID or mints one, puts
// it on the request context, and echoes it back in the response.
func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = id.NewRequestID()
		}
		c.Request = c.Request.WithContext(id.WithRequestID(c.Request.Context(), requestID))
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// tracingMiddleware opens one server span per request and puts its context
// on the request so handler spans nest under it.
func (s *Server) tracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := s.deps.Tracer.StartSpan(c.Request.Context(), observability.SpanHTTPServer,
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)
		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(observability.StatusAttrs(strconv.Itoa(c.Writer.Status()))...)
		span.End()
	}
}

// metricsMiddleware records one observation per handled request.
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		s.deps.Metrics.RecordHTTPRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
