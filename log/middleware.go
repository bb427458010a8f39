package log

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader   = "X-Request-ID"
	cloudTraceHeader  = "X-Cloud-Trace-Context"
	requestIDLogField = "requestID"
	methodLogField    = "method"
	pathLogField      = "path"
	statusLogField    = "status"
	durationLogField  = "duration"
	bytesLogField     = "bytes"
	ErrorMsgLogField  = "errorMsg"
	UserIDLogField    = "userID"
)

// Middleware attaches a request-scoped logger (request id, trace) to the request
// context and logs every completed request.
func Middleware(base *slog.Logger, projectID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		logger := base.With(slog.String(requestIDLogField, requestID))
		if trace := traceFromHeader(c.GetHeader(cloudTraceHeader), projectID); trace != "" {
			ctx = WithTrace(ctx, trace)
			// handlers log without a context, so the logger carries the trace too
			logger = logger.With(slog.String(traceLogField, trace))
		}
		ctx = WithLogger(ctx, logger)
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		// handlers may have enriched the logger, e.g. with the user id
		LoggerFromContext(c.Request.Context()).InfoContext(c.Request.Context(), "request completed",
			slog.String(methodLogField, c.Request.Method),
			slog.String(pathLogField, c.Request.URL.Path),
			slog.Int(statusLogField, c.Writer.Status()),
			slog.Duration(durationLogField, time.Since(start)),
			slog.Int(bytesLogField, c.Writer.Size()),
		)
	}
}

// traceFromHeader turns "TRACE_ID/SPAN_ID;o=1" into a Cloud Trace resource name.
func traceFromHeader(header, projectID string) string {
	if header == "" || projectID == "" {
		return ""
	}
	traceID, _, _ := strings.Cut(header, "/")
	if traceID == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/traces/%s", projectID, traceID)
}
