package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		entry := map[string]any{}
		require.NoError(t, dec.Decode(&entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestCloudLoggingHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCloudLoggingHandlerWithWriter(&buf, slog.LevelInfo)).
		With(slog.String(UserIDLogField, "uid-1"))

	ctx := WithTrace(context.Background(), "projects/p/traces/abc")
	logger.DebugContext(ctx, "dropped")
	logger.WarnContext(ctx, "profile save failed", slog.Any(ErrorMsgLogField, errors.New("permission denied")))
	logger.WithGroup("contact").Info("submitted", slog.String("id", "-N1"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "WARNING", entries[0]["severity"])
	assert.Equal(t, "profile save failed", entries[0]["message"])
	assert.Equal(t, "uid-1", entries[0][UserIDLogField])
	assert.Equal(t, "permission denied", entries[0][ErrorMsgLogField])
	assert.Equal(t, "projects/p/traces/abc", entries[0][traceLogField])

	assert.Equal(t, "INFO", entries[1]["severity"])
	assert.Equal(t, "-N1", entries[1]["contact.id"])
	assert.Equal(t, "uid-1", entries[1][UserIDLogField])
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		level    slog.Level
		expected string
	}{
		{slog.LevelDebug, "DEBUG"},
		{slog.LevelInfo, "INFO"},
		{slog.LevelWarn, "WARNING"},
		{slog.LevelError, "ERROR"},
		{slog.LevelError + 4, "ERROR"},
	}
	for _, tt := range tests {
		if got := Severity(tt.level); got != tt.expected {
			t.Errorf("Severity(%v) = %q; want %q", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestTraceFromHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		projectID string
		expected  string
	}{
		{"full header", "105445aa7843bc8bf206b12000100000/1;o=1", "cozy", "projects/cozy/traces/105445aa7843bc8bf206b12000100000"},
		{"trace only", "abc", "cozy", "projects/cozy/traces/abc"},
		{"no header", "", "cozy", ""},
		{"no project", "abc/1", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, traceFromHeader(tt.header, tt.projectID))
		})
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	assert.NotNil(t, LoggerFromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, LoggerFromContext(ctx))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	base := slog.New(NewCloudLoggingHandlerWithWriter(&buf, slog.LevelInfo))

	router := gin.New()
	router.Use(Middleware(base, "cozy"))
	router.GET("/ping", func(c *gin.Context) {
		LoggerFromContext(c.Request.Context()).Info("inside handler")
		c.String(http.StatusTeapot, "pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	req.Header.Set(cloudTraceHeader, "t1/2;o=1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "inside handler", entries[0]["message"])
	assert.Equal(t, "req-1", entries[0][requestIDLogField])
	assert.Equal(t, "projects/cozy/traces/t1", entries[0][traceLogField])
	assert.Equal(t, "request completed", entries[1]["message"])
	assert.Equal(t, float64(http.StatusTeapot), entries[1][statusLogField])
	assert.Equal(t, "/ping", entries[1][pathLogField])
}

func TestMiddlewareGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(slog.New(NewCloudLoggingHandlerWithWriter(&bytes.Buffer{}, slog.LevelInfo)), ""))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestMiddlewareTraceOnEnrichedLogger(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected any
	}{
		{"trace header", "abc/7;o=1", "projects/cozy/traces/abc"},
		{"no trace header", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			var buf bytes.Buffer
			router := gin.New()
			router.Use(Middleware(slog.New(NewCloudLoggingHandlerWithWriter(&buf, slog.LevelInfo)), "cozy"))
			router.POST("/save", func(c *gin.Context) {
				logger := LoggerFromContext(c.Request.Context()).With(slog.String(UserIDLogField, "uid-1"))
				logger.Warn("save rejected")
				c.Status(http.StatusConflict)
			})

			req := httptest.NewRequest(http.MethodPost, "/save", nil)
			if tt.header != "" {
				req.Header.Set(cloudTraceHeader, tt.header)
			}
			router.ServeHTTP(httptest.NewRecorder(), req)

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 2)
			assert.Equal(t, "save rejected", entries[0]["message"])
			assert.Equal(t, "uid-1", entries[0][UserIDLogField])
			assert.Equal(t, tt.expected, entries[0][traceLogField])
			assert.Equal(t, tt.expected, entries[1][traceLogField])
		})
	}
}
