package cozycurated

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klipach/cozycurated/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingRoundTripper(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(log.NewCloudLoggingHandlerWithWriter(&buf, slog.LevelDebug))
	ctx := log.WithLogger(context.Background(), logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/v1/accounts:signUp?key=secret-api-key", nil)
	require.NoError(t, err)

	resp, err := newOutboundClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Contains(t, buf.String(), "/v1/accounts:signUp")
	assert.Contains(t, buf.String(), "418")
	assert.NotContains(t, buf.String(), "secret-api-key")
}

func TestLoggingRoundTripperError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(log.NewCloudLoggingHandlerWithWriter(&buf, slog.LevelDebug))
	ctx := log.WithLogger(context.Background(), logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1/unreachable?key=secret", nil)
	require.NoError(t, err)

	_, err = newOutboundClient().Do(req)
	assert.Error(t, err)
	assert.Contains(t, buf.String(), "outbound request failed")
	assert.NotContains(t, buf.String(), "secret")
}
