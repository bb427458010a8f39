package cozycurated

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/klipach/cozycurated/log"
)

const (
	urlLogField      = "url"
	statusLogField   = "status"
	durationLogField = "duration"

	outboundTimeout = 15 * time.Second
)

// loggingRoundTripper logs every outgoing call. Bodies are not logged because
// sign-in requests carry passwords.
type loggingRoundTripper struct {
	rt http.RoundTripper
}

func (lrt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := log.LoggerFromContext(req.Context())
	start := time.Now()

	// strip the query string, Identity Toolkit passes the API key there
	u := *req.URL
	u.RawQuery = ""

	resp, err := lrt.rt.RoundTrip(req)
	if err != nil {
		logger.Error("outbound request failed",
			slog.String(urlLogField, u.String()),
			slog.String(log.ErrorMsgLogField, err.Error()),
		)
		return nil, err
	}
	logger.Info("outbound request",
		slog.String(urlLogField, u.String()),
		slog.Int(statusLogField, resp.StatusCode),
		slog.Duration(durationLogField, time.Since(start)),
	)
	return resp, nil
}

func newOutboundClient() *http.Client {
	return &http.Client{
		Timeout: outboundTimeout,
		Transport: &loggingRoundTripper{
			rt: http.DefaultTransport,
		},
	}
}
