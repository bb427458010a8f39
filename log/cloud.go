package log

import (
	"context"
	"log/slog"

	"cloud.google.com/go/logging"
)

// ClientHandler is a slog.Handler shipping entries through the Cloud Logging API.
type ClientHandler struct {
	attrSet
	logger *logging.Logger
	level  slog.Leveler
}

// NewClientHandler opens a Cloud Logging client for projectID. The returned func
// flushes buffered entries and closes the client.
func NewClientHandler(ctx context.Context, projectID, logID string, level slog.Leveler) (*ClientHandler, func() error, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	return &ClientHandler{logger: client.Logger(logID), level: level}, client.Close, nil
}

func (h *ClientHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *ClientHandler) Handle(ctx context.Context, r slog.Record) error {
	payload := h.payload(r)
	payload["message"] = r.Message

	trace := TraceFromContext(ctx)
	if t, ok := payload[traceLogField].(string); ok {
		trace = t
		delete(payload, traceLogField)
	}

	h.logger.Log(logging.Entry{
		Timestamp: recordTime(r),
		Severity:  logging.ParseSeverity(Severity(r.Level)),
		Payload:   payload,
		Trace:     trace,
	})
	return nil
}

func (h *ClientHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ClientHandler{attrSet: h.withAttrs(attrs), logger: h.logger, level: h.level}
}

func (h *ClientHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ClientHandler{attrSet: h.withGroup(name), logger: h.logger, level: h.level}
}
