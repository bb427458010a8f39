package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

type ctxKey struct{}

type traceKey struct{}

const traceLogField = "logging.googleapis.com/trace"

// attrSet holds the attributes and group accumulated through With calls.
type attrSet struct {
	attrs []slog.Attr
	group string
}

func (s attrSet) key(k string) string {
	if s.group == "" {
		return k
	}
	return s.group + "." + k
}

func (s attrSet) withAttrs(attrs []slog.Attr) attrSet {
	newAttrs := make([]slog.Attr, 0, len(s.attrs)+len(attrs))
	newAttrs = append(newAttrs, s.attrs...)
	for _, a := range attrs {
		newAttrs = append(newAttrs, slog.Attr{Key: s.key(a.Key), Value: a.Value})
	}
	return attrSet{attrs: newAttrs, group: s.group}
}

func (s attrSet) withGroup(name string) attrSet {
	return attrSet{attrs: s.attrs, group: s.key(name)}
}

// payload merges handler attributes and record attributes, record ones win.
func (s attrSet) payload(r slog.Record) map[string]any {
	out := make(map[string]any, len(s.attrs)+r.NumAttrs())
	for _, attr := range s.attrs {
		out[attr.Key] = attrValue(attr.Value)
	}
	r.Attrs(func(attr slog.Attr) bool {
		out[s.key(attr.Key)] = attrValue(attr.Value)
		return true
	})
	return out
}

// CloudLoggingHandler is a slog.Handler writing Google Cloud structured JSON lines.
type CloudLoggingHandler struct {
	attrSet
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
}

// NewCloudLoggingHandler creates a handler writing to stdout at info level.
func NewCloudLoggingHandler() *CloudLoggingHandler {
	return NewCloudLoggingHandlerWithWriter(os.Stdout, slog.LevelInfo)
}

func NewCloudLoggingHandlerWithWriter(w io.Writer, level slog.Leveler) *CloudLoggingHandler {
	return &CloudLoggingHandler{mu: &sync.Mutex{}, w: w, level: level}
}

// Handle processes log records.
func (h *CloudLoggingHandler) Handle(ctx context.Context, r slog.Record) error {
	entry := map[string]any{
		"severity": Severity(r.Level),
		"time":     recordTime(r).Format(time.RFC3339Nano),
		"message":  r.Message,
	}
	if traceID := TraceFromContext(ctx); traceID != "" {
		entry[traceLogField] = traceID
	}

	// handler attributes first, record attributes may override them
	for k, v := range h.payload(r) {
		entry[k] = v
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	jsonData = append(jsonData, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(jsonData)
	return err
}

func (h *CloudLoggingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs returns a new handler with additional attributes.
func (h *CloudLoggingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CloudLoggingHandler{attrSet: h.withAttrs(attrs), mu: h.mu, w: h.w, level: h.level}
}

// WithGroup prefixes subsequent attribute keys with the group name.
func (h *CloudLoggingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &CloudLoggingHandler{attrSet: h.withGroup(name), mu: h.mu, w: h.w, level: h.level}
}

// Severity maps slog levels to Cloud Logging severity names.
func Severity(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARNING"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

// ParseLevel converts a LOG_LEVEL value, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func recordTime(r slog.Record) time.Time {
	if r.Time.IsZero() {
		return time.Now()
	}
	return r.Time
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	if v.Kind() == slog.KindGroup {
		group := make(map[string]any, len(v.Group()))
		for _, a := range v.Group() {
			group[a.Key] = attrValue(a.Value)
		}
		return group
	}
	if err, ok := v.Any().(error); ok {
		return err.Error()
	}
	return v.Any()
}

// WithTrace stores the Cloud Trace resource name in ctx.
func WithTrace(ctx context.Context, trace string) context.Context {
	return context.WithValue(ctx, traceKey{}, trace)
}

// TraceFromContext returns the Cloud Trace resource name, if any.
func TraceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	traceID, _ := ctx.Value(traceKey{}).(string)
	return traceID
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return logger
		}
	}
	return slog.New(NewCloudLoggingHandler())
}
