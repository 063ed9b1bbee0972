// Package logkafka logs every storefront request to zap and, when brokers
// are configured, to a Kafka topic that the log shipper drains into
// Elasticsearch.
package logkafka

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"mrsmoothy/middleware"
)

type LogEntry struct {
	Level     string            `json:"level"`
	Module    string            `json:"module"`
	Message   string            `json:"message"`
	TraceID   string            `json:"trace_id"`
	Env       string            `json:"env"`
	Timestamp string            `json:"timestamp"`
	Extra     map[string]string `json:"extra"`
}

type RequestLogger struct {
	writer messageWriter
	env    string
	logger *zap.Logger
}

// NewRequestLogger builds the middleware. writer may be nil, in which case
// requests are only logged locally.
func NewRequestLogger(writer messageWriter, env string, logger *zap.Logger) *RequestLogger {
	return &RequestLogger{writer: writer, env: env, logger: logger}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach Flush on the event stream.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (l *RequestLogger) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := requestTraceID(r)
		w.Header().Set("X-Trace-ID", traceID)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		duration := time.Since(start)

		extra := map[string]string{
			"session_id":  middleware.SessionID(r.Context()),
			"ip":          clientIP(r),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      strconv.Itoa(rw.statusCode),
			"duration_ms": strconv.FormatInt(duration.Milliseconds(), 10),
			"user_agent":  r.UserAgent(),
		}

		l.logger.Info("request completed",
			zap.String("trace_id", traceID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
			zap.Duration("duration", duration))

		l.LogToKafka("info", "http", "request completed", traceID, extra)
	})
}

// LogToKafka publishes one entry. Failures are reported locally and never
// reach the caller.
func (l *RequestLogger) LogToKafka(level, module, message, traceID string, extra map[string]string) {
	if l.writer == nil {
		return
	}
	entry := LogEntry{
		Level:     level,
		Module:    module,
		Message:   message,
		TraceID:   traceID,
		Env:       l.env,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Extra:     extra,
	}
	b, err := json.Marshal(entry)
	if err != nil {
		l.logger.Warn("failed to encode request log", zap.Error(err))
		return
	}
	if err := writeLog(context.Background(), l.writer, traceID, b); err != nil {
		l.logger.Warn("failed to write request log to kafka", zap.Error(err))
	}
}

func requestTraceID(r *http.Request) string {
	if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	if id := r.Header.Get("X-Trace-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
