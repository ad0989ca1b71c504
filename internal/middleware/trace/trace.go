// Package trace tags requests with an ID, logs their lifecycle and keeps
// the counters the metrics endpoint reports.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"bilancio/internal/log"
)

// ContextKey type for context keys
type ContextKey string

// RequestIDKey is the context key for the request ID.
const RequestIDKey ContextKey = "request_id"

// Middleware handles request tracing and logging.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger

	totalRequests int64
	totalErrors   int64
	totalDuration int64 // microseconds
}

// Metrics is a point-in-time view of the request counters.
type Metrics struct {
	TotalRequests       int64
	TotalErrors         int64
	AverageResponseTime time.Duration
}

// NewMiddleware creates a new trace middleware.
func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    logger.WithComponent(log.ComponentTrace),
	}
}

// Middleware returns HTTP middleware for request tracing.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := GenerateRequestID()
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		fields := log.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path).
			WithClientIP(clientIP)
		m.logger.DebugContext(ctx, "request started", fields.ToSlice()...)

		atomic.AddInt64(&m.totalRequests, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.AddInt64(&m.totalDuration, duration.Microseconds())
		if rw.statusCode >= 400 {
			atomic.AddInt64(&m.totalErrors, 1)
		}

		level := slog.LevelInfo
		if rw.statusCode >= 500 {
			level = slog.LevelError
		} else if rw.statusCode >= 400 {
			level = slog.LevelWarn
		}

		fields = fields.WithHTTPResponse(rw.statusCode, duration.Milliseconds())
		m.logger.Log(ctx, level, "request completed", fields.ToSlice()...)
	})
}

// GetMetrics returns current metrics.
func (m *Middleware) GetMetrics() Metrics {
	requests := atomic.LoadInt64(&m.totalRequests)
	metrics := Metrics{
		TotalRequests: requests,
		TotalErrors:   atomic.LoadInt64(&m.totalErrors),
	}
	if requests > 0 {
		avg := atomic.LoadInt64(&m.totalDuration) / requests
		metrics.AverageResponseTime = time.Duration(avg) * time.Microsecond
	}
	return metrics
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
