package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/common/slogger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// MiddlewareFunc defines the middleware function signature.
type MiddlewareFunc func(http.Handler) http.Handler

// RequestIDHeader carries the correlation ID of a request in both directions.
const RequestIDHeader = "X-Request-ID"

// NewLoggingMiddleware tags each request with a correlation ID and logs it on completion.
func NewLoggingMiddleware(logger logging.ApplicationLogger) MiddlewareFunc {
	if logger == nil {
		logger = slogger.WithComponent("http")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx := logging.WithCorrelationID(r.Context(), requestID)
			r = r.WithContext(ctx)
			w.Header().Set(RequestIDHeader, requestID)

			// WrapResponseWriter keeps http.Hijacker available for websocket upgrades.
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       wrapped.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   r.RemoteAddr,
				"user_agent":  r.UserAgent(),
			}
			if r.URL.RawQuery != "" {
				fields["query"] = r.URL.RawQuery
			}

			if status >= http.StatusInternalServerError {
				logger.Error(ctx, "HTTP request completed", fields)
				return
			}
			logger.Info(ctx, "HTTP request completed", fields)
		})
	}
}

// NewCORSMiddleware answers preflight requests and sets CORS headers for allowed origins.
// An empty list or "*" allows every origin.
func NewCORSMiddleware(allowedOrigins []string) MiddlewareFunc {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(allowedOrigins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

			allowedHeaders := "Content-Type, Authorization, " + RequestIDHeader
			if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
				allowedHeaders += ", " + requested
			}
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewSecurityMiddleware adds basic security headers.
func NewSecurityMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}

// NewRecoveryMiddleware converts handler panics into a 500 error document.
func NewRecoveryMiddleware() MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil || rec == http.ErrAbortHandler {
					if rec != nil {
						panic(rec)
					}
					return
				}
				slogger.Error(r.Context(), "Panic recovered in HTTP handler", slogger.Fields{
					"panic":  rec,
					"method": r.Method,
					"path":   r.URL.Path,
				})
				if !strings.EqualFold(r.Header.Get("Connection"), "upgrade") {
					WriteError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
