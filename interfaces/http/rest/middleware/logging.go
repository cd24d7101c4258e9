package middleware

import (
	"net/http"
	"time"

	"github.com/heinscr/books-library/pkg/auth"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger creates a logging middleware
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("userAgent", r.UserAgent()),
			)
		})
	}
}

// WithUser adds the caller's user id to log lines. It must run after the
// identity middleware.
func WithUser(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := auth.FromContext(r.Context()); id.Authenticated() {
				logger.Debug("Caller identified",
					zap.String("requestID", middleware.GetReqID(r.Context())),
					zap.String("userID", id.UserID),
					zap.Strings("groups", id.Groups),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
