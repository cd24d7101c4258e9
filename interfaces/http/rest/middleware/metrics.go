package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/heinscr/books-library/pkg/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Metrics records request latency per route. Either sink may be nil.
func Metrics(collector *observability.Collector, metrics *observability.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil && metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routePattern(r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			if collector != nil {
				collector.ObserveRequest(r.Method, route, status, elapsed)
			}
			if metrics != nil {
				var err error
				if status >= http.StatusInternalServerError {
					err = errors.New(http.StatusText(status))
				}
				metrics.RecordOperation(r.Context(), fmt.Sprintf("%s %s", r.Method, route), elapsed, err)
			}
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
