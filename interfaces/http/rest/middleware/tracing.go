package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/heinscr/books-library/pkg/auth"
	"github.com/heinscr/books-library/pkg/observability"

	"github.com/go-chi/chi/v5/middleware"
)

// Tracing wraps each request in a subsegment annotated with the caller.
// It must run after the identity middleware. The segment is named after
// the matched route once routing completes so ids never end up in names.
func Tracing(tracer *observability.Tracer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tracer == nil || !tracer.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = tracer.TraceFunction(r.Context(), segmentName(r), func(ctx context.Context) error {
				if id := auth.FromContext(ctx); id.Authenticated() {
					tracer.AddAnnotation(ctx, "user_id", id.UserID)
				}
				tracer.AddAnnotation(ctx, "request_id", middleware.GetReqID(ctx))

				ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
				next.ServeHTTP(ww, r.WithContext(ctx))

				tracer.Rename(ctx, segmentName(r))
				if ww.Status() >= http.StatusInternalServerError {
					tracer.RecordError(ctx, errors.New(http.StatusText(ww.Status())))
				}
				return nil
			})
		})
	}
}

// segmentName is the method and route pattern matched so far. Before a
// sub-router has resolved its routes the pattern ends in a wildcard.
func segmentName(r *http.Request) string {
	return r.Method + " " + routePattern(r)
}
