package middleware

import "net/http"

// CORS headers sent on every response, errors included, so browser clients
// can read failure bodies.
const (
	AllowOrigin  = "*"
	AllowHeaders = "Content-Type,Authorization"
	AllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
)

// CORSHeaders sets the permissive CORS headers before the handler runs
func CORSHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", AllowOrigin)
		h.Set("Access-Control-Allow-Headers", AllowHeaders)
		h.Set("Access-Control-Allow-Methods", AllowMethods)
		next.ServeHTTP(w, r)
	})
}
