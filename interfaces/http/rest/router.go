package rest

import (
	"net/http"

	"github.com/heinscr/books-library/application/services"
	"github.com/heinscr/books-library/interfaces/http/rest/handlers"
	"github.com/heinscr/books-library/interfaces/http/rest/middleware"
	apperrors "github.com/heinscr/books-library/pkg/errors"
	"github.com/heinscr/books-library/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Identity attaches the caller's identity to the request context
type Identity func(next http.Handler) http.Handler

// Observability groups the optional request instrumentation
type Observability struct {
	Collector *observability.Collector
	Metrics   *observability.Metrics
	Tracer    *observability.Tracer
}

// Router creates and configures the HTTP router
type Router struct {
	books      *services.BookService
	errHandler *apperrors.ErrorHandler
	identity   Identity
	obs        Observability
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	books *services.BookService,
	errHandler *apperrors.ErrorHandler,
	identity Identity,
	obs Observability,
	logger *zap.Logger,
) *Router {
	return &Router{
		books:      books,
		errHandler: errHandler,
		identity:   identity,
		obs:        obs,
		logger:     logger,
	}
}

// Setup configures all routes and middleware. The concrete mux is returned
// so the Lambda entry point can hand it to the API Gateway adapter.
func (rt *Router) Setup() *chi.Mux {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errHandler.Middleware)
	router.Use(middleware.CORSHeaders)

	// Preflight
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{middleware.AllowOrigin},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	router.Use(middleware.Metrics(rt.obs.Collector, rt.obs.Metrics))

	router.NotFound(rt.notFound)
	router.MethodNotAllowed(rt.methodNotAllowed)

	// Health check
	router.Get("/health", rt.healthCheck)
	if rt.obs.Collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.obs.Collector.Handler())
	}

	router.Route("/books", func(r chi.Router) {
		if rt.identity != nil {
			r.Use(rt.identity)
		}
		r.Use(middleware.WithUser(rt.logger))
		r.Use(middleware.Tracing(rt.obs.Tracer))

		bookHandler := handlers.NewBookHandler(rt.books, rt.errHandler, rt.logger)
		r.Get("/", bookHandler.ListBooks)
		r.Post("/upload", bookHandler.Upload)
		r.Post("/upload/metadata", bookHandler.SetUploadMetadata)
		r.Get("/{id}", bookHandler.GetBook)
		r.Patch("/{id}", bookHandler.UpdateBook)
		r.Delete("/{id}", bookHandler.DeleteBook)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (rt *Router) notFound(w http.ResponseWriter, req *http.Request) {
	rt.errHandler.Handle(w, req, &apperrors.AppError{
		Type:       apperrors.ErrorTypeNotFound,
		Title:      "Not Found",
		Message:    "No route for " + req.Method + " " + req.URL.Path,
		HTTPStatus: http.StatusNotFound,
	})
}

func (rt *Router) methodNotAllowed(w http.ResponseWriter, req *http.Request) {
	rt.errHandler.Handle(w, req, &apperrors.AppError{
		Type:       apperrors.ErrorTypeValidation,
		Title:      "Method Not Allowed",
		Message:    "Method " + req.Method + " is not allowed on " + req.URL.Path,
		HTTPStatus: http.StatusMethodNotAllowed,
	})
}
