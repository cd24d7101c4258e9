package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/heinscr/books-library/application/services"
	"github.com/heinscr/books-library/pkg/auth"
	apperrors "github.com/heinscr/books-library/pkg/errors"
	"github.com/heinscr/books-library/pkg/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds request bodies; every accepted body is a handful of
// short strings.
const MaxBodyBytes = 1 << 20

// BookHandler handles book-related HTTP requests
type BookHandler struct {
	books      *services.BookService
	errHandler *apperrors.ErrorHandler
	logger     *zap.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(
	books *services.BookService,
	errHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *BookHandler {
	return &BookHandler{
		books:      books,
		errHandler: errHandler,
		logger:     logger,
	}
}

// ListBooks handles GET /books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	result, err := h.books.List(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// GetBook handles GET /books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	result, err := h.books.Get(r.Context(), auth.FromContext(r.Context()), bookID(r))
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// UpdateBook handles PATCH /books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())
	if !caller.Authenticated() {
		h.errHandler.Handle(w, r, apperrors.NewUnauthorizedError(""))
		return
	}

	body, err := h.decode(w, r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	result, err := h.books.Update(r.Context(), caller, bookID(r), body)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// DeleteBook handles DELETE /books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	result, err := h.books.Delete(r.Context(), auth.FromContext(r.Context()), bookID(r))
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// Upload handles POST /books/upload
func (h *BookHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.adminBody(w, r, services.ForbiddenUpload, func(caller auth.Identity, body validation.Body) (any, error) {
		return h.books.Upload(r.Context(), caller, body)
	})
}

// SetUploadMetadata handles POST /books/upload/metadata
func (h *BookHandler) SetUploadMetadata(w http.ResponseWriter, r *http.Request) {
	h.adminBody(w, r, services.ForbiddenMetadata, func(caller auth.Identity, body validation.Body) (any, error) {
		return h.books.SetUploadMetadata(r.Context(), caller, body)
	})
}

// adminBody authorizes before the body is parsed so a malformed payload
// never masks a 401 or 403.
func (h *BookHandler) adminBody(w http.ResponseWriter, r *http.Request, forbidden string, call func(auth.Identity, validation.Body) (any, error)) {
	caller := auth.FromContext(r.Context())
	if err := h.books.RequireAdmin(caller, forbidden); err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	body, err := h.decode(w, r)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}

	result, err := call(caller, body)
	if err != nil {
		h.errHandler.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *BookHandler) decode(w http.ResponseWriter, r *http.Request) (validation.Body, error) {
	if r.Body == nil {
		return validation.Body{}, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, apperrors.NewValidationError("Request body too large").WithCause(err)
	}
	return validation.Decode(data)
}

// bookID returns the {id} path segment. Ids are titles and may contain
// spaces, quotes or slashes encoded by the client. chi routes on RawPath
// when the request has one, and only then is the segment still escaped.
func bookID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return raw
	}
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

func (h *BookHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
