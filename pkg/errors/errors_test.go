package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestErrorHandler_Handle_AppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantTitle  string
		wantMsg    string
	}{
		{"validation", NewValidationError("filename is required"), http.StatusBadRequest, "Bad Request", "filename is required"},
		{"not found", NewNotFoundError(`it's "quoted"`), http.StatusNotFound, "Not Found", `Book "it's "quoted"" not found`},
		{"unauthorized default", NewUnauthorizedError(""), http.StatusUnauthorized, "Unauthorized", "User not authenticated"},
		{"forbidden", NewForbiddenError("Only administrators can delete books"), http.StatusForbidden, "Forbidden", "Only administrators can delete books"},
		{"database", NewDatabaseError(fmt.Errorf("throttled")), http.StatusInternalServerError, "Database Error", "throttled"},
		{"invalid data", NewInvalidDataError("Book record missing S3 URL"), http.StatusInternalServerError, "Invalid Data", "Book record missing S3 URL"},
		{"wrapped", fmt.Errorf("context: %w", NewValidationError("bad")), http.StatusBadRequest, "Bad Request", "bad"},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError, "Internal Server Error", "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := NewErrorHandler(zap.NewNop(), false)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/books", nil)

			// Act
			h.Handle(rec, req, tt.err)

			// Assert
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantTitle, body.Error)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestErrorHandler_Middleware_RecoversPanic(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "panic: kaboom")
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("x")))
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", NewValidationError("x"))))
	assert.True(t, IsForbidden(NewForbiddenError("")))
	assert.True(t, IsUnauthorized(NewUnauthorizedError("")))
	assert.False(t, IsNotFound(fmt.Errorf("x")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(fmt.Errorf("x")))
	assert.Equal(t, http.StatusNotFound, StatusOf(NewNotFoundError("x")))
}
