package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/heinscr/books-library/pkg/auth"
	apperrors "github.com/heinscr/books-library/pkg/errors"
	"github.com/heinscr/books-library/pkg/observability"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIdentityFromRequestContext(t *testing.T) {
	tests := []struct {
		name       string
		authorizer *events.APIGatewayV2HTTPRequestContextAuthorizerDescription
		want       auth.Identity
	}{
		{
			name: "no authorizer",
			want: auth.Identity{},
		},
		{
			name: "jwt claims",
			authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
					Claims: map[string]string{"sub": "u1", "email": "u1@example.com", "cognito:groups": "[admins]"},
				},
			},
			want: auth.Identity{UserID: "u1", Email: "u1@example.com", Groups: []string{"admins"}},
		},
		{
			name: "lambda authorizer with nested claims",
			authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				Lambda: map[string]interface{}{
					"claims": map[string]interface{}{"sub": "u2", "cognito:groups": []interface{}{"readers"}},
				},
			},
			want: auth.Identity{UserID: "u2", Groups: []string{"readers"}},
		},
		{
			name: "flat lambda authorizer",
			authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				Lambda: map[string]interface{}{"sub": "u3"},
			},
			want: auth.Identity{UserID: "u3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IdentityFromRequestContext(events.APIGatewayV2HTTPRequestContext{Authorizer: tt.authorizer})
			assert.Equal(t, tt.want.UserID, got.UserID)
			assert.Equal(t, tt.want.Email, got.Email)
			assert.ElementsMatch(t, tt.want.Groups, got.Groups)
		})
	}
}

func TestLambdaIdentity_WithoutGatewayContextPassesThrough(t *testing.T) {
	var seen auth.Identity
	h := LambdaIdentity(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books", nil))

	assert.False(t, seen.Authenticated())
}

func TestBearerIdentity(t *testing.T) {
	// Arrange
	cfg := auth.JWTConfig{SecretKey: "secret"}
	validator, err := auth.NewJWTValidator(cfg)
	require.NoError(t, err)
	gen, err := auth.NewJWTGenerator(cfg, time.Hour)
	require.NoError(t, err)
	expired, err := auth.NewJWTGenerator(cfg, -time.Hour)
	require.NoError(t, err)

	good, err := gen.GenerateToken(auth.Identity{UserID: "u1", Groups: []string{"admins"}})
	require.NoError(t, err)
	stale, err := expired.GenerateToken(auth.Identity{UserID: "u1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"missing header passes through", "", http.StatusNoContent, ""},
		{"valid token", "Bearer " + good, http.StatusNoContent, "u1"},
		{"expired token", "Bearer " + stale, http.StatusUnauthorized, ""},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen auth.Identity
			h := BearerIdentity(validator, apperrors.NewErrorHandler(zap.NewNop(), false))(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					seen = auth.FromContext(r.Context())
					w.WriteHeader(http.StatusNoContent)
				}))
			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			// Act
			h.ServeHTTP(rec, req)

			// Assert
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUser, seen.UserID)
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	h := CORSHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, AllowOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, AllowHeaders, rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, AllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestMetricsAndTracing_NilSinksAreTransparent(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	rec := httptest.NewRecorder()

	Tracing(nil)(Metrics(nil, nil)(next)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSegmentName_UsesRoutePatternOnceRouted(t *testing.T) {
	// Arrange
	var before, after string
	router := chi.NewRouter()
	router.Route("/books", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				before = segmentName(req)
				next.ServeHTTP(w, req)
				after = segmentName(req)
			})
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	// Act
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books/Dune%20Messiah", nil))

	// Assert
	assert.Equal(t, "GET /books/{id}", after)
	assert.NotContains(t, before, "Dune")
}

func TestTracing_EnabledPassesResponseThrough(t *testing.T) {
	tracer := observability.NewTracer("books-library-test", true)
	router := chi.NewRouter()
	router.Route("/books", func(r chi.Router) {
		r.Use(Tracing(tracer))
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	})
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/books/Dune", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
