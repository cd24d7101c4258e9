package middleware

import (
	"errors"
	"net/http"

	"github.com/heinscr/books-library/pkg/auth"
	apperrors "github.com/heinscr/books-library/pkg/errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"go.uber.org/zap"
)

// LambdaIdentity attaches the identity asserted by the API Gateway
// authorizer. Claims are trusted as-is; a request without them carries the
// zero Identity and is rejected by the operations that need one.
func LambdaIdentity(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqCtx, ok := core.GetAPIGatewayV2ContextFromContext(r.Context())
			if !ok {
				logger.Debug("No API Gateway request context", zap.String("path", r.URL.Path))
				next.ServeHTTP(w, r)
				return
			}

			id := IdentityFromRequestContext(reqCtx)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// IdentityFromRequestContext reads JWT authorizer claims, falling back to a
// Lambda authorizer context (optionally nested under "claims").
func IdentityFromRequestContext(reqCtx events.APIGatewayV2HTTPRequestContext) auth.Identity {
	authorizer := reqCtx.Authorizer
	if authorizer == nil {
		return auth.Identity{}
	}

	if authorizer.JWT != nil && len(authorizer.JWT.Claims) > 0 {
		claims := make(map[string]any, len(authorizer.JWT.Claims))
		for k, v := range authorizer.JWT.Claims {
			claims[k] = v
		}
		return auth.IdentityFromClaims(claims)
	}

	if authorizer.Lambda != nil {
		if nested, ok := authorizer.Lambda["claims"].(map[string]any); ok {
			return auth.IdentityFromClaims(nested)
		}
		return auth.IdentityFromClaims(authorizer.Lambda)
	}
	return auth.Identity{}
}

// BearerIdentity validates HS256 bearer tokens for the local server. A
// missing header passes through without identity; a bad token is rejected.
func BearerIdentity(validator *auth.JWTValidator, errorHandler *apperrors.ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(header)
			if err != nil {
				errorHandler.Handle(w, r, apperrors.NewUnauthorizedError(tokenMessage(err)).WithCause(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), claims.Identity())))
		})
	}
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}
