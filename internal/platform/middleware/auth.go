package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"curricula/internal/auth/roles"
	"curricula/internal/jwt_token"
)

// TokenValidator defines the interface for validating JWT access tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	IdentityID uuid.UUID
	ProfileID  uuid.UUID
	Role       roles.Role
}

type contextKeyPrincipal struct{}

// GetPrincipal retrieves the authenticated principal from the context.
// The second return is false on unauthenticated requests.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKeyPrincipal{}).(Principal)
	return p, ok
}

// WithPrincipal injects a principal into a context.
// Useful for handler tests that don't run the full middleware chain.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal{}, p)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

// RequireAuth rejects requests without a valid Bearer access token and
// attaches the caller's principal to the context for downstream handlers.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			principal, err := principalFromClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed claims",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("user.id", principal.IdentityID.String()),
					attribute.String("user.role", string(principal.Role)),
				)
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

func principalFromClaims(claims *jwttoken.Claims) (Principal, error) {
	identityID, err := claims.IdentityID()
	if err != nil {
		return Principal{}, err
	}
	profileID, err := uuid.Parse(claims.ProfileID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{
		IdentityID: identityID,
		ProfileID:  profileID,
		Role:       roles.Role(claims.Role),
	}, nil
}
