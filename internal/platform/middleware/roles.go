package middleware

import (
	"log/slog"
	"net/http"
	"slices"

	"curricula/internal/auth/roles"
)

// RequireRole allows the request through only when the authenticated
// principal holds one of the listed roles. Must run after RequireAuth; an
// unauthenticated request is rejected, never passed through.
func RequireRole(logger *slog.Logger, allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := GetPrincipal(ctx)
			if !ok || !slices.Contains(allowed, principal.Role) {
				logger.WarnContext(ctx, "forbidden - role not allowed",
					"role", principal.Role,
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission gates the request on the permission table instead of a
// hard-coded role list, so handlers name the action they protect.
func RequirePermission(logger *slog.Logger, permission roles.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := GetPrincipal(ctx)
			if !ok || !permission.Allows(principal.Role) {
				logger.WarnContext(ctx, "forbidden - permission denied",
					"role", principal.Role,
					"permission", permission,
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "Forbidden: insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
