package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"curricula/internal/auth/roles"
	"curricula/internal/jwt_token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	tokens := jwttoken.NewJWTService("test-key", "test")
	identityID := uuid.New()
	profileID := uuid.New()

	validToken, err := tokens.GenerateAccessToken(identityID, profileID, roles.Teacher, time.Minute)
	require.NoError(t, err)
	expiredToken, err := tokens.GenerateAccessToken(identityID, profileID, roles.Teacher, -time.Minute)
	require.NoError(t, err)

	t.Run("valid token attaches principal", func(t *testing.T) {
		var got Principal
		handler := RequireAuth(tokens, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			require.True(t, ok)
			got = principal
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+validToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, identityID, got.IdentityID)
		assert.Equal(t, profileID, got.ProfileID)
		assert.Equal(t, roles.Teacher, got.Role)
	})

	t.Run("missing header is 401", func(t *testing.T) {
		var called bool
		handler := RequireAuth(tokens, discardLogger())(okHandler(&called))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})

	t.Run("expired token is 401", func(t *testing.T) {
		var called bool
		handler := RequireAuth(tokens, discardLogger())(okHandler(&called))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+expiredToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})

	t.Run("token signed with another key is 401", func(t *testing.T) {
		other := jwttoken.NewJWTService("other-key", "test")
		forged, err := other.GenerateAccessToken(identityID, profileID, roles.Admin, time.Minute)
		require.NoError(t, err)

		var called bool
		handler := RequireAuth(tokens, discardLogger())(okHandler(&called))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called)
	})
}

func TestRequireRole(t *testing.T) {
	run := func(principal *Principal, mw func(http.Handler) http.Handler) (int, bool) {
		var called bool
		handler := mw(okHandler(&called))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if principal != nil {
			req = req.WithContext(WithPrincipal(req.Context(), *principal))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code, called
	}

	t.Run("role in allowed set passes", func(t *testing.T) {
		code, called := run(&Principal{Role: roles.Teacher}, RequireRole(discardLogger(), roles.Admin, roles.Teacher))
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, called)
	})

	t.Run("role outside allowed set is 403", func(t *testing.T) {
		code, called := run(&Principal{Role: roles.Student}, RequireRole(discardLogger(), roles.Admin, roles.Teacher))
		assert.Equal(t, http.StatusForbidden, code)
		assert.False(t, called)
	})

	t.Run("no principal is 403", func(t *testing.T) {
		code, called := run(nil, RequireRole(discardLogger(), roles.Admin, roles.Teacher, roles.Student))
		assert.Equal(t, http.StatusForbidden, code)
		assert.False(t, called)
	})
}

func TestRequirePermission(t *testing.T) {
	run := func(principal *Principal, permission roles.Permission) (int, bool) {
		var called bool
		handler := RequirePermission(discardLogger(), permission)(okHandler(&called))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if principal != nil {
			req = req.WithContext(WithPrincipal(req.Context(), *principal))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code, called
	}

	t.Run("admin holds curriculum write", func(t *testing.T) {
		code, called := run(&Principal{Role: roles.Admin}, roles.CurriculumWrite)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, called)
	})

	t.Run("student denied curriculum write", func(t *testing.T) {
		code, called := run(&Principal{Role: roles.Student}, roles.CurriculumWrite)
		assert.Equal(t, http.StatusForbidden, code)
		assert.False(t, called)
	})

	t.Run("unknown permission denies everyone", func(t *testing.T) {
		code, called := run(&Principal{Role: roles.Admin}, roles.Permission("nonexistent:write"))
		assert.Equal(t, http.StatusForbidden, code)
		assert.False(t, called)
	})

	t.Run("no principal is 403", func(t *testing.T) {
		code, called := run(nil, roles.CurriculumWrite)
		assert.Equal(t, http.StatusForbidden, code)
		assert.False(t, called)
	})
}
