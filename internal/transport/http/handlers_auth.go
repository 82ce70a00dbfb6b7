package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	authModel "curricula/internal/auth/models"
	"curricula/internal/platform/middleware"
	dErrors "curricula/pkg/domain-errors"
)

// AuthService is the surface of the auth domain the HTTP layer consumes.
type AuthService interface {
	Register(ctx context.Context, req authModel.RegisterRequest, meta authModel.ClientMeta) (*authModel.AuthResult, error)
	Login(ctx context.Context, req authModel.LoginRequest, meta authModel.ClientMeta) (*authModel.AuthResult, error)
	Logout(ctx context.Context, refreshToken string, meta authModel.ClientMeta) error
	LogoutAll(ctx context.Context, identityID uuid.UUID, meta authModel.ClientMeta) error
	RotateRefreshToken(ctx context.Context, refreshToken string, meta authModel.ClientMeta) (*authModel.AuthResult, error)
}

type AuthHandler struct {
	auth   AuthService
	tokens middleware.TokenValidator
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, tokens middleware.TokenValidator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, logger: logger}
}

// Register mounts the auth routes. Logout-all needs the caller's identity, so
// it alone sits behind the access token gate; the other routes authenticate
// by credential or refresh token.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Post("/auth/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.tokens, h.logger))
		r.Post("/auth/logout-all", h.handleLogoutAll)
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authModel.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := validateRegisterRequest(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req, clientMeta(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, res)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authModel.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := validateLoginRequest(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req, clientMeta(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, res)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req authModel.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken, clientMeta(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipal(r.Context())
	if !ok {
		h.writeError(w, r, dErrors.New(dErrors.CodeUnauthorized, "unauthorized"))
		return
	}

	if err := h.auth.LogoutAll(r.Context(), principal.IdentityID, clientMeta(r)); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "all sessions revoked"})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authModel.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if req.RefreshToken == "" {
		h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "refreshToken is required"))
		return
	}

	res, err := h.auth.RotateRefreshToken(r.Context(), req.RefreshToken, clientMeta(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, res)
}

func clientMeta(r *http.Request) authModel.ClientMeta {
	return authModel.ClientMeta{
		IP:        middleware.ClientIPFromRequest(r),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

func validateRegisterRequest(req authModel.RegisterRequest) error {
	if !govalidator.StringLength(req.Email, "1", "255") || !govalidator.IsEmail(req.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if !govalidator.StringLength(req.Password, "8", "128") {
		return dErrors.New(dErrors.CodeValidation, "password must be between 8 and 128 characters")
	}
	if !govalidator.StringLength(req.Name, "1", "255") {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

func validateLoginRequest(req authModel.LoginRequest) error {
	if !govalidator.StringLength(req.Email, "1", "255") || !govalidator.IsEmail(req.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email")
	}
	if req.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}
