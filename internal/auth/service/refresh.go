package service

import (
	"context"
	"errors"
	"time"

	"curricula/internal/audit"
	"curricula/internal/auth/models"
	sessionStore "curricula/internal/auth/store/session"
	dErrors "curricula/pkg/domain-errors"
	"curricula/pkg/platform/sentinel"
)

// RotateRefreshToken exchanges a valid refresh token for a fresh access token
// and a replacement refresh token. The old token is invalidated in the same
// conditional update that installs the new one, so of two concurrent
// rotations with the same token exactly one succeeds.
func (s *Service) RotateRefreshToken(ctx context.Context, refreshToken string, meta models.ClientMeta) (*models.AuthResult, error) {
	var as *models.AuthenticatedSession

	if snap := s.cache.Get(ctx, refreshToken); snap != nil {
		as = models.FromSnapshot(snap)
	} else {
		found, err := s.sessions.FindByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				s.metrics.IncAuthFailure("invalid_refresh_token")
				return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up session")
		}
		as = found
	}

	now := time.Now()
	if as.Session.Expired(now) {
		if _, err := s.sessions.DeleteByToken(ctx, refreshToken); err != nil {
			s.logger.WarnContext(ctx, "failed to delete expired session", "error", err)
		}
		s.cache.Remove(ctx, as.Identity.ID, refreshToken)
		s.metrics.IncAuthFailure("refresh_token_expired")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token expired")
	}

	if as.Identity.Profile == nil {
		s.metrics.IncAuthFailure("profile_missing")
		return nil, dErrors.New(dErrors.CodeForbidden, "user profile missing")
	}

	newToken, err := sessionStore.NewRefreshToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate refresh token")
	}
	newExpiry := sessionStore.Expiry(now)

	if err := s.sessions.Rotate(ctx, as.Session.ID, refreshToken, newToken, newExpiry); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Another rotation already consumed this token.
			s.metrics.IncAuthFailure("invalid_refresh_token")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate session")
	}

	as.Session.RefreshToken = newToken
	as.Session.ExpiresAt = newExpiry
	s.cache.Remove(ctx, as.Identity.ID, refreshToken)
	s.cache.Put(ctx, models.Snapshot(as))

	accessToken, err := s.tokens.GenerateAccessToken(as.Identity.ID, as.Identity.Profile.ID, as.Identity.Profile.Role, AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	s.metrics.TokenRotationsTotal.Inc()
	s.emitAudit(ctx, as.Identity.ID, audit.ActionRotate, meta)

	return &models.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		User: models.PublicUser{
			ID:    as.Identity.Profile.ID,
			Name:  as.Identity.Profile.FullName,
			Email: as.Identity.Email,
			Role:  as.Identity.Profile.Role,
		},
	}, nil
}
