package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"curricula/internal/audit"
	"curricula/internal/auth/models"
	dErrors "curricula/pkg/domain-errors"
	"curricula/pkg/platform/sentinel"
)

// Logout revokes a single session by its refresh token. Unknown tokens are
// treated as already logged out; logout never fails for the caller.
func (s *Service) Logout(ctx context.Context, refreshToken string, meta models.ClientMeta) error {
	// Best-effort lookup so the cache entry can be evicted by its
	// composite key. A miss just means there is nothing to evict.
	found, err := s.sessions.FindByToken(ctx, refreshToken)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "session lookup failed during logout", "error", err)
	}

	if _, err := s.sessions.DeleteByToken(ctx, refreshToken); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete session")
	}

	if found != nil {
		s.cache.Remove(ctx, found.Identity.ID, refreshToken)
		s.emitAudit(ctx, found.Identity.ID, audit.ActionLogout, meta)
	}
	return nil
}

// LogoutAll revokes every session belonging to the identity, across devices.
func (s *Service) LogoutAll(ctx context.Context, identityID uuid.UUID, meta models.ClientMeta) error {
	deleted, err := s.sessions.DeleteAllForIdentity(ctx, identityID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete sessions")
	}

	s.cache.RemoveAll(ctx, identityID)

	s.logger.InfoContext(ctx, "all sessions revoked",
		"identity_id", identityID,
		"sessions_deleted", deleted,
	)
	s.emitAudit(ctx, identityID, audit.ActionLogoutAll, meta)
	return nil
}
