// Package service orchestrates the session and token lifecycle: credential
// verification, access token issuance, refresh token rotation, and
// multi-device revocation.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"curricula/internal/audit"
	"curricula/internal/auth/device"
	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
	sessionStore "curricula/internal/auth/store/session"
	"curricula/internal/notify"
	"curricula/internal/platform/metrics"
	dErrors "curricula/pkg/domain-errors"
)

// AccessTokenTTL is the stateless access token lifetime. Tokens cannot be
// revoked early; the short window is the accepted trade-off.
const AccessTokenTTL = 30 * time.Minute

// UserStore is the durable identity record store.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) error
}

// SessionStore is the durable refresh token store. Rotate is a conditional
// single-row update; see the store package for the error contract.
type SessionStore interface {
	Create(ctx context.Context, identityID uuid.UUID, meta models.ClientMeta) (*models.Session, error)
	FindByToken(ctx context.Context, token string) (*models.AuthenticatedSession, error)
	Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, newExpiry time.Time) error
	DeleteByToken(ctx context.Context, token string) (int64, error)
	DeleteAllForIdentity(ctx context.Context, identityID uuid.UUID) (int64, error)
}

// TokenIssuer mints signed access tokens.
type TokenIssuer interface {
	GenerateAccessToken(identityID uuid.UUID, profileID uuid.UUID, role roles.Role, expiresIn time.Duration) (string, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) bool
}

// Service wires the auth flows over injected stores. No ambient globals; the
// process constructs everything once at startup.
type Service struct {
	users     UserStore
	sessions  SessionStore
	cache     sessionStore.Cache
	tokens    TokenIssuer
	passwords PasswordHasher
	welcome   notify.Queue
	audit     *audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(
	users UserStore,
	sessions SessionStore,
	cache sessionStore.Cache,
	tokens TokenIssuer,
	passwords PasswordHasher,
	welcome notify.Queue,
	auditPublisher *audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		users:     users,
		sessions:  sessions,
		cache:     cache,
		tokens:    tokens,
		passwords: passwords,
		welcome:   welcome,
		audit:     auditPublisher,
		logger:    logger,
		metrics:   m,
	}
}

// createSession is the shared tail of register, login, and rotation: persist
// a session, mirror it into the cache, and mint the access token. The durable
// write happens first; a missing or stale cache entry self-heals on the next
// lookup.
func (s *Service) createSession(ctx context.Context, identity *models.Identity, meta models.ClientMeta) (*models.AuthResult, error) {
	if identity.Profile == nil {
		s.metrics.IncAuthFailure("profile_missing")
		return nil, dErrors.New(dErrors.CodeForbidden, "user profile missing")
	}

	sess, err := s.sessions.Create(ctx, identity.ID, meta)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	s.cache.Put(ctx, models.Snapshot(&models.AuthenticatedSession{Session: *sess, Identity: *identity}))

	accessToken, err := s.tokens.GenerateAccessToken(identity.ID, identity.Profile.ID, identity.Profile.Role, AccessTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}

	s.logger.InfoContext(ctx, "session created",
		"identity_id", identity.ID,
		"device", device.ParseUserAgent(meta.UserAgent),
	)

	return &models.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: sess.RefreshToken,
		User: models.PublicUser{
			ID:    identity.Profile.ID,
			Name:  identity.Profile.FullName,
			Email: identity.Email,
			Role:  identity.Profile.Role,
		},
	}, nil
}

func (s *Service) emitAudit(ctx context.Context, identityID uuid.UUID, action string, meta models.ClientMeta) {
	s.audit.Emit(ctx, audit.Event{
		IdentityID: identityID,
		Action:     action,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
		Detail:     device.ParseUserAgent(meta.UserAgent),
	})
}
