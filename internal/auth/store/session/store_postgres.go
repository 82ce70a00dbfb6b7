package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
	"curricula/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound (wrapped) when no session matches, including
//   a Rotate whose row was already rotated or deleted (the race loser)
// - Return wrapped errors with context for infrastructure failures
// Delete operations return the affected row count and never treat zero as an
// error; logout is idempotent by contract.

// PostgresStore is the durable session store. It is the single
// writer-of-record for session rows; the cache in front of it is advisory.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a session with a freshly generated refresh token and a
// 30-day expiry.
func (s *PostgresStore) Create(ctx context.Context, identityID uuid.UUID, meta models.ClientMeta) (*models.Session, error) {
	token, err := NewRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &models.Session{
		ID:           uuid.New(),
		IdentityID:   identityID,
		RefreshToken: token,
		ExpiresAt:    Expiry(now),
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
		CreatedAt:    now,
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, auth_id, refresh_token, expires_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sess.ID, sess.IdentityID, sess.RefreshToken, sess.ExpiresAt, sess.IPAddress, sess.UserAgent, sess.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// FindByToken loads a session by refresh token, joined with its identity and
// profile. The refresh token has a unique index, so at most one row matches.
func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.AuthenticatedSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT s.id, s.auth_id, s.refresh_token, s.expires_at, s.ip_address, s.user_agent, s.created_at,
		       a.id, a.email, a.password_hash, a.is_active, a.created_at, a.updated_at,
		       p.id, p.full_name, p.email, p.role
		FROM sessions s
		JOIN auth_users a ON a.id = s.auth_id
		LEFT JOIN profiles p ON p.auth_id = a.id
		WHERE s.refresh_token = $1
	`, token)

	var as models.AuthenticatedSession
	var profileID *uuid.UUID
	var fullName, profileEmail, role *string

	err := row.Scan(
		&as.Session.ID, &as.Session.IdentityID, &as.Session.RefreshToken, &as.Session.ExpiresAt,
		&as.Session.IPAddress, &as.Session.UserAgent, &as.Session.CreatedAt,
		&as.Identity.ID, &as.Identity.Email, &as.Identity.PasswordHash, &as.Identity.IsActive,
		&as.Identity.CreatedAt, &as.Identity.UpdatedAt,
		&profileID, &fullName, &profileEmail, &role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session by token: %w", err)
	}

	if profileID != nil {
		as.Identity.Profile = &models.Profile{
			ID:       *profileID,
			FullName: deref(fullName),
			Email:    deref(profileEmail),
			Role:     roles.Role(deref(role)),
		}
	}
	return &as, nil
}

// Rotate replaces the token and expiry on the same row, conditional on the
// row still holding the old token. A concurrent rotation that lost the race
// sees zero rows updated and gets sentinel.ErrNotFound; no second row is ever
// created.
func (s *PostgresStore) Rotate(ctx context.Context, sessionID uuid.UUID, oldToken, newToken string, newExpiry time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions
		SET refresh_token = $3, expires_at = $4
		WHERE id = $1 AND refresh_token = $2
	`, sessionID, oldToken, newToken, newExpiry)
	if err != nil {
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session already rotated or deleted: %w", sentinel.ErrNotFound)
	}
	return nil
}

// DeleteByToken removes the session holding the token. Zero rows is success.
func (s *PostgresStore) DeleteByToken(ctx context.Context, token string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, token)
	if err != nil {
		return 0, fmt.Errorf("delete session by token: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteAllForIdentity removes every session for the identity (logout-all).
func (s *PostgresStore) DeleteAllForIdentity(ctx context.Context, identityID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE auth_id = $1`, identityID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for identity: %w", err)
	}
	return tag.RowsAffected(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
