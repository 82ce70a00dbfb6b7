package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
	"curricula/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound (wrapped) when no identity matches
// - Return sentinel.ErrConflict (wrapped) on unique email violation
// - Return wrapped errors with context for infrastructure failures

const uniqueViolation = "23505"

// PostgresStore persists identities and profiles via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByEmail loads an identity and its joined profile. The profile join is a
// LEFT JOIN so a missing profile surfaces as Identity.Profile == nil rather
// than not-found; the service treats that as its own failure mode.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT a.id, a.email, a.password_hash, a.is_active, a.created_at, a.updated_at,
		       p.id, p.full_name, p.email, p.role
		FROM auth_users a
		LEFT JOIN profiles p ON p.auth_id = a.id
		WHERE a.email = $1
	`, email)

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return identity, nil
}

// FindByID loads an identity and its joined profile by identity id.
func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT a.id, a.email, a.password_hash, a.is_active, a.created_at, a.updated_at,
		       p.id, p.full_name, p.email, p.role
		FROM auth_users a
		LEFT JOIN profiles p ON p.auth_id = a.id
		WHERE a.id = $1
	`, id)

	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find identity by id: %w", err)
	}
	return identity, nil
}

// Create inserts the identity and its profile in one transaction. A partial
// insert must never leave an identity without a profile.
func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create identity: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO auth_users (id, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, identity.ID, identity.Email, identity.PasswordHash, identity.IsActive, identity.CreatedAt, identity.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO profiles (id, auth_id, full_name, email, role)
		VALUES ($1, $2, $3, $4, $5)
	`, identity.Profile.ID, identity.ID, identity.Profile.FullName, identity.Profile.Email, identity.Profile.Role)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create identity: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanIdentity(row pgx.Row) (*models.Identity, error) {
	var identity models.Identity
	var profileID *uuid.UUID
	var fullName, profileEmail, role *string

	err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&identity.IsActive,
		&identity.CreatedAt,
		&identity.UpdatedAt,
		&profileID,
		&fullName,
		&profileEmail,
		&role,
	)
	if err != nil {
		return nil, err
	}
	if profileID != nil {
		identity.Profile = &models.Profile{
			ID:       *profileID,
			FullName: deref(fullName),
			Email:    deref(profileEmail),
			Role:     roles.Role(deref(role)),
		}
	}
	return &identity, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
