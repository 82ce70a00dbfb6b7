//go:build integration

package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
	"curricula/internal/auth/store/user"
	"curricula/pkg/platform/sentinel"
)

const schema = `
CREATE TABLE auth_users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE profiles (
	id        UUID PRIMARY KEY,
	auth_id   UUID NOT NULL UNIQUE REFERENCES auth_users(id) ON DELETE CASCADE,
	full_name TEXT NOT NULL,
	email     TEXT NOT NULL,
	role      TEXT NOT NULL
);
CREATE TABLE sessions (
	id            UUID PRIMARY KEY,
	auth_id       UUID NOT NULL REFERENCES auth_users(id) ON DELETE CASCADE,
	refresh_token TEXT NOT NULL UNIQUE,
	expires_at    TIMESTAMPTZ NOT NULL,
	ip_address    TEXT NOT NULL DEFAULT '',
	user_agent    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
`

type PostgresStoreSuite struct {
	suite.Suite
	pool     *pgxpool.Pool
	users    *user.PostgresStore
	sessions *PostgresStore
	identity *models.Identity
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("curricula_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = pgxpool.New(ctx, dsn)
	s.Require().NoError(err)

	_, err = s.pool.Exec(ctx, schema)
	s.Require().NoError(err)

	s.users = user.NewPostgres(s.pool)
	s.sessions = NewPostgres(s.pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	_, err := s.pool.Exec(ctx, `TRUNCATE sessions, profiles, auth_users`)
	s.Require().NoError(err)

	s.identity = &models.Identity{
		ID:           uuid.New(),
		Email:        "pg@example.com",
		PasswordHash: "$argon2id$stub",
		IsActive:     true,
		Profile: &models.Profile{
			ID:       uuid.New(),
			FullName: "PG User",
			Email:    "pg@example.com",
			Role:     roles.Student,
		},
	}
	s.Require().NoError(s.users.Create(ctx, s.identity))
}

func (s *PostgresStoreSuite) TestUserStoreRoundTrip() {
	ctx := context.Background()

	found, err := s.users.FindByEmail(ctx, "pg@example.com")
	s.Require().NoError(err)
	s.Equal(s.identity.ID, found.ID)
	s.Require().NotNil(found.Profile)
	s.Equal(roles.Student, found.Profile.Role)

	byID, err := s.users.FindByID(ctx, s.identity.ID)
	s.Require().NoError(err)
	s.Equal(found.Email, byID.Email)

	_, err = s.users.FindByEmail(ctx, "missing@example.com")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()

	dup := &models.Identity{
		ID:           uuid.New(),
		Email:        "pg@example.com",
		PasswordHash: "$argon2id$stub",
		IsActive:     true,
		Profile:      &models.Profile{ID: uuid.New(), FullName: "Dup", Email: "pg@example.com", Role: roles.Student},
	}
	err := s.users.Create(ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	// The failed transaction must not leave an orphan profile behind.
	var count int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM profiles`).Scan(&count))
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestSessionLifecycle() {
	ctx := context.Background()

	sess, err := s.sessions.Create(ctx, s.identity.ID, models.ClientMeta{IP: "10.1.2.3", UserAgent: "suite"})
	s.Require().NoError(err)
	s.Len(sess.RefreshToken, 128)

	found, err := s.sessions.FindByToken(ctx, sess.RefreshToken)
	s.Require().NoError(err)
	s.Equal(sess.ID, found.Session.ID)
	s.Equal("10.1.2.3", found.Session.IPAddress)
	s.Equal(s.identity.Email, found.Identity.Email)
	s.Require().NotNil(found.Identity.Profile)

	newToken, err := NewRefreshToken()
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.Rotate(ctx, sess.ID, sess.RefreshToken, newToken, Expiry(time.Now())))

	_, err = s.sessions.FindByToken(ctx, sess.RefreshToken)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	rotated, err := s.sessions.FindByToken(ctx, newToken)
	s.Require().NoError(err)
	s.Equal(sess.ID, rotated.Session.ID)

	n, err := s.sessions.DeleteByToken(ctx, newToken)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.sessions.DeleteByToken(ctx, newToken)
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}

// TestRotateConcurrentSingleWinner exercises the conditional UPDATE under
// real database concurrency: one winner, everyone else ErrNotFound.
func (s *PostgresStoreSuite) TestRotateConcurrentSingleWinner() {
	ctx := context.Background()

	sess, err := s.sessions.Create(ctx, s.identity.ID, models.ClientMeta{})
	s.Require().NoError(err)

	const goroutines = 16
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			newToken, err := NewRefreshToken()
			if err != nil {
				return
			}
			if s.sessions.Rotate(ctx, sess.ID, sess.RefreshToken, newToken, Expiry(time.Now())) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())

	var count int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM sessions WHERE auth_id = $1`, s.identity.ID).Scan(&count))
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestDeleteAllForIdentity() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.sessions.Create(ctx, s.identity.ID, models.ClientMeta{})
		s.Require().NoError(err)
	}

	n, err := s.sessions.DeleteAllForIdentity(ctx, s.identity.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), n)
}
