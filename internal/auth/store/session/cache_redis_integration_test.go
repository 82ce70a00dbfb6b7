//go:build integration

package session

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
)

type RedisCacheSuite struct {
	suite.Suite
	client *redis.Client
	cache  *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	opts, err := redis.ParseURL(addr)
	s.Require().NoError(err)

	s.client = redis.NewClient(opts)
	s.Require().NoError(s.client.Ping(ctx).Err())

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s.cache = NewRedis(s.client, logger)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func makeSnapshot(identityID uuid.UUID, token string) *models.CachedSession {
	return &models.CachedSession{
		ID:           uuid.New(),
		IdentityID:   identityID,
		RefreshToken: token,
		ExpiresAt:    time.Now().Add(RefreshTokenTTL).UTC(),
		Identity: models.CachedIdentity{
			ID:    identityID,
			Email: "cache@example.com",
			Profile: models.CachedProfile{
				ID:       uuid.New(),
				FullName: "Cache User",
				Email:    "cache@example.com",
				Role:     roles.Student,
			},
		},
	}
}

func (s *RedisCacheSuite) TestPutThenGetByTokenOnly() {
	ctx := context.Background()
	identityID := uuid.New()
	token, err := NewRefreshToken()
	s.Require().NoError(err)

	s.cache.Put(ctx, makeSnapshot(identityID, token))

	got := s.cache.Get(ctx, token)
	s.Require().NotNil(got)
	s.Equal(identityID, got.IdentityID)
	s.Equal(token, got.RefreshToken)
	s.Equal(roles.Student, got.Identity.Profile.Role)

	// Entry carries the session TTL.
	ttl, err := s.client.TTL(ctx, key(identityID, token)).Result()
	s.Require().NoError(err)
	s.InDelta(RefreshTokenTTL.Seconds(), ttl.Seconds(), 60)
}

func (s *RedisCacheSuite) TestGetUnknownTokenIsMiss() {
	s.Nil(s.cache.Get(context.Background(), "no-such-token"))
}

func (s *RedisCacheSuite) TestCorruptEntryIsMiss() {
	ctx := context.Background()
	identityID := uuid.New()
	token, err := NewRefreshToken()
	s.Require().NoError(err)

	s.Require().NoError(s.client.Set(ctx, key(identityID, token), "{not json", time.Minute).Err())

	s.Nil(s.cache.Get(ctx, token))
}

func (s *RedisCacheSuite) TestRemoveEvictsSingleEntry() {
	ctx := context.Background()
	identityID := uuid.New()
	tokenA, _ := NewRefreshToken()
	tokenB, _ := NewRefreshToken()

	s.cache.Put(ctx, makeSnapshot(identityID, tokenA))
	s.cache.Put(ctx, makeSnapshot(identityID, tokenB))

	s.cache.Remove(ctx, identityID, tokenA)

	s.Nil(s.cache.Get(ctx, tokenA))
	s.NotNil(s.cache.Get(ctx, tokenB))
}

func (s *RedisCacheSuite) TestRemoveAllEvictsOnlyThatIdentity() {
	ctx := context.Background()
	mine := uuid.New()
	theirs := uuid.New()

	var myTokens []string
	for i := 0; i < 3; i++ {
		token, _ := NewRefreshToken()
		myTokens = append(myTokens, token)
		s.cache.Put(ctx, makeSnapshot(mine, token))
	}
	keptToken, _ := NewRefreshToken()
	s.cache.Put(ctx, makeSnapshot(theirs, keptToken))

	s.cache.RemoveAll(ctx, mine)

	for _, token := range myTokens {
		s.Nil(s.cache.Get(ctx, token))
	}
	s.NotNil(s.cache.Get(ctx, keptToken))
}
