package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"curricula/internal/auth/models"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curricula_session_cache_hits_total",
		Help: "Session cache lookups served from Redis",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curricula_session_cache_misses_total",
		Help: "Session cache lookups that fell through to the database",
	})
)

const (
	// Entries are keyed session:{identityID}:{token} so RemoveAll can match
	// on identity and Remove can hit a key directly. Token-only lookup has
	// to SCAN session:*:{token}; that is O(keys) and tolerable only because
	// the cache is population-bounded and TTL-bound. Key by token alone if
	// token-only lookup ever dominates.
	keyPrefix = "session:"
	scanCount = 100

	opTimeout = 500 * time.Millisecond
)

// RedisCache mirrors durable sessions into Redis with the same 30-day TTL.
// Never the source of truth: all errors are swallowed, logged, and surfaced
// to callers as a miss or no-op.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedis(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func key(identityID uuid.UUID, token string) string {
	return keyPrefix + identityID.String() + ":" + token
}

func (c *RedisCache) Put(ctx context.Context, snap *models.CachedSession) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.WarnContext(ctx, "session cache put skipped", "error", err)
		return
	}
	if err := c.client.Set(ctx, key(snap.IdentityID, snap.RefreshToken), raw, RefreshTokenTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "session cache put failed", "error", err)
	}
}

// Get looks a snapshot up by token alone. The identity id is unknown at call
// time, so it scans session:*:{token} and reads the first match.
func (c *RedisCache) Get(ctx context.Context, token string) *models.CachedSession {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*:"+token, scanCount).Result()
		if err != nil {
			c.logger.WarnContext(ctx, "session cache scan failed", "error", err)
			cacheMisses.Inc()
			return nil
		}
		if len(keys) > 0 {
			raw, err := c.client.Get(ctx, keys[0]).Result()
			if err != nil {
				if err != redis.Nil {
					c.logger.WarnContext(ctx, "session cache get failed", "error", err)
				}
				cacheMisses.Inc()
				return nil
			}
			var snap models.CachedSession
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				c.logger.WarnContext(ctx, "session cache entry corrupt", "error", err)
				cacheMisses.Inc()
				return nil
			}
			cacheHits.Inc()
			return &snap
		}
		cursor = next
		if cursor == 0 {
			cacheMisses.Inc()
			return nil
		}
	}
}

func (c *RedisCache) Remove(ctx context.Context, identityID uuid.UUID, token string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, key(identityID, token)).Err(); err != nil {
		c.logger.WarnContext(ctx, "session cache remove failed", "error", err)
	}
}

// RemoveAll evicts every cached session for the identity.
func (c *RedisCache) RemoveAll(ctx context.Context, identityID uuid.UUID) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+identityID.String()+":*", scanCount).Result()
		if err != nil {
			c.logger.WarnContext(ctx, "session cache remove-all scan failed", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.WarnContext(ctx, "session cache remove-all failed", "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
