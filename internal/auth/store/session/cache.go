package session

import (
	"context"

	"github.com/google/uuid"

	"curricula/internal/auth/models"
)

// Cache is the best-effort accelerator in front of the durable session store.
// Implementations absorb every backend failure: Get degrades to a miss,
// mutations to a no-op. Callers never branch on cache availability, and a
// cache outage may only cost latency, never correctness.
type Cache interface {
	Put(ctx context.Context, snap *models.CachedSession)
	Get(ctx context.Context, token string) *models.CachedSession
	Remove(ctx context.Context, identityID uuid.UUID, token string)
	RemoveAll(ctx context.Context, identityID uuid.UUID)
}

// NoopCache is the null cache selected when no backend is configured. Every
// lookup is a miss.
type NoopCache struct{}

func NewNoop() NoopCache { return NoopCache{} }

func (NoopCache) Put(context.Context, *models.CachedSession) {}

func (NoopCache) Get(context.Context, string) *models.CachedSession { return nil }

func (NoopCache) Remove(context.Context, uuid.UUID, string) {}

func (NoopCache) RemoveAll(context.Context, uuid.UUID) {}
