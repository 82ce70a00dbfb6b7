package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"curricula/internal/auth/models"
	"curricula/pkg/platform/sentinel"
)

// IdentityResolver resolves the identity joined to a session. The postgres
// store does this with SQL; the memory store delegates to the user store.
type IdentityResolver interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
}

// InMemoryStore keeps sessions in memory for tests/dev. Same error and
// rotation contract as the postgres store.
type InMemoryStore struct {
	mu         sync.RWMutex
	byToken    map[string]*models.Session
	identities IdentityResolver
}

func NewMemory(identities IdentityResolver) *InMemoryStore {
	return &InMemoryStore{
		byToken:    make(map[string]*models.Session),
		identities: identities,
	}
}

func (s *InMemoryStore) Create(_ context.Context, identityID uuid.UUID, meta models.ClientMeta) (*models.Session, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = sess

	cp := *sess
	return &cp, nil
}

func (s *InMemoryStore) FindByToken(ctx context.Context, token string) (*models.AuthenticatedSession, error) {
	s.mu.RLock()
	sess, ok := s.byToken[token]
	if !ok {
		s.mu.RUnlock()
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	cp := *sess
	s.mu.RUnlock()

	identity, err := s.identities.FindByID(ctx, cp.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("resolve session identity: %w", err)
	}

	return &models.AuthenticatedSession{Session: cp, Identity: *identity}, nil
}

// Rotate is conditional on the row still holding oldToken, mirroring the
// postgres compare-and-swap. Exactly one concurrent rotation wins.
func (s *InMemoryStore) Rotate(_ context.Context, sessionID uuid.UUID, oldToken, newToken string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byToken[oldToken]
	if !ok || sess.ID != sessionID {
		return fmt.Errorf("session already rotated or deleted: %w", sentinel.ErrNotFound)
	}

	delete(s.byToken, oldToken)
	sess.RefreshToken = newToken
	sess.ExpiresAt = newExpiry
	s.byToken[newToken] = sess
	return nil
}

// SetExpiry backdates or extends a session, for tests.
func (s *InMemoryStore) SetExpiry(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byToken[token]; ok {
		sess.ExpiresAt = expiresAt
	}
}

func (s *InMemoryStore) DeleteByToken(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byToken[token]; !ok {
		return 0, nil
	}
	delete(s.byToken, token)
	return 1, nil
}

func (s *InMemoryStore) DeleteAllForIdentity(_ context.Context, identityID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for token, sess := range s.byToken {
		if sess.IdentityID == identityID {
			delete(s.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}
