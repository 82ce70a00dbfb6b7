package user

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"curricula/internal/auth/models"
	"curricula/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in memory for tests/dev. Same error contract
// as the postgres store.
type InMemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]*models.Identity
}

func NewMemory() *InMemoryStore {
	return &InMemoryStore{byEmail: make(map[string]*models.Identity)}
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if identity, ok := s.byEmail[email]; ok {
		cp := *identity
		if identity.Profile != nil {
			profile := *identity.Profile
			cp.Profile = &profile
		}
		return &cp, nil
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.byEmail {
		if identity.ID == id {
			cp := *identity
			if identity.Profile != nil {
				profile := *identity.Profile
				cp.Profile = &profile
			}
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("identity not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) Create(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[identity.Email]; ok {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	now := time.Now()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	cp := *identity
	if identity.Profile != nil {
		profile := *identity.Profile
		cp.Profile = &profile
	}
	s.byEmail[identity.Email] = &cp
	return nil
}
