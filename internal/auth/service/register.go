package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"curricula/internal/audit"
	"curricula/internal/auth/models"
	"curricula/internal/auth/roles"
	dErrors "curricula/pkg/domain-errors"
	"curricula/pkg/platform/sentinel"
)

// Register creates a new identity with a student profile and opens its first
// session. The welcome email is enqueued fire-and-forget; registration
// succeeds even when the queue is down.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest, meta models.ClientMeta) (*models.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing user")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	identity := &models.Identity{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
		Profile: &models.Profile{
			ID:       uuid.New(),
			FullName: req.Name,
			Email:    email,
			Role:     roles.Student,
		},
	}
	if err := s.users.Create(ctx, identity); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	result, err := s.createSession(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	s.welcome.EnqueueWelcome(ctx, identity.Email, identity.Profile.FullName)
	s.metrics.RegistrationsTotal.Inc()
	s.emitAudit(ctx, identity.ID, audit.ActionRegister, meta)

	return result, nil
}

// Login verifies credentials and opens a session. Unknown email and wrong
// password collapse into the same response so callers cannot probe for
// registered addresses.
func (s *Service) Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	identity, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncAuthFailure("invalid_credentials")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if !s.passwords.Verify(req.Password, identity.PasswordHash) {
		s.metrics.IncAuthFailure("invalid_credentials")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if !identity.IsActive {
		s.metrics.IncAuthFailure("account_inactive")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	result, err := s.createSession(ctx, identity, meta)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, identity.ID, audit.ActionLogin, meta)
	return result, nil
}
