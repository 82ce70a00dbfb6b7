// Package models holds the auth domain types shared by services, stores, and
// the transport layer.
package models

import (
	"time"

	"github.com/google/uuid"

	"curricula/internal/auth/roles"
)

// Identity is one login credential set. Exactly one Profile belongs to each
// Identity; both are created in the same transaction at registration.
type Identity struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Profile is populated by store reads that join it. Register guarantees
	// it exists; Login still checks, defensively.
	Profile *Profile
}

// Profile is the user-facing account record, linked 1:1 to an Identity.
type Profile struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Role     roles.Role
}

// Session binds one refresh token to an identity. Multiple sessions per
// identity are expected (multi-device). The refresh token is opaque and
// single-use-until-rotated.
type Session struct {
	ID           uuid.UUID
	IdentityID   uuid.UUID
	RefreshToken string
	ExpiresAt    time.Time
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}

// Expired reports whether the session's refresh token is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// AuthenticatedSession pairs a session row with its joined identity and
// profile, as rotation needs both to mint a new access token.
type AuthenticatedSession struct {
	Session  Session
	Identity Identity
}

// CachedSession is the denormalized cache projection of a session plus its
// identity and profile. It is never authoritative; the durable row governs.
type CachedSession struct {
	ID           uuid.UUID      `json:"id"`
	IdentityID   uuid.UUID      `json:"identity_id"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresAt    time.Time      `json:"expires_at"`
	Identity     CachedIdentity `json:"identity"`
}

type CachedIdentity struct {
	ID      uuid.UUID     `json:"id"`
	Email   string        `json:"email"`
	Profile CachedProfile `json:"profile"`
}

type CachedProfile struct {
	ID       uuid.UUID  `json:"id"`
	FullName string     `json:"full_name"`
	Email    string     `json:"email"`
	Role     roles.Role `json:"role"`
}

// Snapshot builds the cache projection for an authenticated session.
func Snapshot(as *AuthenticatedSession) *CachedSession {
	snap := &CachedSession{
		ID:           as.Session.ID,
		IdentityID:   as.Session.IdentityID,
		RefreshToken: as.Session.RefreshToken,
		ExpiresAt:    as.Session.ExpiresAt,
		Identity: CachedIdentity{
			ID:    as.Identity.ID,
			Email: as.Identity.Email,
		},
	}
	if as.Identity.Profile != nil {
		snap.Identity.Profile = CachedProfile{
			ID:       as.Identity.Profile.ID,
			FullName: as.Identity.Profile.FullName,
			Email:    as.Identity.Email,
			Role:     as.Identity.Profile.Role,
		}
	}
	return snap
}

// FromSnapshot rebuilds the session/identity pair from a cache projection.
// A snapshot without a profile id maps back to a nil Profile.
func FromSnapshot(snap *CachedSession) *AuthenticatedSession {
	as := &AuthenticatedSession{
		Session: Session{
			ID:           snap.ID,
			IdentityID:   snap.IdentityID,
			RefreshToken: snap.RefreshToken,
			ExpiresAt:    snap.ExpiresAt,
		},
		Identity: Identity{
			ID:    snap.Identity.ID,
			Email: snap.Identity.Email,
		},
	}
	if snap.Identity.Profile.ID != uuid.Nil {
		profile := Profile{
			ID:       snap.Identity.Profile.ID,
			FullName: snap.Identity.Profile.FullName,
			Email:    snap.Identity.Profile.Email,
			Role:     snap.Identity.Profile.Role,
		}
		as.Identity.Profile = &profile
	}
	return as
}

// PublicUser is the response view of an account. ID is the profile id, not
// the identity id.
type PublicUser struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  roles.Role `json:"role"`
}

// AuthResult is the success response shape shared by register, login, and
// refresh.
type AuthResult struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         PublicUser `json:"user"`
}

// RegisterRequest is the register payload. Role is never client-settable.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token for logout and rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ClientMeta is the request metadata recorded on session creation.
type ClientMeta struct {
	IP        string
	UserAgent string
}
