package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted from auth flows to capture key account actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	IdentityID uuid.UUID
	Action     string
	IPAddress  string
	UserAgent  string
	Detail     string
}

// Actions recorded by the auth service.
const (
	ActionRegister  = "auth.register"
	ActionLogin     = "auth.login"
	ActionLogout    = "auth.logout"
	ActionLogoutAll = "auth.logout_all"
	ActionRotate    = "auth.token_rotate"
)
