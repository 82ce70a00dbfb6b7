package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]Event, error)
}

// Publisher captures structured audit events. Auth flows treat it as
// best-effort: an append failure is logged, never propagated, so auditing can
// not fail a login.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

func NewPublisher(store Store, logger *slog.Logger) *Publisher {
	return &Publisher{store: store, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.store.Append(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "audit append failed",
			"action", event.Action,
			"error", err,
		)
	}
}
