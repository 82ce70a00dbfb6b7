// Package notify hands notification jobs to the email pipeline. The core only
// guarantees a job was handed off, never that it was delivered; rendering and
// delivery live in a separate consumer.
package notify

import (
	"context"
	"log/slog"
)

// Queue is the one-way welcome notification sink.
type Queue interface {
	EnqueueWelcome(ctx context.Context, email, name string)
}

// welcomeJob is the wire payload for the email consumer.
type welcomeJob struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Name string `json:"name"`
}

// NoopQueue is selected when no broker is configured. Registration proceeds;
// the skipped job is logged.
type NoopQueue struct {
	logger *slog.Logger
}

func NewNoop(logger *slog.Logger) *NoopQueue {
	return &NoopQueue{logger: logger}
}

func (q *NoopQueue) EnqueueWelcome(ctx context.Context, email, _ string) {
	q.logger.WarnContext(ctx, "email queue not configured, skipping welcome email", "to", email)
}
