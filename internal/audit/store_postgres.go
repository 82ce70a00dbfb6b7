package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore appends audit events to the auth_audit_log table via
// database/sql. Separate handle from the pgx pool on purpose: the audit trail
// is an independent write path that must not contend with session traffic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a database/sql handle with the pq driver for the audit
// log.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit db: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_audit_log (id, occurred_at, auth_id, action, ip_address, user_agent, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), event.Timestamp, event.IdentityID, event.Action, event.IPAddress, event.UserAgent, event.Detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByIdentity(ctx context.Context, identityID uuid.UUID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, auth_id, action, ip_address, user_agent, detail
		FROM auth_audit_log
		WHERE auth_id = $1
		ORDER BY occurred_at
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Timestamp, &e.IdentityID, &e.Action, &e.IPAddress, &e.UserAgent, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
