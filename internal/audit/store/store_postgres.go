package store

import (
	"context"
	"database/sql"
	"fmt"

	"dhruva/internal/audit"
)

// PostgresStore persists audit events in PostgreSQL, append-only.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (timestamp, actor, action, hash, detail, request_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.Timestamp, event.Actor, string(event.Action), event.Hash, event.Detail, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByActor(ctx context.Context, actor string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, actor, action, hash, detail, request_id
		FROM audit_events WHERE actor = $1 ORDER BY timestamp ASC`,
		actor,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var event audit.Event
		var action string
		if err := rows.Scan(&event.Timestamp, &event.Actor, &action, &event.Hash, &event.Detail, &event.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		out = append(out, event)
	}
	return out, rows.Err()
}
