package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"dhruva/internal/credential"
	"dhruva/internal/issuance"
	"dhruva/pkg/platform/sentinel"
)

const intentColumns = `id, hash, file_hash, record, state, attempts, last_error, created_at, updated_at`

// PostgresStore persists issuance intents in PostgreSQL. The off-chain
// record travels as JSONB so the reconciler reads back exactly what the
// original request would have stored.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, intent *issuance.Intent) error {
	record, err := json.Marshal(intent.Record)
	if err != nil {
		return fmt.Errorf("marshal intent record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO issuance_intents (`+intentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		intent.ID,
		intent.Hash,
		intent.FileHash,
		record,
		string(intent.State),
		intent.Attempts,
		intent.LastError,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert intent: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*issuance.Intent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+intentColumns+` FROM issuance_intents WHERE id = $1`, id)
	return scanIntent(row)
}

func (s *PostgresStore) Update(ctx context.Context, intent *issuance.Intent) error {
	record, err := json.Marshal(intent.Record)
	if err != nil {
		return fmt.Errorf("marshal intent record: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE issuance_intents SET
			record = $2,
			state = $3,
			attempts = $4,
			last_error = $5,
			updated_at = $6
		WHERE id = $1`,
		intent.ID,
		record,
		string(intent.State),
		intent.Attempts,
		intent.LastError,
		intent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update intent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update intent: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListStuck(ctx context.Context, cutoff time.Time, maxAttempts int) ([]*issuance.Intent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+intentColumns+` FROM issuance_intents
		WHERE state IN ('pending', 'anchored')
		  AND attempts < $1
		  AND updated_at < $2
		ORDER BY updated_at ASC`,
		maxAttempts, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list stuck intents: %w", err)
	}
	defer rows.Close()

	var out []*issuance.Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*issuance.Intent, error) {
	var intent issuance.Intent
	var record []byte
	var state string
	err := row.Scan(
		&intent.ID,
		&intent.Hash,
		&intent.FileHash,
		&record,
		&state,
		&intent.Attempts,
		&intent.LastError,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan intent: %w", err)
	}
	intent.State = issuance.State(state)
	var rec credential.Record
	if err := json.Unmarshal(record, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal intent record: %w", err)
	}
	intent.Record = rec
	return &intent, nil
}
