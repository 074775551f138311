package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"dhruva/internal/credential"
	"dhruva/pkg/platform/sentinel"
)

// PostgresStore persists credential records in PostgreSQL. The unique index
// on hash is the single authority for duplicate detection; no client-side
// locking is needed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed credential store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const credentialColumns = `hash, issuer, holder, credential_name, description, document_type,
	from_organisation, holder_did, issuer_did, subject, file_url, expiry_date,
	issued_at, metadata, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, record *credential.Record) error {
	subject, err := marshalNullable(record.Subject)
	if err != nil {
		return fmt.Errorf("marshal credential subject: %w", err)
	}
	metadata, err := marshalNullable(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal credential metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (`+credentialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		strings.ToLower(record.Hash), record.Issuer, record.Holder,
		record.CredentialName, record.Description, record.DocumentType,
		record.FromOrganisation, record.HolderDID, record.IssuerDID,
		subject, record.FileURL, record.ExpiryDate,
		record.IssuedAt, metadata, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByHash(ctx context.Context, hash string) (*credential.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials WHERE hash = $1`,
		strings.ToLower(hash),
	)
	record, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential by hash: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, address string) ([]*credential.Record, error) {
	return s.list(ctx, "holder", address)
}

func (s *PostgresStore) ListByIssuer(ctx context.Context, address string) ([]*credential.Record, error) {
	return s.list(ctx, "issuer", address)
}

func (s *PostgresStore) list(ctx context.Context, column, address string) ([]*credential.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials
		WHERE `+column+` = $1 ORDER BY issued_at DESC`,
		strings.ToLower(address),
	)
	if err != nil {
		return nil, fmt.Errorf("list credentials by %s: %w", column, err)
	}
	defer rows.Close()

	var out []*credential.Record
	for rows.Next() {
		record, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindByHashes(ctx context.Context, hashes []string) (map[string]*credential.Record, error) {
	if len(hashes) == 0 {
		return map[string]*credential.Record{}, nil
	}
	lowered := make([]string, len(hashes))
	for i, h := range hashes {
		lowered[i] = strings.ToLower(h)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+credentialColumns+` FROM credentials WHERE hash = ANY($1)`,
		pq.Array(lowered),
	)
	if err != nil {
		return nil, fmt.Errorf("find credentials by hashes: %w", err)
	}
	defer rows.Close()

	found := make(map[string]*credential.Record)
	for rows.Next() {
		record, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		found[record.Hash] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Key results by the caller's original hash spelling.
	out := make(map[string]*credential.Record, len(found))
	for _, hash := range hashes {
		if record, ok := found[strings.ToLower(hash)]; ok {
			out[hash] = record
		}
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*credential.Record, error) {
	var (
		record   credential.Record
		subject  []byte
		metadata []byte
	)
	err := row.Scan(
		&record.Hash, &record.Issuer, &record.Holder,
		&record.CredentialName, &record.Description, &record.DocumentType,
		&record.FromOrganisation, &record.HolderDID, &record.IssuerDID,
		&subject, &record.FileURL, &record.ExpiryDate,
		&record.IssuedAt, &metadata, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(subject) > 0 {
		if err := json.Unmarshal(subject, &record.Subject); err != nil {
			return nil, fmt.Errorf("unmarshal credential subject: %w", err)
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal credential metadata: %w", err)
		}
	}
	return &record, nil
}

func marshalNullable(v any) ([]byte, error) {
	switch value := v.(type) {
	case *credential.Subject:
		if value == nil {
			return nil, nil
		}
	case map[string]any:
		if value == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
