package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"dhruva/internal/user"
	"dhruva/pkg/platform/sentinel"
)

const accountColumns = `id, username, password_hash, wallet_address, role, name, email, organisation, did, created_at, updated_at`

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, account *user.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID,
		account.Username,
		account.PasswordHash,
		nullable(strings.ToLower(account.WalletAddress)),
		string(account.Role),
		account.Name,
		account.Email,
		account.Organisation,
		account.DID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*user.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM users WHERE username = $1`, username)
	return scanAccount(row)
}

func (s *PostgresStore) FindByWallet(ctx context.Context, wallet string) (*user.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM users WHERE wallet_address = $1`, strings.ToLower(wallet))
	return scanAccount(row)
}

func (s *PostgresStore) Update(ctx context.Context, account *user.Account) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			username = $2,
			password_hash = $3,
			wallet_address = $4,
			role = $5,
			name = $6,
			email = $7,
			organisation = $8,
			did = $9,
			updated_at = $10
		WHERE id = $1`,
		account.ID,
		account.Username,
		account.PasswordHash,
		nullable(strings.ToLower(account.WalletAddress)),
		string(account.Role),
		account.Name,
		account.Email,
		account.Organisation,
		account.DID,
		account.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*user.Account, error) {
	var account user.Account
	var wallet sql.NullString
	var role string
	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&wallet,
		&role,
		&account.Name,
		&account.Email,
		&account.Organisation,
		&account.DID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	account.WalletAddress = wallet.String
	account.Role = user.Role(role)
	return &account, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
