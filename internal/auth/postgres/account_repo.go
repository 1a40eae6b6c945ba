// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package postgres implements auth.AccountRepository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/loginsys/loginsys/internal/auth"
)

// DBTX is the subset of pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// AccountRepository implements auth.AccountRepository using PostgreSQL.
// Uniqueness is enforced by the accounts_username_key constraint.
type AccountRepository struct {
	db DBTX
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

const selectAccount = `
	SELECT id, username, password_hash, status, created_at, updated_at
	FROM accounts
	WHERE username = $1`

// FindByUsername retrieves an account by exact username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	if !storable(username) {
		return nil, notFound(username)
	}
	account, err := scanAccount(r.db.QueryRow(ctx, selectAccount, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(username)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "select account").
			Wrap(err)
	}
	return account, nil
}

// InsertIfAbsent stores a new account. A concurrent insert of the same
// username makes exactly one caller succeed.
// A username PostgreSQL text cannot hold wraps auth.ErrUnstorable.
func (r *AccountRepository) InsertIfAbsent(ctx context.Context, account *auth.Account) error {
	if !storable(account.Username) {
		return unstorable(account.Username)
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, username, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO NOTHING
	`,
		account.ID.String(),
		account.Username,
		account.PasswordHash,
		string(account.Status),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return alreadyExists(account.Username)
			case pgerrcode.CharacterNotInRepertoire, pgerrcode.UntranslatableCharacter:
				return unstorable(account.Username)
			}
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return alreadyExists(account.Username)
	}
	return nil
}

// UpdateStatus changes the status of an existing account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, username string, status auth.Status) error {
	if !storable(username) {
		return notFound(username)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET status = $2, updated_at = now() WHERE username = $1`,
		username, string(status))
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update status").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(username)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash of an existing account.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	if !storable(username) {
		return notFound(username)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE username = $1`,
		username, passwordHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update password hash").
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(username)
	}
	return nil
}

// Ping checks database connectivity.
func (r *AccountRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return oops.Code("ACCOUNT_STORE_UNREACHABLE").Wrap(err)
	}
	return nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr     string
		status    string
		account   auth.Account
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&idStr, &account.Username, &account.PasswordHash, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT").With("field", "id").Wrap(err)
	}
	st, err := auth.ParseStatus(status)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT").With("field", "status").Wrap(err)
	}

	account.ID = id
	account.Status = st
	account.CreatedAt = createdAt.UTC()
	account.UpdatedAt = updatedAt.UTC()
	return &account, nil
}

func alreadyExists(username string) error {
	return oops.Code("ACCOUNT_ALREADY_EXISTS").With("username", username).Wrap(auth.ErrAlreadyExists)
}

func notFound(username string) error {
	return oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
}

func unstorable(username string) error {
	return oops.Code("ACCOUNT_USERNAME_UNSTORABLE").With("username", username).Wrap(auth.ErrUnstorable)
}

// storable reports whether s fits in a PostgreSQL text value, which cannot
// contain NUL. No stored row can match a username that fails this check.
func storable(s string) bool {
	return !strings.ContainsRune(s, 0)
}
