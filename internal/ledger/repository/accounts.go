package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUnknownAccount means the configuration references an account name that
// does not exist in the budget file. Fatal at startup: every reconciliation
// after it would fail the same way.
var ErrUnknownAccount = errors.New("unknown account")

// AccountRepo handles account rows.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// ResolveID maps an account name to its id.
func (r *AccountRepo) ResolveID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM account WHERE name = ? LIMIT 1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: no account named %q in the budget file", ErrUnknownAccount, name)
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Create adds an account. The sync never creates accounts on its own; this
// serves --init and tests.
func (r *AccountRepo) Create(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO account(name, currency) VALUES(?, 'EUR')`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
