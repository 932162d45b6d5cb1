package repository

import (
	"context"
	"database/sql"
)

// BucketRepo handles bucket rows.
type BucketRepo struct {
	db *sql.DB
}

func NewBucketRepo(db *sql.DB) *BucketRepo { return &BucketRepo{db: db} }

// ResolveID maps a bucket name to its id. A missing bucket is not an error:
// the leg simply stays uncategorized for the user to sort out.
func (r *BucketRepo) ResolveID(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM bucket WHERE name = ? LIMIT 1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Create adds a bucket, for --init and tests.
func (r *BucketRepo) Create(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO bucket(name) VALUES(?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
