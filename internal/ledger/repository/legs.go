package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/acanadell/splitsync/internal/ledger"
)

// LegRepo handles account_transaction rows.
type LegRepo struct {
	db *sql.DB
}

func NewLegRepo(db *sql.DB) *LegRepo { return &LegRepo{db: db} }

// FindByExternalID returns every leg carrying the external id, oldest first.
// Legs with a null fi_id are invisible here and therefore never touched. The
// categorization join is collapsed to one row per leg: a leg the user split
// across buckets by hand still surfaces once.
func (r *LegRepo) FindByExternalID(ctx context.Context, externalID string) ([]Leg, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT t.id, t.fi_id, t.account_id, t.amount, t.memo, t.general_cat, t.posted, MIN(bt.bucket_id)
	FROM account_transaction t
	LEFT JOIN bucket_transaction bt ON bt.account_trans_id = t.id
	WHERE t.fi_id = ?
	GROUP BY t.id
	ORDER BY t.id;
	`, externalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Leg
	for rows.Next() {
		var l Leg
		var external sql.NullString
		var bucket sql.NullInt64
		var posted sql.NullTime
		if err := rows.Scan(&l.ID, &external, &l.AccountID, &l.Amount, &l.Memo, &l.GeneralCat, &posted, &bucket); err != nil {
			return nil, err
		}
		if external.Valid {
			l.ExternalID = &external.String
		}
		if posted.Valid {
			l.Posted = posted.Time
		}
		if bucket.Valid {
			l.BucketID = &bucket.Int64
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Insert creates a leg and returns the store-assigned id. Each insert is its
// own commit; a run never holds a transaction across legs.
func (r *LegRepo) Insert(ctx context.Context, l Leg) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	INSERT INTO account_transaction(posted, account_id, amount, memo, fi_id, general_cat)
	VALUES(?, ?, ?, ?, ?, ?);
	`, ledger.FormatPosted(l.Posted), l.AccountID, l.Amount, l.Memo, l.ExternalID, l.GeneralCat)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update rewrites a leg in place. Amount may be zero: a converged leg keeps
// its row as an auditable marker rather than being deleted.
func (r *LegRepo) Update(ctx context.Context, id, accountID, amount int64, memo string, posted time.Time) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE account_transaction SET account_id = ?, amount = ?, memo = ?, posted = ? WHERE id = ?;
	`, accountID, amount, memo, ledger.FormatPosted(posted), id)
	return err
}

// Categorize links a leg to a bucket, re-pointing the existing categorization
// row if one is already there. It is never called with a null bucket, so a
// manually categorized leg can't be reset to uncategorized by a later run.
func (r *LegRepo) Categorize(ctx context.Context, legID, bucketID, amount int64, memo string, posted time.Time) error {
	var existing int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM bucket_transaction WHERE account_trans_id = ? LIMIT 1`, legID,
	).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		_, err = r.db.ExecContext(ctx, `
		INSERT INTO bucket_transaction(posted, bucket_id, amount, memo, account_trans_id)
		VALUES(?, ?, ?, ?, ?);
		`, ledger.FormatPosted(posted), bucketID, amount, memo, legID)
		return err
	case err != nil:
		return err
	default:
		_, err = r.db.ExecContext(ctx, `
		UPDATE bucket_transaction SET bucket_id = ?, amount = ?, memo = ?, posted = ? WHERE id = ?;
		`, bucketID, amount, memo, ledger.FormatPosted(posted), existing)
		return err
	}
}
