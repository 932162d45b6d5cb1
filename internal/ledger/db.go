// Package ledger opens and bootstraps the Buckets budget file, a sqlite
// database whose schema is owned by the Buckets application.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the budget file with sensible defaults.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)
	return db, nil
}

// PostedLayout is how Buckets stores the posted column: a datetime string,
// not a unix timestamp.
const PostedLayout = "2006-01-02 15:04:05"

// FormatPosted renders a time for the posted column.
func FormatPosted(t time.Time) string {
	return t.Format(PostedLayout)
}
