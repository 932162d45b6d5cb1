package repository

import "time"

// Values of the general_cat column. Buckets uses the empty string for plain
// expenses and "transfer" for both halves of a transfer pair.
const (
	GeneralCatExpense  = ""
	GeneralCatTransfer = "transfer"
)

// Leg represents one account_transaction row. BucketID is joined in from
// bucket_transaction when the leg has been categorized.
type Leg struct {
	ID         int64
	ExternalID *string
	AccountID  int64
	Amount     int64 // minor units, signed
	Memo       string
	GeneralCat string
	Posted     time.Time
	BucketID   *int64
}

// IsTransfer reports whether the leg is one half of a transfer pair.
func (l Leg) IsTransfer() bool { return l.GeneralCat == GeneralCatTransfer }

// Account represents an account row.
type Account struct {
	ID   int64
	Name string
}

// Bucket represents a bucket row.
type Bucket struct {
	ID   int64
	Name string
}
