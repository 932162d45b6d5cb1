package engine

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/acanadell/splitsync/internal/ledger"
	"github.com/acanadell/splitsync/internal/ledger/repository"
)

type fakeSource struct {
	expenses []Expense
	err      error
}

func (f *fakeSource) FetchExpenses(ctx context.Context, since time.Time) ([]Expense, error) {
	return f.expenses, f.err
}

// faultStore makes inserts fail after the first n, to exercise per-leg
// failure isolation.
type faultStore struct {
	LegStore
	allow   int
	inserts int
}

func (f *faultStore) Insert(ctx context.Context, l repository.Leg) (int64, error) {
	f.inserts++
	if f.inserts > f.allow {
		return 0, errors.New("disk full")
	}
	return f.LegStore.Insert(ctx, l)
}

type fixture struct {
	ctx      context.Context
	db       *sql.DB
	eng      *Engine
	legs     *repository.LegRepo
	accounts Accounts
}

func setupEngineTest(t *testing.T) fixture {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	dbPath := filepath.Join(t.TempDir(), "budget.buckets")
	migrations, err := filepath.Abs("../ledger/migrations")
	require.NoError(t, err)
	require.NoError(t, ledger.RunMigrations(dbPath, migrations))

	db, err := ledger.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	acctRepo := repository.NewAccountRepo(db)
	var accts Accounts
	accts.Cash, err = acctRepo.Create(ctx, "Cash")
	require.NoError(t, err)
	accts.Payment, err = acctRepo.Create(ctx, "Payments")
	require.NoError(t, err)
	accts.Holding, err = acctRepo.Create(ctx, "Splitwise")
	require.NoError(t, err)

	bucketRepo := repository.NewBucketRepo(db)
	_, err = bucketRepo.Create(ctx, "Groceries")
	require.NoError(t, err)

	legs := repository.NewLegRepo(db)
	eng := New(legs, bucketRepo, nil, accts, map[string]string{"18": "Groceries"}, zerolog.Nop())
	return fixture{ctx: ctx, db: db, eng: eng, legs: legs, accounts: accts}
}

func expense(paid, owed string) Expense {
	return Expense{
		ExternalID:  "42",
		Description: "groceries",
		OccurredAt:  time.Date(2026, 2, 10, 18, 30, 0, 0, time.UTC),
		Total:       decimal.RequireFromString("60.00"),
		PaidShare:   decimal.RequireFromString(paid),
		OwedShare:   decimal.RequireFromString(owed),
		CategoryKey: "18",
	}
}

func TestReconcileSurplusCreatesThreeLegs(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	line := f.eng.Reconcile(f.ctx, expense("50.00", "10.00"))
	require.False(t, line.Failed(), line.Detail)
	require.Equal(t, 3, line.LegsWritten)
	require.Equal(t, "Groceries", line.Bucket)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 3)

	// expense leg on the paid-from account, categorized
	require.Equal(t, f.accounts.Payment, legs[0].AccountID)
	require.Equal(t, int64(-1000), legs[0].Amount)
	require.Equal(t, repository.GeneralCatExpense, legs[0].GeneralCat)
	require.NotNil(t, legs[0].BucketID)

	// transfer pair, outgoing written before incoming
	require.Equal(t, f.accounts.Payment, legs[1].AccountID)
	require.Equal(t, int64(-4000), legs[1].Amount)
	require.True(t, legs[1].IsTransfer())
	require.Equal(t, f.accounts.Holding, legs[2].AccountID)
	require.Equal(t, int64(4000), legs[2].Amount)
	require.True(t, legs[2].IsTransfer())
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	e := expense("50.00", "10.00")
	first := f.eng.Reconcile(f.ctx, e)
	require.False(t, first.Failed())

	before, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)

	second := f.eng.Reconcile(f.ctx, e)
	require.False(t, second.Failed())

	after, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].ID, after[i].ID)
		require.Equal(t, before[i].Amount, after[i].Amount)
		require.Equal(t, before[i].AccountID, after[i].AccountID)
	}
}

func TestReconcileConvergesOnShrink(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	// run 1: surplus, three legs
	require.False(t, f.eng.Reconcile(f.ctx, expense("50.00", "10.00")).Failed())

	// run 2: the group edit recalculated the shares to equal
	line := f.eng.Reconcile(f.ctx, expense("10.00", "10.00"))
	require.False(t, line.Failed(), line.Detail)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 3) // nothing deleted

	require.Equal(t, int64(-1000), legs[0].Amount)
	require.Equal(t, int64(0), legs[1].Amount) // zeroed, not stale
	require.Equal(t, int64(0), legs[2].Amount)
}

func TestReconcilePartialPayment(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	line := f.eng.Reconcile(f.ctx, expense("1.00", "25.00"))
	require.False(t, line.Failed(), line.Detail)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	require.Equal(t, f.accounts.Payment, legs[0].AccountID)
	require.Equal(t, int64(-100), legs[0].Amount)
	require.Equal(t, f.accounts.Holding, legs[1].AccountID)
	require.Equal(t, int64(2400), legs[1].Amount)
}

func TestReconcileZeroLegNeverCreated(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	// paid nothing: the user-side leg computes to zero and is not persisted
	line := f.eng.Reconcile(f.ctx, expense("0", "25.00"))
	require.False(t, line.Failed(), line.Detail)
	require.Equal(t, 1, line.LegsWritten)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	require.Equal(t, f.accounts.Holding, legs[0].AccountID)
	require.Equal(t, int64(2500), legs[0].Amount)
}

func TestReconcilePaymentTransferDirection(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	e := expense("0", "0")
	e.IsPayment = true
	e.IsCash = true
	e.Total = decimal.RequireFromString("40.00")

	line := f.eng.Reconcile(f.ctx, e)
	require.False(t, line.Failed(), line.Detail)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	// outgoing from the holding account, incoming on the cash account
	require.Equal(t, f.accounts.Holding, legs[0].AccountID)
	require.Equal(t, int64(-4000), legs[0].Amount)
	require.Equal(t, f.accounts.Cash, legs[1].AccountID)
	require.Equal(t, int64(4000), legs[1].Amount)
}

func TestReconcileZeroedPairFollowsNewDirection(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	// run 1: surplus, transfer paid-from -> holding
	require.False(t, f.eng.Reconcile(f.ctx, expense("50.00", "10.00")).Failed())
	// run 2: equal shares, the pair converges to zero
	require.False(t, f.eng.Reconcile(f.ctx, expense("10.00", "10.00")).Failed())

	// run 3: the expense turns into a settle-up, holding -> paid-from.
	// The zeroed legs have no sign left; account identity decides which
	// slot each one fills.
	e := expense("0", "0")
	e.IsPayment = true
	e.Total = decimal.RequireFromString("40.00")
	line := f.eng.Reconcile(f.ctx, e)
	require.False(t, line.Failed(), line.Detail)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 3)

	byAccount := map[int64]int64{}
	for _, l := range legs {
		if l.IsTransfer() {
			byAccount[l.AccountID] = l.Amount
		}
	}
	require.Equal(t, int64(-4000), byAccount[f.accounts.Holding])
	require.Equal(t, int64(4000), byAccount[f.accounts.Payment])
}

func TestReconcileAnomalyWritesNothing(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	line := f.eng.Reconcile(f.ctx, expense("0", "0"))
	require.True(t, line.Failed())
	require.Contains(t, line.Detail, "anomalous share")
	require.Equal(t, 0, line.LegsWritten)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Empty(t, legs)
}

func TestReconcileIgnoredWritesNothing(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	e := expense("50.00", "10.00")
	e.Ignored = true
	line := f.eng.Reconcile(f.ctx, e)
	require.False(t, line.Failed())
	require.Equal(t, "ignored", line.Case)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Empty(t, legs)
}

func TestReconcileBrokenTransferPair(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	// only one half of a transfer exists for this external id
	ext := "42"
	_, err := f.legs.Insert(f.ctx, repository.Leg{
		ExternalID: &ext,
		AccountID:  f.accounts.Holding,
		Amount:     -4000,
		Memo:       "settle up",
		GeneralCat: repository.GeneralCatTransfer,
		Posted:     time.Now(),
	})
	require.NoError(t, err)

	e := expense("0", "0")
	e.IsPayment = true
	e.Total = decimal.RequireFromString("40.00")

	line := f.eng.Reconcile(f.ctx, e)
	require.True(t, line.Failed())
	require.Contains(t, line.Detail, "broken transfer pair")

	// the orphan leg was not touched
	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	require.Equal(t, int64(-4000), legs[0].Amount)
}

func TestReconcilePartialFailureIsolation(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	// the expense leg commits, the outgoing transfer insert fails, and the
	// incoming insert is skipped so no half-pair appears
	f.eng.Legs = &faultStore{LegStore: f.eng.Legs, allow: 1}

	line := f.eng.Reconcile(f.ctx, expense("50.00", "10.00"))
	require.True(t, line.Failed())
	require.Contains(t, line.Detail, "insert outgoing transfer leg")
	require.Equal(t, 1, line.LegsWritten)

	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Len(t, legs, 1)
	require.Equal(t, int64(-1000), legs[0].Amount)
}

func TestReconcileBucketNeverReverted(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	require.False(t, f.eng.Reconcile(f.ctx, expense("10.00", "10.00")).Failed())
	legs, err := f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.NotNil(t, legs[0].BucketID)
	want := *legs[0].BucketID

	// later run with a category the config does not map: the bucket stays
	e := expense("12.00", "12.00")
	e.CategoryKey = "99"
	line := f.eng.Reconcile(f.ctx, e)
	require.False(t, line.Failed(), line.Detail)
	require.Empty(t, line.Bucket)

	legs, err = f.legs.FindByExternalID(f.ctx, "42")
	require.NoError(t, err)
	require.Equal(t, int64(-1200), legs[0].Amount)
	require.NotNil(t, legs[0].BucketID)
	require.Equal(t, want, *legs[0].BucketID)
}

func TestRunAbortsOnEmptyWindow(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	f.eng.Source = &fakeSource{}
	_, err := f.eng.Run(f.ctx, time.Now())
	require.ErrorIs(t, err, ErrNoExpenses)
}

func TestRunAbortsOnFetchError(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	f.eng.Source = &fakeSource{err: errors.New("api down")}
	_, err := f.eng.Run(f.ctx, time.Now())
	require.ErrorContains(t, err, "fetch expenses")
}

func TestRunOneLinePerExpense(t *testing.T) {
	t.Parallel()
	f := setupEngineTest(t)

	good := expense("10.00", "10.00")
	bad := expense("0", "0")
	bad.ExternalID = "43"
	bad.Description = "broken"

	f.eng.Source = &fakeSource{expenses: []Expense{good, bad}}
	rep, err := f.eng.Run(f.ctx, time.Now())
	require.NoError(t, err)

	lines := rep.Lines()
	require.Len(t, lines, 2)
	require.Equal(t, "groceries", lines[0].Description)
	require.False(t, lines[0].Failed())
	require.Equal(t, "broken", lines[1].Description)
	require.True(t, lines[1].Failed())

	s := rep.Summary()
	require.Equal(t, 2, s.Processed)
	require.Equal(t, 1, s.LegsWritten)
	require.Equal(t, 1, s.Failures)
}
