package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/acanadell/splitsync/internal/ledger/repository"
	"github.com/acanadell/splitsync/internal/report"
)

var (
	// ErrNoExpenses aborts a run whose fetch window came back empty,
	// before any write happens.
	ErrNoExpenses = errors.New("no expenses in window")

	// ErrBrokenTransferPair means only one side of an expected transfer
	// exists for an external id. No write is attempted for the pair.
	ErrBrokenTransferPair = errors.New("broken transfer pair")

	// ErrAnomalousShare means the user appears in the expense but both
	// shares are zero, which the source should never produce.
	ErrAnomalousShare = errors.New("anomalous share: involved in the expense but paid and owed are both zero")
)

// ExpenseSource fetches normalized expense snapshots.
type ExpenseSource interface {
	FetchExpenses(ctx context.Context, since time.Time) ([]Expense, error)
}

// LegStore is the slice of the ledger the engine writes through. Every call
// commits on its own; the unit of atomicity is one leg write.
type LegStore interface {
	FindByExternalID(ctx context.Context, externalID string) ([]repository.Leg, error)
	Insert(ctx context.Context, l repository.Leg) (int64, error)
	Update(ctx context.Context, id, accountID, amount int64, memo string, posted time.Time) error
	Categorize(ctx context.Context, legID, bucketID, amount int64, memo string, posted time.Time) error
}

// BucketResolver maps bucket names to ids.
type BucketResolver interface {
	ResolveID(ctx context.Context, name string) (int64, bool, error)
}

// Accounts holds the three account ids, resolved once at startup so a
// misnamed account fails the run before any expense is touched.
type Accounts struct {
	Cash    int64
	Payment int64
	Holding int64
}

// ID maps an account role to its ledger id.
func (a Accounts) ID(role AccountRole) int64 {
	switch role {
	case RoleCash:
		return a.Cash
	case RolePayment:
		return a.Payment
	default:
		return a.Holding
	}
}

// Engine reconciles one run of expenses against the ledger.
type Engine struct {
	Legs            LegStore
	Buckets         BucketResolver
	Source          ExpenseSource
	Accounts        Accounts
	CategoryBuckets map[string]string // source category id -> bucket name
	Log             zerolog.Logger

	bucketCache map[string]*int64
}

func New(legs LegStore, buckets BucketResolver, source ExpenseSource, accounts Accounts, categoryBuckets map[string]string, log zerolog.Logger) *Engine {
	return &Engine{
		Legs:            legs,
		Buckets:         buckets,
		Source:          source,
		Accounts:        accounts,
		CategoryBuckets: categoryBuckets,
		Log:             log,
		bucketCache:     make(map[string]*int64),
	}
}

// Run fetches the window and reconciles every expense sequentially, one fully
// before the next. A fetch error or an empty window aborts before any write;
// per-expense failures only ever mark that expense's report line.
func (e *Engine) Run(ctx context.Context, since time.Time) (*report.Report, error) {
	expenses, err := e.Source.FetchExpenses(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, ErrNoExpenses
	}

	rep := report.New()
	for _, exp := range expenses {
		rep.Append(e.Reconcile(ctx, exp))
	}
	return rep, nil
}

// Reconcile upserts the legs for one expense and returns its report line.
func (e *Engine) Reconcile(ctx context.Context, exp Expense) report.Line {
	line := report.Line{
		Description: exp.Description,
		Date:        exp.OccurredAt,
		Total:       exp.Total,
		Paid:        exp.PaidShare,
		Owed:        exp.OwedShare,
	}

	if exp.Ignored {
		line.Case = "ignored"
		line.Detail = "ignore keyword set, nothing written"
		return line
	}

	out := Classify(exp)
	line.Case = string(out.Case)
	e.Log.Debug().
		Str("external_id", exp.ExternalID).
		Str("case", string(out.Case)).
		Msg("classified expense")

	if out.Case == CaseAnomaly {
		line.AddFailure(ErrAnomalousShare)
		return line
	}

	existing, err := e.Legs.FindByExternalID(ctx, exp.ExternalID)
	if err != nil {
		line.AddFailure(fmt.Errorf("find legs: %w", err))
		return line
	}

	var bucketID *int64
	if name, ok := e.CategoryBuckets[exp.CategoryKey]; ok {
		bucketID = e.resolveBucket(ctx, name)
		if bucketID != nil {
			line.Bucket = name
		}
	}

	var expectedOut int64
	if out.Transfer != nil {
		expectedOut = e.Accounts.ID(out.Transfer.From)
	}
	set := partitionLegs(existing, e.Accounts.Holding, expectedOut)
	if len(set.extras) > 0 {
		e.Log.Warn().
			Str("external_id", exp.ExternalID).
			Int("extras", len(set.extras)).
			Msg("more legs than expected for external id, extras left untouched")
	}

	e.upsertExpenseLeg(ctx, &line, exp, out.UserLeg, set.userExpense, bucketID)
	e.upsertExpenseLeg(ctx, &line, exp, out.HoldingLeg, set.holdingExpense, bucketID)
	e.upsertTransfer(ctx, &line, exp, out.Transfer, set)
	return line
}

// upsertExpenseLeg converges one expense-role slot: create when absent and
// nonzero, update in place otherwise. A slot with an existing leg but no
// target this run is zeroed, never deleted — the zero amount is the audit
// trail telling the user the source shrank.
func (e *Engine) upsertExpenseLeg(ctx context.Context, line *report.Line, exp Expense, target *LegSpec, existing *repository.Leg, bucketID *int64) {
	switch {
	case target == nil && existing == nil:
		return
	case target == nil:
		if err := e.Legs.Update(ctx, existing.ID, existing.AccountID, 0, exp.Description, exp.OccurredAt); err != nil {
			line.AddFailure(fmt.Errorf("zero stale expense leg: %w", err))
			return
		}
		line.LegsWritten++
	case existing == nil:
		if target.Amount == 0 {
			// a zero leg that never existed is not worth persisting
			return
		}
		id, err := e.Legs.Insert(ctx, e.newLeg(exp, target.Account, target.Amount, repository.GeneralCatExpense))
		if err != nil {
			line.AddFailure(fmt.Errorf("insert expense leg: %w", err))
			return
		}
		line.LegsWritten++
		e.categorize(ctx, line, exp, id, target.Amount, bucketID)
	default:
		if err := e.Legs.Update(ctx, existing.ID, e.Accounts.ID(target.Account), target.Amount, exp.Description, exp.OccurredAt); err != nil {
			line.AddFailure(fmt.Errorf("update expense leg: %w", err))
			return
		}
		line.LegsWritten++
		e.categorize(ctx, line, exp, existing.ID, target.Amount, bucketID)
	}
}

// upsertTransfer converges the transfer pair. Writes go outgoing before
// incoming so a crash mid-pair always leaves the outgoing leg as the newer
// write.
func (e *Engine) upsertTransfer(ctx context.Context, line *report.Line, exp Expense, target *TransferSpec, set legSet) {
	if set.hasBrokenTransferPair() {
		line.AddFailure(fmt.Errorf("%w for external id %s", ErrBrokenTransferPair, exp.ExternalID))
		return
	}

	switch {
	case target == nil && set.transferOut == nil:
		return
	case target == nil:
		for _, l := range []*repository.Leg{set.transferOut, set.transferIn} {
			if err := e.Legs.Update(ctx, l.ID, l.AccountID, 0, exp.Description, exp.OccurredAt); err != nil {
				line.AddFailure(fmt.Errorf("zero stale transfer leg: %w", err))
				continue
			}
			line.LegsWritten++
		}
	case set.transferOut == nil:
		if target.Amount == 0 {
			return
		}
		// fresh pair; skip the incoming if the outgoing fails so a
		// half-pair is never created
		if _, err := e.Legs.Insert(ctx, e.newLeg(exp, target.From, -target.Amount, repository.GeneralCatTransfer)); err != nil {
			line.AddFailure(fmt.Errorf("insert outgoing transfer leg: %w", err))
			return
		}
		line.LegsWritten++
		if _, err := e.Legs.Insert(ctx, e.newLeg(exp, target.To, target.Amount, repository.GeneralCatTransfer)); err != nil {
			line.AddFailure(fmt.Errorf("insert incoming transfer leg: %w", err))
			return
		}
		line.LegsWritten++
	default:
		if err := e.Legs.Update(ctx, set.transferOut.ID, e.Accounts.ID(target.From), -target.Amount, exp.Description, exp.OccurredAt); err != nil {
			line.AddFailure(fmt.Errorf("update outgoing transfer leg: %w", err))
		} else {
			line.LegsWritten++
		}
		if err := e.Legs.Update(ctx, set.transferIn.ID, e.Accounts.ID(target.To), target.Amount, exp.Description, exp.OccurredAt); err != nil {
			line.AddFailure(fmt.Errorf("update incoming transfer leg: %w", err))
		} else {
			line.LegsWritten++
		}
	}
}

func (e *Engine) newLeg(exp Expense, role AccountRole, amount int64, generalCat string) repository.Leg {
	ext := exp.ExternalID
	return repository.Leg{
		ExternalID: &ext,
		AccountID:  e.Accounts.ID(role),
		Amount:     amount,
		Memo:       exp.Description,
		GeneralCat: generalCat,
		Posted:     exp.OccurredAt,
	}
}

func (e *Engine) categorize(ctx context.Context, line *report.Line, exp Expense, legID, amount int64, bucketID *int64) {
	if bucketID == nil {
		return
	}
	if err := e.Legs.Categorize(ctx, legID, *bucketID, amount, exp.Description, exp.OccurredAt); err != nil {
		line.AddFailure(fmt.Errorf("categorize leg: %w", err))
	}
}

// resolveBucket caches lookups for the lifetime of the engine instance; a
// miss (bucket absent from the file) is cached too and leaves legs
// uncategorized.
func (e *Engine) resolveBucket(ctx context.Context, name string) *int64 {
	if e.bucketCache == nil {
		e.bucketCache = make(map[string]*int64)
	}
	if id, ok := e.bucketCache[name]; ok {
		return id
	}
	id, ok, err := e.Buckets.ResolveID(ctx, name)
	if err != nil {
		e.Log.Warn().Err(err).Str("bucket", name).Msg("bucket lookup failed")
		return nil
	}
	var out *int64
	if ok {
		out = &id
	}
	e.bucketCache[name] = out
	return out
}
