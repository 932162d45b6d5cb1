// Package engine reconciles expense-service snapshots into ledger legs. Each
// snapshot is classified into a financial case, the case is turned into up to
// two target legs, and the targets are upserted against whatever legs already
// carry the snapshot's external id, so repeated imports converge instead of
// duplicating.
package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/acanadell/splitsync/internal/money"
)

// Expense is the normalized read-only snapshot of one shared expense.
type Expense struct {
	ExternalID  string
	Description string
	OccurredAt  time.Time
	Total       decimal.Decimal
	PaidShare   decimal.Decimal // what the user actually paid
	OwedShare   decimal.Decimal // what the user is responsible for
	IsPayment   bool            // pure reimbursement, not a purchase
	IsCash      bool            // paid from the cash account
	Ignored     bool            // flagged with the ignore keyword
	CategoryKey string          // opaque source category id
}

// Case is the classification outcome for one expense.
type Case string

const (
	CasePaymentReceived Case = "payment received"
	CaseIPaidSomething  Case = "i paid"
	CaseIOweSomething   Case = "i owe"
	CaseAnomaly         Case = "anomaly"
)

// AccountRole names one of the three ledger accounts the sync writes to.
type AccountRole string

const (
	RoleCash    AccountRole = "cash"
	RolePayment AccountRole = "payment"
	RoleHolding AccountRole = "holding"
)

// LegSpec is one target expense leg: an account and a signed minor-unit
// amount. A zero amount is meaningful — it converges an existing leg.
type LegSpec struct {
	Account AccountRole
	Amount  int64
}

// TransferSpec is a target transfer: Amount is the positive magnitude moved
// From -> To. The outgoing leg is -Amount on From, the incoming +Amount on To.
type TransferSpec struct {
	Amount int64
	From   AccountRole
	To     AccountRole
}

// Outcome carries exactly the legs its case needs; absent legs are nil.
type Outcome struct {
	Case       Case
	UserLeg    *LegSpec // expense leg on the paid-from account
	HoldingLeg *LegSpec // expense leg on the holding account
	Transfer   *TransferSpec
}

// Classify assigns a case and derives the target leg amounts.
//
// A payment models the whole total as a transfer from the holding account to
// the user side. Otherwise the shares decide: paying less than owed needs an
// expense leg on each side, paying exactly the owed share needs a single
// expense leg, and paying more than owed moves the surplus to the holding
// account as a transfer. Both shares at zero on an expense the user appears
// in is source-data inconsistency, reported rather than written.
func Classify(e Expense) Outcome {
	paidFrom := RolePayment
	if e.IsCash {
		paidFrom = RoleCash
	}

	switch {
	case e.IsPayment:
		return Outcome{
			Case:     CasePaymentReceived,
			Transfer: &TransferSpec{Amount: money.ToMinorUnits(e.Total), From: RoleHolding, To: paidFrom},
		}
	case e.PaidShare.IsZero() && e.OwedShare.IsZero():
		return Outcome{Case: CaseAnomaly}
	case e.PaidShare.LessThan(e.OwedShare):
		return Outcome{
			Case:       CaseIOweSomething,
			UserLeg:    &LegSpec{Account: paidFrom, Amount: money.ToMinorUnitsNeg(e.PaidShare)},
			HoldingLeg: &LegSpec{Account: RoleHolding, Amount: money.ToMinorUnits(e.OwedShare.Sub(e.PaidShare))},
		}
	case e.PaidShare.Equal(e.OwedShare):
		return Outcome{
			Case:    CaseIPaidSomething,
			UserLeg: &LegSpec{Account: paidFrom, Amount: money.ToMinorUnitsNeg(e.PaidShare)},
		}
	default: // paid more than owed
		return Outcome{
			Case:     CaseIPaidSomething,
			UserLeg:  &LegSpec{Account: paidFrom, Amount: money.ToMinorUnitsNeg(e.OwedShare)},
			Transfer: &TransferSpec{Amount: money.ToMinorUnits(e.PaidShare.Sub(e.OwedShare)), From: paidFrom, To: RoleHolding},
		}
	}
}
