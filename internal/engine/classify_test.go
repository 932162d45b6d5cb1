package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func snapshot(paid, owed string) Expense {
	return Expense{
		ExternalID:  "42",
		Description: "groceries",
		OccurredAt:  time.Date(2026, 2, 10, 18, 30, 0, 0, time.UTC),
		Total:       decimal.RequireFromString("60.00"),
		PaidShare:   decimal.RequireFromString(paid),
		OwedShare:   decimal.RequireFromString(owed),
	}
}

func TestClassifyEqualShares(t *testing.T) {
	t.Parallel()

	out := Classify(snapshot("10.00", "10.00"))
	require.Equal(t, CaseIPaidSomething, out.Case)
	require.NotNil(t, out.UserLeg)
	require.Equal(t, RolePayment, out.UserLeg.Account)
	require.Equal(t, int64(-1000), out.UserLeg.Amount)
	require.Nil(t, out.HoldingLeg)
	require.Nil(t, out.Transfer)
}

func TestClassifyPaidMoreThanOwed(t *testing.T) {
	t.Parallel()

	out := Classify(snapshot("50.00", "10.00"))
	require.Equal(t, CaseIPaidSomething, out.Case)
	require.Equal(t, int64(-1000), out.UserLeg.Amount)
	require.Nil(t, out.HoldingLeg)
	require.NotNil(t, out.Transfer)
	require.Equal(t, int64(4000), out.Transfer.Amount)
	require.Equal(t, RolePayment, out.Transfer.From)
	require.Equal(t, RoleHolding, out.Transfer.To)
}

func TestClassifyPartialPayment(t *testing.T) {
	t.Parallel()

	out := Classify(snapshot("1.00", "25.00"))
	require.Equal(t, CaseIOweSomething, out.Case)
	require.Equal(t, int64(-100), out.UserLeg.Amount)
	require.Equal(t, RolePayment, out.UserLeg.Account)
	require.NotNil(t, out.HoldingLeg)
	require.Equal(t, int64(2400), out.HoldingLeg.Amount)
	require.Equal(t, RoleHolding, out.HoldingLeg.Account)
	require.Nil(t, out.Transfer)
}

func TestClassifyPartialPaymentZeroPaid(t *testing.T) {
	t.Parallel()

	// the user leg still appears, at zero, so an earlier nonzero leg can
	// be converged; the engine skips creating it when none exists
	out := Classify(snapshot("0", "5.00"))
	require.Equal(t, CaseIOweSomething, out.Case)
	require.Equal(t, int64(0), out.UserLeg.Amount)
	require.Equal(t, int64(500), out.HoldingLeg.Amount)
}

func TestClassifyPaymentReceived(t *testing.T) {
	t.Parallel()

	e := snapshot("0", "40.00")
	e.IsPayment = true
	e.Total = decimal.RequireFromString("40.00")

	out := Classify(e)
	require.Equal(t, CasePaymentReceived, out.Case)
	require.Nil(t, out.UserLeg)
	require.Nil(t, out.HoldingLeg)
	require.NotNil(t, out.Transfer)
	require.Equal(t, int64(4000), out.Transfer.Amount)
	require.Equal(t, RoleHolding, out.Transfer.From)
	require.Equal(t, RolePayment, out.Transfer.To)
}

func TestClassifyCashGoesToCashAccount(t *testing.T) {
	t.Parallel()

	e := snapshot("50.00", "10.00")
	e.IsCash = true

	out := Classify(e)
	require.Equal(t, RoleCash, out.UserLeg.Account)
	require.Equal(t, RoleCash, out.Transfer.From)

	p := snapshot("0", "40.00")
	p.IsPayment = true
	p.IsCash = true
	require.Equal(t, RoleCash, Classify(p).Transfer.To)
}

func TestClassifyAnomaly(t *testing.T) {
	t.Parallel()

	out := Classify(snapshot("0", "0"))
	require.Equal(t, CaseAnomaly, out.Case)
	require.Nil(t, out.UserLeg)
	require.Nil(t, out.HoldingLeg)
	require.Nil(t, out.Transfer)
}
