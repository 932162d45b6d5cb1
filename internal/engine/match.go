package engine

import "github.com/acanadell/splitsync/internal/ledger/repository"

// legSet is the partition of an external id's existing legs into the four
// roles the engine upserts against. Anything beyond one leg per role lands in
// extras and is left untouched.
type legSet struct {
	userExpense    *repository.Leg
	holdingExpense *repository.Leg
	transferOut    *repository.Leg
	transferIn     *repository.Leg
	extras         []repository.Leg
}

// hasBrokenTransferPair reports a transfer with exactly one side present.
func (s legSet) hasBrokenTransferPair() bool {
	return (s.transferOut == nil) != (s.transferIn == nil)
}

// partitionLegs assigns each existing leg to its role. Expense legs split by
// account side: the holding account's leg is matched separately from the
// user's paid-from leg, since the partial-payment case legitimately writes
// both under one external id. Transfer legs split by sign of amount; a
// converged (zero) transfer leg has no sign left, so it falls back to account
// identity against expectedOut, the account the outgoing leg would be on this
// run, and finally to fill order.
func partitionLegs(legs []repository.Leg, holdingAccountID, expectedOut int64) legSet {
	var s legSet
	for i := range legs {
		l := &legs[i]
		if l.IsTransfer() {
			switch {
			case l.Amount < 0 && s.transferOut == nil:
				s.transferOut = l
			case l.Amount > 0 && s.transferIn == nil:
				s.transferIn = l
			case l.Amount == 0 && s.transferOut == nil && (expectedOut == 0 || l.AccountID == expectedOut || s.transferIn != nil):
				s.transferOut = l
			case l.Amount == 0 && s.transferIn == nil:
				s.transferIn = l
			default:
				s.extras = append(s.extras, *l)
			}
			continue
		}
		switch {
		case l.AccountID == holdingAccountID && s.holdingExpense == nil:
			s.holdingExpense = l
		case l.AccountID != holdingAccountID && s.userExpense == nil:
			s.userExpense = l
		default:
			s.extras = append(s.extras, *l)
		}
	}
	return s
}
