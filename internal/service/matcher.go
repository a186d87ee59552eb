package service

import (
	"context"
	"fmt"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// DefaultTimeTolerance is the maximum clock-time distance, in seconds, under
// which two legs can still be the same transfer.
const DefaultTimeTolerance = 60

// Matcher tests unpaired transfer-like candidates against rows persisted by
// earlier uploads, so one real transfer uploaded in two files is recorded
// once. Matched candidates are dropped; the existing row is left as-is.
type Matcher struct {
	AmountTolerance int64
	TimeTolerance   int
}

func NewMatcher() *Matcher {
	return &Matcher{
		AmountTolerance: DefaultAmountTolerance,
		TimeTolerance:   DefaultTimeTolerance,
	}
}

var matchKinds = []domain.TxnKind{domain.TxnTransfer, domain.TxnIncome, domain.TxnExpense}

// Matches reports whether an already-persisted row is the other leg of the
// candidate. A match needs opposite signs, amounts within tolerance, times
// within tolerance when both are present, and either a strong identity (one
// side's counter is the other's account) or, with no counter hints on either
// side, a weak one (the two accounts differ).
func (m *Matcher) Matches(ctx context.Context, uow store.UnitOfWork, c *domain.Candidate) (bool, error) {
	accID, err := resolveExistingAccountID(ctx, uow, c.OwnerID, c.AccountID, c.AccountName)
	if err != nil {
		return false, err
	}
	ctrID, err := resolveExistingAccountID(ctx, uow, c.OwnerID, c.CounterAccountID, c.CounterAccountName)
	if err != nil {
		return false, err
	}

	rows, err := uow.Transactions().ListForMatch(ctx, c.OwnerID, c.Date, c.Currency, matchKinds)
	if err != nil {
		return false, fmt.Errorf("list match rows: %w", err)
	}
	for _, t := range rows {
		if m.matchesRow(c, t, accID, ctrID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) matchesRow(c *domain.Candidate, t *domain.Transaction, accID, ctrID *int64) bool {
	if (c.Amount < 0) == (t.Amount < 0) || c.Amount == 0 || t.Amount == 0 {
		return false
	}
	diff := absAmount(c.Amount) - absAmount(t.Amount)
	if diff < 0 {
		diff = -diff
	}
	if diff > m.AmountTolerance {
		return false
	}
	if c.TimeOfDay != nil && t.TimeOfDay != nil {
		if date.SecondsApart(*c.TimeOfDay, *t.TimeOfDay) > m.TimeTolerance {
			return false
		}
	}

	// Strong identity: one side's declared counter is the other's account.
	if ctrID != nil && *ctrID == t.AccountID {
		return true
	}
	if t.CounterAccountID != nil && accID != nil && *t.CounterAccountID == *accID {
		return true
	}

	// Weak identity: no counter hints anywhere, accounts differ.
	candidateHasCounterHint := c.CounterAccountID != nil || c.CounterAccountName != ""
	if !candidateHasCounterHint && t.CounterAccountID == nil &&
		accID != nil && *accID != t.AccountID {
		return true
	}
	return false
}

// resolveExistingAccountID resolves an id-or-name account reference against
// storage without creating anything. Unknown names resolve to nil.
func resolveExistingAccountID(ctx context.Context, uow store.UnitOfWork, ownerID int64, id *int64, name string) (*int64, error) {
	if id != nil {
		return id, nil
	}
	if name == "" {
		return nil, nil
	}
	acc, err := uow.Accounts().FindByName(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("resolve account %q: %w", name, err)
	}
	if acc == nil {
		return nil, nil
	}
	return &acc.ID, nil
}
