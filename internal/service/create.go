package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// TxWriter is the single path by which new transaction rows are persisted.
// It resolves account references, derives neutrality, branches per kind, and
// hands balance effects to the Ledger.
type TxWriter struct {
	ledger  Ledger
	mirror  *Mirror
	billing *Billing
}

func NewTxWriter(billing *Billing) *TxWriter {
	return &TxWriter{mirror: &Mirror{}, billing: billing}
}

// Create persists one candidate inside the caller's unit of work and returns
// the primary row. A candidate whose external key already exists returns the
// existing row unchanged. Transfers with a resolvable counter become two
// legs sharing a fresh group id unless autoMatched, in which case the
// combined candidate is stored as a single two-sided row.
func (w *TxWriter) Create(ctx context.Context, uow store.UnitOfWork, c *domain.Candidate, autoMatched bool) (*domain.Transaction, error) {
	if c.ExternalKey != "" {
		existing, err := uow.Transactions().FindByExternalKey(ctx, c.OwnerID, c.ExternalKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	acc, err := w.resolveAccount(ctx, uow, c.OwnerID, c.AccountID, c.AccountName, c.Currency)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("candidate has no account reference: %w", ErrValidation)
	}
	ctr, err := w.resolveAccount(ctx, uow, c.OwnerID, c.CounterAccountID, c.CounterAccountName, c.Currency)
	if err != nil {
		return nil, err
	}

	neutral := c.BalanceNeutral || c.ExcludeFromReports

	row := &domain.Transaction{
		OwnerID:            c.OwnerID,
		Date:               c.Date,
		TimeOfDay:          c.TimeOfDay,
		Kind:               c.Kind,
		AccountID:          acc.ID,
		CardID:             c.CardID,
		CategoryID:         c.CategoryID,
		Amount:             c.Amount,
		Currency:           domain.NormalizeCurrency(c.Currency),
		Memo:               c.Memo,
		Payee:              c.Payee,
		BalanceNeutral:     c.BalanceNeutral,
		ExcludeFromReports: c.ExcludeFromReports,
		Status:             domain.StatusCleared,
		BillingCycleID:     c.BillingCycleID,
	}
	if ctr != nil {
		row.CounterAccountID = &ctr.ID
	}
	if c.ExternalKey != "" {
		key := c.ExternalKey
		row.ExternalKey = &key
	}
	if c.ImportSource != "" {
		src := c.ImportSource
		row.ImportSource = &src
	}

	switch {
	case acc.Kind == domain.AccountCreditCard && c.Kind == domain.TxnExpense:
		return w.createCardCharge(ctx, uow, acc, row)
	case c.Kind == domain.TxnSettlement:
		return w.createSettlement(ctx, uow, acc, row, neutral)
	case c.Kind == domain.TxnTransfer:
		return w.createTransfer(ctx, uow, acc, ctr, row, neutral, autoMatched)
	}

	if err := uow.Transactions().Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if !neutral {
		if err := w.applyEffect(ctx, uow, row); err != nil {
			return nil, err
		}
	}
	if acc.Kind == domain.AccountCheckCard {
		if err := w.mirror.Sync(ctx, uow, row, false); err != nil {
			return nil, err
		}
	}
	return row, nil
}

// createCardCharge attaches a credit-card charge to its statement. The row
// stays pending and balance-neutral; its economic effect arrives with the
// settlement, and the card's stored balance is pinned to zero anyway.
func (w *TxWriter) createCardCharge(ctx context.Context, uow store.UnitOfWork, card *domain.Account, row *domain.Transaction) (*domain.Transaction, error) {
	if card.LinkedAccountID != nil {
		deposit, err := uow.Accounts().Get(ctx, *card.LinkedAccountID)
		if err != nil {
			return nil, fmt.Errorf("linked account: %w", err)
		}
		if domain.NormalizeCurrency(deposit.Currency) != domain.NormalizeCurrency(card.Currency) {
			return nil, fmt.Errorf("card %s vs linked %s: %w", card.Currency, deposit.Currency, ErrCurrencyMismatch)
		}
	}
	stmt, err := w.billing.GetOrCreateStatement(ctx, uow, card, row.Date)
	if err != nil {
		return nil, err
	}
	row.CardCharge = true
	row.BalanceNeutral = true
	row.Status = domain.StatusPendingPayment
	row.BillingCycleID = &stmt.ID
	if err := uow.Transactions().Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("insert card charge: %w", err)
	}
	if err := w.billing.Recalculate(ctx, uow, stmt); err != nil {
		return nil, err
	}
	return row, nil
}

func (w *TxWriter) createSettlement(ctx context.Context, uow store.UnitOfWork, acc *domain.Account, row *domain.Transaction, neutral bool) (*domain.Transaction, error) {
	if acc.Kind.IsCard() {
		return nil, fmt.Errorf("settlement must target a non-card account: %w", ErrValidation)
	}
	if row.BillingCycleID != nil {
		stmt, err := uow.Statements().Get(ctx, *row.BillingCycleID)
		if err != nil {
			return nil, fmt.Errorf("billing cycle %d: %w", *row.BillingCycleID, err)
		}
		if row.CardID != nil && stmt.AccountID != *row.CardID {
			return nil, fmt.Errorf("cycle belongs to account %d, not card %d: %w", stmt.AccountID, *row.CardID, ErrValidation)
		}
	}
	if err := uow.Transactions().Insert(ctx, row); err != nil {
		return nil, fmt.Errorf("insert settlement: %w", err)
	}
	if !neutral {
		if err := w.applyEffect(ctx, uow, row); err != nil {
			return nil, err
		}
	}
	return row, nil
}

func (w *TxWriter) createTransfer(ctx context.Context, uow store.UnitOfWork, acc, ctr *domain.Account, row *domain.Transaction, neutral, autoMatched bool) (*domain.Transaction, error) {
	// A transfer with no resolvable counter is recorded as a neutral
	// single row: there is no second account to balance against.
	if ctr == nil {
		row.BalanceNeutral = true
		if err := uow.Transactions().Insert(ctx, row); err != nil {
			return nil, fmt.Errorf("insert transfer: %w", err)
		}
		return row, nil
	}
	if ctr.ID == acc.ID {
		return nil, fmt.Errorf("transfer counter equals account %d: %w", acc.ID, ErrValidation)
	}

	if autoMatched {
		row.AutoTransferMatch = true
		if err := uow.Transactions().Insert(ctx, row); err != nil {
			return nil, fmt.Errorf("insert transfer: %w", err)
		}
		if !neutral {
			if err := w.applyEffect(ctx, uow, row); err != nil {
				return nil, err
			}
		}
		return row, nil
	}

	groupID := uuid.NewString()
	if err := uow.TransferGroups().Insert(ctx, groupID); err != nil {
		return nil, fmt.Errorf("insert transfer group: %w", err)
	}
	magnitude := absAmount(row.Amount)

	out := *row
	out.GroupID = &groupID
	out.Amount = -magnitude
	if err := uow.Transactions().Insert(ctx, &out); err != nil {
		return nil, fmt.Errorf("insert outgoing leg: %w", err)
	}

	// The incoming leg never carries the external key; both legs having it
	// would break the uniqueness the idempotency filter relies on.
	in := *row
	in.GroupID = &groupID
	in.Amount = magnitude
	in.AccountID = ctr.ID
	in.CounterAccountID = &acc.ID
	in.ExternalKey = nil
	if err := uow.Transactions().Insert(ctx, &in); err != nil {
		return nil, fmt.Errorf("insert incoming leg: %w", err)
	}

	if !neutral {
		if err := w.ledger.ApplySignedDelta(ctx, uow, acc.ID, out.Amount); err != nil {
			return nil, err
		}
		if err := w.ledger.ApplySignedDelta(ctx, uow, ctr.ID, in.Amount); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// DeleteCascade removes one row, its mirror, and its transfer siblings,
// reverting every balance effect along the way. Card charges trigger a
// statement recalculation afterwards.
func (w *TxWriter) DeleteCascade(ctx context.Context, uow store.UnitOfWork, t *domain.Transaction) error {
	if err := w.mirror.Sync(ctx, uow, t, true); err != nil {
		return err
	}

	if t.GroupID != nil {
		siblings, err := uow.Transactions().ListByGroup(ctx, *t.GroupID)
		if err != nil {
			return fmt.Errorf("list group %s: %w", *t.GroupID, err)
		}
		for _, s := range siblings {
			if !s.EffectivelyNeutral() {
				if err := w.ledger.ApplySignedDelta(ctx, uow, s.AccountID, -s.Amount); err != nil {
					return err
				}
			}
			if err := uow.Transactions().Delete(ctx, s.ID); err != nil {
				return fmt.Errorf("delete leg %d: %w", s.ID, err)
			}
		}
		return uow.TransferGroups().Delete(ctx, *t.GroupID)
	}

	if !t.EffectivelyNeutral() {
		if err := w.revertEffect(ctx, uow, t); err != nil {
			return err
		}
	}
	if err := uow.Transactions().Delete(ctx, t.ID); err != nil {
		return fmt.Errorf("delete transaction %d: %w", t.ID, err)
	}

	if t.CardCharge && t.BillingCycleID != nil {
		stmt, err := uow.Statements().Get(ctx, *t.BillingCycleID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("billing cycle %d: %w", *t.BillingCycleID, err)
		}
		return w.billing.Recalculate(ctx, uow, stmt)
	}
	return nil
}

// Update rewrites one persisted row in place: the old balance effect is
// reverted, the editable fields replaced, the new effect applied, and the
// check-card mirror re-synced. Legs of a manual transfer group cannot be
// edited this way; delete and recreate the transfer instead. Kind and
// accounts are fixed at creation.
func (w *TxWriter) Update(ctx context.Context, uow store.UnitOfWork, row *domain.Transaction, c *domain.Candidate) (*domain.Transaction, error) {
	if row.GroupID != nil {
		return nil, fmt.Errorf("transaction %d is a manual transfer leg: %w", row.ID, ErrValidation)
	}
	if c.Kind != "" && c.Kind != row.Kind {
		return nil, fmt.Errorf("kind cannot change on update: %w", ErrValidation)
	}
	if c.Currency != "" && domain.NormalizeCurrency(c.Currency) != row.Currency {
		return nil, fmt.Errorf("row is %s, update is %s: %w", row.Currency, c.Currency, ErrCurrencyMismatch)
	}

	if !row.EffectivelyNeutral() {
		if err := w.revertEffect(ctx, uow, row); err != nil {
			return nil, err
		}
	}

	row.Date = c.Date
	row.TimeOfDay = c.TimeOfDay
	row.Amount = c.Amount
	row.Memo = c.Memo
	row.Payee = c.Payee
	row.CategoryID = c.CategoryID
	row.BalanceNeutral = c.BalanceNeutral
	row.ExcludeFromReports = c.ExcludeFromReports
	if row.CardCharge {
		row.BalanceNeutral = true
	}
	if err := uow.Transactions().Update(ctx, row); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	if !row.EffectivelyNeutral() {
		if err := w.applyEffect(ctx, uow, row); err != nil {
			return nil, err
		}
	}

	if err := w.mirror.Sync(ctx, uow, row, false); err != nil {
		return nil, err
	}

	if row.CardCharge && row.BillingCycleID != nil {
		stmt, err := uow.Statements().Get(ctx, *row.BillingCycleID)
		if err != nil {
			return nil, fmt.Errorf("billing cycle %d: %w", *row.BillingCycleID, err)
		}
		return row, w.billing.Recalculate(ctx, uow, stmt)
	}
	return row, nil
}

// applyEffect and revertEffect route a row's balance movement through its
// directional flow view, keeping the kind-dependent branching in one place.
// Legs of a manual transfer group are one-sided and do not go through here.
func (w *TxWriter) applyEffect(ctx context.Context, uow store.UnitOfWork, t *domain.Transaction) error {
	flow := domain.FlowOf(t)
	return w.ledger.ApplyBalance(ctx, uow, flow.From(), flow.To(), absAmount(t.Amount))
}

func (w *TxWriter) revertEffect(ctx context.Context, uow store.UnitOfWork, t *domain.Transaction) error {
	flow := domain.FlowOf(t)
	return w.ledger.RevertSingleTransferEffect(ctx, uow, flow.From(), flow.To(), absAmount(t.Amount))
}

// resolveAccount turns an id-or-name reference into a persisted account,
// creating name-only references on first sight. Returns nil for an empty
// reference.
func (w *TxWriter) resolveAccount(ctx context.Context, uow store.UnitOfWork, ownerID int64, id *int64, name, currency string) (*domain.Account, error) {
	if id != nil {
		acc, err := uow.Accounts().Get(ctx, *id)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", *id, err)
		}
		return acc, nil
	}
	if name == "" {
		return nil, nil
	}
	acc, err := uow.Accounts().FindByName(ctx, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", name, err)
	}
	if acc != nil {
		return acc, nil
	}
	acc = &domain.Account{
		OwnerID:  ownerID,
		Name:     name,
		Kind:     domain.AccountOther,
		Currency: domain.NormalizeCurrency(currency),
	}
	if err := uow.Accounts().Insert(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}
	return acc, nil
}
