package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// Mirror keeps a shadow transfer on the linked deposit account synchronized
// with charges on a check-card account. The mirror carries the card row's
// date, time, memo and payee, moves money out of the deposit, and the two
// rows point at each other.
type Mirror struct {
	ledger Ledger
}

// Sync reconciles the mirror of one check-card transaction. With remove set,
// or when the card has no linked deposit, or when the signed amount is
// non-negative (a refund or reversal), any existing mirror is deleted and
// its balance effect reverted. Otherwise the mirror is created or updated in
// place.
func (m *Mirror) Sync(ctx context.Context, uow store.UnitOfWork, txn *domain.Transaction, remove bool) error {
	acc, err := uow.Accounts().Get(ctx, txn.AccountID)
	if err != nil {
		return fmt.Errorf("load card account: %w", err)
	}

	mirror, err := m.find(ctx, uow, txn)
	if err != nil {
		return err
	}

	if remove || acc.LinkedAccountID == nil || txn.Amount >= 0 || acc.Kind != domain.AccountCheckCard {
		if mirror != nil {
			return m.drop(ctx, uow, txn, mirror)
		}
		return nil
	}

	depositID := *acc.LinkedAccountID
	if mirror == nil {
		mirror = &domain.Transaction{
			OwnerID:             txn.OwnerID,
			Date:                txn.Date,
			TimeOfDay:           txn.TimeOfDay,
			Kind:                domain.TxnTransfer,
			AccountID:           depositID,
			CounterAccountID:    &txn.AccountID,
			Amount:              txn.Amount,
			Currency:            txn.Currency,
			Memo:                txn.Memo,
			Payee:               txn.Payee,
			Status:              domain.StatusCleared,
			LinkedTransactionID: &txn.ID,
		}
		if err := uow.Transactions().Insert(ctx, mirror); err != nil {
			return fmt.Errorf("insert mirror: %w", err)
		}
		if err := m.ledger.ApplySignedTransfer(ctx, uow, mirror.AccountID, mirror.CounterAccountID, mirror.Amount); err != nil {
			return err
		}
		txn.LinkedTransactionID = &mirror.ID
		if err := uow.Transactions().Update(ctx, txn); err != nil {
			return fmt.Errorf("link card row to mirror: %w", err)
		}
		return nil
	}

	// Update in place: undo the old effect, rewrite the row, apply the new
	// one. The linked deposit may have changed since the mirror was made.
	if err := m.ledger.RevertSignedTransfer(ctx, uow, mirror.AccountID, mirror.CounterAccountID, mirror.Amount); err != nil {
		return err
	}
	mirror.Date = txn.Date
	mirror.TimeOfDay = txn.TimeOfDay
	mirror.AccountID = depositID
	mirror.CounterAccountID = &txn.AccountID
	mirror.Amount = txn.Amount
	mirror.Currency = txn.Currency
	mirror.Memo = txn.Memo
	mirror.Payee = txn.Payee
	if err := uow.Transactions().Update(ctx, mirror); err != nil {
		return fmt.Errorf("update mirror: %w", err)
	}
	return m.ledger.ApplySignedTransfer(ctx, uow, mirror.AccountID, mirror.CounterAccountID, mirror.Amount)
}

// find locates the mirror through the linked pointer in either direction.
func (m *Mirror) find(ctx context.Context, uow store.UnitOfWork, txn *domain.Transaction) (*domain.Transaction, error) {
	if txn.LinkedTransactionID != nil {
		mirror, err := uow.Transactions().Get(ctx, *txn.LinkedTransactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			return nil, fmt.Errorf("load mirror: %w", err)
		}
		return mirror, nil
	}
	mirror, err := uow.Transactions().FindLinkedTo(ctx, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("find mirror: %w", err)
	}
	return mirror, nil
}

func (m *Mirror) drop(ctx context.Context, uow store.UnitOfWork, txn, mirror *domain.Transaction) error {
	if !mirror.EffectivelyNeutral() {
		if err := m.ledger.RevertSignedTransfer(ctx, uow, mirror.AccountID, mirror.CounterAccountID, mirror.Amount); err != nil {
			return err
		}
	}
	if err := uow.Transactions().Delete(ctx, mirror.ID); err != nil {
		return fmt.Errorf("delete mirror: %w", err)
	}
	if txn.LinkedTransactionID != nil {
		txn.LinkedTransactionID = nil
		if err := uow.Transactions().Update(ctx, txn); err != nil {
			return fmt.Errorf("unlink card row: %w", err)
		}
	}
	return nil
}
