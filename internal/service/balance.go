package service

import (
	"context"
	"fmt"

	"github.com/dayoonc/finbook/internal/store"
)

// Ledger is the sole mutator of stored account balances. Every method writes
// only the account rows it touches, inside the caller's unit of work.
//
// Card-kind accounts are pinned to zero: their economic effect lives on the
// linked deposit account, so instead of accumulating, a write to a card
// resets its balance.
type Ledger struct{}

func (Ledger) adjust(ctx context.Context, uow store.UnitOfWork, accountID, delta int64) error {
	acc, err := uow.Accounts().Get(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %d: %w", accountID, err)
	}
	if acc.Kind.IsCard() {
		acc.Balance = 0
	} else {
		acc.Balance += delta
	}
	if err := uow.Accounts().Update(ctx, acc); err != nil {
		return fmt.Errorf("update account %d: %w", accountID, err)
	}
	return nil
}

// ApplyBalance moves magnitude out of from and into to, for whichever sides
// are present. Zero magnitude and from == to are no-ops.
func (l Ledger) ApplyBalance(ctx context.Context, uow store.UnitOfWork, from, to *int64, magnitude int64) error {
	if magnitude == 0 {
		return nil
	}
	if from != nil && to != nil && *from == *to {
		return nil
	}
	if from != nil {
		if err := l.adjust(ctx, uow, *from, -magnitude); err != nil {
			return err
		}
	}
	if to != nil {
		if err := l.adjust(ctx, uow, *to, magnitude); err != nil {
			return err
		}
	}
	return nil
}

// RevertSingleTransferEffect is the exact inverse of ApplyBalance.
func (l Ledger) RevertSingleTransferEffect(ctx context.Context, uow store.UnitOfWork, from, to *int64, magnitude int64) error {
	return l.ApplyBalance(ctx, uow, to, from, magnitude)
}

// ApplySignedDelta adds a signed delta to one account, expressed as a
// from/to call with one side omitted.
func (l Ledger) ApplySignedDelta(ctx context.Context, uow store.UnitOfWork, accountID, delta int64) error {
	if delta >= 0 {
		return l.ApplyBalance(ctx, uow, nil, &accountID, delta)
	}
	return l.ApplyBalance(ctx, uow, &accountID, nil, -delta)
}

// ApplySignedTransfer applies the effect of one transfer row with a signed
// amount: negative moves money from the row's account to its counter,
// positive the other way.
func (l Ledger) ApplySignedTransfer(ctx context.Context, uow store.UnitOfWork, accountID int64, counterID *int64, amount int64) error {
	if amount < 0 {
		return l.ApplyBalance(ctx, uow, &accountID, counterID, -amount)
	}
	return l.ApplyBalance(ctx, uow, counterID, &accountID, amount)
}

// RevertSignedTransfer undoes ApplySignedTransfer.
func (l Ledger) RevertSignedTransfer(ctx context.Context, uow store.UnitOfWork, accountID int64, counterID *int64, amount int64) error {
	return l.ApplySignedTransfer(ctx, uow, accountID, counterID, -amount)
}
