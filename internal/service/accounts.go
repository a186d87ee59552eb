package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// Accounts is the account management surface.
type Accounts struct {
	store store.Store
	log   zerolog.Logger
}

func NewAccounts(st store.Store, log zerolog.Logger) *Accounts {
	return &Accounts{store: st, log: log}
}

// Create validates and persists a new account. Credit cards must carry a
// linked non-card account and a billing schedule; card kinds always start at
// balance zero.
func (a *Accounts) Create(ctx context.Context, acc *domain.Account) (*domain.Account, error) {
	if acc.Name == "" {
		return nil, fmt.Errorf("account name is required: %w", ErrValidation)
	}
	if acc.Currency == "" {
		return nil, fmt.Errorf("account currency is required: %w", ErrValidation)
	}
	acc.Currency = domain.NormalizeCurrency(acc.Currency)

	if acc.Kind == domain.AccountCreditCard {
		if acc.LinkedAccountID == nil {
			return nil, fmt.Errorf("credit card needs a linked account: %w", ErrValidation)
		}
		if acc.BillingCutoffDay == nil || acc.PaymentDay == nil {
			return nil, fmt.Errorf("credit card needs a billing schedule: %w", ErrValidation)
		}
		if *acc.BillingCutoffDay < 1 || *acc.BillingCutoffDay > 31 ||
			*acc.PaymentDay < 1 || *acc.PaymentDay > 31 {
			return nil, fmt.Errorf("billing days must be 1-31: %w", ErrValidation)
		}
	}
	if acc.Kind.IsCard() {
		acc.Balance = 0
	}

	uow, err := a.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	if acc.LinkedAccountID != nil {
		linked, err := uow.Accounts().Get(ctx, *acc.LinkedAccountID)
		if err != nil {
			return nil, fmt.Errorf("linked account %d: %w", *acc.LinkedAccountID, err)
		}
		if linked.Kind.IsCard() {
			return nil, fmt.Errorf("linked account %d is a card: %w", linked.ID, ErrValidation)
		}
		if domain.NormalizeCurrency(linked.Currency) != acc.Currency {
			return nil, fmt.Errorf("linked account currency %s: %w", linked.Currency, ErrCurrencyMismatch)
		}
	}

	if err := uow.Accounts().Insert(ctx, acc); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	a.log.Info().Int64("account_id", acc.ID).Str("kind", string(acc.Kind)).Msg("account created")
	return acc, nil
}

// Get loads one account.
func (a *Accounts) Get(ctx context.Context, id int64) (*domain.Account, error) {
	uow, err := a.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)
	acc, err := uow.Accounts().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", id, err)
	}
	return acc, nil
}
