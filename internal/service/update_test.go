package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

func TestUpdateReplacesBalanceEffect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &acc.ID,
		Amount:    -4000,
		Currency:  "KRW",
		Memo:      "lunch",
	})
	require.NoError(t, err)
	require.Equal(t, int64(6000), e.balance(t, acc.ID))

	updated, err := e.transactions.Update(ctx, row.ID, &domain.Candidate{
		OwnerID:  1,
		Date:     date.MustParse("2025-06-03"),
		Kind:     domain.TxnExpense,
		Amount:   -9000,
		Currency: "KRW",
		Memo:     "dinner",
	})
	require.NoError(t, err)
	require.Equal(t, row.ID, updated.ID)
	require.Equal(t, int64(-9000), updated.Amount)
	require.Equal(t, "dinner", updated.Memo)
	require.Equal(t, date.MustParse("2025-06-03"), updated.Date)

	// The old effect is gone; only the new one remains.
	require.Equal(t, int64(1000), e.balance(t, acc.ID))
}

func TestUpdateRejectsKindAndCurrencyChanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &acc.ID,
		Amount:    -4000,
		Currency:  "KRW",
	})
	require.NoError(t, err)

	_, err = e.transactions.Update(ctx, row.ID, &domain.Candidate{
		OwnerID:  1,
		Date:     row.Date,
		Kind:     domain.TxnIncome,
		Amount:   4000,
		Currency: "KRW",
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = e.transactions.Update(ctx, row.ID, &domain.Candidate{
		OwnerID:  1,
		Date:     row.Date,
		Kind:     domain.TxnExpense,
		Amount:   -4000,
		Currency: "USD",
	})
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	// Nothing moved.
	require.Equal(t, int64(6000), e.balance(t, acc.ID))
}

func TestUpdateRejectsManualTransferLeg(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	from := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})
	to := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "savings", Kind: domain.AccountSavings, Currency: "KRW"})

	leg, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:          1,
		Date:             date.MustParse("2025-06-02"),
		Kind:             domain.TxnTransfer,
		AccountID:        &from.ID,
		CounterAccountID: &to.ID,
		Amount:           -5000,
		Currency:         "KRW",
	})
	require.NoError(t, err)
	require.NotNil(t, leg.GroupID)

	_, err = e.transactions.Update(ctx, leg.ID, &domain.Candidate{
		OwnerID:  1,
		Date:     leg.Date,
		Kind:     domain.TxnTransfer,
		Amount:   -7000,
		Currency: "KRW",
	})
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, int64(5000), e.balance(t, from.ID))
	require.Equal(t, int64(5000), e.balance(t, to.ID))
}
