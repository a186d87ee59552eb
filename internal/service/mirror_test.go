package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

func (e *env) seedCheckCardPair(t *testing.T) (deposit, card *domain.Account) {
	t.Helper()
	deposit = e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})
	card, err := e.accounts.Create(context.Background(), &domain.Account{
		OwnerID:         1,
		Name:            "check-card",
		Kind:            domain.AccountCheckCard,
		Currency:        "KRW",
		LinkedAccountID: &deposit.ID,
	})
	require.NoError(t, err)
	return deposit, card
}

func TestCheckCardExpenseCreatesMirror(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCheckCardPair(t)

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &card.ID,
		Amount:    -8000,
		Currency:  "KRW",
		Memo:      "coffee",
	})
	require.NoError(t, err)
	require.NotNil(t, row.LinkedTransactionID)

	mirror := e.getTxn(t, *row.LinkedTransactionID)
	require.Equal(t, domain.TxnTransfer, mirror.Kind)
	require.Equal(t, deposit.ID, mirror.AccountID)
	require.NotNil(t, mirror.CounterAccountID)
	require.Equal(t, card.ID, *mirror.CounterAccountID)
	require.Equal(t, int64(-8000), mirror.Amount)
	require.Equal(t, "coffee", mirror.Memo)
	require.NotNil(t, mirror.LinkedTransactionID)
	require.Equal(t, row.ID, *mirror.LinkedTransactionID)

	// Money leaves the deposit; the card stays pinned to zero.
	require.Equal(t, int64(2000), e.balance(t, deposit.ID))
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestDeletingCardRowRevertsMirrorExactly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCheckCardPair(t)

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &card.ID,
		Amount:    -8000,
		Currency:  "KRW",
	})
	require.NoError(t, err)
	mirrorID := *row.LinkedTransactionID

	require.NoError(t, e.transactions.Delete(ctx, row.ID))

	_, err = e.findTxn(t, row.ID)
	require.Error(t, err)
	_, err = e.findTxn(t, mirrorID)
	require.Error(t, err)
	require.Equal(t, int64(10000), e.balance(t, deposit.ID))
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestCheckCardRefundHasNoMirror(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCheckCardPair(t)

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnIncome,
		AccountID: &card.ID,
		Amount:    8000,
		Currency:  "KRW",
	})
	require.NoError(t, err)
	require.Nil(t, row.LinkedTransactionID)
	require.Equal(t, int64(10000), e.balance(t, deposit.ID))
}

func TestUnlinkedCheckCardHasNoMirror(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	card, err := e.accounts.Create(ctx, &domain.Account{
		OwnerID:  1,
		Name:     "check-card",
		Kind:     domain.AccountCheckCard,
		Currency: "KRW",
	})
	require.NoError(t, err)

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &card.ID,
		Amount:    -8000,
		Currency:  "KRW",
	})
	require.NoError(t, err)
	require.Nil(t, row.LinkedTransactionID)
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestUpdatingCardRowRewritesMirror(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCheckCardPair(t)

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &card.ID,
		Amount:    -8000,
		Currency:  "KRW",
	})
	require.NoError(t, err)
	mirrorID := *row.LinkedTransactionID
	require.Equal(t, int64(2000), e.balance(t, deposit.ID))

	// Editing the card row rewrites the same mirror row with the new
	// amount instead of stacking a second one.
	_, err = e.transactions.Update(ctx, row.ID, &domain.Candidate{
		OwnerID:  1,
		Date:     row.Date,
		Kind:     domain.TxnExpense,
		Amount:   -3000,
		Currency: "KRW",
	})
	require.NoError(t, err)

	mirror := e.getTxn(t, mirrorID)
	require.Equal(t, int64(-3000), mirror.Amount)
	require.Equal(t, int64(7000), e.balance(t, deposit.ID))
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestMirrorSyncUpdatesInPlace(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCheckCardPair(t)

	row, err := e.transactions.Create(ctx, &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse("2025-06-02"),
		Kind:      domain.TxnExpense,
		AccountID: &card.ID,
		Amount:    -8000,
		Currency:  "KRW",
	})
	require.NoError(t, err)
	mirrorID := *row.LinkedTransactionID
	require.Equal(t, int64(2000), e.balance(t, deposit.ID))

	// Re-sync with a changed amount rewrites the same mirror row and
	// replaces its balance effect.
	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	fresh, err := uow.Transactions().Get(ctx, row.ID)
	require.NoError(t, err)
	fresh.Amount = -3000
	require.NoError(t, uow.Transactions().Update(ctx, fresh))
	var m Mirror
	require.NoError(t, m.Sync(ctx, uow, fresh, false))
	require.NoError(t, uow.Commit(ctx))

	mirror := e.getTxn(t, mirrorID)
	require.Equal(t, int64(-3000), mirror.Amount)
	require.Equal(t, int64(7000), e.balance(t, deposit.ID))
}
