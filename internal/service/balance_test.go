package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/domain"
)

func TestLedgerApplyBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	from := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})
	to := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "savings", Kind: domain.AccountSavings, Balance: 0, Currency: "KRW"})

	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	var ledger Ledger
	require.NoError(t, ledger.ApplyBalance(ctx, uow, &from.ID, &to.ID, 4000))
	require.NoError(t, uow.Commit(ctx))

	require.Equal(t, int64(6000), e.balance(t, from.ID))
	require.Equal(t, int64(4000), e.balance(t, to.ID))
}

func TestLedgerRevertIsExactInverse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	from := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})
	to := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "savings", Kind: domain.AccountSavings, Currency: "KRW"})

	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	var ledger Ledger
	require.NoError(t, ledger.ApplyBalance(ctx, uow, &from.ID, &to.ID, 4000))
	require.NoError(t, ledger.RevertSingleTransferEffect(ctx, uow, &from.ID, &to.ID, 4000))
	require.NoError(t, uow.Commit(ctx))

	require.Equal(t, int64(10000), e.balance(t, from.ID))
	require.Equal(t, int64(0), e.balance(t, to.ID))
}

func TestLedgerCardPinnedToZero(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 10000, Currency: "KRW"})
	card := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "card", Kind: domain.AccountCheckCard, Currency: "KRW"})

	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	var ledger Ledger
	require.NoError(t, ledger.ApplyBalance(ctx, uow, &deposit.ID, &card.ID, 3000))
	require.NoError(t, uow.Commit(ctx))

	require.Equal(t, int64(7000), e.balance(t, deposit.ID))
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestLedgerNoOps(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 5000, Currency: "KRW"})

	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	var ledger Ledger
	require.NoError(t, ledger.ApplyBalance(ctx, uow, &acc.ID, &acc.ID, 1000))
	require.NoError(t, ledger.ApplyBalance(ctx, uow, &acc.ID, nil, 0))
	require.NoError(t, uow.Commit(ctx))

	require.Equal(t, int64(5000), e.balance(t, acc.ID))
}

func TestLedgerSignedHelpers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	acc := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 5000, Currency: "KRW"})
	other := e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "savings", Kind: domain.AccountSavings, Currency: "KRW"})

	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	var ledger Ledger
	require.NoError(t, ledger.ApplySignedDelta(ctx, uow, acc.ID, -2000))
	require.NoError(t, ledger.ApplySignedTransfer(ctx, uow, acc.ID, &other.ID, -1000))
	require.NoError(t, ledger.RevertSignedTransfer(ctx, uow, acc.ID, &other.ID, -1000))
	require.NoError(t, uow.Commit(ctx))

	require.Equal(t, int64(3000), e.balance(t, acc.ID))
	require.Equal(t, int64(0), e.balance(t, other.ID))
}
