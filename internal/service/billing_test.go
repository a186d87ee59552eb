package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

func TestStatementWindow(t *testing.T) {
	tests := []struct {
		name             string
		cutoff, payment  int
		charge           string
		start, end, due  string
	}{
		{
			name:   "after cutoff rolls to next month",
			cutoff: 20, payment: 5,
			charge: "2025-03-21",
			start:  "2025-03-21", end: "2025-04-20", due: "2025-05-05",
		},
		{
			name:   "on or before cutoff stays this month",
			cutoff: 20, payment: 5,
			charge: "2025-03-15",
			start:  "2025-02-21", end: "2025-03-20", due: "2025-04-05",
		},
		{
			name:   "cutoff day clamped in short months",
			cutoff: 31, payment: 31,
			charge: "2025-02-10",
			start:  "2025-02-01", end: "2025-02-28", due: "2025-03-31",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end, due := StatementWindow(tc.cutoff, tc.payment, date.MustParse(tc.charge))
			require.Equal(t, date.MustParse(tc.start), start)
			require.Equal(t, date.MustParse(tc.end), end)
			require.Equal(t, date.MustParse(tc.due), due)
		})
	}
}

func (e *env) seedCardPair(t *testing.T) (deposit, card *domain.Account) {
	t.Helper()
	ctx := context.Background()
	deposit = e.seedAccount(t, &domain.Account{OwnerID: 1, Name: "checking", Kind: domain.AccountDeposit, Balance: 100000, Currency: "KRW"})
	card, err := e.accounts.Create(ctx, &domain.Account{
		OwnerID:          1,
		Name:             "credit-card",
		Kind:             domain.AccountCreditCard,
		Currency:         "KRW",
		LinkedAccountID:  &deposit.ID,
		BillingCutoffDay: intp(20),
		PaymentDay:       intp(5),
	})
	require.NoError(t, err)
	return deposit, card
}

func (e *env) charge(t *testing.T, card *domain.Account, on string, amount int64) *domain.Transaction {
	t.Helper()
	row, err := e.transactions.Create(context.Background(), &domain.Candidate{
		OwnerID:   1,
		Date:      date.MustParse(on),
		Kind:      domain.TxnExpense,
		AccountID: &card.ID,
		Amount:    amount,
		Currency:  "KRW",
	})
	require.NoError(t, err)
	return row
}

func TestCardChargeOpensStatement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCardPair(t)

	row := e.charge(t, card, "2025-03-21", -50000)
	require.True(t, row.CardCharge)
	require.True(t, row.BalanceNeutral)
	require.Equal(t, domain.StatusPendingPayment, row.Status)
	require.NotNil(t, row.BillingCycleID)

	stmt, err := e.billing.GetStatement(ctx, *row.BillingCycleID)
	require.NoError(t, err)
	require.Equal(t, card.ID, stmt.AccountID)
	require.Equal(t, date.MustParse("2025-03-21"), stmt.PeriodStart)
	require.Equal(t, date.MustParse("2025-04-20"), stmt.PeriodEnd)
	require.Equal(t, date.MustParse("2025-05-05"), stmt.DueDate)
	require.Equal(t, domain.StatementPending, stmt.Status)
	require.Equal(t, int64(50000), stmt.TotalAmount)

	// Pending charges have no balance effect anywhere.
	require.Equal(t, int64(100000), e.balance(t, deposit.ID))
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestCardChargesShareCycleAndAccumulate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, card := e.seedCardPair(t)

	a := e.charge(t, card, "2025-03-21", -50000)
	b := e.charge(t, card, "2025-04-10", -30000)
	require.Equal(t, *a.BillingCycleID, *b.BillingCycleID)

	stmt, err := e.billing.GetStatement(ctx, *a.BillingCycleID)
	require.NoError(t, err)
	require.Equal(t, int64(80000), stmt.TotalAmount)

	// A charge past the cutoff opens the next cycle.
	c := e.charge(t, card, "2025-04-21", -10000)
	require.NotEqual(t, *a.BillingCycleID, *c.BillingCycleID)
}

func TestSettle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	deposit, card := e.seedCardPair(t)
	row := e.charge(t, card, "2025-03-21", -50000)

	stmt, err := e.billing.Settle(ctx, *row.BillingCycleID, SettleOptions{
		Date:            date.MustParse("2025-05-05"),
		CreateCardEntry: true,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatementPaid, stmt.Status)
	require.Equal(t, int64(0), stmt.TotalAmount)
	require.NotNil(t, stmt.SettlementTransactionID)

	settlement := e.getTxn(t, *stmt.SettlementTransactionID)
	require.Equal(t, domain.TxnSettlement, settlement.Kind)
	require.Equal(t, deposit.ID, settlement.AccountID)
	require.Equal(t, int64(-50000), settlement.Amount)
	require.NotNil(t, settlement.CardID)
	require.Equal(t, card.ID, *settlement.CardID)
	require.Equal(t, int64(50000), e.balance(t, deposit.ID))

	// The charge flips to cleared.
	require.Equal(t, domain.StatusCleared, e.getTxn(t, row.ID).Status)

	// The optional card entry is balance-neutral and reciprocally linked.
	require.NotNil(t, settlement.LinkedTransactionID)
	cardEntry := e.getTxn(t, *settlement.LinkedTransactionID)
	require.Equal(t, card.ID, cardEntry.AccountID)
	require.True(t, cardEntry.BalanceNeutral)
	require.Equal(t, int64(50000), cardEntry.Amount)
	require.NotNil(t, cardEntry.LinkedTransactionID)
	require.Equal(t, settlement.ID, *cardEntry.LinkedTransactionID)
	require.Equal(t, int64(0), e.balance(t, card.ID))
}

func TestSettleDefaultsToDueDate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, card := e.seedCardPair(t)
	row := e.charge(t, card, "2025-03-21", -50000)

	stmt, err := e.billing.Settle(ctx, *row.BillingCycleID, SettleOptions{})
	require.NoError(t, err)
	require.NotNil(t, stmt.SettlementTransactionID)

	settlement := e.getTxn(t, *stmt.SettlementTransactionID)
	require.Equal(t, date.MustParse("2025-05-05"), settlement.Date)
}

func TestSettleTwiceConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, card := e.seedCardPair(t)
	row := e.charge(t, card, "2025-03-21", -50000)

	_, err := e.billing.Settle(ctx, *row.BillingCycleID, SettleOptions{})
	require.NoError(t, err)
	_, err = e.billing.Settle(ctx, *row.BillingCycleID, SettleOptions{})
	require.ErrorIs(t, err, ErrStatementSettled)
}

func TestSettleEmptyStatement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, card := e.seedCardPair(t)

	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	stmt := &domain.CreditCardStatement{
		OwnerID:     1,
		AccountID:   card.ID,
		PeriodStart: date.MustParse("2025-02-21"),
		PeriodEnd:   date.MustParse("2025-03-20"),
		DueDate:     date.MustParse("2025-04-05"),
		Status:      domain.StatementPending,
	}
	require.NoError(t, uow.Statements().Insert(ctx, stmt))
	require.NoError(t, uow.Commit(ctx))

	_, err = e.billing.Settle(ctx, stmt.ID, SettleOptions{})
	require.ErrorIs(t, err, ErrNoOutstanding)
}

func TestDeletingChargeRecalculatesStatement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, card := e.seedCardPair(t)
	a := e.charge(t, card, "2025-03-21", -50000)
	b := e.charge(t, card, "2025-04-10", -30000)

	require.NoError(t, e.transactions.Delete(ctx, a.ID))

	stmt, err := e.billing.GetStatement(ctx, *b.BillingCycleID)
	require.NoError(t, err)
	require.Equal(t, int64(30000), stmt.TotalAmount)
}
