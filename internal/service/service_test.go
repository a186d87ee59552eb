package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

type env struct {
	st           *store.Memory
	billing      *Billing
	writer       *TxWriter
	accounts     *Accounts
	transactions *Transactions
	ingestor     *Ingestor
	scheduler    *Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemory()
	log := zerolog.Nop()
	billing := NewBilling(st, log)
	writer := NewTxWriter(billing)
	return &env{
		st:           st,
		billing:      billing,
		writer:       writer,
		accounts:     NewAccounts(st, log),
		transactions: NewTransactions(st, writer, log),
		ingestor:     NewIngestor(st, writer, log),
		scheduler:    NewScheduler(st, writer, log),
	}
}

func (e *env) seedAccount(t *testing.T, acc *domain.Account) *domain.Account {
	t.Helper()
	ctx := context.Background()
	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	require.NoError(t, uow.Accounts().Insert(ctx, acc))
	require.NoError(t, uow.Commit(ctx))
	return acc
}

func (e *env) balance(t *testing.T, id int64) int64 {
	t.Helper()
	ctx := context.Background()
	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	acc, err := uow.Accounts().Get(ctx, id)
	require.NoError(t, err)
	return acc.Balance
}

func (e *env) getTxn(t *testing.T, id int64) *domain.Transaction {
	t.Helper()
	ctx := context.Background()
	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	row, err := uow.Transactions().Get(ctx, id)
	require.NoError(t, err)
	return row
}

func (e *env) findTxn(t *testing.T, id int64) (*domain.Transaction, error) {
	t.Helper()
	ctx := context.Background()
	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	return uow.Transactions().Get(ctx, id)
}

func (e *env) seedTxn(t *testing.T, txn *domain.Transaction) *domain.Transaction {
	t.Helper()
	ctx := context.Background()
	uow, err := e.st.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback(ctx)
	require.NoError(t, uow.Transactions().Insert(ctx, txn))
	require.NoError(t, uow.Commit(ctx))
	return txn
}

func i64(v int64) *int64 { return &v }

func intp(v int) *int { return &v }
