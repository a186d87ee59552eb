package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// Transactions is the single-item transaction surface. Each call is one unit
// of work: it commits whole or rolls back whole.
type Transactions struct {
	store  store.Store
	writer *TxWriter
	log    zerolog.Logger
}

func NewTransactions(st store.Store, writer *TxWriter, log zerolog.Logger) *Transactions {
	return &Transactions{store: st, writer: writer, log: log}
}

// Create persists one candidate with its balance effects.
func (t *Transactions) Create(ctx context.Context, c *domain.Candidate) (*domain.Transaction, error) {
	uow, err := t.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	row, err := t.writer.Create(ctx, uow, c, false)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return row, nil
}

// Update edits one transaction in place, replacing its balance effect and
// re-syncing its check-card mirror.
func (t *Transactions) Update(ctx context.Context, id int64, c *domain.Candidate) (*domain.Transaction, error) {
	uow, err := t.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	row, err := uow.Transactions().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", id, err)
	}
	updated, err := t.writer.Update(ctx, uow, row, c)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	t.log.Info().Int64("transaction_id", id).Msg("transaction updated")
	return updated, nil
}

// Delete removes one transaction with its mirror and siblings, reverting
// balance effects.
func (t *Transactions) Delete(ctx context.Context, id int64) error {
	uow, err := t.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	row, err := uow.Transactions().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("transaction %d: %w", id, err)
	}
	if err := t.writer.DeleteCascade(ctx, uow, row); err != nil {
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		return err
	}
	t.log.Info().Int64("transaction_id", id).Msg("transaction deleted")
	return nil
}
