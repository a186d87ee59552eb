package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// Billing computes credit-card statement windows, keeps outstanding totals
// current, and performs settlement.
type Billing struct {
	store  store.Store
	ledger Ledger
	log    zerolog.Logger
}

func NewBilling(st store.Store, log zerolog.Logger) *Billing {
	return &Billing{store: st, log: log}
}

// StatementWindow places a charge date inside its billing cycle. A charge on
// or before the cutoff day belongs to the cycle ending that month on the
// cutoff; later charges roll into the next month's cycle. The period starts
// the day after the previous cycle's end, and payment falls due on the
// payment day of the month after the cycle ends. Day values are clamped to
// month length.
func StatementWindow(cutoffDay, paymentDay int, charge date.Date) (start, end, due date.Date) {
	end = date.Clamped(charge.Year(), charge.Month(), cutoffDay)
	if charge.After(end) {
		end = end.AddMonths(1)
		end = date.Clamped(end.Year(), end.Month(), cutoffDay)
	}
	prevEnd := end.AddMonths(-1)
	prevEnd = date.Clamped(prevEnd.Year(), prevEnd.Month(), cutoffDay)
	start = prevEnd.Add(1)
	next := end.AddMonths(1)
	due = date.Clamped(next.Year(), next.Month(), paymentDay)
	return start, end, due
}

// GetOrCreateStatement returns the statement owning a charge date, creating
// it lazily. Pending statements whose window ended before the new one starts
// are closed first; a closed statement whose window still contains the
// charge is reopened.
func (b *Billing) GetOrCreateStatement(ctx context.Context, uow store.UnitOfWork, acc *domain.Account, charge date.Date) (*domain.CreditCardStatement, error) {
	if acc.BillingCutoffDay == nil || acc.PaymentDay == nil {
		return nil, fmt.Errorf("account %d has no billing schedule: %w", acc.ID, ErrValidation)
	}
	start, end, due := StatementWindow(*acc.BillingCutoffDay, *acc.PaymentDay, charge)

	stale, err := uow.Statements().ListPendingEndingBefore(ctx, acc.ID, start)
	if err != nil {
		return nil, fmt.Errorf("list stale statements: %w", err)
	}
	for _, s := range stale {
		s.Status = domain.StatementClosed
		if err := uow.Statements().Update(ctx, s); err != nil {
			return nil, fmt.Errorf("close stale statement %d: %w", s.ID, err)
		}
	}

	stmt, err := uow.Statements().FindByPeriod(ctx, acc.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("find statement: %w", err)
	}
	if stmt != nil {
		if stmt.Status == domain.StatementClosed && !charge.Before(stmt.PeriodStart) && !charge.After(stmt.PeriodEnd) {
			stmt.Status = domain.StatementPending
			if err := uow.Statements().Update(ctx, stmt); err != nil {
				return nil, fmt.Errorf("reopen statement %d: %w", stmt.ID, err)
			}
		}
		return stmt, nil
	}

	stmt = &domain.CreditCardStatement{
		OwnerID:     acc.OwnerID,
		AccountID:   acc.ID,
		PeriodStart: start,
		PeriodEnd:   end,
		DueDate:     due,
		Status:      domain.StatementPending,
	}
	if err := uow.Statements().Insert(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create statement: %w", err)
	}
	return stmt, nil
}

// Recalculate recomputes the outstanding total from the cycle's
// pending-payment rows. Charges are stored negative, so the sum is negated
// and floored at zero.
func (b *Billing) Recalculate(ctx context.Context, uow store.UnitOfWork, stmt *domain.CreditCardStatement) error {
	sum, err := uow.Transactions().SumAmountByCycleStatus(ctx, stmt.ID, domain.StatusPendingPayment)
	if err != nil {
		return fmt.Errorf("sum cycle %d: %w", stmt.ID, err)
	}
	total := -sum
	if total < 0 {
		total = 0
	}
	stmt.TotalAmount = total
	if err := uow.Statements().Update(ctx, stmt); err != nil {
		return fmt.Errorf("update statement %d: %w", stmt.ID, err)
	}
	return nil
}

// SettleOptions tunes settlement.
type SettleOptions struct {
	// Date of the settlement transaction; the statement's due date when
	// zero.
	Date date.Date
	Memo string
	// CreateCardEntry also writes a balance-neutral entry on the card
	// account, linked reciprocally to the settlement.
	CreateCardEntry bool
}

// GetStatement loads one statement.
func (b *Billing) GetStatement(ctx context.Context, id int64) (*domain.CreditCardStatement, error) {
	uow, err := b.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)
	stmt, err := uow.Statements().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("statement %d: %w", id, err)
	}
	return stmt, nil
}

// Settle pays a statement from the card's linked deposit account: a
// settlement transaction for the outstanding amount, the cycle's pending
// rows flipped to cleared, the statement marked paid. Paid is terminal; a
// second settle call is a conflict.
func (b *Billing) Settle(ctx context.Context, statementID int64, opts SettleOptions) (*domain.CreditCardStatement, error) {
	uow, err := b.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	stmt, err := uow.Statements().Get(ctx, statementID)
	if err != nil {
		return nil, fmt.Errorf("statement %d: %w", statementID, err)
	}
	if stmt.Status == domain.StatementPaid {
		return nil, fmt.Errorf("statement %d: %w", statementID, ErrStatementSettled)
	}

	card, err := uow.Accounts().Get(ctx, stmt.AccountID)
	if err != nil {
		return nil, fmt.Errorf("card account: %w", err)
	}
	if card.LinkedAccountID == nil {
		return nil, fmt.Errorf("card %d has no linked account: %w", card.ID, ErrValidation)
	}
	deposit, err := uow.Accounts().Get(ctx, *card.LinkedAccountID)
	if err != nil {
		return nil, fmt.Errorf("linked account: %w", err)
	}
	if deposit.Kind.IsCard() {
		return nil, fmt.Errorf("linked account %d is a card: %w", deposit.ID, ErrValidation)
	}
	if domain.NormalizeCurrency(deposit.Currency) != domain.NormalizeCurrency(card.Currency) {
		return nil, fmt.Errorf("card %s vs linked %s: %w", card.Currency, deposit.Currency, ErrCurrencyMismatch)
	}

	if err := b.Recalculate(ctx, uow, stmt); err != nil {
		return nil, err
	}
	outstanding := stmt.TotalAmount
	if outstanding <= 0 {
		return nil, fmt.Errorf("statement %d: %w", statementID, ErrNoOutstanding)
	}

	when := opts.Date
	if when.IsZero() {
		when = stmt.DueDate
	}
	memo := opts.Memo
	if memo == "" {
		memo = fmt.Sprintf("card settlement %s", stmt.PeriodEnd)
	}

	settlement := &domain.Transaction{
		OwnerID:        stmt.OwnerID,
		Date:           when,
		Kind:           domain.TxnSettlement,
		AccountID:      deposit.ID,
		CardID:         &card.ID,
		Amount:         -outstanding,
		Currency:       deposit.Currency,
		Memo:           memo,
		Status:         domain.StatusCleared,
		BillingCycleID: &stmt.ID,
	}
	if err := uow.Transactions().Insert(ctx, settlement); err != nil {
		return nil, fmt.Errorf("insert settlement: %w", err)
	}
	if err := b.ledger.ApplySignedDelta(ctx, uow, deposit.ID, settlement.Amount); err != nil {
		return nil, err
	}

	if opts.CreateCardEntry {
		cardEntry := &domain.Transaction{
			OwnerID:             stmt.OwnerID,
			Date:                when,
			Kind:                domain.TxnSettlement,
			AccountID:           card.ID,
			CounterAccountID:    &deposit.ID,
			Amount:              outstanding,
			Currency:            card.Currency,
			Memo:                memo,
			BalanceNeutral:      true,
			Status:              domain.StatusCleared,
			BillingCycleID:      &stmt.ID,
			LinkedTransactionID: &settlement.ID,
		}
		if err := uow.Transactions().Insert(ctx, cardEntry); err != nil {
			return nil, fmt.Errorf("insert card entry: %w", err)
		}
		settlement.LinkedTransactionID = &cardEntry.ID
		if err := uow.Transactions().Update(ctx, settlement); err != nil {
			return nil, fmt.Errorf("link settlement: %w", err)
		}
	}

	cleared, err := uow.Transactions().SetStatusByCycle(ctx, stmt.ID, domain.StatusPendingPayment, domain.StatusCleared)
	if err != nil {
		return nil, fmt.Errorf("clear cycle rows: %w", err)
	}

	stmt.Status = domain.StatementPaid
	stmt.TotalAmount = 0
	stmt.SettlementTransactionID = &settlement.ID
	if err := uow.Statements().Update(ctx, stmt); err != nil {
		return nil, fmt.Errorf("mark statement paid: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	settlementsTotal.Inc()
	b.log.Info().
		Int64("statement_id", stmt.ID).
		Int64("amount", outstanding).
		Int64("rows_cleared", cleared).
		Msg("statement settled")
	return stmt, nil
}
