package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

// Postgres is the production Store. One unit of work is one pgx transaction;
// uniqueness constraints in schema.sql back the idempotency and
// linked-pointer guarantees.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() { p.pool.Close() }

// Begin opens a unit of work.
func (p *Postgres) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	return &pgUow{tx: tx}, nil
}

type pgUow struct {
	tx pgx.Tx
}

func (u *pgUow) Commit(ctx context.Context) error   { return u.tx.Commit(ctx) }
func (u *pgUow) Rollback(ctx context.Context) error { return u.tx.Rollback(ctx) }

func (u *pgUow) Accounts() AccountRepo             { return pgAccounts{u.tx} }
func (u *pgUow) Transactions() TransactionRepo     { return pgTxns{u.tx} }
func (u *pgUow) TransferGroups() TransferGroupRepo { return pgGroups{u.tx} }
func (u *pgUow) Rules() RecurringRuleRepo          { return pgRules{u.tx} }
func (u *pgUow) Drafts() OccurrenceDraftRepo       { return pgDrafts{u.tx} }
func (u *pgUow) Skips() OccurrenceSkipRepo         { return pgSkips{u.tx} }
func (u *pgUow) Statements() StatementRepo         { return pgStatements{u.tx} }

// mapErr rewrites pgx sentinel and unique-violation errors into the store's
// error taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrConflict)
	}
	return err
}

func toDate(t time.Time) date.Date { return date.FromTime(t) }

func toDateP(t *time.Time) *date.Date {
	if t == nil {
		return nil
	}
	d := date.FromTime(*t)
	return &d
}

func fromDateP(d *date.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

func toTOD(v *int32) *date.TimeOfDay {
	if v == nil {
		return nil
	}
	t := date.TimeOfDay(*v)
	return &t
}

func fromTOD(t *date.TimeOfDay) *int32 {
	if t == nil {
		return nil
	}
	v := int32(*t)
	return &v
}

type pgAccounts struct{ tx pgx.Tx }

const accountCols = `id, owner_id, name, kind, balance, currency, linked_account_id,
	billing_cutoff_day, payment_day, archived, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Kind, &a.Balance, &a.Currency,
		&a.LinkedAccountID, &a.BillingCutoffDay, &a.PaymentDay, &a.Archived,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

func (r pgAccounts) Get(ctx context.Context, id int64) (*domain.Account, error) {
	return scanAccount(r.tx.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE id = $1`, id))
}

func (r pgAccounts) FindByName(ctx context.Context, ownerID int64, name string) (*domain.Account, error) {
	a, err := scanAccount(r.tx.QueryRow(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE owner_id = $1 AND name = $2`, ownerID, name))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return a, err
}

func (r pgAccounts) Insert(ctx context.Context, a *domain.Account) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO accounts (owner_id, name, kind, balance, currency, linked_account_id,
			billing_cutoff_day, payment_day, archived)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id, created_at, updated_at`,
		a.OwnerID, a.Name, a.Kind, a.Balance, a.Currency, a.LinkedAccountID,
		a.BillingCutoffDay, a.PaymentDay, a.Archived,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (r pgAccounts) Update(ctx context.Context, a *domain.Account) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE accounts SET name=$2, kind=$3, balance=$4, currency=$5, linked_account_id=$6,
			billing_cutoff_day=$7, payment_day=$8, archived=$9, updated_at=now()
		 WHERE id = $1`,
		a.ID, a.Name, a.Kind, a.Balance, a.Currency, a.LinkedAccountID,
		a.BillingCutoffDay, a.PaymentDay, a.Archived)
	return mapErr(err)
}

type pgTxns struct{ tx pgx.Tx }

const txnCols = `id, owner_id, occurred_on, time_of_day, kind, group_id, account_id,
	counter_account_id, card_id, category_id, amount, currency, memo, payee,
	external_key, import_source, card_charge, balance_neutral, auto_transfer_match,
	exclude_from_reports, linked_transaction_id, status, billing_cycle_id,
	created_at, updated_at`

func scanTxn(row pgx.Row) (*domain.Transaction, error) {
	var (
		t      domain.Transaction
		on     time.Time
		tod    *int32
		memo   *string
		payee  *string
	)
	err := row.Scan(&t.ID, &t.OwnerID, &on, &tod, &t.Kind, &t.GroupID, &t.AccountID,
		&t.CounterAccountID, &t.CardID, &t.CategoryID, &t.Amount, &t.Currency, &memo, &payee,
		&t.ExternalKey, &t.ImportSource, &t.CardCharge, &t.BalanceNeutral, &t.AutoTransferMatch,
		&t.ExcludeFromReports, &t.LinkedTransactionID, &t.Status, &t.BillingCycleID,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	t.Date = toDate(on)
	t.TimeOfDay = toTOD(tod)
	if memo != nil {
		t.Memo = *memo
	}
	if payee != nil {
		t.Payee = *payee
	}
	return &t, nil
}

func scanTxns(rows pgx.Rows) ([]*domain.Transaction, error) {
	defer rows.Close()
	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapErr(rows.Err())
}

func (r pgTxns) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	return scanTxn(r.tx.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id = $1`, id))
}

func (r pgTxns) Insert(ctx context.Context, t *domain.Transaction) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO transactions (owner_id, occurred_on, time_of_day, kind, group_id,
			account_id, counter_account_id, card_id, category_id, amount, currency, memo,
			payee, external_key, import_source, card_charge, balance_neutral,
			auto_transfer_match, exclude_from_reports, linked_transaction_id, status,
			billing_cycle_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		 RETURNING id, created_at, updated_at`,
		t.OwnerID, t.Date.Time(), fromTOD(t.TimeOfDay), t.Kind, t.GroupID,
		t.AccountID, t.CounterAccountID, t.CardID, t.CategoryID, t.Amount, t.Currency, t.Memo,
		t.Payee, t.ExternalKey, t.ImportSource, t.CardCharge, t.BalanceNeutral,
		t.AutoTransferMatch, t.ExcludeFromReports, t.LinkedTransactionID, t.Status,
		t.BillingCycleID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

func (r pgTxns) Update(ctx context.Context, t *domain.Transaction) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE transactions SET occurred_on=$2, time_of_day=$3, kind=$4, group_id=$5,
			account_id=$6, counter_account_id=$7, card_id=$8, category_id=$9, amount=$10,
			currency=$11, memo=$12, payee=$13, external_key=$14, import_source=$15,
			card_charge=$16, balance_neutral=$17, auto_transfer_match=$18,
			exclude_from_reports=$19, linked_transaction_id=$20, status=$21,
			billing_cycle_id=$22, updated_at=now()
		 WHERE id = $1`,
		t.ID, t.Date.Time(), fromTOD(t.TimeOfDay), t.Kind, t.GroupID,
		t.AccountID, t.CounterAccountID, t.CardID, t.CategoryID, t.Amount,
		t.Currency, t.Memo, t.Payee, t.ExternalKey, t.ImportSource,
		t.CardCharge, t.BalanceNeutral, t.AutoTransferMatch,
		t.ExcludeFromReports, t.LinkedTransactionID, t.Status, t.BillingCycleID)
	return mapErr(err)
}

func (r pgTxns) Delete(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r pgTxns) FindByExternalKey(ctx context.Context, ownerID int64, key string) (*domain.Transaction, error) {
	t, err := scanTxn(r.tx.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE owner_id = $1 AND external_key = $2`,
		ownerID, key))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (r pgTxns) ListByExternalKeys(ctx context.Context, ownerID int64, keys []string) ([]*domain.Transaction, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE owner_id = $1 AND external_key = ANY($2)`,
		ownerID, keys)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanTxns(rows)
}

func (r pgTxns) ListByGroup(ctx context.Context, groupID string) ([]*domain.Transaction, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanTxns(rows)
}

func (r pgTxns) FindLinkedTo(ctx context.Context, id int64) (*domain.Transaction, error) {
	t, err := scanTxn(r.tx.QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE linked_transaction_id = $1`, id))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (r pgTxns) ListForMatch(ctx context.Context, ownerID int64, on date.Date, currency string, kinds []domain.TxnKind) ([]*domain.Transaction, error) {
	kindStrs := make([]string, len(kinds))
	for i, k := range kinds {
		kindStrs[i] = string(k)
	}
	rows, err := r.tx.Query(ctx,
		`SELECT `+txnCols+` FROM transactions
		 WHERE owner_id = $1 AND occurred_on = $2 AND upper(currency) = $3 AND kind = ANY($4)`,
		ownerID, on.Time(), domain.NormalizeCurrency(currency), kindStrs)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanTxns(rows)
}

func (r pgTxns) ExistsNatural(ctx context.Context, key NaturalKey) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM transactions
		WHERE owner_id = $1 AND kind = $2 AND occurred_on = $3
		  AND upper(currency) = $4
		  AND (account_id = $5 OR counter_account_id = $5)
		  AND (amount = $6 OR amount = -$6)`
	args := []any{key.OwnerID, key.Kind, key.Date.Time(),
		domain.NormalizeCurrency(key.Currency), key.AccountID, key.AbsAmount}
	if key.TimeOfDay != nil {
		q += ` AND time_of_day = $7`
		args = append(args, int32(*key.TimeOfDay))
	}
	q += `)`
	var exists bool
	if err := r.tx.QueryRow(ctx, q, args...).Scan(&exists); err != nil {
		return false, mapErr(err)
	}
	return exists, nil
}

func (r pgTxns) SumAmountByCycleStatus(ctx context.Context, cycleID int64, status domain.TxnStatus) (int64, error) {
	var sum int64
	err := r.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		 WHERE billing_cycle_id = $1 AND status = $2`, cycleID, status).Scan(&sum)
	return sum, mapErr(err)
}

func (r pgTxns) SetStatusByCycle(ctx context.Context, cycleID int64, from, to domain.TxnStatus) (int64, error) {
	tag, err := r.tx.Exec(ctx,
		`UPDATE transactions SET status = $3, updated_at = now()
		 WHERE billing_cycle_id = $1 AND status = $2`, cycleID, from, to)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

type pgGroups struct{ tx pgx.Tx }

func (r pgGroups) Insert(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO transfer_groups (id) VALUES ($1)`, id)
	return mapErr(err)
}

func (r pgGroups) Delete(ctx context.Context, id string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM transfer_groups WHERE id = $1`, id)
	return mapErr(err)
}

type pgRules struct{ tx pgx.Tx }

const ruleCols = `id, owner_id, name, kind, frequency, day_of_month, weekday, amount,
	variable_amount, currency, account_id, counter_account_id, category_id, memo,
	start_date, end_date, active, last_generated_at`

func scanRule(row pgx.Row) (*domain.RecurringRule, error) {
	var (
		rule  domain.RecurringRule
		memo  *string
		start *time.Time
		end   *time.Time
		last  *time.Time
	)
	err := row.Scan(&rule.ID, &rule.OwnerID, &rule.Name, &rule.Kind, &rule.Frequency,
		&rule.DayOfMonth, &rule.Weekday, &rule.Amount, &rule.VariableAmount, &rule.Currency,
		&rule.AccountID, &rule.CounterAccountID, &rule.CategoryID, &memo,
		&start, &end, &rule.Active, &last)
	if err != nil {
		return nil, mapErr(err)
	}
	if memo != nil {
		rule.Memo = *memo
	}
	rule.StartDate = toDateP(start)
	rule.EndDate = toDateP(end)
	rule.LastGeneratedAt = toDateP(last)
	return &rule, nil
}

func (r pgRules) Get(ctx context.Context, id int64) (*domain.RecurringRule, error) {
	return scanRule(r.tx.QueryRow(ctx,
		`SELECT `+ruleCols+` FROM recurring_rules WHERE id = $1`, id))
}

func (r pgRules) Insert(ctx context.Context, rule *domain.RecurringRule) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO recurring_rules (owner_id, name, kind, frequency, day_of_month,
			weekday, amount, variable_amount, currency, account_id, counter_account_id,
			category_id, memo, start_date, end_date, active, last_generated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		 RETURNING id`,
		rule.OwnerID, rule.Name, rule.Kind, rule.Frequency, rule.DayOfMonth,
		rule.Weekday, rule.Amount, rule.VariableAmount, rule.Currency, rule.AccountID,
		rule.CounterAccountID, rule.CategoryID, rule.Memo,
		fromDateP(rule.StartDate), fromDateP(rule.EndDate), rule.Active,
		fromDateP(rule.LastGeneratedAt),
	).Scan(&rule.ID)
	return mapErr(err)
}

func (r pgRules) Update(ctx context.Context, rule *domain.RecurringRule) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE recurring_rules SET name=$2, kind=$3, frequency=$4, day_of_month=$5,
			weekday=$6, amount=$7, variable_amount=$8, currency=$9, account_id=$10,
			counter_account_id=$11, category_id=$12, memo=$13, start_date=$14,
			end_date=$15, active=$16, last_generated_at=$17
		 WHERE id = $1`,
		rule.ID, rule.Name, rule.Kind, rule.Frequency, rule.DayOfMonth,
		rule.Weekday, rule.Amount, rule.VariableAmount, rule.Currency, rule.AccountID,
		rule.CounterAccountID, rule.CategoryID, rule.Memo,
		fromDateP(rule.StartDate), fromDateP(rule.EndDate), rule.Active,
		fromDateP(rule.LastGeneratedAt))
	return mapErr(err)
}

type pgDrafts struct{ tx pgx.Tx }

func (r pgDrafts) Find(ctx context.Context, ruleID int64, on date.Date) (*domain.OccurrenceDraft, error) {
	var (
		d    domain.OccurrenceDraft
		when time.Time
		memo *string
	)
	err := r.tx.QueryRow(ctx,
		`SELECT id, rule_id, owner_id, occurred_on, amount, memo
		 FROM recurring_occurrence_drafts WHERE rule_id = $1 AND occurred_on = $2`,
		ruleID, on.Time()).Scan(&d.ID, &d.RuleID, &d.OwnerID, &when, &d.Amount, &memo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	d.Date = toDate(when)
	if memo != nil {
		d.Memo = *memo
	}
	return &d, nil
}

func (r pgDrafts) Upsert(ctx context.Context, d *domain.OccurrenceDraft) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO recurring_occurrence_drafts (rule_id, owner_id, occurred_on, amount, memo)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (rule_id, occurred_on)
		 DO UPDATE SET amount = EXCLUDED.amount, memo = EXCLUDED.memo
		 RETURNING id`,
		d.RuleID, d.OwnerID, d.Date.Time(), d.Amount, d.Memo).Scan(&d.ID)
	return mapErr(err)
}

func (r pgDrafts) Delete(ctx context.Context, ruleID int64, on date.Date) error {
	_, err := r.tx.Exec(ctx,
		`DELETE FROM recurring_occurrence_drafts WHERE rule_id = $1 AND occurred_on = $2`,
		ruleID, on.Time())
	return mapErr(err)
}

type pgSkips struct{ tx pgx.Tx }

func (r pgSkips) Find(ctx context.Context, ruleID int64, on date.Date) (*domain.OccurrenceSkip, error) {
	var (
		s      domain.OccurrenceSkip
		when   time.Time
		reason *string
	)
	err := r.tx.QueryRow(ctx,
		`SELECT id, rule_id, owner_id, occurred_on, reason
		 FROM recurring_occurrence_skips WHERE rule_id = $1 AND occurred_on = $2`,
		ruleID, on.Time()).Scan(&s.ID, &s.RuleID, &s.OwnerID, &when, &reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(err)
	}
	s.Date = toDate(when)
	if reason != nil {
		s.Reason = *reason
	}
	return &s, nil
}

func (r pgSkips) ListDates(ctx context.Context, ruleID int64) ([]date.Date, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT occurred_on FROM recurring_occurrence_skips WHERE rule_id = $1`, ruleID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []date.Date
	for rows.Next() {
		var when time.Time
		if err := rows.Scan(&when); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, toDate(when))
	}
	return out, mapErr(rows.Err())
}

func (r pgSkips) Insert(ctx context.Context, s *domain.OccurrenceSkip) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO recurring_occurrence_skips (rule_id, owner_id, occurred_on, reason)
		 VALUES ($1,$2,$3,$4) RETURNING id`,
		s.RuleID, s.OwnerID, s.Date.Time(), s.Reason).Scan(&s.ID)
	return mapErr(err)
}

func (r pgSkips) Delete(ctx context.Context, ruleID int64, on date.Date) error {
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM recurring_occurrence_skips WHERE rule_id = $1 AND occurred_on = $2`,
		ruleID, on.Time())
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("skip for rule %d on %s: %w", ruleID, on, ErrNotFound)
	}
	return nil
}

type pgStatements struct{ tx pgx.Tx }

const stmtCols = `id, owner_id, account_id, period_start, period_end, due_date,
	total_amount, status, settlement_transaction_id`

func scanStatement(row pgx.Row) (*domain.CreditCardStatement, error) {
	var (
		s     domain.CreditCardStatement
		start time.Time
		end   time.Time
		due   time.Time
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.AccountID, &start, &end, &due,
		&s.TotalAmount, &s.Status, &s.SettlementTransactionID)
	if err != nil {
		return nil, mapErr(err)
	}
	s.PeriodStart, s.PeriodEnd, s.DueDate = toDate(start), toDate(end), toDate(due)
	return &s, nil
}

func (r pgStatements) Get(ctx context.Context, id int64) (*domain.CreditCardStatement, error) {
	return scanStatement(r.tx.QueryRow(ctx,
		`SELECT `+stmtCols+` FROM credit_card_statements WHERE id = $1`, id))
}

func (r pgStatements) FindByPeriod(ctx context.Context, accountID int64, start, end date.Date) (*domain.CreditCardStatement, error) {
	s, err := scanStatement(r.tx.QueryRow(ctx,
		`SELECT `+stmtCols+` FROM credit_card_statements
		 WHERE account_id = $1 AND period_start = $2 AND period_end = $3`,
		accountID, start.Time(), end.Time()))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return s, err
}

func (r pgStatements) ListPendingEndingBefore(ctx context.Context, accountID int64, before date.Date) ([]*domain.CreditCardStatement, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+stmtCols+` FROM credit_card_statements
		 WHERE account_id = $1 AND status = $2 AND period_end < $3`,
		accountID, domain.StatementPending, before.Time())
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	var out []*domain.CreditCardStatement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r pgStatements) Insert(ctx context.Context, s *domain.CreditCardStatement) error {
	err := r.tx.QueryRow(ctx,
		`INSERT INTO credit_card_statements (owner_id, account_id, period_start,
			period_end, due_date, total_amount, status, settlement_transaction_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		s.OwnerID, s.AccountID, s.PeriodStart.Time(), s.PeriodEnd.Time(), s.DueDate.Time(),
		s.TotalAmount, s.Status, s.SettlementTransactionID).Scan(&s.ID)
	return mapErr(err)
}

func (r pgStatements) Update(ctx context.Context, s *domain.CreditCardStatement) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE credit_card_statements SET period_start=$2, period_end=$3, due_date=$4,
			total_amount=$5, status=$6, settlement_transaction_id=$7
		 WHERE id = $1`,
		s.ID, s.PeriodStart.Time(), s.PeriodEnd.Time(), s.DueDate.Time(),
		s.TotalAmount, s.Status, s.SettlementTransactionID)
	return mapErr(err)
}
