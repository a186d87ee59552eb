// Package store defines the persistence abstraction the ledger engine runs
// against: a Store that opens atomic units of work, and per-entity
// repositories scoped to one unit of work. The engine is single-writer per
// unit of work; uniqueness (external keys, linked-transaction pointers,
// draft/skip keys) is enforced by the backing store, and a violation aborts
// the whole unit of work.
package store

import (
	"context"
	"errors"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

var (
	// ErrNotFound is returned by Get-style lookups for missing rows.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert or update violates a
	// uniqueness constraint.
	ErrConflict = errors.New("uniqueness conflict")
)

// Store opens units of work.
type Store interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is one atomic batch of reads and writes. Commit makes every
// write visible at once; Rollback discards all of them. Rollback after
// Commit is a no-op, so `defer uow.Rollback(ctx)` is the normal shape.
type UnitOfWork interface {
	Accounts() AccountRepo
	Transactions() TransactionRepo
	TransferGroups() TransferGroupRepo
	Rules() RecurringRuleRepo
	Drafts() OccurrenceDraftRepo
	Skips() OccurrenceSkipRepo
	Statements() StatementRepo

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// AccountRepo reads and writes accounts.
type AccountRepo interface {
	Get(ctx context.Context, id int64) (*domain.Account, error)
	// FindByName returns nil (no error) when the owner has no account with
	// that exact name.
	FindByName(ctx context.Context, ownerID int64, name string) (*domain.Account, error)
	Insert(ctx context.Context, a *domain.Account) error
	Update(ctx context.Context, a *domain.Account) error
}

// NaturalKey is the duplicate signature used for import rows whose external
// key cannot be trusted across files.
type NaturalKey struct {
	OwnerID   int64
	Kind      domain.TxnKind
	Date      date.Date
	TimeOfDay *date.TimeOfDay
	AccountID int64
	Currency  string
	AbsAmount int64
}

// TransactionRepo reads and writes ledger rows.
type TransactionRepo interface {
	Get(ctx context.Context, id int64) (*domain.Transaction, error)
	Insert(ctx context.Context, t *domain.Transaction) error
	Update(ctx context.Context, t *domain.Transaction) error
	Delete(ctx context.Context, id int64) error

	// FindByExternalKey returns nil when no row carries the key.
	FindByExternalKey(ctx context.Context, ownerID int64, key string) (*domain.Transaction, error)
	ListByExternalKeys(ctx context.Context, ownerID int64, keys []string) ([]*domain.Transaction, error)
	ListByGroup(ctx context.Context, groupID string) ([]*domain.Transaction, error)
	// FindLinkedTo returns the row whose LinkedTransactionID points at id,
	// or nil.
	FindLinkedTo(ctx context.Context, id int64) (*domain.Transaction, error)
	// ListForMatch returns the owner's rows on a date in a currency whose
	// kind is one of kinds. Used by cross-batch transfer matching.
	ListForMatch(ctx context.Context, ownerID int64, on date.Date, currency string, kinds []domain.TxnKind) ([]*domain.Transaction, error)
	ExistsNatural(ctx context.Context, key NaturalKey) (bool, error)
	// SumAmountByCycleStatus totals signed amounts of rows referencing the
	// billing cycle in the given status.
	SumAmountByCycleStatus(ctx context.Context, cycleID int64, status domain.TxnStatus) (int64, error)
	// SetStatusByCycle flips every row of the cycle from one status to
	// another and reports how many changed.
	SetStatusByCycle(ctx context.Context, cycleID int64, from, to domain.TxnStatus) (int64, error)
}

// TransferGroupRepo manages the opaque grouping ids pairing two transfer
// legs.
type TransferGroupRepo interface {
	Insert(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// RecurringRuleRepo reads and writes schedule rules.
type RecurringRuleRepo interface {
	Get(ctx context.Context, id int64) (*domain.RecurringRule, error)
	Insert(ctx context.Context, r *domain.RecurringRule) error
	Update(ctx context.Context, r *domain.RecurringRule) error
}

// OccurrenceDraftRepo keys drafts by (rule, date).
type OccurrenceDraftRepo interface {
	Find(ctx context.Context, ruleID int64, on date.Date) (*domain.OccurrenceDraft, error)
	Upsert(ctx context.Context, d *domain.OccurrenceDraft) error
	Delete(ctx context.Context, ruleID int64, on date.Date) error
}

// OccurrenceSkipRepo keys skips by (rule, date).
type OccurrenceSkipRepo interface {
	Find(ctx context.Context, ruleID int64, on date.Date) (*domain.OccurrenceSkip, error)
	ListDates(ctx context.Context, ruleID int64) ([]date.Date, error)
	Insert(ctx context.Context, s *domain.OccurrenceSkip) error
	Delete(ctx context.Context, ruleID int64, on date.Date) error
}

// StatementRepo reads and writes credit-card statements.
type StatementRepo interface {
	Get(ctx context.Context, id int64) (*domain.CreditCardStatement, error)
	// FindByPeriod returns nil when the account has no statement with the
	// exact (start, end) window.
	FindByPeriod(ctx context.Context, accountID int64, start, end date.Date) (*domain.CreditCardStatement, error)
	// ListPendingEndingBefore returns pending statements of the account
	// whose period end precedes the given date.
	ListPendingEndingBefore(ctx context.Context, accountID int64, before date.Date) ([]*domain.CreditCardStatement, error)
	Insert(ctx context.Context, s *domain.CreditCardStatement) error
	Update(ctx context.Context, s *domain.CreditCardStatement) error
}
