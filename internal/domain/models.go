package domain

import (
	"time"

	"github.com/dayoonc/finbook/internal/date"
)

// AccountKind classifies an account. The two card kinds never carry a stored
// balance; their economic effect lives on the linked deposit account.
type AccountKind string

const (
	AccountDeposit    AccountKind = "DEPOSIT"
	AccountSavings    AccountKind = "SAVINGS"
	AccountCheckCard  AccountKind = "CHECK_CARD"
	AccountCreditCard AccountKind = "CREDIT_CARD"
	AccountLoan       AccountKind = "LOAN"
	AccountOther      AccountKind = "OTHER"
)

// IsCard reports whether the kind is one of the zero-balance card kinds.
func (k AccountKind) IsCard() bool {
	return k == AccountCheckCard || k == AccountCreditCard
}

// Account is a user-owned money container. Balance is in minor units.
type Account struct {
	ID               int64
	OwnerID          int64
	Name             string
	Kind             AccountKind
	Balance          int64
	Currency         string
	LinkedAccountID  *int64
	BillingCutoffDay *int
	PaymentDay       *int
	Archived         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TxnKind is the transaction type.
type TxnKind string

const (
	TxnIncome     TxnKind = "INCOME"
	TxnExpense    TxnKind = "EXPENSE"
	TxnTransfer   TxnKind = "TRANSFER"
	TxnSettlement TxnKind = "SETTLEMENT"
)

// TxnStatus tracks credit-card clearing state.
type TxnStatus string

const (
	StatusCleared        TxnStatus = "CLEARED"
	StatusPendingPayment TxnStatus = "PENDING_PAYMENT"
)

// Transaction is one persisted ledger row. Amount is signed, in minor units.
type Transaction struct {
	ID                  int64
	OwnerID             int64
	Date                date.Date
	TimeOfDay           *date.TimeOfDay
	Kind                TxnKind
	GroupID             *string
	AccountID           int64
	CounterAccountID    *int64
	CardID              *int64
	CategoryID          *int64
	Amount              int64
	Currency            string
	Memo                string
	Payee               string
	ExternalKey         *string
	ImportSource        *string
	CardCharge          bool
	BalanceNeutral      bool
	AutoTransferMatch   bool
	ExcludeFromReports  bool
	LinkedTransactionID *int64
	Status              TxnStatus
	BillingCycleID      *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EffectivelyNeutral reports whether the row's amount is kept out of account
// balances. Either flag alone is enough.
func (t *Transaction) EffectivelyNeutral() bool {
	return t.BalanceNeutral || t.ExcludeFromReports
}

// Frequency is a recurring rule's cadence.
type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

// RecurringRule describes a schedule that generates transactions.
// Non-variable rules carry a positive Amount; variable rules are confirmed
// occurrence by occurrence and must not be transfers.
type RecurringRule struct {
	ID               int64
	OwnerID          int64
	Name             string
	Kind             TxnKind
	Frequency        Frequency
	DayOfMonth       *int
	Weekday          *int // 0=Mon .. 6=Sun
	Amount           *int64
	VariableAmount   bool
	Currency         string
	AccountID        int64
	CounterAccountID *int64
	CategoryID       *int64
	Memo             string
	StartDate        *date.Date
	EndDate          *date.Date
	Active           bool
	LastGeneratedAt  *date.Date
}

// OccurrenceDraft is a proposed amount/memo for a not-yet-confirmed
// occurrence of a variable rule, keyed by (rule, date).
type OccurrenceDraft struct {
	ID      int64
	RuleID  int64
	OwnerID int64
	Date    date.Date
	Amount  *int64
	Memo    string
}

// OccurrenceSkip marks a scheduled date as intentionally not generated.
type OccurrenceSkip struct {
	ID      int64
	RuleID  int64
	OwnerID int64
	Date    date.Date
	Reason  string
}

// StatementStatus is a credit-card statement's lifecycle state.
type StatementStatus string

const (
	StatementPending StatementStatus = "pending"
	StatementClosed  StatementStatus = "closed"
	StatementPaid    StatementStatus = "paid"
)

// CreditCardStatement is one billing cycle and its outstanding total.
// Paid is terminal.
type CreditCardStatement struct {
	ID                      int64
	OwnerID                 int64
	AccountID               int64
	PeriodStart             date.Date
	PeriodEnd               date.Date
	DueDate                 date.Date
	TotalAmount             int64
	Status                  StatementStatus
	SettlementTransactionID *int64
}
