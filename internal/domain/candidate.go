package domain

import "github.com/dayoonc/finbook/internal/date"

// Direction hints carried by imported rows.
const (
	FlowOut = "OUT"
	FlowIn  = "IN"
)

// Candidate is one row of a bulk upload before it becomes a persisted
// transaction. Account references may arrive as ids or as raw names; names
// are resolved at creation time.
type Candidate struct {
	OwnerID            int64
	Date               date.Date
	TimeOfDay          *date.TimeOfDay
	Kind               TxnKind
	AccountID          *int64
	AccountName        string
	CounterAccountID   *int64
	CounterAccountName string
	CardID             *int64
	CategoryID         *int64
	Amount             int64
	Currency           string
	Memo               string
	Payee              string
	ExternalKey        string
	ImportSource       string
	Flow               string // "OUT", "IN", or ""
	BillingCycleID     *int64
	BalanceNeutral     bool
	ExcludeFromReports bool
}

// AccountRef returns the candidate's normalized primary account key.
func (c *Candidate) AccountRef() string {
	return AccountRef(c.AccountID, c.AccountName)
}

// CounterRef returns the candidate's normalized counter account key.
func (c *Candidate) CounterRef() string {
	return AccountRef(c.CounterAccountID, c.CounterAccountName)
}

// TransferLike reports whether the candidate can be one leg of a transfer:
// either a declared transfer or an income/expense row carrying a direction
// hint.
func (c *Candidate) TransferLike() bool {
	return c.Kind == TxnTransfer || c.Flow != ""
}

// BucketKey groups candidates that can pair with each other in one upload:
// same date, same clock time, same currency.
func (c *Candidate) BucketKey() string {
	t := ""
	if c.TimeOfDay != nil {
		t = c.TimeOfDay.String()
	}
	return c.Date.String() + "|" + t + "|" + NormalizeCurrency(c.Currency)
}

// NormalizeCurrency upper-cases a currency code.
func NormalizeCurrency(code string) string {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		ch := code[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		out = append(out, ch)
	}
	return string(out)
}
