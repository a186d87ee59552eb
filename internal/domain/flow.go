package domain

// Flow is the direction of money for a transaction, expressed as a tagged
// union so that kind-dependent branching lives in one exhaustive switch
// instead of at every call site.
type Flow interface {
	// From returns the account money leaves, if any.
	From() *int64
	// To returns the account money enters, if any.
	To() *int64
}

// IncomeFlow moves money into an account.
type IncomeFlow struct{ Account int64 }

func (f IncomeFlow) From() *int64 { return nil }
func (f IncomeFlow) To() *int64   { return &f.Account }

// ExpenseFlow moves money out of an account.
type ExpenseFlow struct{ Account int64 }

func (f ExpenseFlow) From() *int64 { return &f.Account }
func (f ExpenseFlow) To() *int64   { return nil }

// TransferFlow moves money between two accounts.
type TransferFlow struct{ Source, Dest int64 }

func (f TransferFlow) From() *int64 { return &f.Source }
func (f TransferFlow) To() *int64   { return &f.Dest }

// SettlementFlow pays a card's outstanding balance from a deposit account.
type SettlementFlow struct{ Source, Card int64 }

func (f SettlementFlow) From() *int64 { return &f.Source }
func (f SettlementFlow) To() *int64   { return &f.Card }

// FlowOf derives the directional view of a transaction from its kind, signed
// amount, and account references. The sign wins over the kind: a positive
// expense is a refund flowing in, a negative income a correction flowing
// out.
func FlowOf(t *Transaction) Flow {
	switch t.Kind {
	case TxnIncome:
		if t.Amount < 0 {
			return ExpenseFlow{Account: t.AccountID}
		}
		return IncomeFlow{Account: t.AccountID}
	case TxnExpense:
		if t.Amount > 0 {
			return IncomeFlow{Account: t.AccountID}
		}
		return ExpenseFlow{Account: t.AccountID}
	case TxnTransfer:
		counter := t.AccountID
		if t.CounterAccountID != nil {
			counter = *t.CounterAccountID
		}
		if t.Amount < 0 {
			return TransferFlow{Source: t.AccountID, Dest: counter}
		}
		return TransferFlow{Source: counter, Dest: t.AccountID}
	case TxnSettlement:
		if t.Amount > 0 {
			return IncomeFlow{Account: t.AccountID}
		}
		card := t.AccountID
		if t.CardID != nil {
			card = *t.CardID
		}
		return SettlementFlow{Source: t.AccountID, Card: card}
	default:
		if t.Amount > 0 {
			return IncomeFlow{Account: t.AccountID}
		}
		return ExpenseFlow{Account: t.AccountID}
	}
}
