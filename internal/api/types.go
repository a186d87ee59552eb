package api

import (
	"fmt"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

// Amounts cross the wire as decimal strings ("-10000.50") and are parsed
// into minor units against the currency's exponent.

type AccountRequest struct {
	OwnerID          int64  `json:"owner_id"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Currency         string `json:"currency"`
	Balance          string `json:"balance,omitempty"`
	LinkedAccountID  *int64 `json:"linked_account_id,omitempty"`
	BillingCutoffDay *int   `json:"billing_cutoff_day,omitempty"`
	PaymentDay       *int   `json:"payment_day,omitempty"`
}

func (r *AccountRequest) toDomain() (*domain.Account, error) {
	acc := &domain.Account{
		OwnerID:          r.OwnerID,
		Name:             r.Name,
		Kind:             domain.AccountKind(r.Kind),
		Currency:         r.Currency,
		LinkedAccountID:  r.LinkedAccountID,
		BillingCutoffDay: r.BillingCutoffDay,
		PaymentDay:       r.PaymentDay,
	}
	if r.Balance != "" {
		v, err := domain.ParseAmount(r.Balance, r.Currency)
		if err != nil {
			return nil, err
		}
		acc.Balance = v
	}
	return acc, nil
}

type AccountResponse struct {
	ID               int64  `json:"id"`
	OwnerID          int64  `json:"owner_id"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Balance          string `json:"balance"`
	Currency         string `json:"currency"`
	LinkedAccountID  *int64 `json:"linked_account_id,omitempty"`
	BillingCutoffDay *int   `json:"billing_cutoff_day,omitempty"`
	PaymentDay       *int   `json:"payment_day,omitempty"`
	Archived         bool   `json:"archived"`
}

func accountResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		OwnerID:          a.OwnerID,
		Name:             a.Name,
		Kind:             string(a.Kind),
		Balance:          domain.FormatAmount(a.Balance, a.Currency),
		Currency:         a.Currency,
		LinkedAccountID:  a.LinkedAccountID,
		BillingCutoffDay: a.BillingCutoffDay,
		PaymentDay:       a.PaymentDay,
		Archived:         a.Archived,
	}
}

type TransactionRequest struct {
	OwnerID            int64  `json:"owner_id"`
	Date               string `json:"date"`
	Time               string `json:"time,omitempty"`
	Kind               string `json:"kind"`
	AccountID          *int64 `json:"account_id,omitempty"`
	AccountName        string `json:"account_name,omitempty"`
	CounterAccountID   *int64 `json:"counter_account_id,omitempty"`
	CounterAccountName string `json:"counter_account_name,omitempty"`
	CardID             *int64 `json:"card_id,omitempty"`
	CategoryID         *int64 `json:"category_id,omitempty"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Memo               string `json:"memo,omitempty"`
	Payee              string `json:"payee,omitempty"`
	ExternalKey        string `json:"external_key,omitempty"`
	ImportSource       string `json:"import_source,omitempty"`
	Flow               string `json:"flow,omitempty"`
	BillingCycleID     *int64 `json:"billing_cycle_id,omitempty"`
	BalanceNeutral     bool   `json:"balance_neutral,omitempty"`
	ExcludeFromReports bool   `json:"exclude_from_reports,omitempty"`
}

func (r *TransactionRequest) toCandidate() (*domain.Candidate, error) {
	on, err := date.Parse(r.Date)
	if err != nil {
		return nil, err
	}
	var tod *date.TimeOfDay
	if r.Time != "" {
		t, err := date.ParseTimeOfDay(r.Time)
		if err != nil {
			return nil, err
		}
		tod = &t
	}
	amount, err := domain.ParseAmount(r.Amount, r.Currency)
	if err != nil {
		return nil, err
	}
	if r.Flow != "" && r.Flow != domain.FlowOut && r.Flow != domain.FlowIn {
		return nil, fmt.Errorf("flow must be %q or %q", domain.FlowOut, domain.FlowIn)
	}
	return &domain.Candidate{
		OwnerID:            r.OwnerID,
		Date:               on,
		TimeOfDay:          tod,
		Kind:               domain.TxnKind(r.Kind),
		AccountID:          r.AccountID,
		AccountName:        r.AccountName,
		CounterAccountID:   r.CounterAccountID,
		CounterAccountName: r.CounterAccountName,
		CardID:             r.CardID,
		CategoryID:         r.CategoryID,
		Amount:             amount,
		Currency:           r.Currency,
		Memo:               r.Memo,
		Payee:              r.Payee,
		ExternalKey:        r.ExternalKey,
		ImportSource:       r.ImportSource,
		Flow:               r.Flow,
		BillingCycleID:     r.BillingCycleID,
		BalanceNeutral:     r.BalanceNeutral,
		ExcludeFromReports: r.ExcludeFromReports,
	}, nil
}

type TransactionResponse struct {
	ID                  int64   `json:"id"`
	OwnerID             int64   `json:"owner_id"`
	Date                string  `json:"date"`
	Time                *string `json:"time,omitempty"`
	Kind                string  `json:"kind"`
	GroupID             *string `json:"group_id,omitempty"`
	AccountID           int64   `json:"account_id"`
	CounterAccountID    *int64  `json:"counter_account_id,omitempty"`
	Amount              string  `json:"amount"`
	Currency            string  `json:"currency"`
	Memo                string  `json:"memo,omitempty"`
	Payee               string  `json:"payee,omitempty"`
	ExternalKey         *string `json:"external_key,omitempty"`
	CardCharge          bool    `json:"card_charge,omitempty"`
	BalanceNeutral      bool    `json:"balance_neutral,omitempty"`
	AutoTransferMatch   bool    `json:"auto_transfer_match,omitempty"`
	ExcludeFromReports  bool    `json:"exclude_from_reports,omitempty"`
	LinkedTransactionID *int64  `json:"linked_transaction_id,omitempty"`
	Status              string  `json:"status"`
	BillingCycleID      *int64  `json:"billing_cycle_id,omitempty"`
}

func transactionResponse(t *domain.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:                  t.ID,
		OwnerID:             t.OwnerID,
		Date:                t.Date.String(),
		Kind:                string(t.Kind),
		GroupID:             t.GroupID,
		AccountID:           t.AccountID,
		CounterAccountID:    t.CounterAccountID,
		Amount:              domain.FormatAmount(t.Amount, t.Currency),
		Currency:            t.Currency,
		Memo:                t.Memo,
		Payee:               t.Payee,
		ExternalKey:         t.ExternalKey,
		CardCharge:          t.CardCharge,
		BalanceNeutral:      t.BalanceNeutral,
		AutoTransferMatch:   t.AutoTransferMatch,
		ExcludeFromReports:  t.ExcludeFromReports,
		LinkedTransactionID: t.LinkedTransactionID,
		Status:              string(t.Status),
		BillingCycleID:      t.BillingCycleID,
	}
	if t.TimeOfDay != nil {
		s := t.TimeOfDay.String()
		resp.Time = &s
	}
	return resp
}

func transactionResponses(rows []*domain.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, 0, len(rows))
	for _, t := range rows {
		out = append(out, transactionResponse(t))
	}
	return out
}

type BulkRequest struct {
	OwnerID      int64                `json:"owner_id"`
	Override     bool                 `json:"override,omitempty"`
	Transactions []TransactionRequest `json:"transactions"`
}

type RuleRequest struct {
	OwnerID          int64  `json:"owner_id"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Frequency        string `json:"frequency"`
	DayOfMonth       *int   `json:"day_of_month,omitempty"`
	Weekday          *int   `json:"weekday,omitempty"`
	Amount           string `json:"amount,omitempty"`
	VariableAmount   bool   `json:"variable_amount,omitempty"`
	Currency         string `json:"currency"`
	AccountID        int64  `json:"account_id"`
	CounterAccountID *int64 `json:"counter_account_id,omitempty"`
	CategoryID       *int64 `json:"category_id,omitempty"`
	Memo             string `json:"memo,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
}

func (r *RuleRequest) toDomain() (*domain.RecurringRule, error) {
	rule := &domain.RecurringRule{
		OwnerID:          r.OwnerID,
		Name:             r.Name,
		Kind:             domain.TxnKind(r.Kind),
		Frequency:        domain.Frequency(r.Frequency),
		DayOfMonth:       r.DayOfMonth,
		Weekday:          r.Weekday,
		VariableAmount:   r.VariableAmount,
		Currency:         r.Currency,
		AccountID:        r.AccountID,
		CounterAccountID: r.CounterAccountID,
		CategoryID:       r.CategoryID,
		Memo:             r.Memo,
		Active:           true,
	}
	if r.Amount != "" {
		v, err := domain.ParseAmount(r.Amount, r.Currency)
		if err != nil {
			return nil, err
		}
		rule.Amount = &v
	}
	if r.StartDate != "" {
		d, err := date.Parse(r.StartDate)
		if err != nil {
			return nil, err
		}
		rule.StartDate = &d
	}
	if r.EndDate != "" {
		d, err := date.Parse(r.EndDate)
		if err != nil {
			return nil, err
		}
		rule.EndDate = &d
	}
	return rule, nil
}

type RuleResponse struct {
	ID               int64   `json:"id"`
	OwnerID          int64   `json:"owner_id"`
	Name             string  `json:"name"`
	Kind             string  `json:"kind"`
	Frequency        string  `json:"frequency"`
	DayOfMonth       *int    `json:"day_of_month,omitempty"`
	Weekday          *int    `json:"weekday,omitempty"`
	Amount           *string `json:"amount,omitempty"`
	VariableAmount   bool    `json:"variable_amount"`
	Currency         string  `json:"currency"`
	AccountID        int64   `json:"account_id"`
	CounterAccountID *int64  `json:"counter_account_id,omitempty"`
	Memo             string  `json:"memo,omitempty"`
	StartDate        *string `json:"start_date,omitempty"`
	EndDate          *string `json:"end_date,omitempty"`
	Active           bool    `json:"active"`
	LastGeneratedAt  *string `json:"last_generated_at,omitempty"`
}

func ruleResponse(r *domain.RecurringRule) *RuleResponse {
	resp := &RuleResponse{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Name:             r.Name,
		Kind:             string(r.Kind),
		Frequency:        string(r.Frequency),
		DayOfMonth:       r.DayOfMonth,
		Weekday:          r.Weekday,
		VariableAmount:   r.VariableAmount,
		Currency:         r.Currency,
		AccountID:        r.AccountID,
		CounterAccountID: r.CounterAccountID,
		Memo:             r.Memo,
		Active:           r.Active,
	}
	if r.Amount != nil {
		s := domain.FormatAmount(*r.Amount, r.Currency)
		resp.Amount = &s
	}
	if r.StartDate != nil {
		s := r.StartDate.String()
		resp.StartDate = &s
	}
	if r.EndDate != nil {
		s := r.EndDate.String()
		resp.EndDate = &s
	}
	if r.LastGeneratedAt != nil {
		s := r.LastGeneratedAt.String()
		resp.LastGeneratedAt = &s
	}
	return resp
}

type DraftResponse struct {
	RuleID int64   `json:"rule_id"`
	Date   string  `json:"date"`
	Amount *string `json:"amount,omitempty"`
	Memo   string  `json:"memo,omitempty"`
}

func draftResponse(d *domain.OccurrenceDraft, currency string) *DraftResponse {
	resp := &DraftResponse{RuleID: d.RuleID, Date: d.Date.String(), Memo: d.Memo}
	if d.Amount != nil {
		s := domain.FormatAmount(*d.Amount, currency)
		resp.Amount = &s
	}
	return resp
}

type ConfirmRequest struct {
	Date   string `json:"date"`
	Amount string `json:"amount,omitempty"`
	Memo   string `json:"memo,omitempty"`
}

type ConfirmBulkRequest struct {
	Items []ConfirmRequest `json:"items"`
}

type SkipRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type DraftRequest struct {
	Date   string `json:"date"`
	Amount string `json:"amount,omitempty"`
	Memo   string `json:"memo,omitempty"`
}

type SettleRequest struct {
	Date            string `json:"date,omitempty"`
	Memo            string `json:"memo,omitempty"`
	CreateCardEntry bool   `json:"create_card_entry,omitempty"`
}

type StatementResponse struct {
	ID                      int64  `json:"id"`
	OwnerID                 int64  `json:"owner_id"`
	AccountID               int64  `json:"account_id"`
	PeriodStart             string `json:"period_start"`
	PeriodEnd               string `json:"period_end"`
	DueDate                 string `json:"due_date"`
	TotalAmount             string `json:"total_amount"`
	Currency                string `json:"currency"`
	Status                  string `json:"status"`
	SettlementTransactionID *int64 `json:"settlement_transaction_id,omitempty"`
}

func statementResponse(s *domain.CreditCardStatement, currency string) *StatementResponse {
	return &StatementResponse{
		ID:                      s.ID,
		OwnerID:                 s.OwnerID,
		AccountID:               s.AccountID,
		PeriodStart:             s.PeriodStart.String(),
		PeriodEnd:               s.PeriodEnd.String(),
		DueDate:                 s.DueDate.String(),
		TotalAmount:             domain.FormatAmount(s.TotalAmount, currency),
		Currency:                currency,
		Status:                  string(s.Status),
		SettlementTransactionID: s.SettlementTransactionID,
	}
}
