package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
)

// Memory is an in-process Store with the same semantics as the Postgres
// implementation: every unit of work sees a private copy of the data and
// publishes it atomically on Commit. It backs the engine tests and the
// demo mode of cmd/api.
type Memory struct {
	mu sync.Mutex
	db *memDB
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{db: newMemDB()}
}

// Begin locks the store and hands out a unit of work over a deep copy.
// The lock models the single-writer-per-unit-of-work assumption.
func (m *Memory) Begin(ctx context.Context) (UnitOfWork, error) {
	m.mu.Lock()
	return &memUow{owner: m, db: m.db.clone()}, nil
}

type memDB struct {
	accounts   map[int64]*domain.Account
	txns       map[int64]*domain.Transaction
	groups     map[string]bool
	rules      map[int64]*domain.RecurringRule
	drafts     map[int64]*domain.OccurrenceDraft
	skips      map[int64]*domain.OccurrenceSkip
	statements map[int64]*domain.CreditCardStatement
	nextID     int64
}

func newMemDB() *memDB {
	return &memDB{
		accounts:   map[int64]*domain.Account{},
		txns:       map[int64]*domain.Transaction{},
		groups:     map[string]bool{},
		rules:      map[int64]*domain.RecurringRule{},
		drafts:     map[int64]*domain.OccurrenceDraft{},
		skips:      map[int64]*domain.OccurrenceSkip{},
		statements: map[int64]*domain.CreditCardStatement{},
	}
}

func (d *memDB) clone() *memDB {
	c := newMemDB()
	c.nextID = d.nextID
	for id, a := range d.accounts {
		c.accounts[id] = cloneAccount(a)
	}
	for id, t := range d.txns {
		c.txns[id] = cloneTxn(t)
	}
	for id := range d.groups {
		c.groups[id] = true
	}
	for id, r := range d.rules {
		c.rules[id] = cloneRule(r)
	}
	for id, dr := range d.drafts {
		c.drafts[id] = cloneDraft(dr)
	}
	for id, s := range d.skips {
		c.skips[id] = cloneSkip(s)
	}
	for id, s := range d.statements {
		c.statements[id] = cloneStatement(s)
	}
	return c
}

func (d *memDB) id() int64 {
	d.nextID++
	return d.nextID
}

func i64p(v int64) *int64 { return &v }

func cloneI64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	return i64p(*p)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDate(p *date.Date) *date.Date {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTOD(p *date.TimeOfDay) *date.TimeOfDay {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	c.LinkedAccountID = cloneI64(a.LinkedAccountID)
	c.BillingCutoffDay = cloneInt(a.BillingCutoffDay)
	c.PaymentDay = cloneInt(a.PaymentDay)
	return &c
}

func cloneTxn(t *domain.Transaction) *domain.Transaction {
	c := *t
	c.TimeOfDay = cloneTOD(t.TimeOfDay)
	c.GroupID = cloneStr(t.GroupID)
	c.CounterAccountID = cloneI64(t.CounterAccountID)
	c.CardID = cloneI64(t.CardID)
	c.CategoryID = cloneI64(t.CategoryID)
	c.ExternalKey = cloneStr(t.ExternalKey)
	c.ImportSource = cloneStr(t.ImportSource)
	c.LinkedTransactionID = cloneI64(t.LinkedTransactionID)
	c.BillingCycleID = cloneI64(t.BillingCycleID)
	return &c
}

func cloneRule(r *domain.RecurringRule) *domain.RecurringRule {
	c := *r
	c.DayOfMonth = cloneInt(r.DayOfMonth)
	c.Weekday = cloneInt(r.Weekday)
	c.Amount = cloneI64(r.Amount)
	c.CounterAccountID = cloneI64(r.CounterAccountID)
	c.CategoryID = cloneI64(r.CategoryID)
	c.StartDate = cloneDate(r.StartDate)
	c.EndDate = cloneDate(r.EndDate)
	c.LastGeneratedAt = cloneDate(r.LastGeneratedAt)
	return &c
}

func cloneDraft(d *domain.OccurrenceDraft) *domain.OccurrenceDraft {
	c := *d
	c.Amount = cloneI64(d.Amount)
	return &c
}

func cloneSkip(s *domain.OccurrenceSkip) *domain.OccurrenceSkip {
	c := *s
	return &c
}

func cloneStatement(s *domain.CreditCardStatement) *domain.CreditCardStatement {
	c := *s
	c.SettlementTransactionID = cloneI64(s.SettlementTransactionID)
	return &c
}

type memUow struct {
	owner *Memory
	db    *memDB
	done  bool
}

func (u *memUow) Commit(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.owner.db = u.db
	u.done = true
	u.owner.mu.Unlock()
	return nil
}

func (u *memUow) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.owner.mu.Unlock()
	return nil
}

func (u *memUow) Accounts() AccountRepo             { return memAccounts{u.db} }
func (u *memUow) Transactions() TransactionRepo     { return memTxns{u.db} }
func (u *memUow) TransferGroups() TransferGroupRepo { return memGroups{u.db} }
func (u *memUow) Rules() RecurringRuleRepo          { return memRules{u.db} }
func (u *memUow) Drafts() OccurrenceDraftRepo       { return memDrafts{u.db} }
func (u *memUow) Skips() OccurrenceSkipRepo         { return memSkips{u.db} }
func (u *memUow) Statements() StatementRepo         { return memStatements{u.db} }

type memAccounts struct{ db *memDB }

func (r memAccounts) Get(ctx context.Context, id int64) (*domain.Account, error) {
	a, ok := r.db.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (r memAccounts) FindByName(ctx context.Context, ownerID int64, name string) (*domain.Account, error) {
	for _, a := range r.db.accounts {
		if a.OwnerID == ownerID && a.Name == name {
			return a, nil
		}
	}
	return nil, nil
}

func (r memAccounts) Insert(ctx context.Context, a *domain.Account) error {
	for _, other := range r.db.accounts {
		if other.OwnerID == a.OwnerID && other.Name == a.Name {
			return fmt.Errorf("account name %q: %w", a.Name, ErrConflict)
		}
	}
	a.ID = r.db.id()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.db.accounts[a.ID] = a
	return nil
}

func (r memAccounts) Update(ctx context.Context, a *domain.Account) error {
	if _, ok := r.db.accounts[a.ID]; !ok {
		return fmt.Errorf("account %d: %w", a.ID, ErrNotFound)
	}
	a.UpdatedAt = time.Now()
	r.db.accounts[a.ID] = a
	return nil
}

type memTxns struct{ db *memDB }

func (r memTxns) Get(ctx context.Context, id int64) (*domain.Transaction, error) {
	t, ok := r.db.txns[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	return t, nil
}

func (r memTxns) checkUnique(t *domain.Transaction) error {
	for _, other := range r.db.txns {
		if other.ID == t.ID {
			continue
		}
		if t.ExternalKey != nil && other.ExternalKey != nil &&
			other.OwnerID == t.OwnerID && *other.ExternalKey == *t.ExternalKey {
			return fmt.Errorf("external key %q: %w", *t.ExternalKey, ErrConflict)
		}
		if t.LinkedTransactionID != nil && other.LinkedTransactionID != nil &&
			*other.LinkedTransactionID == *t.LinkedTransactionID {
			return fmt.Errorf("linked transaction %d: %w", *t.LinkedTransactionID, ErrConflict)
		}
	}
	return nil
}

func (r memTxns) Insert(ctx context.Context, t *domain.Transaction) error {
	if err := r.checkUnique(t); err != nil {
		return err
	}
	t.ID = r.db.id()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.db.txns[t.ID] = t
	return nil
}

func (r memTxns) Update(ctx context.Context, t *domain.Transaction) error {
	if _, ok := r.db.txns[t.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, ErrNotFound)
	}
	if err := r.checkUnique(t); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	r.db.txns[t.ID] = t
	return nil
}

func (r memTxns) Delete(ctx context.Context, id int64) error {
	if _, ok := r.db.txns[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	delete(r.db.txns, id)
	return nil
}

func (r memTxns) FindByExternalKey(ctx context.Context, ownerID int64, key string) (*domain.Transaction, error) {
	for _, t := range r.db.txns {
		if t.OwnerID == ownerID && t.ExternalKey != nil && *t.ExternalKey == key {
			return t, nil
		}
	}
	return nil, nil
}

func (r memTxns) ListByExternalKeys(ctx context.Context, ownerID int64, keys []string) ([]*domain.Transaction, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	var out []*domain.Transaction
	for _, t := range r.db.txns {
		if t.OwnerID == ownerID && t.ExternalKey != nil && want[*t.ExternalKey] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTxns) ListByGroup(ctx context.Context, groupID string) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for _, t := range r.db.txns {
		if t.GroupID != nil && *t.GroupID == groupID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTxns) FindLinkedTo(ctx context.Context, id int64) (*domain.Transaction, error) {
	for _, t := range r.db.txns {
		if t.LinkedTransactionID != nil && *t.LinkedTransactionID == id {
			return t, nil
		}
	}
	return nil, nil
}

func (r memTxns) ListForMatch(ctx context.Context, ownerID int64, on date.Date, currency string, kinds []domain.TxnKind) ([]*domain.Transaction, error) {
	kindSet := make(map[domain.TxnKind]bool, len(kinds))
	for _, k := range kinds {
		kindSet[k] = true
	}
	currency = domain.NormalizeCurrency(currency)
	var out []*domain.Transaction
	for _, t := range r.db.txns {
		if t.OwnerID == ownerID && t.Date == on && kindSet[t.Kind] &&
			domain.NormalizeCurrency(t.Currency) == currency {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r memTxns) ExistsNatural(ctx context.Context, key NaturalKey) (bool, error) {
	currency := domain.NormalizeCurrency(key.Currency)
	for _, t := range r.db.txns {
		if t.OwnerID != key.OwnerID || t.Kind != key.Kind || t.Date != key.Date {
			continue
		}
		if domain.NormalizeCurrency(t.Currency) != currency {
			continue
		}
		if t.AccountID != key.AccountID &&
			(t.CounterAccountID == nil || *t.CounterAccountID != key.AccountID) {
			continue
		}
		if key.TimeOfDay != nil {
			if t.TimeOfDay == nil || *t.TimeOfDay != *key.TimeOfDay {
				continue
			}
		}
		if t.Amount == key.AbsAmount || t.Amount == -key.AbsAmount {
			return true, nil
		}
	}
	return false, nil
}

func (r memTxns) SumAmountByCycleStatus(ctx context.Context, cycleID int64, status domain.TxnStatus) (int64, error) {
	var sum int64
	for _, t := range r.db.txns {
		if t.BillingCycleID != nil && *t.BillingCycleID == cycleID && t.Status == status {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (r memTxns) SetStatusByCycle(ctx context.Context, cycleID int64, from, to domain.TxnStatus) (int64, error) {
	var n int64
	for _, t := range r.db.txns {
		if t.BillingCycleID != nil && *t.BillingCycleID == cycleID && t.Status == from {
			t.Status = to
			n++
		}
	}
	return n, nil
}

type memGroups struct{ db *memDB }

func (r memGroups) Insert(ctx context.Context, id string) error {
	if r.db.groups[id] {
		return fmt.Errorf("transfer group %s: %w", id, ErrConflict)
	}
	r.db.groups[id] = true
	return nil
}

func (r memGroups) Delete(ctx context.Context, id string) error {
	delete(r.db.groups, id)
	return nil
}

type memRules struct{ db *memDB }

func (r memRules) Get(ctx context.Context, id int64) (*domain.RecurringRule, error) {
	rule, ok := r.db.rules[id]
	if !ok {
		return nil, fmt.Errorf("recurring rule %d: %w", id, ErrNotFound)
	}
	return rule, nil
}

func (r memRules) Insert(ctx context.Context, rule *domain.RecurringRule) error {
	for _, other := range r.db.rules {
		if other.OwnerID == rule.OwnerID && other.Name == rule.Name {
			return fmt.Errorf("rule name %q: %w", rule.Name, ErrConflict)
		}
	}
	rule.ID = r.db.id()
	r.db.rules[rule.ID] = rule
	return nil
}

func (r memRules) Update(ctx context.Context, rule *domain.RecurringRule) error {
	if _, ok := r.db.rules[rule.ID]; !ok {
		return fmt.Errorf("recurring rule %d: %w", rule.ID, ErrNotFound)
	}
	r.db.rules[rule.ID] = rule
	return nil
}

type memDrafts struct{ db *memDB }

func (r memDrafts) Find(ctx context.Context, ruleID int64, on date.Date) (*domain.OccurrenceDraft, error) {
	for _, d := range r.db.drafts {
		if d.RuleID == ruleID && d.Date == on {
			return d, nil
		}
	}
	return nil, nil
}

func (r memDrafts) Upsert(ctx context.Context, d *domain.OccurrenceDraft) error {
	if existing, _ := r.Find(ctx, d.RuleID, d.Date); existing != nil {
		d.ID = existing.ID
		r.db.drafts[d.ID] = d
		return nil
	}
	d.ID = r.db.id()
	r.db.drafts[d.ID] = d
	return nil
}

func (r memDrafts) Delete(ctx context.Context, ruleID int64, on date.Date) error {
	for id, d := range r.db.drafts {
		if d.RuleID == ruleID && d.Date == on {
			delete(r.db.drafts, id)
		}
	}
	return nil
}

type memSkips struct{ db *memDB }

func (r memSkips) Find(ctx context.Context, ruleID int64, on date.Date) (*domain.OccurrenceSkip, error) {
	for _, s := range r.db.skips {
		if s.RuleID == ruleID && s.Date == on {
			return s, nil
		}
	}
	return nil, nil
}

func (r memSkips) ListDates(ctx context.Context, ruleID int64) ([]date.Date, error) {
	var out []date.Date
	for _, s := range r.db.skips {
		if s.RuleID == ruleID {
			out = append(out, s.Date)
		}
	}
	return out, nil
}

func (r memSkips) Insert(ctx context.Context, s *domain.OccurrenceSkip) error {
	if existing, _ := r.Find(ctx, s.RuleID, s.Date); existing != nil {
		return fmt.Errorf("skip for rule %d on %s: %w", s.RuleID, s.Date, ErrConflict)
	}
	s.ID = r.db.id()
	r.db.skips[s.ID] = s
	return nil
}

func (r memSkips) Delete(ctx context.Context, ruleID int64, on date.Date) error {
	for id, s := range r.db.skips {
		if s.RuleID == ruleID && s.Date == on {
			delete(r.db.skips, id)
			return nil
		}
	}
	return fmt.Errorf("skip for rule %d on %s: %w", ruleID, on, ErrNotFound)
}

type memStatements struct{ db *memDB }

func (r memStatements) Get(ctx context.Context, id int64) (*domain.CreditCardStatement, error) {
	s, ok := r.db.statements[id]
	if !ok {
		return nil, fmt.Errorf("statement %d: %w", id, ErrNotFound)
	}
	return s, nil
}

func (r memStatements) FindByPeriod(ctx context.Context, accountID int64, start, end date.Date) (*domain.CreditCardStatement, error) {
	for _, s := range r.db.statements {
		if s.AccountID == accountID && s.PeriodStart == start && s.PeriodEnd == end {
			return s, nil
		}
	}
	return nil, nil
}

func (r memStatements) ListPendingEndingBefore(ctx context.Context, accountID int64, before date.Date) ([]*domain.CreditCardStatement, error) {
	var out []*domain.CreditCardStatement
	for _, s := range r.db.statements {
		if s.AccountID == accountID && s.Status == domain.StatementPending && s.PeriodEnd.Before(before) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r memStatements) Insert(ctx context.Context, s *domain.CreditCardStatement) error {
	s.ID = r.db.id()
	r.db.statements[s.ID] = s
	return nil
}

func (r memStatements) Update(ctx context.Context, s *domain.CreditCardStatement) error {
	if _, ok := r.db.statements[s.ID]; !ok {
		return fmt.Errorf("statement %d: %w", s.ID, ErrNotFound)
	}
	r.db.statements[s.ID] = s
	return nil
}
