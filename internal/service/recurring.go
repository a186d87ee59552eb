package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dayoonc/finbook/internal/date"
	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// PendingLookbackDays bounds how far back pending occurrences of a variable
// rule are surfaced.
const PendingLookbackDays = 120

// resolveWindowDays bounds how far ResolveOccurrenceDate searches around a
// desired date.
const resolveWindowDays = 7

// Scheduler turns recurring rules into concrete transactions: deterministic
// occurrence dates per frequency, idempotent fixed-amount generation, and
// the draft/skip/confirm lifecycle for variable-amount rules.
type Scheduler struct {
	store  store.Store
	writer *TxWriter
	log    zerolog.Logger
}

func NewScheduler(st store.Store, writer *TxWriter, log zerolog.Logger) *Scheduler {
	return &Scheduler{store: st, writer: writer, log: log}
}

// CreateRule validates and persists a schedule rule. Non-variable rules need
// a positive amount; variable rules must not be transfers; weekly and
// monthly rules need their anchor field.
func (s *Scheduler) CreateRule(ctx context.Context, rule *domain.RecurringRule) (*domain.RecurringRule, error) {
	if rule.Name == "" {
		return nil, fmt.Errorf("rule name is required: %w", ErrValidation)
	}
	if rule.VariableAmount {
		if rule.Kind == domain.TxnTransfer {
			return nil, fmt.Errorf("variable rules cannot be transfers: %w", ErrValidation)
		}
	} else if rule.Amount == nil || *rule.Amount <= 0 {
		return nil, fmt.Errorf("fixed rules need a positive amount: %w", ErrValidation)
	}
	switch rule.Frequency {
	case domain.FreqDaily:
	case domain.FreqWeekly:
		if rule.Weekday == nil || *rule.Weekday < 0 || *rule.Weekday > 6 {
			return nil, fmt.Errorf("weekly rules need a weekday 0-6: %w", ErrValidation)
		}
	case domain.FreqMonthly:
		if rule.DayOfMonth == nil || *rule.DayOfMonth < 1 || *rule.DayOfMonth > 31 {
			return nil, fmt.Errorf("monthly rules need a day 1-31: %w", ErrValidation)
		}
	case domain.FreqYearly:
		if rule.StartDate == nil {
			return nil, fmt.Errorf("yearly rules need a start date: %w", ErrValidation)
		}
	default:
		return nil, fmt.Errorf("unknown frequency %q: %w", rule.Frequency, ErrValidation)
	}
	if rule.StartDate != nil && rule.EndDate != nil && rule.EndDate.Before(*rule.StartDate) {
		return nil, fmt.Errorf("rule end precedes start: %w", ErrValidation)
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)
	if _, err := uow.Accounts().Get(ctx, rule.AccountID); err != nil {
		return nil, fmt.Errorf("account %d: %w", rule.AccountID, err)
	}
	if err := uow.Rules().Insert(ctx, rule); err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info().Int64("rule_id", rule.ID).Str("frequency", string(rule.Frequency)).Msg("recurring rule created")
	return rule, nil
}

// GetRule loads one rule.
func (s *Scheduler) GetRule(ctx context.Context, ruleID int64) (*domain.RecurringRule, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)
	rule, err := uow.Rules().Get(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, err)
	}
	return rule, nil
}

// OccurrenceKey is the deterministic idempotency key for one occurrence of a
// rule. Generation and confirmation both go through it, which is what makes
// them idempotent and mutually exclusive.
func OccurrenceKey(ruleID int64, on date.Date) string {
	return fmt.Sprintf("rule-%d-%s", ruleID, on)
}

// Occurrences lists the rule's scheduled dates inside [start, end], after
// intersecting the window with the rule's own validity window.
//
//   - daily: every date.
//   - weekly: the declared weekday, stepping by 7 days.
//   - monthly: the declared day-of-month, clamped to each month's length.
//   - yearly: the start date's month with its day (or the declared
//     day-of-month when set), clamped per year.
func Occurrences(rule *domain.RecurringRule, start, end date.Date) []date.Date {
	if rule.StartDate != nil && start.Before(*rule.StartDate) {
		start = *rule.StartDate
	}
	if rule.EndDate != nil && end.After(*rule.EndDate) {
		end = *rule.EndDate
	}
	if end.Before(start) {
		return nil
	}

	var out []date.Date
	switch rule.Frequency {
	case domain.FreqDaily:
		for d := start; !d.After(end); d = d.Add(1) {
			out = append(out, d)
		}

	case domain.FreqWeekly:
		if rule.Weekday == nil {
			return nil
		}
		d := start
		for d.Weekday() != *rule.Weekday && !d.After(end) {
			d = d.Add(1)
		}
		for ; !d.After(end); d = d.Add(7) {
			out = append(out, d)
		}

	case domain.FreqMonthly:
		if rule.DayOfMonth == nil {
			return nil
		}
		d := date.Clamped(start.Year(), start.Month(), *rule.DayOfMonth)
		if d.Before(start) {
			next := d.AddMonths(1)
			d = date.Clamped(next.Year(), next.Month(), *rule.DayOfMonth)
		}
		for !d.After(end) {
			out = append(out, d)
			next := d.AddMonths(1)
			d = date.Clamped(next.Year(), next.Month(), *rule.DayOfMonth)
		}

	case domain.FreqYearly:
		anchor := start
		if rule.StartDate != nil {
			anchor = *rule.StartDate
		}
		m, day := anchor.Month(), anchor.Day()
		if rule.DayOfMonth != nil {
			day = *rule.DayOfMonth
		}
		d := date.Clamped(start.Year(), m, day)
		if d.Before(start) {
			d = date.Clamped(start.Year()+1, m, day)
		}
		for ; !d.After(end); d = date.Clamped(d.Year()+1, m, day) {
			out = append(out, d)
		}
	}
	return out
}

// Generate produces the rule's transactions for a date window. Occurrences
// whose key already exists come back unchanged, so calling twice over the
// same range is a no-op. Variable-amount rules cannot be generated.
func (s *Scheduler) Generate(ctx context.Context, ruleID int64, start, end date.Date) ([]*domain.Transaction, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	rule, err := uow.Rules().Get(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, err)
	}
	if !rule.Active {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrInactiveRule)
	}
	if rule.VariableAmount {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrVariableRule)
	}
	if rule.Amount == nil || *rule.Amount <= 0 {
		return nil, fmt.Errorf("rule %d needs a positive amount: %w", ruleID, ErrValidation)
	}

	var produced []*domain.Transaction
	var latest date.Date
	for _, on := range Occurrences(rule, start, end) {
		row, err := s.materialize(ctx, uow, rule, on, *rule.Amount, rule.Memo)
		if err != nil {
			return nil, err
		}
		produced = append(produced, row)
		if latest.IsZero() || on.After(latest) {
			latest = on
		}
	}

	if !latest.IsZero() && (rule.LastGeneratedAt == nil || latest.After(*rule.LastGeneratedAt)) {
		rule.LastGeneratedAt = &latest
		if err := uow.Rules().Update(ctx, rule); err != nil {
			return nil, fmt.Errorf("advance watermark: %w", err)
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info().Int64("rule_id", ruleID).Int("occurrences", len(produced)).Msg("occurrences generated")
	return produced, nil
}

// materialize creates (or returns) the transaction for one occurrence. The
// stored amount is signed: expenses negative, everything else positive.
func (s *Scheduler) materialize(ctx context.Context, uow store.UnitOfWork, rule *domain.RecurringRule, on date.Date, magnitude int64, memo string) (*domain.Transaction, error) {
	amount := magnitude
	if rule.Kind == domain.TxnExpense {
		amount = -magnitude
	}
	if memo == "" {
		memo = rule.Name
	}
	c := &domain.Candidate{
		OwnerID:          rule.OwnerID,
		Date:             on,
		Kind:             rule.Kind,
		AccountID:        &rule.AccountID,
		CounterAccountID: rule.CounterAccountID,
		CategoryID:       rule.CategoryID,
		Amount:           amount,
		Currency:         rule.Currency,
		Memo:             memo,
		ExternalKey:      OccurrenceKey(rule.ID, on),
	}
	return s.writer.Create(ctx, uow, c, false)
}

// PendingOccurrences lists the variable rule's scheduled dates in the
// lookback window up to asOf that have neither a confirmed transaction nor a
// skip.
func (s *Scheduler) PendingOccurrences(ctx context.Context, ruleID int64, asOf date.Date) ([]date.Date, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	rule, err := uow.Rules().Get(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, err)
	}
	if !rule.VariableAmount {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrNotVariableRule)
	}
	if !rule.Active {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrInactiveRule)
	}

	scheduled := Occurrences(rule, asOf.Add(-PendingLookbackDays), asOf)
	if len(scheduled) == 0 {
		return nil, nil
	}

	keys := make([]string, len(scheduled))
	for i, on := range scheduled {
		keys[i] = OccurrenceKey(rule.ID, on)
	}
	confirmed, err := uow.Transactions().ListByExternalKeys(ctx, rule.OwnerID, keys)
	if err != nil {
		return nil, fmt.Errorf("list confirmed: %w", err)
	}
	taken := make(map[string]bool, len(confirmed))
	for _, t := range confirmed {
		if t.ExternalKey != nil {
			taken[*t.ExternalKey] = true
		}
	}
	skips, err := uow.Skips().ListDates(ctx, rule.ID)
	if err != nil {
		return nil, fmt.Errorf("list skips: %w", err)
	}
	skipped := make(map[date.Date]bool, len(skips))
	for _, d := range skips {
		skipped[d] = true
	}

	var pending []date.Date
	for _, on := range scheduled {
		if taken[OccurrenceKey(rule.ID, on)] || skipped[on] {
			continue
		}
		pending = append(pending, on)
	}
	return pending, nil
}

// Confirm materializes one occurrence of a variable rule with a supplied
// amount and memo, falling back to the date's draft. The date must lie
// inside the rule's validity window, must not be in the future, and must
// land exactly on the schedule. Confirming an already-confirmed date is
// idempotent and returns the existing transaction.
func (s *Scheduler) Confirm(ctx context.Context, ruleID int64, on date.Date, amount *int64, memo string) (*domain.Transaction, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	rule, err := uow.Rules().Get(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, err)
	}
	if !rule.VariableAmount {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrNotVariableRule)
	}
	if !rule.Active {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrInactiveRule)
	}
	if rule.StartDate != nil && on.Before(*rule.StartDate) {
		return nil, fmt.Errorf("date %s precedes rule start: %w", on, ErrValidation)
	}
	if rule.EndDate != nil && on.After(*rule.EndDate) {
		return nil, fmt.Errorf("date %s exceeds rule end: %w", on, ErrValidation)
	}
	if on.After(date.Today()) {
		return nil, fmt.Errorf("date %s is in the future: %w", on, ErrValidation)
	}
	if !onSchedule(rule, on) {
		return nil, fmt.Errorf("date %s: %w", on, ErrScheduleMismatch)
	}

	existing, err := uow.Transactions().FindByExternalKey(ctx, rule.OwnerID, OccurrenceKey(rule.ID, on))
	if err != nil {
		return nil, fmt.Errorf("occurrence lookup: %w", err)
	}
	if existing != nil {
		// Idempotent: an already-confirmed date hands back its
		// transaction, consuming any leftover draft on the way.
		if draft, err := uow.Drafts().Find(ctx, rule.ID, on); err != nil {
			return nil, fmt.Errorf("draft lookup: %w", err)
		} else if draft != nil {
			if err := uow.Drafts().Delete(ctx, rule.ID, on); err != nil {
				return nil, fmt.Errorf("delete draft: %w", err)
			}
		}
		if rule.LastGeneratedAt == nil || on.After(*rule.LastGeneratedAt) {
			rule.LastGeneratedAt = &on
			if err := uow.Rules().Update(ctx, rule); err != nil {
				return nil, fmt.Errorf("advance watermark: %w", err)
			}
		}
		if err := uow.Commit(ctx); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if skip, err := uow.Skips().Find(ctx, rule.ID, on); err != nil {
		return nil, fmt.Errorf("skip lookup: %w", err)
	} else if skip != nil {
		return nil, fmt.Errorf("date %s is skipped: %w", on, ErrOccurrenceTaken)
	}

	draft, err := uow.Drafts().Find(ctx, rule.ID, on)
	if err != nil {
		return nil, fmt.Errorf("draft lookup: %w", err)
	}
	if amount == nil && draft != nil {
		amount = draft.Amount
	}
	if amount == nil || *amount <= 0 {
		return nil, fmt.Errorf("confirmation needs a positive amount: %w", ErrValidation)
	}
	if memo == "" && draft != nil {
		memo = draft.Memo
	}

	row, err := s.materialize(ctx, uow, rule, on, *amount, memo)
	if err != nil {
		return nil, err
	}
	if draft != nil {
		if err := uow.Drafts().Delete(ctx, rule.ID, on); err != nil {
			return nil, fmt.Errorf("delete draft: %w", err)
		}
	}
	if rule.LastGeneratedAt == nil || on.After(*rule.LastGeneratedAt) {
		rule.LastGeneratedAt = &on
		if err := uow.Rules().Update(ctx, rule); err != nil {
			return nil, fmt.Errorf("advance watermark: %w", err)
		}
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return row, nil
}

// ConfirmItem is one entry of a bulk confirmation.
type ConfirmItem struct {
	Date   date.Date `json:"date"`
	Amount *int64    `json:"amount"`
	Memo   string    `json:"memo"`
}

// ConfirmFailure records one bulk-confirmation item that did not go through.
type ConfirmFailure struct {
	Date  date.Date `json:"date"`
	Error string    `json:"error"`
}

// BulkConfirmResult separates successes from per-item failures.
type BulkConfirmResult struct {
	Confirmed []*domain.Transaction `json:"confirmed"`
	Failures  []ConfirmFailure      `json:"failures"`
}

// ConfirmBulk confirms each item in its own unit of work so one bad item
// does not abort the batch.
func (s *Scheduler) ConfirmBulk(ctx context.Context, ruleID int64, items []ConfirmItem) *BulkConfirmResult {
	result := &BulkConfirmResult{}
	for _, item := range items {
		row, err := s.Confirm(ctx, ruleID, item.Date, item.Amount, item.Memo)
		if err != nil {
			result.Failures = append(result.Failures, ConfirmFailure{Date: item.Date, Error: err.Error()})
			continue
		}
		result.Confirmed = append(result.Confirmed, row)
	}
	return result
}

// Skip marks a scheduled date as intentionally not generated. The date must
// be a real occurrence with no existing transaction; an existing skip for
// the same date is accepted unchanged.
func (s *Scheduler) Skip(ctx context.Context, ruleID int64, on date.Date, reason string) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)

	rule, err := uow.Rules().Get(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("rule %d: %w", ruleID, err)
	}
	if !onSchedule(rule, on) {
		return fmt.Errorf("date %s: %w", on, ErrScheduleMismatch)
	}
	if existing, err := uow.Transactions().FindByExternalKey(ctx, rule.OwnerID, OccurrenceKey(rule.ID, on)); err != nil {
		return fmt.Errorf("occurrence lookup: %w", err)
	} else if existing != nil {
		return fmt.Errorf("date %s already has a transaction: %w", on, ErrOccurrenceTaken)
	}
	if skip, err := uow.Skips().Find(ctx, rule.ID, on); err != nil {
		return fmt.Errorf("skip lookup: %w", err)
	} else if skip != nil {
		return nil
	}

	if err := uow.Skips().Insert(ctx, &domain.OccurrenceSkip{
		RuleID:  rule.ID,
		OwnerID: rule.OwnerID,
		Date:    on,
		Reason:  reason,
	}); err != nil {
		return fmt.Errorf("insert skip: %w", err)
	}
	return uow.Commit(ctx)
}

// Unskip removes a skip so the date shows up as pending again.
func (s *Scheduler) Unskip(ctx context.Context, ruleID int64, on date.Date) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)
	if err := uow.Skips().Delete(ctx, ruleID, on); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// SetDraft stores a proposed amount/memo for a scheduled date of a variable
// rule, replacing any earlier draft for the same date.
func (s *Scheduler) SetDraft(ctx context.Context, ruleID int64, on date.Date, amount *int64, memo string) (*domain.OccurrenceDraft, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	rule, err := uow.Rules().Get(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", ruleID, err)
	}
	if !rule.VariableAmount {
		return nil, fmt.Errorf("rule %d: %w", ruleID, ErrNotVariableRule)
	}
	if !onSchedule(rule, on) {
		return nil, fmt.Errorf("date %s: %w", on, ErrScheduleMismatch)
	}
	if amount != nil && *amount <= 0 {
		return nil, fmt.Errorf("draft amount must be positive: %w", ErrValidation)
	}

	draft := &domain.OccurrenceDraft{
		RuleID:  rule.ID,
		OwnerID: rule.OwnerID,
		Date:    on,
		Amount:  amount,
		Memo:    memo,
	}
	if err := uow.Drafts().Upsert(ctx, draft); err != nil {
		return nil, fmt.Errorf("upsert draft: %w", err)
	}
	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}
	return draft, nil
}

// DeleteDraft discards the draft for one date.
func (s *Scheduler) DeleteDraft(ctx context.Context, ruleID int64, on date.Date) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer uow.Rollback(ctx)
	if err := uow.Drafts().Delete(ctx, ruleID, on); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

// ResolveOccurrenceDate snaps a desired date to the nearest scheduled
// occurrence within a week on either side. Earlier dates win ties.
func ResolveOccurrenceDate(rule *domain.RecurringRule, desired date.Date) (date.Date, bool) {
	occs := Occurrences(rule, desired.Add(-resolveWindowDays), desired.Add(resolveWindowDays))
	var best date.Date
	bestDiff := resolveWindowDays + 1
	for _, on := range occs {
		diff := on.Sub(desired)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = on, diff
		}
	}
	return best, bestDiff <= resolveWindowDays
}

// onSchedule reports whether the date is one of the rule's occurrences.
func onSchedule(rule *domain.RecurringRule, on date.Date) bool {
	for _, d := range Occurrences(rule, on, on) {
		if d == on {
			return true
		}
	}
	return false
}
