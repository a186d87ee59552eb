package service

import "errors"

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for rejected input before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a mutation collides with existing state.
	ErrConflict = errors.New("conflict")

	// ErrStatementSettled is returned on a settle attempt against a paid
	// statement.
	ErrStatementSettled = errors.New("statement already settled")
	// ErrNoOutstanding is returned when a settlement finds nothing to pay.
	ErrNoOutstanding = errors.New("statement has no outstanding amount")
	// ErrCurrencyMismatch is returned when a card and its linked account
	// disagree on currency.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrInactiveRule is returned for operations on a deactivated rule.
	ErrInactiveRule = errors.New("recurring rule is inactive")
	// ErrVariableRule is returned when fixed-amount generation is called on
	// a variable-amount rule.
	ErrVariableRule = errors.New("rule has a variable amount")
	// ErrNotVariableRule is returned when the variable lifecycle is used on
	// a fixed-amount rule.
	ErrNotVariableRule = errors.New("rule does not have a variable amount")
	// ErrScheduleMismatch is returned when a date does not land on the
	// rule's schedule.
	ErrScheduleMismatch = errors.New("date is not on the rule schedule")
	// ErrOccurrenceTaken is returned when an occurrence date already has a
	// transaction or a skip.
	ErrOccurrenceTaken = errors.New("occurrence already taken")
)
