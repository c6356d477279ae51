package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrFiscalYearClosed indicates a posting against a closed fiscal year.
	ErrFiscalYearClosed = errors.New("ledger: fiscal year is closed")
	// ErrTenantMismatch indicates a referenced record belongs to another tenant.
	ErrTenantMismatch = errors.New("ledger: record does not belong to tenant")
	// ErrAccountBusy indicates a concurrent reconciliation run holds the account.
	ErrAccountBusy = errors.New("recon: bank account is locked by another run")
)

// ValidationError reports malformed or unbalanced posting input.
// Difference carries the debit-credit gap for unbalanced vouchers.
type ValidationError struct {
	Field      string
	Difference decimal.Decimal
	Msg        string
}

func (e *ValidationError) Error() string {
	if !e.Difference.IsZero() {
		return fmt.Sprintf("ledger: %s (difference %s)", e.Msg, e.Difference.StringFixed(2))
	}
	if e.Field != "" {
		return fmt.Sprintf("ledger: %s: %s", e.Field, e.Msg)
	}
	return "ledger: " + e.Msg
}

// StructuralError reports a corrupt chart-of-accounts hierarchy.
// Report generation for the affected tenant must halt when one is raised.
type StructuralError struct {
	GroupID int64
	Msg     string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("ledger: chart of accounts group %d: %s", e.GroupID, e.Msg)
}

// StateError reports an illegal voucher status transition.
type StateError struct {
	From string
	To   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("ledger: invalid transition %s -> %s", e.From, e.To)
}

// ConflictError reports a duplicate match or duplicate natural key.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string {
	return "ledger: conflict: " + e.Msg
}

// IntegrityError reports trial balance totals that do not agree.
// It means the posting invariant was violated somewhere upstream, so it
// must be logged at the highest severity and surfaced, never swallowed.
type IntegrityError struct {
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ledger: trial balance out of balance: debit %s credit %s",
		e.TotalDebit.StringFixed(2), e.TotalCredit.StringFixed(2))
}
