package recon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/shared"
)

// ImportLine is one statement row as supplied by the caller.
type ImportLine struct {
	Date        time.Time
	Description string
	ReferenceNo string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// Key is the natural identity of a statement line. Re-importing an
// overlapping statement produces identical keys, which is how duplicate
// lines are skipped.
func (l ImportLine) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		l.Date.Format("2006-01-02"), l.Description, l.ReferenceNo,
		l.Debit.StringFixed(2), l.Credit.StringFixed(2))
}

func (l ImportLine) Validate() error {
	if l.Date.IsZero() {
		return &shared.ValidationError{Field: "date", Msg: "date is required"}
	}
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return &shared.ValidationError{Field: "amount", Msg: "amounts must not be negative"}
	}
	debitSet := !shared.AmountIsZero(l.Debit)
	creditSet := !shared.AmountIsZero(l.Credit)
	if debitSet == creditSet {
		return &shared.ValidationError{Field: "amount", Msg: "exactly one of debit and credit must be set"}
	}
	return nil
}

// ImportResult reports what a statement import actually did.
type ImportResult struct {
	BatchID  string `json:"batch_id"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}

// AutoMatchResult reports one auto-match run.
type AutoMatchResult struct {
	Matched int         `json:"matched"`
	Pairs   []MatchPair `json:"pairs"`
}

// StartInput opens a reconciliation run for a statement period.
type StartInput struct {
	BankAccountID    int64
	StatementDate    time.Time
	StatementBalance decimal.Decimal
}

func (in StartInput) Validate() error {
	if in.BankAccountID == 0 {
		return &shared.ValidationError{Field: "bank_account_id", Msg: "bank account is required"}
	}
	if in.StatementDate.IsZero() {
		return &shared.ValidationError{Field: "statement_date", Msg: "statement date is required"}
	}
	return nil
}
