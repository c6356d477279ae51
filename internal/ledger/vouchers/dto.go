package vouchers

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/shared"
)

// EntryInput describes one leg of a submission.
type EntryInput struct {
	LedgerID  int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Narration string
}

// SubmitInput groups fields required to create a voucher.
type SubmitInput struct {
	TenantID     int64
	TypeID       int64
	FiscalYearID int64
	Date         time.Time
	ReferenceNo  string
	Narration    string
	CreatedBy    int64
	Entries      []EntryInput
}

// Validate ensures submission input meets the posting invariants.
func (in SubmitInput) Validate() error {
	if in.TypeID == 0 {
		return &shared.ValidationError{Field: "type_id", Msg: "voucher type required"}
	}
	if in.FiscalYearID == 0 {
		return &shared.ValidationError{Field: "fiscal_year_id", Msg: "fiscal year required"}
	}
	if in.Date.IsZero() {
		return &shared.ValidationError{Field: "date", Msg: "voucher date required"}
	}
	if len(in.Entries) < 2 {
		return &shared.ValidationError{Field: "entries", Msg: "voucher requires at least two entries"}
	}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for idx, entry := range in.Entries {
		if entry.LedgerID == 0 {
			return &shared.ValidationError{Field: fmt.Sprintf("entries[%d].ledger_id", idx), Msg: "entry missing ledger"}
		}
		if entry.Debit.Sign() < 0 || entry.Credit.Sign() < 0 {
			return &shared.ValidationError{Field: fmt.Sprintf("entries[%d]", idx), Msg: "entry amounts must be non-negative"}
		}
		hasDebit := entry.Debit.Sign() > 0
		hasCredit := entry.Credit.Sign() > 0
		if hasDebit == hasCredit {
			return &shared.ValidationError{Field: fmt.Sprintf("entries[%d]", idx), Msg: "entry must carry exactly one of debit or credit"}
		}
		totalDebit = totalDebit.Add(entry.Debit)
		totalCredit = totalCredit.Add(entry.Credit)
	}
	if !shared.AmountsEqual(totalDebit, totalCredit) {
		return &shared.ValidationError{
			Msg:        "voucher entries must balance",
			Difference: totalDebit.Sub(totalCredit),
		}
	}
	return nil
}

// TransitionInput wraps parameters for a status transition.
type TransitionInput struct {
	TenantID  int64
	VoucherID int64
	Target    VoucherStatus
	ActorID   int64
	Note      string
}
