package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankAccount links a ledger to an external bank statement feed.
type BankAccount struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	LedgerID  int64     `json:"ledger_id"`
	Name      string    `json:"name"`
	AccountNo string    `json:"account_no"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BankTransaction is one imported statement line. Exactly one of Debit
// and Credit is non-zero; the bank's perspective is mirrored, so a
// statement credit corresponds to a book debit on the linked ledger.
type BankTransaction struct {
	ID            int64           `json:"id"`
	TenantID      int64           `json:"tenant_id"`
	BankAccountID int64           `json:"bank_account_id"`
	ImportBatchID string          `json:"import_batch_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	ReferenceNo   string          `json:"reference_no"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	MatchedEntry  *int64          `json:"matched_entry_id,omitempty"`
	MatchedAt     *time.Time      `json:"matched_at,omitempty"`
	MatchedBy     *int64          `json:"matched_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the statement line in book convention: a statement
// credit is money into the account, which the book records as a debit.
func (t BankTransaction) Signed() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// Matched reports whether the line has been claimed by a voucher entry.
func (t BankTransaction) Matched() bool {
	return t.MatchedEntry != nil
}

type ReconciliationStatus string

const (
	ReconOpen      ReconciliationStatus = "OPEN"
	ReconCompleted ReconciliationStatus = "COMPLETED"
)

// BankReconciliation is a statement-period reconciliation run. The
// period covered runs from PeriodStart through StatementDate; a nil
// PeriodStart means the account's first run, covering everything up to
// the statement date. Once completed the snapshot fields are frozen and
// the run is read only.
type BankReconciliation struct {
	ID               int64                `json:"id"`
	TenantID         int64                `json:"tenant_id"`
	BankAccountID    int64                `json:"bank_account_id"`
	PeriodStart      *time.Time           `json:"period_start,omitempty"`
	StatementDate    time.Time            `json:"statement_date"`
	StatementBalance decimal.Decimal      `json:"statement_balance"`
	BookBalance      decimal.Decimal      `json:"book_balance"`
	Difference       decimal.Decimal      `json:"difference"`
	Status           ReconciliationStatus `json:"status"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
	CompletedBy      *int64               `json:"completed_by,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// EntryCandidate is a postable voucher entry on the linked ledger whose
// voucher has not yet been linked to any bank transaction.
type EntryCandidate struct {
	EntryID     int64           `json:"entry_id"`
	VoucherID   int64           `json:"voucher_id"`
	VoucherDate time.Time       `json:"voucher_date"`
	Narration   string          `json:"narration"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// Signed returns the entry in book convention, debit positive.
func (c EntryCandidate) Signed() decimal.Decimal {
	return c.Debit.Sub(c.Credit)
}
