package vouchers

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherStatus enumerates voucher lifecycle values.
type VoucherStatus string

const (
	StatusDraft           VoucherStatus = "DRAFT"
	StatusPendingApproval VoucherStatus = "PENDING_APPROVAL"
	StatusApproved        VoucherStatus = "APPROVED"
	StatusRejected        VoucherStatus = "REJECTED"
	StatusCancelled       VoucherStatus = "CANCELLED"
)

// VoucherNature enumerates the transaction natures a type can carry.
type VoucherNature string

const (
	NaturePayment    VoucherNature = "PAYMENT"
	NatureReceipt    VoucherNature = "RECEIPT"
	NatureContra     VoucherNature = "CONTRA"
	NatureJournal    VoucherNature = "JOURNAL"
	NatureSales      VoucherNature = "SALES"
	NaturePurchase   VoucherNature = "PURCHASE"
	NatureDebitNote  VoucherNature = "DEBIT_NOTE"
	NatureCreditNote VoucherNature = "CREDIT_NOTE"
)

// Valid reports whether the nature is one of the known values.
func (n VoucherNature) Valid() bool {
	switch n {
	case NaturePayment, NatureReceipt, NatureContra, NatureJournal,
		NatureSales, NaturePurchase, NatureDebitNote, NatureCreditNote:
		return true
	}
	return false
}

// VoucherType configures numbering scope and the initial posting state.
type VoucherType struct {
	ID            int64
	TenantID      int64
	Name          string
	Nature        VoucherNature
	InitialStatus VoucherStatus
}

// Voucher is a single balanced financial transaction header.
type Voucher struct {
	ID           int64
	TenantID     int64
	Number       int64
	TypeID       int64
	FiscalYearID int64
	Date         time.Time
	ReferenceNo  string
	Narration    string
	Status       VoucherStatus
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Entries      []VoucherEntry
}

// VoucherEntry is one debit or credit leg targeting one ledger.
type VoucherEntry struct {
	ID        int64
	VoucherID int64
	LedgerID  int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Narration string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostingPolicy resolves which voucher statuses count toward balances.
// Whether DRAFT vouchers post tentatively is configuration, not policy
// baked into the aggregator.
type PostingPolicy struct {
	IncludeDraft bool
}

// PostableStatuses returns the statuses whose entries are visible to
// balance computation. REJECTED and CANCELLED never post.
func (p PostingPolicy) PostableStatuses() []VoucherStatus {
	if p.IncludeDraft {
		return []VoucherStatus{StatusApproved, StatusDraft, StatusPendingApproval}
	}
	return []VoucherStatus{StatusApproved}
}

// Postable reports whether a voucher in the given status posts under
// the policy.
func (p PostingPolicy) Postable(status VoucherStatus) bool {
	for _, s := range p.PostableStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
