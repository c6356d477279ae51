package vouchers

import "github.com/meridian-books/meridian/internal/shared"

// transitions is the closed transition table. Anything not listed is an
// illegal transition. CANCELLED is reachable only from APPROVED through
// the explicit cancellation action, which reverses the voucher's ledger
// effect while preserving audit history.
var transitions = map[VoucherStatus][]VoucherStatus{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusCancelled},
}

// CanTransition reports whether the transition appears in the table.
func CanTransition(from, to VoucherStatus) bool {
	for _, target := range transitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a StateError for transitions outside the table.
func ValidateTransition(from, to VoucherStatus) error {
	if !CanTransition(from, to) {
		return &shared.StateError{From: string(from), To: string(to)}
	}
	return nil
}

// Terminal reports whether no further transition leaves the status.
func (s VoucherStatus) Terminal() bool {
	return len(transitions[s]) == 0
}
