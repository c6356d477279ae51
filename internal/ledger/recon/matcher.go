package recon

import (
	"sort"
	"time"

	"github.com/meridian-books/meridian/internal/shared"
)

// MatchPair pairs a bank transaction with the voucher entry that
// explains it.
type MatchPair struct {
	TransactionID int64 `json:"transaction_id"`
	EntryID       int64 `json:"entry_id"`
}

// matchWindow is expressed in whole calendar days on either side of the
// bank transaction date.
func withinWindow(bankDate, entryDate time.Time, days int) bool {
	span := time.Duration(days) * 24 * time.Hour
	diff := bankDate.Sub(entryDate)
	if diff < 0 {
		diff = -diff
	}
	return diff <= span
}

// Greedy walks unmatched bank transactions in import order and claims
// the first candidate entry whose signed amount agrees within tolerance
// and whose voucher date falls inside the window. A claim covers the
// whole voucher: once one of its entries is paired, its siblings leave
// the candidate set for the rest of the run.
func Greedy(txns []BankTransaction, candidates []EntryCandidate, windowDays int) []MatchPair {
	sorted := make([]EntryCandidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].VoucherDate.Equal(sorted[j].VoucherDate) {
			return sorted[i].VoucherDate.Before(sorted[j].VoucherDate)
		}
		return sorted[i].VoucherID < sorted[j].VoucherID
	})

	claimed := make(map[int64]bool, len(sorted))
	var pairs []MatchPair
	for _, txn := range txns {
		if txn.Matched() {
			continue
		}
		want := txn.Signed()
		for _, cand := range sorted {
			if claimed[cand.VoucherID] {
				continue
			}
			if !withinWindow(txn.Date, cand.VoucherDate, windowDays) {
				continue
			}
			if !shared.AmountsEqual(want, cand.Signed()) {
				continue
			}
			claimed[cand.VoucherID] = true
			pairs = append(pairs, MatchPair{TransactionID: txn.ID, EntryID: cand.EntryID})
			break
		}
	}
	return pairs
}
