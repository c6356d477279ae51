package recon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func bankCredit(id int64, d int, amount decimal.Decimal) BankTransaction {
	return BankTransaction{ID: id, Date: day(d), Credit: amount}
}

func bankDebit(id int64, d int, amount decimal.Decimal) BankTransaction {
	return BankTransaction{ID: id, Date: day(d), Debit: amount}
}

func entryDebit(entryID, voucherID int64, d int, amount decimal.Decimal) EntryCandidate {
	return EntryCandidate{EntryID: entryID, VoucherID: voucherID, VoucherDate: day(d), Debit: amount}
}

func entryCredit(entryID, voucherID int64, d int, amount decimal.Decimal) EntryCandidate {
	return EntryCandidate{EntryID: entryID, VoucherID: voucherID, VoucherDate: day(d), Credit: amount}
}

func TestGreedyMatchesMirroredConvention(t *testing.T) {
	// Money into the bank account appears as a statement credit; the
	// book records it as a debit on the linked ledger.
	txns := []BankTransaction{bankCredit(1, 5, dec(1000))}
	cands := []EntryCandidate{entryDebit(10, 100, 3, dec(1000))}

	pairs := Greedy(txns, cands, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, MatchPair{TransactionID: 1, EntryID: 10}, pairs[0])
}

func TestGreedyMatchesOutgoing(t *testing.T) {
	txns := []BankTransaction{bankDebit(1, 10, dec(450))}
	cands := []EntryCandidate{entryCredit(10, 100, 9, dec(450))}

	pairs := Greedy(txns, cands, 3)
	require.Len(t, pairs, 1)
}

func TestGreedySignMismatch(t *testing.T) {
	// Statement credit against a book credit of the same magnitude must
	// not pair: the signs disagree.
	txns := []BankTransaction{bankCredit(1, 5, dec(1000))}
	cands := []EntryCandidate{entryCredit(10, 100, 5, dec(1000))}

	assert.Empty(t, Greedy(txns, cands, 3))
}

func TestGreedyWindowBoundary(t *testing.T) {
	txns := []BankTransaction{bankCredit(1, 10, dec(1000))}

	inside := []EntryCandidate{entryDebit(10, 100, 7, dec(1000))}
	assert.Len(t, Greedy(txns, inside, 3), 1)

	outside := []EntryCandidate{entryDebit(10, 100, 3, dec(1000))}
	assert.Empty(t, Greedy(txns, outside, 3))
}

func TestGreedyAmountTolerance(t *testing.T) {
	txns := []BankTransaction{bankCredit(1, 5, decimal.RequireFromString("1000.01"))}
	cands := []EntryCandidate{entryDebit(10, 100, 5, dec(1000))}
	assert.Len(t, Greedy(txns, cands, 3), 1)

	txns = []BankTransaction{bankCredit(1, 5, decimal.RequireFromString("1000.02"))}
	assert.Empty(t, Greedy(txns, cands, 3))
}

func TestGreedyClaimsEntryOnce(t *testing.T) {
	txns := []BankTransaction{
		bankCredit(1, 5, dec(500)),
		bankCredit(2, 5, dec(500)),
	}
	cands := []EntryCandidate{entryDebit(10, 100, 5, dec(500))}

	pairs := Greedy(txns, cands, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, int64(1), pairs[0].TransactionID)
}

func TestGreedyClaimsVoucherOnce(t *testing.T) {
	// Two statement lines that would each pair with a different entry
	// of the same voucher: once one side is claimed the sibling leaves
	// the candidate set, so only one pair comes back.
	txns := []BankTransaction{
		bankCredit(1, 5, dec(500)),
		bankDebit(2, 5, dec(500)),
	}
	cands := []EntryCandidate{
		entryDebit(10, 100, 5, dec(500)),
		entryCredit(11, 100, 5, dec(500)),
	}

	pairs := Greedy(txns, cands, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, MatchPair{TransactionID: 1, EntryID: 10}, pairs[0])
}

func TestGreedyPrefersEarliestVoucher(t *testing.T) {
	txns := []BankTransaction{bankCredit(1, 5, dec(500))}
	cands := []EntryCandidate{
		entryDebit(11, 102, 6, dec(500)),
		entryDebit(10, 101, 4, dec(500)),
	}

	pairs := Greedy(txns, cands, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, int64(10), pairs[0].EntryID)
}

func TestGreedyTieBreaksByVoucherID(t *testing.T) {
	txns := []BankTransaction{bankCredit(1, 5, dec(500))}
	cands := []EntryCandidate{
		entryDebit(21, 200, 5, dec(500)),
		entryDebit(20, 150, 5, dec(500)),
	}

	pairs := Greedy(txns, cands, 3)
	require.Len(t, pairs, 1)
	assert.Equal(t, int64(20), pairs[0].EntryID)
}

func TestGreedySkipsMatchedTransactions(t *testing.T) {
	claimed := int64(42)
	txns := []BankTransaction{
		{ID: 1, Date: day(5), Credit: dec(500), MatchedEntry: &claimed},
	}
	cands := []EntryCandidate{entryDebit(10, 100, 5, dec(500))}

	assert.Empty(t, Greedy(txns, cands, 3))
}

func TestImportLineKeyStability(t *testing.T) {
	a := ImportLine{Date: day(5), Description: "NEFT UTR12345", ReferenceNo: "UTR12345", Credit: dec(1000)}
	b := ImportLine{Date: day(5), Description: "NEFT UTR12345", ReferenceNo: "UTR12345", Credit: decimal.RequireFromString("1000.00")}
	c := ImportLine{Date: day(6), Description: "NEFT UTR12345", ReferenceNo: "UTR12345", Credit: dec(1000)}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}

func TestImportLineValidate(t *testing.T) {
	valid := ImportLine{Date: day(1), Credit: dec(100)}
	assert.NoError(t, valid.Validate())

	bothSides := ImportLine{Date: day(1), Debit: dec(100), Credit: dec(100)}
	assert.Error(t, bothSides.Validate())

	neither := ImportLine{Date: day(1)}
	assert.Error(t, neither.Validate())

	negative := ImportLine{Date: day(1), Debit: dec(-5)}
	assert.Error(t, negative.Validate())

	noDate := ImportLine{Credit: dec(100)}
	assert.Error(t, noDate.Validate())
}
