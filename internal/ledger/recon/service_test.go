package recon

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/balances"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/shared"
)

type mockRepository struct {
	accounts        map[int64]BankAccount
	txns            map[int64]*BankTransaction
	reconciliations map[int64]*BankReconciliation
	candidates      []EntryCandidate
	candidateStatus map[int64]vouchers.VoucherStatus
	staleKeys       bool
	nextTxnID       int64
	nextReconID     int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts:        make(map[int64]BankAccount),
		txns:            make(map[int64]*BankTransaction),
		reconciliations: make(map[int64]*BankReconciliation),
		candidateStatus: make(map[int64]vouchers.VoucherStatus),
		nextTxnID:       1,
		nextReconID:     1,
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTxRepo{mock: m})
}

func (m *mockRepository) GetBankAccount(ctx context.Context, tenantID, id int64) (BankAccount, error) {
	a, ok := m.accounts[id]
	if !ok || a.TenantID != tenantID {
		return BankAccount{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *mockRepository) ListBankAccounts(ctx context.Context, tenantID int64) ([]BankAccount, error) {
	var out []BankAccount
	for _, a := range m.accounts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepository) CreateBankAccount(ctx context.Context, account BankAccount) (BankAccount, error) {
	account.ID = int64(len(m.accounts) + 1)
	account.Active = true
	m.accounts[account.ID] = account
	return account, nil
}

func (m *mockRepository) ListTransactions(ctx context.Context, tenantID, bankAccountID int64, onlyUnmatched bool) ([]BankTransaction, error) {
	var out []BankTransaction
	for _, t := range m.txns {
		if t.TenantID != tenantID || t.BankAccountID != bankAccountID {
			continue
		}
		if onlyUnmatched && t.Matched() {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockRepository) ExistingLineKeys(ctx context.Context, tenantID, bankAccountID int64) (map[string]bool, error) {
	keys := make(map[string]bool)
	if m.staleKeys {
		return keys, nil
	}
	for _, t := range m.txns {
		if t.TenantID != tenantID || t.BankAccountID != bankAccountID {
			continue
		}
		line := ImportLine{Date: t.Date, Description: t.Description, ReferenceNo: t.ReferenceNo, Debit: t.Debit, Credit: t.Credit}
		keys[line.Key()] = true
	}
	return keys, nil
}

// InsertTransactions mirrors the unique index on the line's natural
// key: a row whose key is already stored is dropped, not doubled.
func (m *mockRepository) InsertTransactions(ctx context.Context, txns []BankTransaction) (int, error) {
	stored := make(map[string]bool)
	for _, t := range m.txns {
		line := ImportLine{Date: t.Date, Description: t.Description, ReferenceNo: t.ReferenceNo, Debit: t.Debit, Credit: t.Credit}
		stored[line.Key()] = true
	}
	inserted := 0
	for _, t := range txns {
		line := ImportLine{Date: t.Date, Description: t.Description, ReferenceNo: t.ReferenceNo, Debit: t.Debit, Credit: t.Credit}
		if stored[line.Key()] {
			continue
		}
		stored[line.Key()] = true
		t.ID = m.nextTxnID
		m.nextTxnID++
		row := t
		m.txns[row.ID] = &row
		inserted++
	}
	return inserted, nil
}

func (m *mockRepository) LastCompletedStatementDate(ctx context.Context, tenantID, bankAccountID int64) (*time.Time, error) {
	var last *time.Time
	for _, r := range m.reconciliations {
		if r.TenantID != tenantID || r.BankAccountID != bankAccountID || r.Status != ReconCompleted {
			continue
		}
		if last == nil || r.StatementDate.After(*last) {
			d := r.StatementDate
			last = &d
		}
	}
	return last, nil
}

func (m *mockRepository) GetReconciliation(ctx context.Context, tenantID, id int64) (BankReconciliation, error) {
	r, ok := m.reconciliations[id]
	if !ok || r.TenantID != tenantID {
		return BankReconciliation{}, shared.ErrNotFound
	}
	return *r, nil
}

func (m *mockRepository) ListReconciliations(ctx context.Context, tenantID, bankAccountID int64) ([]BankReconciliation, error) {
	var out []BankReconciliation
	for _, r := range m.reconciliations {
		if r.TenantID == tenantID && r.BankAccountID == bankAccountID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) GetBankAccountForUpdate(ctx context.Context, tenantID, id int64) (BankAccount, error) {
	return t.mock.GetBankAccount(ctx, tenantID, id)
}

func (t *mockTxRepo) ListUnmatchedTransactions(ctx context.Context, tenantID, bankAccountID int64) ([]BankTransaction, error) {
	return t.mock.ListTransactions(ctx, tenantID, bankAccountID, true)
}

func (t *mockTxRepo) candidateStatus(entryID int64) vouchers.VoucherStatus {
	if s, ok := t.mock.candidateStatus[entryID]; ok {
		return s
	}
	return vouchers.StatusApproved
}

func (t *mockTxRepo) claimedVouchers() map[int64]bool {
	claimed := make(map[int64]bool)
	for _, txn := range t.mock.txns {
		if txn.MatchedEntry == nil {
			continue
		}
		for _, c := range t.mock.candidates {
			if c.EntryID == *txn.MatchedEntry {
				claimed[c.VoucherID] = true
			}
		}
	}
	return claimed
}

func (t *mockTxRepo) ListCandidateEntries(ctx context.Context, tenantID, ledgerID int64, from, to time.Time, statuses []vouchers.VoucherStatus) ([]EntryCandidate, error) {
	allowed := make(map[vouchers.VoucherStatus]bool)
	for _, s := range statuses {
		allowed[s] = true
	}
	claimed := t.claimedVouchers()
	var out []EntryCandidate
	for _, c := range t.mock.candidates {
		if claimed[c.VoucherID] || !allowed[t.candidateStatus(c.EntryID)] {
			continue
		}
		if !c.VoucherDate.Before(from) && !c.VoucherDate.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *mockTxRepo) GetTransaction(ctx context.Context, tenantID, id int64) (BankTransaction, error) {
	txn, ok := t.mock.txns[id]
	if !ok || txn.TenantID != tenantID {
		return BankTransaction{}, shared.ErrNotFound
	}
	return *txn, nil
}

func (t *mockTxRepo) GetCandidateEntry(ctx context.Context, tenantID, ledgerID, entryID int64, statuses []vouchers.VoucherStatus) (EntryCandidate, error) {
	for _, c := range t.mock.candidates {
		if c.EntryID != entryID {
			continue
		}
		for _, s := range statuses {
			if s == t.candidateStatus(entryID) {
				return c, nil
			}
		}
	}
	return EntryCandidate{}, shared.ErrNotFound
}

func (t *mockTxRepo) ClaimMatch(ctx context.Context, tenantID, txnID, entryID, actorID int64, at time.Time) error {
	txn, ok := t.mock.txns[txnID]
	if !ok || txn.Matched() {
		return &shared.ConflictError{Msg: "transaction or voucher is already matched"}
	}
	claimed := t.claimedVouchers()
	for _, c := range t.mock.candidates {
		if c.EntryID == entryID && claimed[c.VoucherID] {
			return &shared.ConflictError{Msg: "transaction or voucher is already matched"}
		}
	}
	txn.MatchedEntry = &entryID
	txn.MatchedAt = &at
	txn.MatchedBy = &actorID
	return nil
}

func (t *mockTxRepo) ReleaseMatch(ctx context.Context, tenantID, txnID int64) error {
	txn, ok := t.mock.txns[txnID]
	if !ok {
		return shared.ErrNotFound
	}
	txn.MatchedEntry = nil
	txn.MatchedAt = nil
	txn.MatchedBy = nil
	return nil
}

func (t *mockTxRepo) InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error) {
	rec.ID = t.mock.nextReconID
	t.mock.nextReconID++
	stored := rec
	t.mock.reconciliations[stored.ID] = &stored
	return stored, nil
}

func (t *mockTxRepo) GetReconciliationForUpdate(ctx context.Context, tenantID, id int64) (BankReconciliation, error) {
	return t.mock.GetReconciliation(ctx, tenantID, id)
}

func (t *mockTxRepo) CompleteReconciliation(ctx context.Context, tenantID, id int64, book, diff decimal.Decimal, actorID int64, at time.Time) (BankReconciliation, error) {
	rec, ok := t.mock.reconciliations[id]
	if !ok {
		return BankReconciliation{}, shared.ErrNotFound
	}
	rec.BookBalance = book
	rec.Difference = diff
	rec.Status = ReconCompleted
	rec.CompletedAt = &at
	rec.CompletedBy = &actorID
	return *rec, nil
}

type fixedBook struct {
	net decimal.Decimal
}

func (b fixedBook) LedgerRunningBalance(ctx context.Context, tenantID, ledgerID int64, asOf time.Time) (balances.RunningBalance, error) {
	debit, credit := shared.SplitSigned(b.net)
	return balances.RunningBalance{Debit: debit, Credit: credit}, nil
}

func newTestService(t *testing.T, repo *mockRepository, book BookBalanceSource) (*Service, *redis.Client) {
	return newPolicyTestService(t, repo, book, vouchers.PostingPolicy{})
}

func newPolicyTestService(t *testing.T, repo *mockRepository, book BookBalanceSource, policy vouchers.PostingPolicy) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(repo, book, client, nil, policy, Options{ImportMaxLines: 10, MatchWindowDays: 3, LockTTL: time.Minute})
	return svc, client
}

func seedAccount(repo *mockRepository) BankAccount {
	account := BankAccount{ID: 1, TenantID: 1, LedgerID: 5, Name: "HDFC Current Account", Active: true}
	repo.accounts[1] = account
	return account
}

func TestImportSkipsDuplicates(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, _ := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	lines := []ImportLine{
		{Date: day(1), Description: "NEFT UTR1", ReferenceNo: "UTR1", Credit: dec(1000)},
		{Date: day(2), Description: "CHQ 441", ReferenceNo: "441", Debit: dec(250)},
	}

	first, err := svc.Import(ctx, 1, 1, 7, lines)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)
	assert.Equal(t, 0, first.Skipped)

	// Overlapping re-import: one old line, one new.
	again, err := svc.Import(ctx, 1, 1, 7, append(lines[:1:1],
		ImportLine{Date: day(3), Description: "NEFT UTR2", ReferenceNo: "UTR2", Credit: dec(400)}))
	require.NoError(t, err)
	assert.Equal(t, 1, again.Imported)
	assert.Equal(t, 1, again.Skipped)
	assert.NotEqual(t, first.BatchID, again.BatchID)

	txns, err := svc.ListTransactions(ctx, 1, 1, false)
	require.NoError(t, err)
	assert.Len(t, txns, 3)
}

func TestImportDuplicateWithinBatch(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, _ := newTestService(t, repo, fixedBook{})

	line := ImportLine{Date: day(1), Description: "NEFT UTR1", ReferenceNo: "UTR1", Credit: dec(1000)}
	result, err := svc.Import(context.Background(), 1, 1, 7, []ImportLine{line, line})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportCeiling(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, _ := newTestService(t, repo, fixedBook{})

	lines := make([]ImportLine, 11)
	for i := range lines {
		lines[i] = ImportLine{Date: day(1), Description: "bulk", ReferenceNo: string(rune('a' + i)), Credit: dec(int64(i + 1))}
	}
	_, err := svc.Import(context.Background(), 1, 1, 7, lines)

	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "lines", validation.Field)
}

func TestAutoMatchPersistsPairs(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	repo.candidates = []EntryCandidate{
		{EntryID: 10, VoucherID: 100, VoucherDate: day(3), Debit: dec(1000)},
	}
	svc, _ := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	_, err := svc.Import(ctx, 1, 1, 7, []ImportLine{
		{Date: day(5), Description: "NEFT UTR1", ReferenceNo: "UTR1", Credit: dec(1000)},
	})
	require.NoError(t, err)

	result, err := svc.AutoMatch(ctx, 1, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)

	txns, err := svc.ListTransactions(ctx, 1, 1, true)
	require.NoError(t, err)
	assert.Empty(t, txns, "matched line must leave the unmatched set")

	// A second run finds nothing new.
	result, err = svc.AutoMatch(ctx, 1, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
}

func TestAutoMatchAccountBusy(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, client := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	require.NoError(t, client.SetNX(ctx, shared.ReconLockKey(1), "held", time.Minute).Err())

	_, err := svc.AutoMatch(ctx, 1, 1, 7)
	assert.ErrorIs(t, err, shared.ErrAccountBusy)
}

func TestManualMatchAndUnmatch(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	repo.candidates = []EntryCandidate{
		{EntryID: 10, VoucherID: 100, VoucherDate: day(20), Debit: dec(750)},
	}
	svc, _ := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	// Far outside the auto-match window; the accountant pairs it by hand.
	_, err := svc.Import(ctx, 1, 1, 7, []ImportLine{
		{Date: day(2), Description: "NEFT UTR9", ReferenceNo: "UTR9", Credit: dec(750)},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ManualMatch(ctx, 1, 1, 1, 10, 7))

	// Matching the claimed line again conflicts.
	err = svc.ManualMatch(ctx, 1, 1, 1, 10, 7)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)

	// Unmatch releases, and unmatching again is a no-op.
	require.NoError(t, svc.Unmatch(ctx, 1, 1, 1, 7))
	require.NoError(t, svc.Unmatch(ctx, 1, 1, 1, 7))

	require.NoError(t, svc.ManualMatch(ctx, 1, 1, 1, 10, 7))
}

func TestAutoMatchDraftCandidatesFollowPostingPolicy(t *testing.T) {
	seed := func(t *testing.T) *mockRepository {
		t.Helper()
		repo := newMockRepository()
		seedAccount(repo)
		repo.candidates = []EntryCandidate{
			{EntryID: 10, VoucherID: 100, VoucherDate: day(3), Debit: dec(1000)},
		}
		repo.candidateStatus[10] = vouchers.StatusDraft
		return repo
	}
	line := ImportLine{Date: day(5), Description: "NEFT UTR1", ReferenceNo: "UTR1", Credit: dec(1000)}
	ctx := context.Background()

	// Strict policy: the draft entry is not in the candidate set.
	repo := seed(t)
	svc, _ := newTestService(t, repo, fixedBook{})
	_, err := svc.Import(ctx, 1, 1, 7, []ImportLine{line})
	require.NoError(t, err)
	result, err := svc.AutoMatch(ctx, 1, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)

	// Tentative policy: drafts post, so they are matchable too.
	repo = seed(t)
	svc, _ = newPolicyTestService(t, repo, fixedBook{}, vouchers.PostingPolicy{IncludeDraft: true})
	_, err = svc.Import(ctx, 1, 1, 7, []ImportLine{line})
	require.NoError(t, err)
	result, err = svc.AutoMatch(ctx, 1, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
}

func TestManualMatchDraftEntryFollowsPostingPolicy(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	repo.candidates = []EntryCandidate{
		{EntryID: 10, VoucherID: 100, VoucherDate: day(20), Debit: dec(750)},
	}
	repo.candidateStatus[10] = vouchers.StatusDraft
	svc, _ := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	_, err := svc.Import(ctx, 1, 1, 7, []ImportLine{
		{Date: day(2), Description: "NEFT UTR9", ReferenceNo: "UTR9", Credit: dec(750)},
	})
	require.NoError(t, err)

	err = svc.ManualMatch(ctx, 1, 1, 1, 10, 7)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMatchExcludesSiblingsOfLinkedVoucher(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	// Entries 10 and 11 belong to the same voucher.
	repo.candidates = []EntryCandidate{
		{EntryID: 10, VoucherID: 100, VoucherDate: day(4), Debit: dec(600)},
		{EntryID: 11, VoucherID: 100, VoucherDate: day(4), Credit: dec(600)},
	}
	svc, _ := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	_, err := svc.Import(ctx, 1, 1, 7, []ImportLine{
		{Date: day(4), Description: "NEFT IN", ReferenceNo: "IN1", Credit: dec(600)},
		{Date: day(4), Description: "NEFT OUT", ReferenceNo: "OUT1", Debit: dec(600)},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ManualMatch(ctx, 1, 1, 1, 10, 7))

	// Auto-match must not pair the second line with the sibling entry.
	result, err := svc.AutoMatch(ctx, 1, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)

	// Neither may a manual claim of the sibling succeed.
	err = svc.ManualMatch(ctx, 1, 1, 2, 11, 7)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestImportConflictSkipWithStaleKeys(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, _ := newTestService(t, repo, fixedBook{})
	ctx := context.Background()

	line := ImportLine{Date: day(1), Description: "NEFT UTR1", ReferenceNo: "UTR1", Credit: dec(1000)}
	_, err := svc.Import(ctx, 1, 1, 7, []ImportLine{line})
	require.NoError(t, err)

	// A racing import reads the key set before the first one commits;
	// the insert-level uniqueness still drops the duplicate row.
	repo.staleKeys = true
	again, err := svc.Import(ctx, 1, 1, 7, []ImportLine{line})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 1, again.Skipped)

	txns, err := svc.ListTransactions(ctx, 1, 1, false)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestStartAndCompleteReconciliation(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, _ := newTestService(t, repo, fixedBook{net: dec(9500)})
	ctx := context.Background()

	rec, err := svc.Start(ctx, 1, 7, StartInput{
		BankAccountID:    1,
		StatementDate:    day(30),
		StatementBalance: dec(10000),
	})
	require.NoError(t, err)
	assert.Equal(t, ReconOpen, rec.Status)
	assert.True(t, rec.BookBalance.Equal(dec(9500)))
	assert.True(t, rec.Difference.Equal(dec(500)), "difference %s", rec.Difference)

	done, err := svc.Complete(ctx, 1, rec.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, ReconCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	// Completion is final.
	_, err = svc.Complete(ctx, 1, rec.ID, 7)
	var state *shared.StateError
	require.ErrorAs(t, err, &state)
}

func TestReconciliationPeriodStartChains(t *testing.T) {
	repo := newMockRepository()
	seedAccount(repo)
	svc, _ := newTestService(t, repo, fixedBook{net: dec(9500)})
	ctx := context.Background()

	first, err := svc.Start(ctx, 1, 7, StartInput{
		BankAccountID:    1,
		StatementDate:    day(15),
		StatementBalance: dec(9500),
	})
	require.NoError(t, err)
	assert.Nil(t, first.PeriodStart, "first run covers everything up to the statement date")

	_, err = svc.Complete(ctx, 1, first.ID, 7)
	require.NoError(t, err)

	second, err := svc.Start(ctx, 1, 7, StartInput{
		BankAccountID:    1,
		StatementDate:    day(30),
		StatementBalance: dec(10000),
	})
	require.NoError(t, err)
	require.NotNil(t, second.PeriodStart)
	assert.True(t, second.PeriodStart.Equal(day(16)), "period resumes after the last completed run")
}
