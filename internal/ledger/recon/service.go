package recon

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/ledger/balances"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/shared"
)

// BookBalanceSource supplies the ledger-side balance for a bank
// account's linked ledger.
type BookBalanceSource interface {
	LedgerRunningBalance(ctx context.Context, tenantID, ledgerID int64, asOf time.Time) (balances.RunningBalance, error)
}

// AuditPort persists audit history for reconciliation actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Options tune import and matching behaviour.
type Options struct {
	ImportMaxLines  int
	MatchWindowDays int
	LockTTL         time.Duration
}

func (o Options) withDefaults() Options {
	if o.ImportMaxLines <= 0 {
		o.ImportMaxLines = 5000
	}
	if o.MatchWindowDays <= 0 {
		o.MatchWindowDays = 3
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 2 * time.Minute
	}
	return o
}

// Service owns statement import, matching and reconciliation runs. The
// posting policy keeps the candidate set aligned with the book balance:
// when drafts post tentatively their entries are matchable too.
type Service struct {
	repo    Repository
	book    BookBalanceSource
	locks   *redis.Client
	audit   AuditPort
	policy  vouchers.PostingPolicy
	opts    Options
	enqueue func(ctx context.Context, tenantID, bankAccountID int64) error
	now     func() time.Time
}

func NewService(repo Repository, book BookBalanceSource, locks *redis.Client, audit AuditPort, policy vouchers.PostingPolicy, opts Options) *Service {
	return &Service{repo: repo, book: book, locks: locks, audit: audit, policy: policy, opts: opts.withDefaults(), now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMatchEnqueue registers a callback that queues a background
// matcher run after each successful import.
func (s *Service) WithMatchEnqueue(fn func(ctx context.Context, tenantID, bankAccountID int64) error) {
	s.enqueue = fn
}

// acquireLock takes the per-account redis lock so concurrent match runs
// against the same bank account fail fast instead of queueing on row
// locks.
func (s *Service) acquireLock(ctx context.Context, bankAccountID int64) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	key := shared.ReconLockKey(bankAccountID)
	ok, err := s.locks.SetNX(ctx, key, s.now().Format(time.RFC3339), s.opts.LockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire recon lock: %w", err)
	}
	if !ok {
		return nil, shared.ErrAccountBusy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.locks.Del(ctx, key)
	}, nil
}

// CreateBankAccount registers a statement feed against a ledger.
func (s *Service) CreateBankAccount(ctx context.Context, account BankAccount) (BankAccount, error) {
	if account.LedgerID == 0 {
		return BankAccount{}, &shared.ValidationError{Field: "ledger_id", Msg: "ledger is required"}
	}
	if account.Name == "" {
		return BankAccount{}, &shared.ValidationError{Field: "name", Msg: "name is required"}
	}
	return s.repo.CreateBankAccount(ctx, account)
}

func (s *Service) ListBankAccounts(ctx context.Context, tenantID int64) ([]BankAccount, error) {
	return s.repo.ListBankAccounts(ctx, tenantID)
}

func (s *Service) ListTransactions(ctx context.Context, tenantID, bankAccountID int64, onlyUnmatched bool) ([]BankTransaction, error) {
	return s.repo.ListTransactions(ctx, tenantID, bankAccountID, onlyUnmatched)
}

// Import loads statement lines, skipping any line whose natural key has
// been seen before, so overlapping statement exports can be re-imported
// safely.
func (s *Service) Import(ctx context.Context, tenantID, bankAccountID, actorID int64, lines []ImportLine) (ImportResult, error) {
	if len(lines) == 0 {
		return ImportResult{}, &shared.ValidationError{Field: "lines", Msg: "no statement lines supplied"}
	}
	if len(lines) > s.opts.ImportMaxLines {
		return ImportResult{}, &shared.ValidationError{
			Field: "lines",
			Msg:   fmt.Sprintf("statement exceeds %d lines, split the import", s.opts.ImportMaxLines),
		}
	}
	for i, line := range lines {
		if err := line.Validate(); err != nil {
			return ImportResult{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	account, err := s.repo.GetBankAccount(ctx, tenantID, bankAccountID)
	if err != nil {
		return ImportResult{}, err
	}

	existing, err := s.repo.ExistingLineKeys(ctx, tenantID, account.ID)
	if err != nil {
		return ImportResult{}, err
	}

	batchID := uuid.NewString()
	var fresh []BankTransaction
	skipped := 0
	for _, line := range lines {
		key := line.Key()
		if existing[key] {
			skipped++
			continue
		}
		existing[key] = true
		fresh = append(fresh, BankTransaction{
			TenantID:      tenantID,
			BankAccountID: account.ID,
			ImportBatchID: batchID,
			Date:          line.Date,
			Description:   line.Description,
			ReferenceNo:   line.ReferenceNo,
			Debit:         line.Debit,
			Credit:        line.Credit,
		})
	}
	imported := 0
	if len(fresh) > 0 {
		imported, err = s.repo.InsertTransactions(ctx, fresh)
		if err != nil {
			return ImportResult{}, err
		}
		// A concurrent import may land the same line between the key
		// read and the insert; the unique index drops it there.
		skipped += len(fresh) - imported
		if s.enqueue != nil {
			_ = s.enqueue(ctx, tenantID, account.ID)
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "recon.import",
			Entity:   "bank_account",
			EntityID: fmt.Sprintf("%d", account.ID),
			Meta:     map[string]any{"batch_id": batchID, "imported": imported, "skipped": skipped},
			At:       s.now(),
		})
	}
	return ImportResult{BatchID: batchID, Imported: imported, Skipped: skipped}, nil
}

// AutoMatch runs the greedy matcher over unmatched statement lines and
// persists the pairs it finds. Only one run per bank account proceeds
// at a time; a second caller gets ErrAccountBusy.
func (s *Service) AutoMatch(ctx context.Context, tenantID, bankAccountID, actorID int64) (AutoMatchResult, error) {
	release, err := s.acquireLock(ctx, bankAccountID)
	if err != nil {
		return AutoMatchResult{}, err
	}
	defer release()

	var result AutoMatchResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetBankAccountForUpdate(ctx, tenantID, bankAccountID)
		if err != nil {
			return err
		}
		txns, err := tx.ListUnmatchedTransactions(ctx, tenantID, account.ID)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			return nil
		}
		from, to := dateSpan(txns, s.opts.MatchWindowDays)
		cands, err := tx.ListCandidateEntries(ctx, tenantID, account.LedgerID, from, to, s.policy.PostableStatuses())
		if err != nil {
			return err
		}
		pairs := Greedy(txns, cands, s.opts.MatchWindowDays)
		at := s.now()
		for _, pair := range pairs {
			if err := tx.ClaimMatch(ctx, tenantID, pair.TransactionID, pair.EntryID, actorID, at); err != nil {
				return err
			}
		}
		result = AutoMatchResult{Matched: len(pairs), Pairs: pairs}
		return nil
	})
	if err != nil {
		return AutoMatchResult{}, err
	}
	if s.audit != nil && result.Matched > 0 {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "recon.auto_match",
			Entity:   "bank_account",
			EntityID: fmt.Sprintf("%d", bankAccountID),
			Meta:     map[string]any{"matched": result.Matched},
			At:       s.now(),
		})
	}
	return result, nil
}

// ManualMatch claims one entry for one statement line. Either side
// already being matched is a conflict; the caller unmatches first.
func (s *Service) ManualMatch(ctx context.Context, tenantID, bankAccountID, txnID, entryID, actorID int64) error {
	release, err := s.acquireLock(ctx, bankAccountID)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetBankAccountForUpdate(ctx, tenantID, bankAccountID)
		if err != nil {
			return err
		}
		txn, err := tx.GetTransaction(ctx, tenantID, txnID)
		if err != nil {
			return err
		}
		if txn.BankAccountID != account.ID {
			return shared.ErrNotFound
		}
		if txn.Matched() {
			return &shared.ConflictError{Msg: "transaction is already matched"}
		}
		if _, err := tx.GetCandidateEntry(ctx, tenantID, account.LedgerID, entryID, s.policy.PostableStatuses()); err != nil {
			return err
		}
		return tx.ClaimMatch(ctx, tenantID, txn.ID, entryID, actorID, s.now())
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "recon.manual_match",
			Entity:   "bank_transaction",
			EntityID: fmt.Sprintf("%d", txnID),
			Meta:     map[string]any{"entry_id": entryID},
			At:       s.now(),
		})
	}
	return nil
}

// Unmatch releases a statement line's claim. Unmatching an already
// unmatched line is a no-op.
func (s *Service) Unmatch(ctx context.Context, tenantID, bankAccountID, txnID, actorID int64) error {
	release, err := s.acquireLock(ctx, bankAccountID)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetBankAccountForUpdate(ctx, tenantID, bankAccountID)
		if err != nil {
			return err
		}
		txn, err := tx.GetTransaction(ctx, tenantID, txnID)
		if err != nil {
			return err
		}
		if txn.BankAccountID != account.ID {
			return shared.ErrNotFound
		}
		return tx.ReleaseMatch(ctx, tenantID, txn.ID)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "recon.unmatch",
			Entity:   "bank_transaction",
			EntityID: fmt.Sprintf("%d", txnID),
			At:       s.now(),
		})
	}
	return nil
}

// Start opens a reconciliation run, snapshotting the book balance on
// the statement date. Difference is statement minus book. The period
// starts the day after the last completed run's statement date, or at
// account inception for the first run.
func (s *Service) Start(ctx context.Context, tenantID, actorID int64, in StartInput) (BankReconciliation, error) {
	if err := in.Validate(); err != nil {
		return BankReconciliation{}, err
	}
	account, err := s.repo.GetBankAccount(ctx, tenantID, in.BankAccountID)
	if err != nil {
		return BankReconciliation{}, err
	}
	book, err := s.bookBalance(ctx, tenantID, account.LedgerID, in.StatementDate)
	if err != nil {
		return BankReconciliation{}, err
	}
	var periodStart *time.Time
	if last, err := s.repo.LastCompletedStatementDate(ctx, tenantID, account.ID); err != nil {
		return BankReconciliation{}, err
	} else if last != nil {
		start := last.AddDate(0, 0, 1)
		periodStart = &start
	}

	var rec BankReconciliation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err = tx.InsertReconciliation(ctx, BankReconciliation{
			TenantID:         tenantID,
			BankAccountID:    account.ID,
			PeriodStart:      periodStart,
			StatementDate:    in.StatementDate,
			StatementBalance: in.StatementBalance,
			BookBalance:      book,
			Difference:       in.StatementBalance.Sub(book),
			Status:           ReconOpen,
		})
		return err
	})
	if err != nil {
		return BankReconciliation{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "recon.start",
			Entity:   "bank_reconciliation",
			EntityID: fmt.Sprintf("%d", rec.ID),
			Meta:     map[string]any{"statement_date": in.StatementDate.Format("2006-01-02")},
			At:       s.now(),
		})
	}
	return rec, nil
}

// Complete freezes a run. The book balance and difference are
// recomputed at completion so late approvals between start and
// complete are reflected in the final snapshot.
func (s *Service) Complete(ctx context.Context, tenantID, reconciliationID, actorID int64) (BankReconciliation, error) {
	var rec BankReconciliation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetReconciliationForUpdate(ctx, tenantID, reconciliationID)
		if err != nil {
			return err
		}
		if current.Status == ReconCompleted {
			return &shared.StateError{From: string(ReconCompleted), To: string(ReconCompleted)}
		}
		account, err := tx.GetBankAccountForUpdate(ctx, tenantID, current.BankAccountID)
		if err != nil {
			return err
		}
		book, err := s.bookBalance(ctx, tenantID, account.LedgerID, current.StatementDate)
		if err != nil {
			return err
		}
		rec, err = tx.CompleteReconciliation(ctx, tenantID, current.ID,
			book, current.StatementBalance.Sub(book), actorID, s.now())
		return err
	})
	if err != nil {
		return BankReconciliation{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  actorID,
			Action:   "recon.complete",
			Entity:   "bank_reconciliation",
			EntityID: fmt.Sprintf("%d", rec.ID),
			Meta:     map[string]any{"difference": rec.Difference.StringFixed(2)},
			At:       s.now(),
		})
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id int64) (BankReconciliation, error) {
	return s.repo.GetReconciliation(ctx, tenantID, id)
}

func (s *Service) ListReconciliations(ctx context.Context, tenantID, bankAccountID int64) ([]BankReconciliation, error) {
	return s.repo.ListReconciliations(ctx, tenantID, bankAccountID)
}

func (s *Service) bookBalance(ctx context.Context, tenantID, ledgerID int64, asOf time.Time) (decimal.Decimal, error) {
	running, err := s.book.LedgerRunningBalance(ctx, tenantID, ledgerID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return running.Debit.Sub(running.Credit), nil
}

// dateSpan widens the imported lines' date range by the match window so
// the candidate query covers every entry the matcher could pair.
func dateSpan(txns []BankTransaction, windowDays int) (time.Time, time.Time) {
	min, max := txns[0].Date, txns[0].Date
	for _, t := range txns[1:] {
		if t.Date.Before(min) {
			min = t.Date
		}
		if t.Date.After(max) {
			max = t.Date
		}
	}
	pad := time.Duration(windowDays) * 24 * time.Hour
	return min.Add(-pad), max.Add(pad)
}
