package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/platform/db"
	"github.com/meridian-books/meridian/internal/shared"
)

type Repository interface {
	GetBankAccount(ctx context.Context, tenantID, id int64) (BankAccount, error)
	ListBankAccounts(ctx context.Context, tenantID int64) ([]BankAccount, error)
	CreateBankAccount(ctx context.Context, account BankAccount) (BankAccount, error)
	ListTransactions(ctx context.Context, tenantID, bankAccountID int64, onlyUnmatched bool) ([]BankTransaction, error)
	ExistingLineKeys(ctx context.Context, tenantID, bankAccountID int64) (map[string]bool, error)
	InsertTransactions(ctx context.Context, txns []BankTransaction) (int, error)
	GetReconciliation(ctx context.Context, tenantID, id int64) (BankReconciliation, error)
	ListReconciliations(ctx context.Context, tenantID, bankAccountID int64) ([]BankReconciliation, error)
	LastCompletedStatementDate(ctx context.Context, tenantID, bankAccountID int64) (*time.Time, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

type TxRepository interface {
	GetBankAccountForUpdate(ctx context.Context, tenantID, id int64) (BankAccount, error)
	ListUnmatchedTransactions(ctx context.Context, tenantID, bankAccountID int64) ([]BankTransaction, error)
	ListCandidateEntries(ctx context.Context, tenantID, ledgerID int64, from, to time.Time, statuses []vouchers.VoucherStatus) ([]EntryCandidate, error)
	GetTransaction(ctx context.Context, tenantID, id int64) (BankTransaction, error)
	GetCandidateEntry(ctx context.Context, tenantID, ledgerID, entryID int64, statuses []vouchers.VoucherStatus) (EntryCandidate, error)
	ClaimMatch(ctx context.Context, tenantID, txnID, entryID, actorID int64, at time.Time) error
	ReleaseMatch(ctx context.Context, tenantID, txnID int64) error
	InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error)
	GetReconciliationForUpdate(ctx context.Context, tenantID, id int64) (BankReconciliation, error)
	CompleteReconciliation(ctx context.Context, tenantID, id int64, book, diff decimal.Decimal, actorID int64, at time.Time) (BankReconciliation, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

func statusStrings(statuses []vouchers.VoucherStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

const bankAccountCols = `id, tenant_id, ledger_id, name, account_no, active, created_at, updated_at`

func scanBankAccount(row pgx.Row) (BankAccount, error) {
	var a BankAccount
	err := row.Scan(&a.ID, &a.TenantID, &a.LedgerID, &a.Name, &a.AccountNo, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankAccount{}, shared.ErrNotFound
	}
	return a, err
}

func (r *pgRepository) GetBankAccount(ctx context.Context, tenantID, id int64) (BankAccount, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bankAccountCols+` FROM bank_accounts WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanBankAccount(row)
}

func (r *pgRepository) ListBankAccounts(ctx context.Context, tenantID int64) ([]BankAccount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bankAccountCols+` FROM bank_accounts WHERE tenant_id = $1 ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	defer rows.Close()

	var accounts []BankAccount
	for rows.Next() {
		account, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *pgRepository) CreateBankAccount(ctx context.Context, account BankAccount) (BankAccount, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bank_accounts (tenant_id, ledger_id, name, account_no, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, now(), now())
		RETURNING `+bankAccountCols,
		account.TenantID, account.LedgerID, account.Name, account.AccountNo)
	return scanBankAccount(row)
}

const bankTxnCols = `id, tenant_id, bank_account_id, import_batch_id, date, description, reference_no,
	debit, credit, matched_entry_id, matched_at, matched_by, created_at`

func scanBankTransaction(row pgx.Row) (BankTransaction, error) {
	var t BankTransaction
	err := row.Scan(&t.ID, &t.TenantID, &t.BankAccountID, &t.ImportBatchID, &t.Date, &t.Description,
		&t.ReferenceNo, &t.Debit, &t.Credit, &t.MatchedEntry, &t.MatchedAt, &t.MatchedBy, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankTransaction{}, shared.ErrNotFound
	}
	return t, err
}

func queryTransactions(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, sql string, args ...any) ([]BankTransaction, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query bank transactions: %w", err)
	}
	defer rows.Close()

	var txns []BankTransaction
	for rows.Next() {
		txn, err := scanBankTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (r *pgRepository) ListTransactions(ctx context.Context, tenantID, bankAccountID int64, onlyUnmatched bool) ([]BankTransaction, error) {
	sql := `SELECT ` + bankTxnCols + ` FROM bank_transactions
		WHERE tenant_id = $1 AND bank_account_id = $2`
	if onlyUnmatched {
		sql += ` AND matched_entry_id IS NULL`
	}
	sql += ` ORDER BY date, id`
	return queryTransactions(ctx, r.pool, sql, tenantID, bankAccountID)
}

func (r *pgRepository) ExistingLineKeys(ctx context.Context, tenantID, bankAccountID int64) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, description, reference_no, debit, credit
		FROM bank_transactions WHERE tenant_id = $1 AND bank_account_id = $2`,
		tenantID, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("existing line keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var line ImportLine
		if err := rows.Scan(&line.Date, &line.Description, &line.ReferenceNo, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		keys[line.Key()] = true
	}
	return keys, rows.Err()
}

func (r *pgRepository) InsertTransactions(ctx context.Context, txns []BankTransaction) (int, error) {
	batch := &pgx.Batch{}
	for _, t := range txns {
		batch.Queue(`
			INSERT INTO bank_transactions
				(tenant_id, bank_account_id, import_batch_id, date, description, reference_no, debit, credit, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (bank_account_id, date, description, reference_no, debit, credit) DO NOTHING`,
			t.TenantID, t.BankAccountID, t.ImportBatchID, t.Date, t.Description, t.ReferenceNo, t.Debit, t.Credit)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	inserted := 0
	for range txns {
		tag, err := results.Exec()
		if err != nil {
			return 0, fmt.Errorf("insert bank transactions: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

const reconCols = `id, tenant_id, bank_account_id, period_start, statement_date, statement_balance, book_balance,
	difference, status, completed_at, completed_by, created_at`

func scanReconciliation(row pgx.Row) (BankReconciliation, error) {
	var rec BankReconciliation
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.BankAccountID, &rec.PeriodStart, &rec.StatementDate, &rec.StatementBalance,
		&rec.BookBalance, &rec.Difference, &rec.Status, &rec.CompletedAt, &rec.CompletedBy, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return BankReconciliation{}, shared.ErrNotFound
	}
	return rec, err
}

func (r *pgRepository) GetReconciliation(ctx context.Context, tenantID, id int64) (BankReconciliation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+reconCols+` FROM bank_reconciliations WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanReconciliation(row)
}

func (r *pgRepository) ListReconciliations(ctx context.Context, tenantID, bankAccountID int64) ([]BankReconciliation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+reconCols+` FROM bank_reconciliations
		WHERE tenant_id = $1 AND bank_account_id = $2
		ORDER BY statement_date DESC, id DESC`, tenantID, bankAccountID)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()

	var recs []BankReconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r *pgRepository) LastCompletedStatementDate(ctx context.Context, tenantID, bankAccountID int64) (*time.Time, error) {
	var d *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(statement_date) FROM bank_reconciliations
		WHERE tenant_id = $1 AND bank_account_id = $2 AND status = $3`,
		tenantID, bankAccountID, ReconCompleted).Scan(&d)
	if err != nil {
		return nil, fmt.Errorf("last completed statement date: %w", err)
	}
	return d, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) GetBankAccountForUpdate(ctx context.Context, tenantID, id int64) (BankAccount, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+bankAccountCols+` FROM bank_accounts WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
	return scanBankAccount(row)
}

func (r *pgTxRepository) ListUnmatchedTransactions(ctx context.Context, tenantID, bankAccountID int64) ([]BankTransaction, error) {
	return queryTransactions(ctx, r.tx, `
		SELECT `+bankTxnCols+` FROM bank_transactions
		WHERE tenant_id = $1 AND bank_account_id = $2 AND matched_entry_id IS NULL
		ORDER BY date, id`, tenantID, bankAccountID)
}

func (r *pgTxRepository) ListCandidateEntries(ctx context.Context, tenantID, ledgerID int64, from, to time.Time, statuses []vouchers.VoucherStatus) ([]EntryCandidate, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT e.id, v.id, v.date, v.narration, e.debit, e.credit
		FROM voucher_entries e
		JOIN vouchers v ON v.id = e.voucher_id
		WHERE v.tenant_id = $1 AND e.ledger_id = $2 AND v.status = ANY($3)
			AND v.date BETWEEN $4 AND $5
			AND NOT EXISTS (
				SELECT 1 FROM voucher_entries sibling
				JOIN bank_transactions bt ON bt.matched_entry_id = sibling.id
				WHERE sibling.voucher_id = e.voucher_id
			)
		ORDER BY v.date, v.id, e.id`,
		tenantID, ledgerID, statusStrings(statuses), from, to)
	if err != nil {
		return nil, fmt.Errorf("candidate entries: %w", err)
	}
	defer rows.Close()

	var cands []EntryCandidate
	for rows.Next() {
		var c EntryCandidate
		if err := rows.Scan(&c.EntryID, &c.VoucherID, &c.VoucherDate, &c.Narration, &c.Debit, &c.Credit); err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

func (r *pgTxRepository) GetTransaction(ctx context.Context, tenantID, id int64) (BankTransaction, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+bankTxnCols+` FROM bank_transactions WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
	return scanBankTransaction(row)
}

func (r *pgTxRepository) GetCandidateEntry(ctx context.Context, tenantID, ledgerID, entryID int64, statuses []vouchers.VoucherStatus) (EntryCandidate, error) {
	row := r.tx.QueryRow(ctx, `
		SELECT e.id, v.id, v.date, v.narration, e.debit, e.credit
		FROM voucher_entries e
		JOIN vouchers v ON v.id = e.voucher_id
		WHERE v.tenant_id = $1 AND e.ledger_id = $2 AND e.id = $3 AND v.status = ANY($4)`,
		tenantID, ledgerID, entryID, statusStrings(statuses))
	var c EntryCandidate
	err := row.Scan(&c.EntryID, &c.VoucherID, &c.VoucherDate, &c.Narration, &c.Debit, &c.Credit)
	if errors.Is(err, pgx.ErrNoRows) {
		return EntryCandidate{}, shared.ErrNotFound
	}
	return c, err
}

func (r *pgTxRepository) ClaimMatch(ctx context.Context, tenantID, txnID, entryID, actorID int64, at time.Time) error {
	// The guard is voucher-wide: once any entry of a voucher is linked
	// to a statement line, its siblings may not be claimed either.
	tag, err := r.tx.Exec(ctx, `
		UPDATE bank_transactions SET matched_entry_id = $3, matched_at = $4, matched_by = $5
		WHERE tenant_id = $1 AND id = $2 AND matched_entry_id IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM bank_transactions other
				JOIN voucher_entries claimed ON claimed.id = other.matched_entry_id
				WHERE other.tenant_id = $1 AND claimed.voucher_id = (
					SELECT voucher_id FROM voucher_entries WHERE id = $3
				)
			)`,
		tenantID, txnID, entryID, actorID, at)
	if err != nil {
		return fmt.Errorf("claim match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.ConflictError{Msg: "transaction or voucher is already matched"}
	}
	return nil
}

func (r *pgTxRepository) ReleaseMatch(ctx context.Context, tenantID, txnID int64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE bank_transactions SET matched_entry_id = NULL, matched_at = NULL, matched_by = NULL
		WHERE tenant_id = $1 AND id = $2`, tenantID, txnID)
	if err != nil {
		return fmt.Errorf("release match: %w", err)
	}
	return nil
}

func (r *pgTxRepository) InsertReconciliation(ctx context.Context, rec BankReconciliation) (BankReconciliation, error) {
	row := r.tx.QueryRow(ctx, `
		INSERT INTO bank_reconciliations
			(tenant_id, bank_account_id, period_start, statement_date, statement_balance, book_balance, difference, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+reconCols,
		rec.TenantID, rec.BankAccountID, rec.PeriodStart, rec.StatementDate, rec.StatementBalance,
		rec.BookBalance, rec.Difference, rec.Status)
	return scanReconciliation(row)
}

func (r *pgTxRepository) GetReconciliationForUpdate(ctx context.Context, tenantID, id int64) (BankReconciliation, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+reconCols+` FROM bank_reconciliations WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
	return scanReconciliation(row)
}

func (r *pgTxRepository) CompleteReconciliation(ctx context.Context, tenantID, id int64, book, diff decimal.Decimal, actorID int64, at time.Time) (BankReconciliation, error) {
	row := r.tx.QueryRow(ctx, `
		UPDATE bank_reconciliations
		SET book_balance = $3, difference = $4, status = $5, completed_at = $6, completed_by = $7
		WHERE tenant_id = $1 AND id = $2
		RETURNING `+reconCols,
		tenantID, id, book, diff, ReconCompleted, at, actorID)
	return scanReconciliation(row)
}
