package balances

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/shared"
)

// Activity is a ledger's summed debit/credit movement over a window.
type Activity struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit.
func (a Activity) Net() decimal.Decimal {
	return a.Debit.Sub(a.Credit)
}

// LedgerRow joins a ledger with its group's nature and expense flag.
type LedgerRow struct {
	coa.Ledger
	Nature        coa.Nature
	DirectExpense bool
}

// EntryLine is one posted entry with its voucher header context.
type EntryLine struct {
	EntryID       int64           `json:"entry_id"`
	VoucherID     int64           `json:"voucher_id"`
	VoucherNumber int64           `json:"voucher_number"`
	Date          time.Time       `json:"date"`
	Narration     string          `json:"narration"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
}

// Repository reads posted entry aggregates for balance computation.
// Balances are always derived from opening balance plus entries; the
// entry ledger stays the single source of truth, there is no
// denormalized counter to drift under concurrent writes.
type Repository interface {
	ListActiveLedgers(ctx context.Context, tenantID int64) ([]LedgerRow, error)
	GetLedgerRow(ctx context.Context, tenantID, id int64) (LedgerRow, error)
	// ActivityTotals sums entries per ledger whose voucher has one of
	// the given statuses and whose date falls in [from, to]; nil bounds
	// are unbounded, nil ledgerIDs means all ledgers of the tenant.
	ActivityTotals(ctx context.Context, tenantID int64, from, to *time.Time, statuses []vouchers.VoucherStatus, ledgerIDs []int64) (map[int64]Activity, error)
	// ListEntryLines returns one ledger's entries in [from, to] ordered
	// by voucher date, voucher id, entry id.
	ListEntryLines(ctx context.Context, tenantID, ledgerID int64, from, to time.Time, statuses []vouchers.VoucherStatus) ([]EntryLine, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const ledgerRowColumns = `l.id, l.tenant_id, l.group_id, l.name, l.opening_balance, l.opening_side, l.bank_account_id, l.active, l.created_at, l.updated_at, g.nature, g.direct_expense`

func (r *repository) ListActiveLedgers(ctx context.Context, tenantID int64) ([]LedgerRow, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ledgerRowColumns+`
FROM ledgers l JOIN account_groups g ON g.id = l.group_id
WHERE l.tenant_id=$1 AND l.active ORDER BY l.id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		lr, err := scanLedgerRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

func (r *repository) GetLedgerRow(ctx context.Context, tenantID, id int64) (LedgerRow, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ledgerRowColumns+`
FROM ledgers l JOIN account_groups g ON g.id = l.group_id
WHERE l.id=$1 AND l.tenant_id=$2`, id, tenantID)
	lr, err := scanLedgerRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerRow{}, shared.ErrNotFound
		}
		return LedgerRow{}, err
	}
	return lr, nil
}

func (r *repository) ActivityTotals(ctx context.Context, tenantID int64, from, to *time.Time, statuses []vouchers.VoucherStatus, ledgerIDs []int64) (map[int64]Activity, error) {
	query := `SELECT e.ledger_id, COALESCE(SUM(e.debit),0), COALESCE(SUM(e.credit),0)
FROM voucher_entries e JOIN vouchers v ON v.id = e.voucher_id
WHERE v.tenant_id=$1 AND v.status = ANY($2)`
	args := []any{tenantID, statusStrings(statuses)}
	if from != nil {
		args = append(args, *from)
		query += ` AND v.date >= $` + strconv.Itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += ` AND v.date <= $` + strconv.Itoa(len(args))
	}
	if ledgerIDs != nil {
		args = append(args, ledgerIDs)
		query += ` AND e.ledger_id = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	query += ` GROUP BY e.ledger_id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := make(map[int64]Activity)
	for rows.Next() {
		var ledgerID int64
		var act Activity
		if err := rows.Scan(&ledgerID, &act.Debit, &act.Credit); err != nil {
			return nil, err
		}
		totals[ledgerID] = act
	}
	return totals, rows.Err()
}

func (r *repository) ListEntryLines(ctx context.Context, tenantID, ledgerID int64, from, to time.Time, statuses []vouchers.VoucherStatus) ([]EntryLine, error) {
	rows, err := r.db.Query(ctx, `SELECT e.id, v.id, v.number, v.date, COALESCE(NULLIF(e.narration, ''), v.narration), e.debit, e.credit
FROM voucher_entries e JOIN vouchers v ON v.id = e.voucher_id
WHERE v.tenant_id=$1 AND e.ledger_id=$2 AND v.status = ANY($3) AND v.date >= $4 AND v.date <= $5
ORDER BY v.date ASC, v.id ASC, e.id ASC`, tenantID, ledgerID, statusStrings(statuses), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []EntryLine
	for rows.Next() {
		var l EntryLine
		if err := rows.Scan(&l.EntryID, &l.VoucherID, &l.VoucherNumber, &l.Date, &l.Narration, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func scanLedgerRow(row pgx.Row) (LedgerRow, error) {
	var lr LedgerRow
	err := row.Scan(&lr.ID, &lr.TenantID, &lr.GroupID, &lr.Name, &lr.OpeningBalance, &lr.OpeningSide,
		&lr.BankAccountID, &lr.Active, &lr.CreatedAt, &lr.UpdatedAt, &lr.Nature, &lr.DirectExpense)
	return lr, err
}

func statusStrings(statuses []vouchers.VoucherStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

