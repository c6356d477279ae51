package vouchers

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/platform/db"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/internal/tenant"
)

// Repository encapsulates DB operations for vouchers.
type Repository interface {
	GetVoucher(ctx context.Context, tenantID, id int64) (Voucher, error)
	ListVouchers(ctx context.Context, tenantID int64, page shared.Pagination) ([]Voucher, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	GetVoucherType(ctx context.Context, tenantID, id int64) (VoucherType, error)
	InsertVoucher(ctx context.Context, in SubmitInput, status VoucherStatus) (Voucher, error)
	InsertEntries(ctx context.Context, voucherID int64, entries []EntryInput) error
	GetVoucherForUpdate(ctx context.Context, tenantID, id int64) (Voucher, error)
	UpdateVoucherStatus(ctx context.Context, id int64, status VoucherStatus) error
	CountLedgersInTenant(ctx context.Context, tenantID int64, ledgerIDs []int64) (int, error)

	// Fiscal year access within the posting transaction; duplicated
	// from the tenant repository because it must share this tx.
	GetFiscalYear(ctx context.Context, tenantID, id int64) (tenant.FiscalYear, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const voucherColumns = `id, tenant_id, number, type_id, fiscal_year_id, date, reference_no, narration, status, created_by, created_at, updated_at`
const entryColumns = `id, voucher_id, ledger_id, debit, credit, narration, created_at, updated_at`

func (r *repository) GetVoucher(ctx context.Context, tenantID, id int64) (Voucher, error) {
	row := r.db.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrNotFound
		}
		return Voucher{}, err
	}
	entries, err := r.loadEntries(ctx, r.db, id)
	if err != nil {
		return Voucher{}, err
	}
	v.Entries = entries
	return v, nil
}

func (r *repository) ListVouchers(ctx context.Context, tenantID int64, page shared.Pagination) ([]Voucher, error) {
	rows, err := r.db.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE tenant_id=$1 ORDER BY number DESC LIMIT $2 OFFSET $3`,
		tenantID, page.PerPage, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var vouchers []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, v)
	}
	return vouchers, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *repository) loadEntries(ctx context.Context, q queryer, voucherID int64) ([]VoucherEntry, error) {
	rows, err := q.Query(ctx, `SELECT `+entryColumns+` FROM voucher_entries WHERE voucher_id=$1 ORDER BY id ASC`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []VoucherEntry
	for rows.Next() {
		var e VoucherEntry
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.LedgerID, &e.Debit, &e.Credit, &e.Narration, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WithTx runs fn inside a Serializable transaction: submission and
// approval are balance-affecting writes and must serialize against
// concurrent postings touching the same ledgers.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSerializableTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetVoucherType(ctx context.Context, tenantID, id int64) (VoucherType, error) {
	var vt VoucherType
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, name, nature, initial_status FROM voucher_types WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&vt.ID, &vt.TenantID, &vt.Name, &vt.Nature, &vt.InitialStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return VoucherType{}, &shared.ValidationError{Field: "type_id", Msg: "voucher type does not exist"}
		}
		return VoucherType{}, err
	}
	return vt, nil
}

func (r *txRepository) InsertVoucher(ctx context.Context, in SubmitInput, status VoucherStatus) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO vouchers (tenant_id, number, type_id, fiscal_year_id, date, reference_no, narration, status, created_by)
VALUES ($1, (SELECT COALESCE(MAX(number),0)+1 FROM vouchers WHERE tenant_id=$1), $2, $3, $4, $5, $6, $7, $8)
RETURNING id, number, created_at, updated_at`,
		in.TenantID, in.TypeID, in.FiscalYearID, in.Date, in.ReferenceNo, in.Narration, status, in.CreatedBy)
	voucher := Voucher{
		TenantID:     in.TenantID,
		TypeID:       in.TypeID,
		FiscalYearID: in.FiscalYearID,
		Date:         in.Date,
		ReferenceNo:  in.ReferenceNo,
		Narration:    in.Narration,
		Status:       status,
		CreatedBy:    in.CreatedBy,
	}
	if err := row.Scan(&voucher.ID, &voucher.Number, &voucher.CreatedAt, &voucher.UpdatedAt); err != nil {
		return Voucher{}, err
	}
	return voucher, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, voucherID int64, entries []EntryInput) error {
	for _, entry := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO voucher_entries (voucher_id, ledger_id, debit, credit, narration)
VALUES ($1,$2,$3,$4,$5)`, voucherID, entry.LedgerID, entry.Debit, entry.Credit, entry.Narration); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, tenantID, id int64) (Voucher, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, id, tenantID)
	v, err := scanVoucher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrNotFound
		}
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) UpdateVoucherStatus(ctx context.Context, id int64, status VoucherStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) CountLedgersInTenant(ctx context.Context, tenantID int64, ledgerIDs []int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(DISTINCT id) FROM ledgers WHERE tenant_id=$1 AND id = ANY($2)`, tenantID, ledgerIDs).Scan(&count)
	return count, err
}

func (r *txRepository) GetFiscalYear(ctx context.Context, tenantID, id int64) (tenant.FiscalYear, error) {
	var fy tenant.FiscalYear
	err := r.tx.QueryRow(ctx, `SELECT id, tenant_id, code, start_date, end_date, is_closed, created_at, updated_at
FROM fiscal_years WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&fy.ID, &fy.TenantID, &fy.Code, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.FiscalYear{}, &shared.ValidationError{Field: "fiscal_year_id", Msg: "fiscal year does not exist"}
		}
		return tenant.FiscalYear{}, err
	}
	return fy, nil
}

func scanVoucher(row pgx.Row) (Voucher, error) {
	var v Voucher
	err := row.Scan(&v.ID, &v.TenantID, &v.Number, &v.TypeID, &v.FiscalYearID, &v.Date, &v.ReferenceNo, &v.Narration, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}
