package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/shared"
)

// Repository reads fiscal years maintained by the tenant collaborator.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const fiscalYearColumns = `id, tenant_id, code, start_date, end_date, is_closed, created_at, updated_at`

// GetFiscalYear loads one fiscal year scoped to a tenant.
func (r *Repository) GetFiscalYear(ctx context.Context, tenantID, id int64) (FiscalYear, error) {
	var fy FiscalYear
	err := r.db.QueryRow(ctx, `SELECT `+fiscalYearColumns+` FROM fiscal_years WHERE id=$1 AND tenant_id=$2`, id, tenantID).
		Scan(&fy.ID, &fy.TenantID, &fy.Code, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, shared.ErrNotFound
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

// FiscalYearOn returns the fiscal year whose window contains the date.
func (r *Repository) FiscalYearOn(ctx context.Context, tenantID int64, date time.Time) (FiscalYear, error) {
	var fy FiscalYear
	err := r.db.QueryRow(ctx, `SELECT `+fiscalYearColumns+` FROM fiscal_years
WHERE tenant_id=$1 AND start_date <= $2 AND end_date >= $2 ORDER BY start_date DESC LIMIT 1`, tenantID, date).
		Scan(&fy.ID, &fy.TenantID, &fy.Code, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.CreatedAt, &fy.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, shared.ErrNotFound
		}
		return FiscalYear{}, err
	}
	return fy, nil
}

// ListTenantIDs returns every active tenant, for background sweeps.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants WHERE active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFiscalYears returns fiscal years for a tenant, newest first.
func (r *Repository) ListFiscalYears(ctx context.Context, tenantID int64) ([]FiscalYear, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fiscalYearColumns+` FROM fiscal_years WHERE tenant_id=$1 ORDER BY start_date DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		var fy FiscalYear
		if err := rows.Scan(&fy.ID, &fy.TenantID, &fy.Code, &fy.StartDate, &fy.EndDate, &fy.IsClosed, &fy.CreatedAt, &fy.UpdatedAt); err != nil {
			return nil, err
		}
		years = append(years, fy)
	}
	return years, rows.Err()
}
