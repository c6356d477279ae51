package coa

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-books/meridian/internal/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	ListGroups(ctx context.Context, tenantID int64) ([]AccountGroup, error)
	ListLedgers(ctx context.Context, tenantID int64) ([]Ledger, error)
	GetGroup(ctx context.Context, tenantID, id int64) (AccountGroup, error)
	GetLedger(ctx context.Context, tenantID, id int64) (Ledger, error)
	InsertGroup(ctx context.Context, g AccountGroup) (AccountGroup, error)
	InsertLedger(ctx context.Context, l Ledger) (Ledger, error)
	SetGroupActive(ctx context.Context, tenantID, id int64, active bool) error
	GroupHasMembers(ctx context.Context, tenantID, id int64) (bool, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const groupColumns = `id, tenant_id, name, nature, parent_id, direct_expense, is_system, active, created_at, updated_at`
const ledgerColumns = `id, tenant_id, group_id, name, opening_balance, opening_side, bank_account_id, active, created_at, updated_at`

func (r *repository) ListGroups(ctx context.Context, tenantID int64) ([]AccountGroup, error) {
	rows, err := r.db.Query(ctx, `SELECT `+groupColumns+` FROM account_groups WHERE tenant_id=$1 AND active ORDER BY id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []AccountGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *repository) ListLedgers(ctx context.Context, tenantID int64) ([]Ledger, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE tenant_id=$1 AND active ORDER BY id ASC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ledgers []Ledger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, rows.Err()
}

func (r *repository) GetGroup(ctx context.Context, tenantID, id int64) (AccountGroup, error) {
	row := r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM account_groups WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountGroup{}, shared.ErrNotFound
		}
		return AccountGroup{}, err
	}
	return g, nil
}

func (r *repository) GetLedger(ctx context.Context, tenantID, id int64) (Ledger, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	l, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, shared.ErrNotFound
		}
		return Ledger{}, err
	}
	return l, nil
}

func (r *repository) InsertGroup(ctx context.Context, g AccountGroup) (AccountGroup, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO account_groups (tenant_id, name, nature, parent_id, direct_expense, is_system, active)
VALUES ($1,$2,$3,$4,$5,$6,true) RETURNING id, created_at, updated_at`,
		g.TenantID, g.Name, g.Nature, g.ParentID, g.DirectExpense, g.IsSystem).
		Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return AccountGroup{}, mapUniqueViolation(err, "group name already exists for tenant")
	}
	g.Active = true
	return g, nil
}

func (r *repository) InsertLedger(ctx context.Context, l Ledger) (Ledger, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO ledgers (tenant_id, group_id, name, opening_balance, opening_side, bank_account_id, active)
VALUES ($1,$2,$3,$4,$5,$6,true) RETURNING id, created_at, updated_at`,
		l.TenantID, l.GroupID, l.Name, l.OpeningBalance, l.OpeningSide, l.BankAccountID).
		Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Ledger{}, mapUniqueViolation(err, "ledger name already exists for tenant")
	}
	l.Active = true
	return l, nil
}

func (r *repository) SetGroupActive(ctx context.Context, tenantID, id int64, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE account_groups SET active=$3, updated_at=NOW() WHERE id=$1 AND tenant_id=$2`, id, tenantID, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GroupHasMembers(ctx context.Context, tenantID, id int64) (bool, error) {
	var has bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM account_groups WHERE tenant_id=$1 AND parent_id=$2 AND active)
OR EXISTS (SELECT 1 FROM ledgers WHERE tenant_id=$1 AND group_id=$2 AND active)`, tenantID, id).Scan(&has)
	return has, err
}

func scanGroup(row pgx.Row) (AccountGroup, error) {
	var g AccountGroup
	err := row.Scan(&g.ID, &g.TenantID, &g.Name, &g.Nature, &g.ParentID, &g.DirectExpense, &g.IsSystem, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func scanLedger(row pgx.Row) (Ledger, error) {
	var l Ledger
	err := row.Scan(&l.ID, &l.TenantID, &l.GroupID, &l.Name, &l.OpeningBalance, &l.OpeningSide, &l.BankAccountID, &l.Active, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func mapUniqueViolation(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.ConflictError{Msg: msg}
	}
	return err
}
