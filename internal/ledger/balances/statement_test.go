package balances

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/internal/tenant"
)

type stubRepository struct {
	row   LedgerRow
	prior map[int64]Activity
	lines []EntryLine
}

func (r *stubRepository) ListActiveLedgers(ctx context.Context, tenantID int64) ([]LedgerRow, error) {
	return []LedgerRow{r.row}, nil
}

func (r *stubRepository) GetLedgerRow(ctx context.Context, tenantID, id int64) (LedgerRow, error) {
	if id != r.row.ID {
		return LedgerRow{}, shared.ErrNotFound
	}
	return r.row, nil
}

func (r *stubRepository) ActivityTotals(ctx context.Context, tenantID int64, from, to *time.Time, statuses []vouchers.VoucherStatus, ledgerIDs []int64) (map[int64]Activity, error) {
	return r.prior, nil
}

func (r *stubRepository) ListEntryLines(ctx context.Context, tenantID, ledgerID int64, from, to time.Time, statuses []vouchers.VoucherStatus) ([]EntryLine, error) {
	return r.lines, nil
}

type stubYears struct{}

func (stubYears) FiscalYearOn(ctx context.Context, tenantID int64, date time.Time) (tenant.FiscalYear, error) {
	return tenant.FiscalYear{}, shared.ErrNotFound
}

func TestStatementRunningBalance(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.April, d, 0, 0, 0, 0, time.UTC) }
	repo := &stubRepository{
		row: LedgerRow{
			Ledger: coa.Ledger{ID: 10, Name: "HDFC Bank", OpeningBalance: dec(1000), OpeningSide: shared.SideDebit},
			Nature: coa.NatureAssets,
		},
		prior: map[int64]Activity{10: {Debit: dec(500), Credit: dec(200)}},
		lines: []EntryLine{
			{EntryID: 1, VoucherID: 7, VoucherNumber: 7, Date: day(5), Narration: "rent received", Debit: dec(250)},
			{EntryID: 2, VoucherID: 8, VoucherNumber: 8, Date: day(9), Narration: "supplier payment", Credit: dec(400)},
		},
	}
	svc := NewService(repo, stubYears{}, vouchers.PostingPolicy{}, nil, nil)

	stmt, err := svc.Statement(context.Background(), 1, 10, day(1), day(30))
	require.NoError(t, err)
	require.True(t, stmt.Opening.Equal(dec(1300)), "opening %s", stmt.Opening)
	require.Len(t, stmt.Lines, 2)
	require.True(t, stmt.Lines[0].Balance.Equal(dec(1550)))
	require.True(t, stmt.Lines[1].Balance.Equal(dec(1150)))
	require.True(t, stmt.Closing.Equal(dec(1150)))
}

func TestStatementUnknownLedger(t *testing.T) {
	repo := &stubRepository{row: LedgerRow{Ledger: coa.Ledger{ID: 10}}}
	svc := NewService(repo, stubYears{}, vouchers.PostingPolicy{}, nil, nil)

	_, err := svc.Statement(context.Background(), 1, 99, time.Now().AddDate(0, -1, 0), time.Now())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
