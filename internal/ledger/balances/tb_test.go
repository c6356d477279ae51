package balances

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/shared"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func figures() []LedgerFigures {
	return []LedgerFigures{
		{LedgerID: 1, Name: "Cash", Nature: coa.NatureAssets, Opening: dec(0), PeriodDebit: dec(1000), PeriodCredit: dec(0)},
		{LedgerID: 2, Name: "Domestic Sales", Nature: coa.NatureIncome, Opening: dec(0), PeriodDebit: dec(0), PeriodCredit: dec(1000)},
	}
}

func TestBuildTrialBalanceBalancedTotals(t *testing.T) {
	tb, err := BuildTrialBalance(figures(), nil)
	require.NoError(t, err)

	require.Len(t, tb.Rows, 2)
	assert.True(t, tb.TotalClosingDebit.Equal(dec(1000)), "got %s", tb.TotalClosingDebit)
	assert.True(t, tb.TotalClosingCredit.Equal(dec(1000)), "got %s", tb.TotalClosingCredit)
	assert.True(t, tb.TotalPeriodDebit.Equal(tb.TotalPeriodCredit))
}

func TestBuildTrialBalanceSplitsClosingBySide(t *testing.T) {
	tb, err := BuildTrialBalance(figures(), nil)
	require.NoError(t, err)

	cash := tb.Rows[0]
	assert.Equal(t, "Cash", cash.Name)
	assert.True(t, cash.ClosingDebit.Equal(dec(1000)))
	assert.True(t, cash.ClosingCredit.IsZero())

	sales := tb.Rows[1]
	assert.Equal(t, "Domestic Sales", sales.Name)
	assert.True(t, sales.ClosingDebit.IsZero())
	assert.True(t, sales.ClosingCredit.Equal(dec(1000)))
}

func TestBuildTrialBalanceOpeningSplit(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Cash", Nature: coa.NatureAssets, Opening: dec(250)},
		{LedgerID: 2, Name: "Owner Capital", Nature: coa.NatureEquity, Opening: dec(-250)},
	}
	tb, err := BuildTrialBalance(rows, nil)
	require.NoError(t, err)

	assert.True(t, tb.Rows[0].OpeningDebit.Equal(dec(250)))
	assert.True(t, tb.Rows[1].OpeningCredit.Equal(dec(250)))
	assert.True(t, tb.TotalOpeningDebit.Equal(tb.TotalOpeningCredit))
}

func TestBuildTrialBalanceIntegrityError(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Cash", Nature: coa.NatureAssets, PeriodDebit: dec(1000)},
		{LedgerID: 2, Name: "Domestic Sales", Nature: coa.NatureIncome, PeriodCredit: dec(900)},
	}
	tb, err := BuildTrialBalance(rows, nil)

	var integrity *shared.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.True(t, integrity.TotalDebit.Equal(dec(1000)))
	assert.True(t, integrity.TotalCredit.Equal(dec(900)))

	// Partial result still carries the rows for diagnostics.
	assert.Len(t, tb.Rows, 2)
}

func TestBuildTrialBalanceWithinTolerance(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Cash", Nature: coa.NatureAssets, PeriodDebit: decimal.RequireFromString("100.01")},
		{LedgerID: 2, Name: "Domestic Sales", Nature: coa.NatureIncome, PeriodCredit: dec(100)},
	}
	_, err := BuildTrialBalance(rows, nil)
	require.NoError(t, err)
}
