package balances

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/ledger/coa"
)

func TestBuildProfitAndLossSplitsDirectAndIndirect(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Domestic Sales", Nature: coa.NatureIncome, PeriodCredit: dec(10000)},
		{LedgerID: 2, Name: "Raw Material Purchases", Nature: coa.NatureExpenses, DirectExpense: true, PeriodDebit: dec(4000)},
		{LedgerID: 3, Name: "Office Rent", Nature: coa.NatureExpenses, PeriodDebit: dec(1500)},
		{LedgerID: 4, Name: "Cash", Nature: coa.NatureAssets, PeriodDebit: dec(10000)},
	}
	pl := BuildProfitAndLoss(rows)

	assert.True(t, pl.Income.Total.Equal(dec(10000)), "income %s", pl.Income.Total)
	assert.True(t, pl.DirectExpenses.Total.Equal(dec(4000)))
	assert.True(t, pl.IndirectExpenses.Total.Equal(dec(1500)))
	assert.True(t, pl.GrossProfit.Equal(dec(6000)), "gross %s", pl.GrossProfit)
	assert.True(t, pl.NetProfit.Equal(dec(4500)), "net %s", pl.NetProfit)

	// Asset movement never shows up in the statement.
	require.Len(t, pl.Income.Rows, 1)
	require.Len(t, pl.DirectExpenses.Rows, 1)
	require.Len(t, pl.IndirectExpenses.Rows, 1)
}

func TestBuildProfitAndLossOmitsZeroRows(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Domestic Sales", Nature: coa.NatureIncome, PeriodCredit: dec(500)},
		{LedgerID: 2, Name: "Export Sales", Nature: coa.NatureIncome},
	}
	pl := BuildProfitAndLoss(rows)

	require.Len(t, pl.Income.Rows, 1)
	assert.Equal(t, "Domestic Sales", pl.Income.Rows[0].Name)
	assert.True(t, pl.Income.Total.Equal(dec(500)))
}

func TestBuildProfitAndLossNegativeNet(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Domestic Sales", Nature: coa.NatureIncome, PeriodCredit: dec(1000)},
		{LedgerID: 2, Name: "Raw Material Purchases", Nature: coa.NatureExpenses, DirectExpense: true, PeriodDebit: dec(1800)},
	}
	pl := BuildProfitAndLoss(rows)

	assert.True(t, pl.GrossProfit.Equal(dec(-800)), "gross %s", pl.GrossProfit)
	assert.True(t, pl.NetProfit.Equal(dec(-800)))
}

func TestBuildBalanceSheetSidesAgree(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Cash", Nature: coa.NatureAssets, Opening: dec(5000), PeriodDebit: dec(10000), PeriodCredit: dec(4000)},
		{LedgerID: 2, Name: "Accounts Payable", Nature: coa.NatureLiabilities, PeriodCredit: dec(2000)},
		{LedgerID: 3, Name: "Owner Capital", Nature: coa.NatureEquity, Opening: dec(-5000)},
		{LedgerID: 4, Name: "Domestic Sales", Nature: coa.NatureIncome, PeriodCredit: dec(10000)},
		{LedgerID: 5, Name: "Office Rent", Nature: coa.NatureExpenses, PeriodDebit: dec(6000)},
	}
	bs := BuildBalanceSheet(rows)

	assert.True(t, bs.TotalAssets.Equal(dec(11000)), "assets %s", bs.TotalAssets)
	assert.True(t, bs.Liabilities.Total.Equal(dec(2000)))
	assert.True(t, bs.Equity.Total.Equal(dec(5000)))
	assert.True(t, bs.RetainedProfit.Equal(dec(4000)), "retained %s", bs.RetainedProfit)
	assert.True(t, bs.TotalLiabilitiesAndEquity.Equal(bs.TotalAssets),
		"sides disagree: %s vs %s", bs.TotalLiabilitiesAndEquity, bs.TotalAssets)
}

func TestBuildBalanceSheetOmitsZeroRows(t *testing.T) {
	rows := []LedgerFigures{
		{LedgerID: 1, Name: "Cash", Nature: coa.NatureAssets, Opening: dec(100)},
		{LedgerID: 2, Name: "Petty Cash", Nature: coa.NatureAssets},
	}
	bs := BuildBalanceSheet(rows)

	require.Len(t, bs.Assets.Rows, 1)
	assert.Equal(t, "Cash", bs.Assets.Rows[0].Name)
}
