package balances

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/shared"
)

// BalanceSheetRow summarises one ledger's closing position.
type BalanceSheetRow struct {
	LedgerID int64
	Name     string
	Balance  decimal.Decimal
}

// BalanceSheetSection contains the rows and total for a classification.
type BalanceSheetSection struct {
	Label string
	Rows  []BalanceSheetRow
	Total decimal.Decimal
}

// BalanceSheet is the structured response for the balance sheet query.
type BalanceSheet struct {
	Assets                    BalanceSheetSection
	Liabilities               BalanceSheetSection
	Equity                    BalanceSheetSection
	RetainedProfit            decimal.Decimal
	TotalAssets               decimal.Decimal
	TotalLiabilitiesAndEquity decimal.Decimal
}

// BuildBalanceSheet aggregates closing balances into assets and
// liabilities+equity sections. Income and expense ledgers collapse into
// a retained profit line under equity so both sides agree.
func BuildBalanceSheet(figures []LedgerFigures) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets", Total: decimal.Zero}
	liabilities := BalanceSheetSection{Label: "Liabilities", Total: decimal.Zero}
	equity := BalanceSheetSection{Label: "Equity", Total: decimal.Zero}
	retained := decimal.Zero

	for _, f := range figures {
		closing := f.ClosingNet()
		switch f.Nature {
		case coa.NatureAssets:
			assets.Total = assets.Total.Add(closing)
			if !shared.AmountIsZero(closing) {
				assets.Rows = append(assets.Rows, BalanceSheetRow{LedgerID: f.LedgerID, Name: f.Name, Balance: closing})
			}
		case coa.NatureLiabilities:
			balance := closing.Neg()
			liabilities.Total = liabilities.Total.Add(balance)
			if !shared.AmountIsZero(balance) {
				liabilities.Rows = append(liabilities.Rows, BalanceSheetRow{LedgerID: f.LedgerID, Name: f.Name, Balance: balance})
			}
		case coa.NatureEquity:
			balance := closing.Neg()
			equity.Total = equity.Total.Add(balance)
			if !shared.AmountIsZero(balance) {
				equity.Rows = append(equity.Rows, BalanceSheetRow{LedgerID: f.LedgerID, Name: f.Name, Balance: balance})
			}
		case coa.NatureIncome:
			retained = retained.Add(closing.Neg())
		case coa.NatureExpenses:
			retained = retained.Sub(closing)
		}
	}

	for _, section := range []*BalanceSheetSection{&assets, &liabilities, &equity} {
		sort.Slice(section.Rows, func(i, j int) bool { return section.Rows[i].Name < section.Rows[j].Name })
	}

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		RetainedProfit:            retained,
		TotalAssets:               assets.Total,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total).Add(retained),
	}
}
