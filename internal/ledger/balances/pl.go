package balances

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/shared"
)

// ProfitAndLossRow summarises one income or expense ledger.
type ProfitAndLossRow struct {
	LedgerID int64
	Name     string
	Amount   decimal.Decimal
}

// ProfitAndLossSection groups rows under one heading.
type ProfitAndLossSection struct {
	Label string
	Rows  []ProfitAndLossRow
	Total decimal.Decimal
}

// ProfitAndLoss is the structured result for a period.
type ProfitAndLoss struct {
	Income           ProfitAndLossSection
	DirectExpenses   ProfitAndLossSection
	IndirectExpenses ProfitAndLossSection
	GrossProfit      decimal.Decimal
	NetProfit        decimal.Decimal
}

// BuildProfitAndLoss aggregates period movement of INCOME and EXPENSES
// ledgers. Income is credit minus debit, expenses debit minus credit;
// expenses split into direct and indirect by the owning group's flag.
// Rows netting to zero are omitted from output but still counted in
// section totals.
func BuildProfitAndLoss(figures []LedgerFigures) ProfitAndLoss {
	income := ProfitAndLossSection{Label: "Income", Total: decimal.Zero}
	direct := ProfitAndLossSection{Label: "Direct Expenses", Total: decimal.Zero}
	indirect := ProfitAndLossSection{Label: "Indirect Expenses", Total: decimal.Zero}

	for _, f := range figures {
		switch f.Nature {
		case coa.NatureIncome:
			amount := f.PeriodCredit.Sub(f.PeriodDebit)
			income.Total = income.Total.Add(amount)
			if !shared.AmountIsZero(amount) {
				income.Rows = append(income.Rows, ProfitAndLossRow{LedgerID: f.LedgerID, Name: f.Name, Amount: amount})
			}
		case coa.NatureExpenses:
			amount := f.PeriodDebit.Sub(f.PeriodCredit)
			section := &indirect
			if f.DirectExpense {
				section = &direct
			}
			section.Total = section.Total.Add(amount)
			if !shared.AmountIsZero(amount) {
				section.Rows = append(section.Rows, ProfitAndLossRow{LedgerID: f.LedgerID, Name: f.Name, Amount: amount})
			}
		}
	}

	for _, section := range []*ProfitAndLossSection{&income, &direct, &indirect} {
		sort.Slice(section.Rows, func(i, j int) bool { return section.Rows[i].Name < section.Rows[j].Name })
	}

	gross := income.Total.Sub(direct.Total)
	return ProfitAndLoss{
		Income:           income,
		DirectExpenses:   direct,
		IndirectExpenses: indirect,
		GrossProfit:      gross,
		NetProfit:        gross.Sub(indirect.Total),
	}
}
