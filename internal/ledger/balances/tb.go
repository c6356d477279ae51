package balances

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/shared"
)

// LedgerFigures carries one ledger's aggregated amounts for a report
// window: Opening is the signed net carried into the window (debit
// positive), PeriodDebit/PeriodCredit the movement inside it.
type LedgerFigures struct {
	LedgerID      int64
	Name          string
	Nature        coa.Nature
	DirectExpense bool
	Opening       decimal.Decimal
	PeriodDebit   decimal.Decimal
	PeriodCredit  decimal.Decimal
}

// ClosingNet returns opening plus period movement, debit positive.
func (f LedgerFigures) ClosingNet() decimal.Decimal {
	return f.Opening.Add(f.PeriodDebit).Sub(f.PeriodCredit)
}

// TrialBalanceRow is one ledger line with every column split by side.
type TrialBalanceRow struct {
	LedgerID      int64
	Name          string
	Nature        coa.Nature
	OpeningDebit  decimal.Decimal
	OpeningCredit decimal.Decimal
	PeriodDebit   decimal.Decimal
	PeriodCredit  decimal.Decimal
	ClosingDebit  decimal.Decimal
	ClosingCredit decimal.Decimal
}

// TrialBalance lists every active ledger with grand totals.
type TrialBalance struct {
	Rows               []TrialBalanceRow
	TotalOpeningDebit  decimal.Decimal
	TotalOpeningCredit decimal.Decimal
	TotalPeriodDebit   decimal.Decimal
	TotalPeriodCredit  decimal.Decimal
	TotalClosingDebit  decimal.Decimal
	TotalClosingCredit decimal.Decimal
}

// BuildTrialBalance converts ledger figures into trial balance rows and
// verifies the closing totals agree. The equality is checked as a
// property, not assumed: a mismatch means the posting engine let an
// unbalanced transaction through and surfaces as an IntegrityError.
func BuildTrialBalance(figures []LedgerFigures, less func(a, b string) bool) (TrialBalance, error) {
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}
	sorted := append([]LedgerFigures(nil), figures...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i].Name, sorted[j].Name) })

	tb := TrialBalance{
		TotalOpeningDebit:  decimal.Zero,
		TotalOpeningCredit: decimal.Zero,
		TotalPeriodDebit:   decimal.Zero,
		TotalPeriodCredit:  decimal.Zero,
		TotalClosingDebit:  decimal.Zero,
		TotalClosingCredit: decimal.Zero,
	}
	for _, f := range sorted {
		openingDebit, openingCredit := shared.SplitSigned(f.Opening)
		closingDebit, closingCredit := shared.SplitSigned(f.ClosingNet())
		row := TrialBalanceRow{
			LedgerID:      f.LedgerID,
			Name:          f.Name,
			Nature:        f.Nature,
			OpeningDebit:  openingDebit,
			OpeningCredit: openingCredit,
			PeriodDebit:   f.PeriodDebit,
			PeriodCredit:  f.PeriodCredit,
			ClosingDebit:  closingDebit,
			ClosingCredit: closingCredit,
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalOpeningDebit = tb.TotalOpeningDebit.Add(row.OpeningDebit)
		tb.TotalOpeningCredit = tb.TotalOpeningCredit.Add(row.OpeningCredit)
		tb.TotalPeriodDebit = tb.TotalPeriodDebit.Add(row.PeriodDebit)
		tb.TotalPeriodCredit = tb.TotalPeriodCredit.Add(row.PeriodCredit)
		tb.TotalClosingDebit = tb.TotalClosingDebit.Add(row.ClosingDebit)
		tb.TotalClosingCredit = tb.TotalClosingCredit.Add(row.ClosingCredit)
	}
	if !shared.AmountsEqual(tb.TotalClosingDebit, tb.TotalClosingCredit) {
		return tb, &shared.IntegrityError{TotalDebit: tb.TotalClosingDebit, TotalCredit: tb.TotalClosingCredit}
	}
	return tb, nil
}
