package coa

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/shared"
)

// Nature classifies a group and fixes the sign convention of its ledgers.
type Nature string

const (
	NatureAssets      Nature = "ASSETS"
	NatureLiabilities Nature = "LIABILITIES"
	NatureIncome      Nature = "INCOME"
	NatureExpenses    Nature = "EXPENSES"
	NatureEquity      Nature = "EQUITY"
)

// Valid reports whether the nature is a known classification.
func (n Nature) Valid() bool {
	switch n {
	case NatureAssets, NatureLiabilities, NatureIncome, NatureExpenses, NatureEquity:
		return true
	}
	return false
}

// DebitNormal reports whether balances of this nature grow on the debit side.
func (n Nature) DebitNormal() bool {
	return n == NatureAssets || n == NatureExpenses
}

// naturePrecedence orders root groups for deterministic display and reports.
var naturePrecedence = map[Nature]int{
	NatureAssets:      0,
	NatureLiabilities: 1,
	NatureIncome:      2,
	NatureExpenses:    3,
	NatureEquity:      4,
}

// AccountGroup is a node in the chart-of-accounts tree.
type AccountGroup struct {
	ID       int64
	TenantID int64
	Name     string
	Nature   Nature
	ParentID *int64
	// DirectExpense marks EXPENSES groups that affect gross profit.
	DirectExpense bool
	IsSystem      bool
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ledger is a leaf account owned by exactly one group.
type Ledger struct {
	ID             int64
	TenantID       int64
	GroupID        int64
	Name           string
	OpeningBalance decimal.Decimal
	OpeningSide    shared.Side
	BankAccountID  *int64
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OpeningSigned expresses the opening balance as a signed amount,
// debit positive.
func (l Ledger) OpeningSigned() decimal.Decimal {
	if l.OpeningSide == shared.SideCredit {
		return l.OpeningBalance.Neg()
	}
	return l.OpeningBalance
}

// LedgerBalance is a ledger's current balance as a debit/credit pair.
type LedgerBalance struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit.
func (b LedgerBalance) Net() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}
