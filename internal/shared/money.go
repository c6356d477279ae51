package shared

import "github.com/shopspring/decimal"

// Tolerance is the documented equality tolerance for currency amounts.
var Tolerance = decimal.New(1, -2)

// AmountsEqual reports whether two amounts agree within Tolerance.
func AmountsEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(Tolerance) <= 0
}

// AmountIsZero reports whether an amount is zero within Tolerance.
func AmountIsZero(a decimal.Decimal) bool {
	return a.Abs().Cmp(Tolerance) < 0
}

// Side marks which column of a ledger holds a balance.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideDebit || s == SideCredit
}

// SplitSigned expresses a signed amount as a debit/credit pair with only
// one side non-zero: net positive lands on the debit side.
func SplitSigned(net decimal.Decimal) (debit, credit decimal.Decimal) {
	if net.Sign() >= 0 {
		return net, decimal.Zero
	}
	return decimal.Zero, net.Neg()
}
