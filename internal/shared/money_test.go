package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountsEqualTolerance(t *testing.T) {
	a := decimal.RequireFromString("100.00")
	assert.True(t, AmountsEqual(a, decimal.RequireFromString("100.00")))
	assert.True(t, AmountsEqual(a, decimal.RequireFromString("100.01")))
	assert.True(t, AmountsEqual(a, decimal.RequireFromString("99.99")))
	assert.False(t, AmountsEqual(a, decimal.RequireFromString("100.02")))
	assert.False(t, AmountsEqual(a, decimal.RequireFromString("99.98")))
}

func TestSplitSigned(t *testing.T) {
	debit, credit := SplitSigned(decimal.NewFromInt(150))
	assert.True(t, debit.Equal(decimal.NewFromInt(150)))
	assert.True(t, credit.IsZero())

	debit, credit = SplitSigned(decimal.NewFromInt(-150))
	assert.True(t, debit.IsZero())
	assert.True(t, credit.Equal(decimal.NewFromInt(150)))

	debit, credit = SplitSigned(decimal.Zero)
	assert.True(t, debit.IsZero())
	assert.True(t, credit.IsZero())
}

func TestSideValid(t *testing.T) {
	assert.True(t, SideDebit.Valid())
	assert.True(t, SideCredit.Valid())
	assert.False(t, Side("BOTH").Valid())
}
