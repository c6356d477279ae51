package coa

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-books/meridian/internal/shared"
)

func ptr(v int64) *int64 { return &v }

func group(id int64, name string, nature Nature, parentID *int64) AccountGroup {
	return AccountGroup{ID: id, TenantID: 1, Name: name, Nature: nature, ParentID: parentID, Active: true}
}

func ledger(id, groupID int64, name string, opening decimal.Decimal, side shared.Side) Ledger {
	return Ledger{ID: id, TenantID: 1, GroupID: groupID, Name: name, OpeningBalance: opening, OpeningSide: side, Active: true}
}

func TestBuildForestOrdersRootsByNature(t *testing.T) {
	groups := []AccountGroup{
		group(1, "Indirect Expenses", NatureExpenses, nil),
		group(2, "Current Assets", NatureAssets, nil),
		group(3, "Sales Accounts", NatureIncome, nil),
		group(4, "Current Liabilities", NatureLiabilities, nil),
		group(5, "Capital Account", NatureEquity, nil),
		group(6, "Fixed Assets", NatureAssets, nil),
	}
	forest, err := BuildForest(groups, nil)
	require.NoError(t, err)

	var names []string
	for _, root := range forest.Roots() {
		names = append(names, root.Group.Name)
	}
	assert.Equal(t, []string{
		"Current Assets", "Fixed Assets", "Current Liabilities",
		"Sales Accounts", "Indirect Expenses", "Capital Account",
	}, names)
}

func TestBuildForestNestedChildren(t *testing.T) {
	groups := []AccountGroup{
		group(1, "Current Assets", NatureAssets, nil),
		group(2, "Bank Accounts", NatureAssets, ptr(1)),
		group(3, "Cash-in-Hand", NatureAssets, ptr(1)),
	}
	ledgers := []Ledger{
		ledger(10, 2, "HDFC Current Account", decimal.Zero, shared.SideDebit),
	}
	forest, err := BuildForest(groups, ledgers)
	require.NoError(t, err)

	root, ok := forest.Node(1)
	require.True(t, ok)
	assert.Equal(t, []int64{2, 3}, root.ChildIDs)

	bank, ok := forest.Node(2)
	require.True(t, ok)
	assert.Equal(t, []int64{10}, bank.LedgerIDs)
}

func TestBuildForestMissingParent(t *testing.T) {
	groups := []AccountGroup{
		group(1, "Orphan", NatureAssets, ptr(99)),
	}
	_, err := BuildForest(groups, nil)

	var structural *shared.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, int64(1), structural.GroupID)
}

func TestBuildForestDetectsCycle(t *testing.T) {
	groups := []AccountGroup{
		group(1, "A", NatureAssets, ptr(2)),
		group(2, "B", NatureAssets, ptr(3)),
		group(3, "C", NatureAssets, ptr(1)),
	}
	_, err := BuildForest(groups, nil)

	var structural *shared.StructuralError
	require.ErrorAs(t, err, &structural)
}

func TestBuildForestLedgerWithUnknownGroup(t *testing.T) {
	ledgers := []Ledger{
		ledger(10, 42, "Nowhere", decimal.Zero, shared.SideDebit),
	}
	_, err := BuildForest(nil, ledgers)

	var structural *shared.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, int64(42), structural.GroupID)
}

func TestRollupBalanceSignConventions(t *testing.T) {
	groups := []AccountGroup{
		group(1, "Current Assets", NatureAssets, nil),
		group(2, "Bank Accounts", NatureAssets, ptr(1)),
		group(3, "Current Liabilities", NatureLiabilities, nil),
	}
	ledgers := []Ledger{
		ledger(10, 1, "Cash", decimal.Zero, shared.SideDebit),
		ledger(11, 2, "HDFC Current Account", decimal.Zero, shared.SideDebit),
		ledger(12, 3, "Accounts Payable", decimal.Zero, shared.SideCredit),
	}
	forest, err := BuildForest(groups, ledgers)
	require.NoError(t, err)

	balances := map[int64]LedgerBalance{
		10: {Debit: decimal.NewFromInt(500), Credit: decimal.NewFromInt(100)},
		11: {Debit: decimal.NewFromInt(1000), Credit: decimal.Zero},
		12: {Debit: decimal.Zero, Credit: decimal.NewFromInt(700)},
	}

	assets, err := forest.RollupBalance(1, balances)
	require.NoError(t, err)
	assert.True(t, assets.Equal(decimal.NewFromInt(1400)), "got %s", assets)

	liabilities, err := forest.RollupBalance(3, balances)
	require.NoError(t, err)
	assert.True(t, liabilities.Equal(decimal.NewFromInt(700)), "got %s", liabilities)
}

func TestRollupBalanceFallsBackToOpening(t *testing.T) {
	groups := []AccountGroup{
		group(1, "Current Assets", NatureAssets, nil),
	}
	ledgers := []Ledger{
		ledger(10, 1, "Cash", decimal.NewFromInt(250), shared.SideDebit),
	}
	forest, err := BuildForest(groups, ledgers)
	require.NoError(t, err)

	total, err := forest.RollupBalance(1, map[int64]LedgerBalance{})
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(250)), "got %s", total)
}

func TestRollupBalanceUnknownGroup(t *testing.T) {
	forest, err := BuildForest(nil, nil)
	require.NoError(t, err)

	_, err = forest.RollupBalance(123, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
