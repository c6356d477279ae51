package coa

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/shared"
)

// Node is one arena entry of the reconstructed tree. Children and
// ledgers are referenced by id rather than embedded, so the tree has a
// single owner: the Forest.
type Node struct {
	Group     AccountGroup
	ChildIDs  []int64
	LedgerIDs []int64
}

// Forest is the chart-of-accounts hierarchy rebuilt from flat rows.
type Forest struct {
	nodes   map[int64]*Node
	ledgers map[int64]Ledger
	roots   []int64
}

// BuildForest reconstructs the hierarchy from flat group and ledger rows.
// A group whose declared parent is missing, or whose parent chain
// cycles, fails with a StructuralError. Stored data is not trusted: the
// walk keeps its own visited set.
func BuildForest(groups []AccountGroup, ledgers []Ledger) (*Forest, error) {
	f := &Forest{
		nodes:   make(map[int64]*Node, len(groups)),
		ledgers: make(map[int64]Ledger, len(ledgers)),
	}
	for _, g := range groups {
		f.nodes[g.ID] = &Node{Group: g}
	}
	for _, g := range groups {
		if g.ParentID == nil {
			f.roots = append(f.roots, g.ID)
			continue
		}
		parent, ok := f.nodes[*g.ParentID]
		if !ok {
			return nil, &shared.StructuralError{GroupID: g.ID, Msg: "parent group does not exist"}
		}
		parent.ChildIDs = append(parent.ChildIDs, g.ID)
	}
	for _, g := range groups {
		if err := f.checkParentChain(g.ID); err != nil {
			return nil, err
		}
	}
	for _, l := range ledgers {
		node, ok := f.nodes[l.GroupID]
		if !ok {
			return nil, &shared.StructuralError{GroupID: l.GroupID, Msg: "ledger references unknown group"}
		}
		node.LedgerIDs = append(node.LedgerIDs, l.ID)
		f.ledgers[l.ID] = l
	}

	sort.Slice(f.roots, func(i, j int) bool {
		a, b := f.nodes[f.roots[i]].Group, f.nodes[f.roots[j]].Group
		if naturePrecedence[a.Nature] != naturePrecedence[b.Nature] {
			return naturePrecedence[a.Nature] < naturePrecedence[b.Nature]
		}
		return a.Name < b.Name
	})
	for _, node := range f.nodes {
		children := node.ChildIDs
		sort.Slice(children, func(i, j int) bool {
			return f.nodes[children[i]].Group.Name < f.nodes[children[j]].Group.Name
		})
	}
	return f, nil
}

func (f *Forest) checkParentChain(id int64) error {
	visited := make(map[int64]bool)
	for cur := f.nodes[id]; cur.Group.ParentID != nil; {
		if visited[cur.Group.ID] {
			return &shared.StructuralError{GroupID: id, Msg: "parent chain cycles"}
		}
		visited[cur.Group.ID] = true
		next, ok := f.nodes[*cur.Group.ParentID]
		if !ok {
			return &shared.StructuralError{GroupID: cur.Group.ID, Msg: "parent group does not exist"}
		}
		cur = next
	}
	return nil
}

// Roots returns root nodes in nature precedence order.
func (f *Forest) Roots() []*Node {
	out := make([]*Node, 0, len(f.roots))
	for _, id := range f.roots {
		out = append(out, f.nodes[id])
	}
	return out
}

// Node returns the node for a group id.
func (f *Forest) Node(id int64) (*Node, bool) {
	node, ok := f.nodes[id]
	return node, ok
}

// Ledger returns a ledger in the forest by id.
func (f *Forest) Ledger(id int64) (Ledger, bool) {
	l, ok := f.ledgers[id]
	return l, ok
}

// RollupBalance recursively sums the group's own ledgers, converted to
// a signed number by the group's nature, plus every child group's own
// rollup. Ledgers missing from balances count as zero activity but
// still contribute their opening balance.
func (f *Forest) RollupBalance(groupID int64, balances map[int64]LedgerBalance) (decimal.Decimal, error) {
	node, ok := f.nodes[groupID]
	if !ok {
		return decimal.Zero, shared.ErrNotFound
	}
	total := decimal.Zero
	for _, ledgerID := range node.LedgerIDs {
		ledger := f.ledgers[ledgerID]
		net := ledger.OpeningSigned()
		if bal, ok := balances[ledgerID]; ok {
			net = bal.Net()
		}
		if node.Group.Nature.DebitNormal() {
			total = total.Add(net)
		} else {
			total = total.Add(net.Neg())
		}
	}
	for _, childID := range node.ChildIDs {
		child, err := f.RollupBalance(childID, balances)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(child)
	}
	return total, nil
}
