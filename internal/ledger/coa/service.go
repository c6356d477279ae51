package coa

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/meridian-books/meridian/internal/shared"
)

// BalanceSource supplies current ledger balances for rollup queries.
// Implemented by the balances aggregator; accepted as an interface so
// the tree does not depend on how balances are derived.
type BalanceSource interface {
	CurrentBalances(ctx context.Context, tenantID int64) (map[int64]LedgerBalance, error)
}

// Service maintains the chart-of-accounts tree.
type Service struct {
	repo     Repository
	balances BalanceSource
}

// NewService constructs a Service.
func NewService(repo Repository, balances BalanceSource) *Service {
	return &Service{repo: repo, balances: balances}
}

// ResolveHierarchy reconstructs the tenant's forest from flat rows.
func (s *Service) ResolveHierarchy(ctx context.Context, tenantID int64) (*Forest, error) {
	groups, err := s.repo.ListGroups(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ledgers, err := s.repo.ListLedgers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return BuildForest(groups, ledgers)
}

// RollupBalance computes the recursive signed balance of one group.
func (s *Service) RollupBalance(ctx context.Context, tenantID, groupID int64) (decimal.Decimal, error) {
	forest, err := s.ResolveHierarchy(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	balances, err := s.balances.CurrentBalances(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	return forest.RollupBalance(groupID, balances)
}

// CreateGroup inserts a new account group after structural validation.
func (s *Service) CreateGroup(ctx context.Context, g AccountGroup) (AccountGroup, error) {
	if g.Name == "" {
		return AccountGroup{}, &shared.ValidationError{Field: "name", Msg: "group name required"}
	}
	if !g.Nature.Valid() {
		return AccountGroup{}, &shared.ValidationError{Field: "nature", Msg: "unknown nature"}
	}
	if g.ParentID != nil {
		if _, err := s.repo.GetGroup(ctx, g.TenantID, *g.ParentID); err != nil {
			return AccountGroup{}, &shared.StructuralError{GroupID: *g.ParentID, Msg: "parent group does not exist"}
		}
	}
	return s.repo.InsertGroup(ctx, g)
}

// CreateLedger inserts a new leaf account under an existing group.
func (s *Service) CreateLedger(ctx context.Context, l Ledger) (Ledger, error) {
	if l.Name == "" {
		return Ledger{}, &shared.ValidationError{Field: "name", Msg: "ledger name required"}
	}
	if l.OpeningBalance.Sign() < 0 {
		return Ledger{}, &shared.ValidationError{Field: "opening_balance", Msg: "opening balance must be a non-negative magnitude"}
	}
	if !l.OpeningSide.Valid() {
		return Ledger{}, &shared.ValidationError{Field: "opening_side", Msg: "opening side must be DEBIT or CREDIT"}
	}
	if _, err := s.repo.GetGroup(ctx, l.TenantID, l.GroupID); err != nil {
		return Ledger{}, &shared.ValidationError{Field: "group_id", Msg: "owning group does not exist"}
	}
	return s.repo.InsertLedger(ctx, l)
}

// DeactivateGroup soft-deactivates a group. Groups still owning active
// sub-groups or ledgers are never hard-deleted; deactivation is the only
// removal path and it is refused for system groups.
func (s *Service) DeactivateGroup(ctx context.Context, tenantID, groupID int64) error {
	g, err := s.repo.GetGroup(ctx, tenantID, groupID)
	if err != nil {
		return err
	}
	if g.IsSystem {
		return &shared.ConflictError{Msg: "system groups cannot be deactivated"}
	}
	has, err := s.repo.GroupHasMembers(ctx, tenantID, groupID)
	if err != nil {
		return err
	}
	if has {
		return &shared.ConflictError{Msg: "group still owns sub-groups or ledgers"}
	}
	return s.repo.SetGroupActive(ctx, tenantID, groupID, false)
}
