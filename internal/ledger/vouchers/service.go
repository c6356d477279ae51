package vouchers

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-books/meridian/internal/shared"
)

// AuditPort persists audit history for posting actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator bumps the report cache version when balances change.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service owns voucher submission and the status state machine.
type Service struct {
	repo   Repository
	audit  AuditPort
	cache  CacheInvalidator
	policy PostingPolicy
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, audit AuditPort, cache CacheInvalidator, policy PostingPolicy) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, policy: policy, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get loads one voucher with entries.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (Voucher, error) {
	return s.repo.GetVoucher(ctx, tenantID, id)
}

// List returns vouchers for a tenant, newest first.
func (s *Service) List(ctx context.Context, tenantID int64, page shared.Pagination) ([]Voucher, error) {
	return s.repo.ListVouchers(ctx, tenantID, page)
}

// Submit validates and persists a balanced voucher atomically. Header
// and entries commit together or not at all; a partially persisted
// voucher is never visible.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Voucher, error) {
	if err := in.Validate(); err != nil {
		return Voucher{}, err
	}
	var voucher Voucher
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		vtype, err := tx.GetVoucherType(ctx, in.TenantID, in.TypeID)
		if err != nil {
			return err
		}
		fy, err := tx.GetFiscalYear(ctx, in.TenantID, in.FiscalYearID)
		if err != nil {
			return err
		}
		if fy.IsClosed {
			return shared.ErrFiscalYearClosed
		}
		if !fy.Contains(in.Date) {
			return &shared.ValidationError{Field: "date", Msg: "voucher date outside fiscal year"}
		}
		ledgerIDs := make([]int64, 0, len(in.Entries))
		for _, entry := range in.Entries {
			ledgerIDs = append(ledgerIDs, entry.LedgerID)
		}
		owned, err := tx.CountLedgersInTenant(ctx, in.TenantID, ledgerIDs)
		if err != nil {
			return err
		}
		if owned != len(uniqueIDs(ledgerIDs)) {
			return shared.ErrTenantMismatch
		}
		initial := vtype.InitialStatus
		if initial == "" {
			initial = StatusDraft
		}
		inserted, err := tx.InsertVoucher(ctx, in, initial)
		if err != nil {
			return err
		}
		if err := tx.InsertEntries(ctx, inserted.ID, in.Entries); err != nil {
			return err
		}
		inserted.Entries = toEntries(inserted.ID, in.Entries, s.now())
		voucher = inserted
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	// Under a tentative posting policy a freshly submitted voucher
	// already moves report totals.
	if s.cache != nil && s.policy.Postable(voucher.Status) {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.CreatedBy,
			Action:   "voucher.submit",
			Entity:   "voucher",
			EntityID: fmt.Sprintf("%d", voucher.ID),
			Meta: map[string]any{
				"number":  voucher.Number,
				"type_id": in.TypeID,
				"entries": len(in.Entries),
			},
			At: s.now(),
		})
	}
	return voucher, nil
}

// Transition moves a voucher through the closed state machine. The
// status write is atomic with the approval's balance visibility: the
// same transaction that flips the row decides what the aggregator sees,
// so there is no window where entries post with a lagging status.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (Voucher, error) {
	if in.VoucherID == 0 {
		return Voucher{}, &shared.ValidationError{Field: "voucher_id", Msg: "voucher id required"}
	}
	var voucher Voucher
	var from VoucherStatus
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetVoucherForUpdate(ctx, in.TenantID, in.VoucherID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(current.Status, in.Target); err != nil {
			return err
		}
		if err := tx.UpdateVoucherStatus(ctx, current.ID, in.Target); err != nil {
			return err
		}
		from = current.Status
		current.Status = in.Target
		voucher = current
		return nil
	})
	if err != nil {
		return Voucher{}, err
	}
	// Report totals move whenever the voucher's entries enter or leave
	// the postable set: approval and cancellation under the strict
	// policy, rejection too when drafts post tentatively. Cancellation
	// keeps the rows for audit; the status excludes them from
	// aggregation.
	if s.cache != nil && s.policy.Postable(from) != s.policy.Postable(in.Target) {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			TenantID: in.TenantID,
			ActorID:  in.ActorID,
			Action:   "voucher." + transitionAction(in.Target),
			Entity:   "voucher",
			EntityID: fmt.Sprintf("%d", voucher.ID),
			Meta: map[string]any{
				"status": string(in.Target),
				"note":   in.Note,
			},
			At: s.now(),
		})
	}
	return voucher, nil
}

func transitionAction(target VoucherStatus) string {
	switch target {
	case StatusPendingApproval:
		return "submit_for_approval"
	case StatusApproved:
		return "approve"
	case StatusRejected:
		return "reject"
	case StatusCancelled:
		return "cancel"
	default:
		return "transition"
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func toEntries(voucherID int64, in []EntryInput, ts time.Time) []VoucherEntry {
	out := make([]VoucherEntry, 0, len(in))
	for _, entry := range in {
		out = append(out, VoucherEntry{
			VoucherID: voucherID,
			LedgerID:  entry.LedgerID,
			Debit:     entry.Debit,
			Credit:    entry.Credit,
			Narration: entry.Narration,
			CreatedAt: ts,
			UpdatedAt: ts,
		})
	}
	return out
}
