package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/ledger/balances"
	"github.com/meridian-books/meridian/internal/shared"
)

// TenantSource lists the tenants a sweep must cover.
type TenantSource interface {
	ListTenantIDs(ctx context.Context) ([]int64, error)
}

// NewIntegritySweepHandler checks every tenant's trial balance. A
// mismatch is not retryable; it needs a human, so the handler logs and
// moves on rather than failing the task.
func NewIntegritySweepHandler(logger *slog.Logger, tenants TenantSource, reports *balances.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		ids, err := tenants.ListTenantIDs(ctx)
		if err != nil {
			return err
		}
		asOf := time.Now()
		for _, tenantID := range ids {
			_, err := reports.TrialBalance(ctx, tenantID, asOf)
			var integrity *shared.IntegrityError
			switch {
			case err == nil:
				logger.Info("integrity check passed", slog.Int64("tenant", tenantID))
			case errors.As(err, &integrity):
				logger.Error("trial balance out of balance",
					slog.Int64("tenant", tenantID),
					slog.String("total_debit", integrity.TotalDebit.StringFixed(2)),
					slog.String("total_credit", integrity.TotalCredit.StringFixed(2)))
			case errors.Is(err, shared.ErrNotFound):
				// Tenant has no fiscal year covering today.
				continue
			default:
				return err
			}
		}
		return nil
	}
}
