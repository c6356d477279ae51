package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/ledger/recon"
	"github.com/meridian-books/meridian/internal/shared"
)

// NewAutoMatchSweepHandler runs the matcher over every active bank
// account. An account already locked by an interactive run is skipped;
// the next sweep picks it up.
func NewAutoMatchSweepHandler(logger *slog.Logger, tenants TenantSource, matcher *recon.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		ids, err := tenants.ListTenantIDs(ctx)
		if err != nil {
			return err
		}
		for _, tenantID := range ids {
			accounts, err := matcher.ListBankAccounts(ctx, tenantID)
			if err != nil {
				return err
			}
			for _, account := range accounts {
				if !account.Active {
					continue
				}
				if err := matchOne(ctx, logger, matcher, tenantID, account.ID); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

// NewAutoMatchAccountHandler runs the matcher for a single account,
// typically enqueued right after a statement import.
func NewAutoMatchAccountHandler(logger *slog.Logger, matcher *recon.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload AutoMatchPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return matchOne(ctx, logger, matcher, payload.TenantID, payload.BankAccountID)
	}
}

func matchOne(ctx context.Context, logger *slog.Logger, matcher *recon.Service, tenantID, accountID int64) error {
	result, err := matcher.AutoMatch(ctx, tenantID, accountID, 0)
	if errors.Is(err, shared.ErrAccountBusy) {
		logger.Warn("bank account busy, skipping",
			slog.Int64("tenant", tenantID), slog.Int64("bank_account", accountID))
		return nil
	}
	if err != nil {
		return err
	}
	if result.Matched > 0 {
		logger.Info("auto-matched statement lines",
			slog.Int64("tenant", tenantID),
			slog.Int64("bank_account", accountID),
			slog.Int("matched", result.Matched))
	}
	return nil
}
