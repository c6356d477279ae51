package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegritySweep re-runs the trial balance integrity check for
	// every tenant.
	TaskIntegritySweep = "ledger:integrity_sweep"
	// TaskAutoMatchSweep runs the statement matcher over every bank
	// account.
	TaskAutoMatchSweep = "recon:auto_match_sweep"
	// TaskAutoMatchAccount runs the statement matcher for one bank
	// account.
	TaskAutoMatchAccount = "recon:auto_match_account"
)

// AutoMatchPayload targets one bank account.
type AutoMatchPayload struct {
	TenantID      int64 `json:"tenant_id"`
	BankAccountID int64 `json:"bank_account_id"`
}

// NewIntegritySweepTask constructs the nightly integrity task.
func NewIntegritySweepTask() *asynq.Task {
	return asynq.NewTask(TaskIntegritySweep, nil)
}

// NewAutoMatchSweepTask constructs the recurring matcher task.
func NewAutoMatchSweepTask() *asynq.Task {
	return asynq.NewTask(TaskAutoMatchSweep, nil)
}

// NewAutoMatchAccountTask constructs a targeted matcher task.
func NewAutoMatchAccountTask(payload AutoMatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAutoMatchAccount, data), nil
}
