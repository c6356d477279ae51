package shared

import "fmt"

// ReconLockKey builds redis keys guarding per-account reconciliation runs.
func ReconLockKey(bankAccountID int64) string {
	return fmt.Sprintf("recon:account:%d:lock", bankAccountID)
}

// ReportCacheVersionKey is bumped whenever an approval changes balances.
const ReportCacheVersionKey = "reports:version"
