// Package tenant carries the interface boundary with the external
// tenant-management collaborator: the ledger core consumes tenant ids,
// actor ids, and fiscal years, and owns none of them.
package tenant

import "time"

// FiscalYear bounds the posting window for one tenant year.
type FiscalYear struct {
	ID        int64
	TenantID  int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	IsClosed  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether a date falls inside the fiscal year window.
func (fy FiscalYear) Contains(date time.Time) bool {
	return !date.Before(fy.StartDate) && !date.After(fy.EndDate)
}
