package models

import (
	"time"

	"github.com/google/uuid"
)

// AllocationRun is the at-most-once record for the monthly points job. The
// unique (company_id, period) constraint is what makes repeated and
// concurrent runs for the same month collapse into a single credit.
type AllocationRun struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID       uuid.UUID `gorm:"column:company_id;type:uuid;not null;uniqueIndex:uq_allocation_runs_company_period"`
	Period          string    `gorm:"column:period;not null;uniqueIndex:uq_allocation_runs_company_period"`
	MembersCredited int64     `gorm:"column:members_credited;not null;default:0"`
	PointsGranted   int64     `gorm:"column:points_granted;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
