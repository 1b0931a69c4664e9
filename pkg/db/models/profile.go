package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// Profile is a user's membership in a single company. Points is a denormalized
// read model; the point_transactions ledger is authoritative and both are
// written in the same transaction.
type Profile struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID    uuid.UUID           `gorm:"column:company_id;type:uuid;not null"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	DepartmentID *uuid.UUID          `gorm:"column:department_id;type:uuid"`
	FirstName    string              `gorm:"column:first_name;not null;default:''"`
	LastName     string              `gorm:"column:last_name;not null;default:''"`
	Points       int64               `gorm:"column:points;not null;default:0"`
	IsAdmin      bool                `gorm:"column:is_admin;not null;default:false"`
	Status       enums.ProfileStatus `gorm:"column:status;not null;default:'invited'"`
	FirstLoginAt *time.Time          `gorm:"column:first_login_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
