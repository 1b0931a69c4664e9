package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog stores operational snapshots, e.g. the company backup taken before
// a soft delete.
type AuditLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID *uuid.UUID      `gorm:"column:company_id;type:uuid"`
	Action    string          `gorm:"column:action;not null"`
	Snapshot  json.RawMessage `gorm:"column:snapshot;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
