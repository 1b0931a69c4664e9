package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// Redemption tracks a profile spending points on a reward. Status transitions
// are monotonic; see enums.RedemptionStatus.CanAdvanceTo.
type Redemption struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProfileID       uuid.UUID              `gorm:"column:profile_id;type:uuid;not null"`
	RewardID        uuid.UUID              `gorm:"column:reward_id;type:uuid;not null"`
	PointsSpent     int64                  `gorm:"column:points_spent;not null"`
	Status          enums.RedemptionStatus `gorm:"column:status;not null;default:'pending'"`
	ProviderOrderID *string                `gorm:"column:provider_order_id"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
