package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// Reward is a redeemable catalog entry. A nil CompanyID marks a global catalog
// reward. PointsCost is fixed at import time and is not recalculated when the
// company's multiplier changes later.
type Reward struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID   *uuid.UUID           `gorm:"column:company_id;type:uuid"`
	Name        string               `gorm:"column:name;not null"`
	Description string               `gorm:"column:description;not null;default:''"`
	PointsCost  int64                `gorm:"column:points_cost;not null"`
	Provider    enums.RewardProvider `gorm:"column:provider;not null"`
	ExternalID  string               `gorm:"column:external_id;not null"`
	Price       decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       *int64               `gorm:"column:stock"`
	ImageURL    string               `gorm:"column:image_url;not null;default:''"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
