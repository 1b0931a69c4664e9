package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// SubscriptionEvent is the append-only billing audit trail.
type SubscriptionEvent struct {
	ID                 uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID          uuid.UUID                   `gorm:"column:company_id;type:uuid;not null"`
	EventType          enums.SubscriptionEventType `gorm:"column:event_type;not null"`
	PreviousQuantity   *int64                      `gorm:"column:previous_quantity"`
	NewQuantity        *int64                      `gorm:"column:new_quantity"`
	AmountChargedCents *int64                      `gorm:"column:amount_charged_cents"`
	StripeObjectID     *string                     `gorm:"column:stripe_object_id"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
