package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// Company represents the canonical tenant model. Stripe identifiers are kept
// per environment so a company can move between test and live without losing
// either account linkage.
type Company struct {
	ID                       uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                     string            `gorm:"column:name;not null"`
	Environment              enums.Environment `gorm:"column:environment;not null;default:'test'"`
	StripeTestCustomerID     *string           `gorm:"column:stripe_test_customer_id"`
	StripeLiveCustomerID     *string           `gorm:"column:stripe_live_customer_id"`
	StripeTestSubscriptionID *string           `gorm:"column:stripe_test_subscription_id"`
	StripeLiveSubscriptionID *string           `gorm:"column:stripe_live_subscription_id"`
	PointsBalance            int64             `gorm:"column:points_balance;not null;default:0"`
	TeamMemberMonthlyLimit   int64             `gorm:"column:team_member_monthly_limit;not null;default:0"`
	AllocationDay            int               `gorm:"column:allocation_day;not null;default:1"`
	CreatedAt                time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt                gorm.DeletedAt    `gorm:"column:deleted_at;index"`
}

// StripeCustomerID returns the customer id for the requested environment.
func (c *Company) StripeCustomerID(env enums.Environment) *string {
	if env == enums.EnvironmentLive {
		return c.StripeLiveCustomerID
	}
	return c.StripeTestCustomerID
}

// SetStripeCustomerID writes the customer id column for the environment.
func (c *Company) SetStripeCustomerID(env enums.Environment, id *string) {
	if env == enums.EnvironmentLive {
		c.StripeLiveCustomerID = id
		return
	}
	c.StripeTestCustomerID = id
}

// StripeSubscriptionID returns the subscription id for the requested environment.
func (c *Company) StripeSubscriptionID(env enums.Environment) *string {
	if env == enums.EnvironmentLive {
		return c.StripeLiveSubscriptionID
	}
	return c.StripeTestSubscriptionID
}

// SetStripeSubscriptionID writes the subscription id column for the environment.
func (c *Company) SetStripeSubscriptionID(env enums.Environment, id *string) {
	if env == enums.EnvironmentLive {
		c.StripeLiveSubscriptionID = id
		return
	}
	c.StripeTestSubscriptionID = id
}
