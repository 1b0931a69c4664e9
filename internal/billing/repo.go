package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db/models"
)

// Repository manages the subscription event audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RecordEvent(ctx context.Context, event *models.SubscriptionEvent) error
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.SubscriptionEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) RecordEvent(ctx context.Context, event *models.SubscriptionEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.SubscriptionEvent, error) {
	var events []models.SubscriptionEvent
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
