package redemptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
)

// Repository manages persistence for redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, redemption *models.Redemption) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Redemption, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Redemption, error)
	ListInFlight(ctx context.Context) ([]models.Redemption, error)
	Update(ctx context.Context, redemption *models.Redemption) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a redemption repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, redemption *models.Redemption) error {
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	if err := r.db.WithContext(ctx).First(&redemption, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	var redemption models.Redemption
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&redemption, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &redemption, nil
}

func (r *repository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Redemption, error) {
	var redemptions []models.Redemption
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Find(&redemptions).Error; err != nil {
		return nil, err
	}
	return redemptions, nil
}

// ListInFlight returns redemptions the fulfillment sync still has to track:
// anything with a provider order that has not reached a terminal status.
func (r *repository) ListInFlight(ctx context.Context) ([]models.Redemption, error) {
	var redemptions []models.Redemption
	if err := r.db.WithContext(ctx).
		Where("provider_order_id IS NOT NULL AND status NOT IN ?", []enums.RedemptionStatus{
			enums.RedemptionStatusDelivered,
			enums.RedemptionStatusCanceled,
		}).
		Order("created_at ASC").
		Find(&redemptions).Error; err != nil {
		return nil, err
	}
	return redemptions, nil
}

func (r *repository) Update(ctx context.Context, redemption *models.Redemption) error {
	return r.db.WithContext(ctx).Save(redemption).Error
}
