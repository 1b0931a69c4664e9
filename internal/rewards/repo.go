package rewards

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grattia/grattia-backend/pkg/db/models"
)

// UniqueRewardConstraint names the (provider, external_id, company scope)
// guard in the schema.
const UniqueRewardConstraint = "uq_rewards_provider_external_company"

// Repository manages persistence for catalog rewards.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reward *models.Reward) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reward, error)
	ListForCompany(ctx context.Context, companyID uuid.UUID) ([]models.Reward, error)
	DecrementStock(ctx context.Context, rewardID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reward repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&reward, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

// ListForCompany returns the company's own rewards plus the global catalog.
func (r *repository) ListForCompany(ctx context.Context, companyID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	if err := r.db.WithContext(ctx).
		Where("company_id = ? OR company_id IS NULL", companyID).
		Order("created_at ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// DecrementStock lowers a finite stock by one. Unlimited (NULL) stock is left
// alone by the WHERE clause.
func (r *repository) DecrementStock(ctx context.Context, rewardID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id = ? AND stock IS NOT NULL", rewardID).
		Update("stock", gorm.Expr("stock - 1")).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Reward{}, "id = ?", id).Error
}
