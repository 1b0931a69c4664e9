package profiles

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
)

// Repository manages persistence for company memberships.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Profile, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Profile, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error)
	ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error)
	CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
	Update(ctx context.Context, profile *models.Profile) error
	AddPoints(ctx context.Context, profileID uuid.UUID, delta int64) error
	SetStatus(ctx context.Context, profileID uuid.UUID, status enums.ProfileStatus) error
	MarkFirstLogin(ctx context.Context, profileID uuid.UUID, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a profile repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) GetByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).
		First(&profile, "user_id = ? AND company_id = ?", userID, companyID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND status = ?", companyID, enums.ProfileStatusActive).
		Order("created_at ASC").
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) CountActiveByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("company_id = ? AND status = ?", companyID, enums.ProfileStatusActive).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Update(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// AddPoints applies a relative balance change guarded by the non-negative
// check in the schema.
func (r *repository) AddPoints(ctx context.Context, profileID uuid.UUID, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("points", gorm.Expr("points + ?", delta)).Error
}

func (r *repository) SetStatus(ctx context.Context, profileID uuid.UUID, status enums.ProfileStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profileID).
		Update("status", status).Error
}

func (r *repository) MarkFirstLogin(ctx context.Context, profileID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ? AND status = ?", profileID, enums.ProfileStatusInvited).
		Updates(map[string]any{
			"status":         enums.ProfileStatusActive,
			"first_login_at": at,
		}).Error
}
