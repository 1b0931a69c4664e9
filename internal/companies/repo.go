package companies

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
)

// Repository manages persistence for companies and their audit snapshots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, company *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListSubscribed(ctx context.Context) ([]models.Company, error)
	GetByStripeCustomerID(ctx context.Context, env enums.Environment, customerID string) (*models.Company, error)
	GetByStripeSubscriptionID(ctx context.Context, env enums.Environment, subscriptionID string) (*models.Company, error)
	WriteAudit(ctx context.Context, entry *models.AuditLog) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a company repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Create(company).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) Update(ctx context.Context, company *models.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}

func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Company{}, "id = ?", id).Error
}

// ListSubscribed returns companies holding a subscription id for their active
// environment, i.e. the population the monthly allocation job iterates.
func (r *repository) ListSubscribed(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := r.db.WithContext(ctx).
		Where("(environment = ? AND stripe_test_subscription_id IS NOT NULL) OR (environment = ? AND stripe_live_subscription_id IS NOT NULL)",
			enums.EnvironmentTest, enums.EnvironmentLive).
		Order("created_at ASC").
		Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repository) GetByStripeCustomerID(ctx context.Context, env enums.Environment, customerID string) (*models.Company, error) {
	column := "stripe_test_customer_id"
	if env == enums.EnvironmentLive {
		column = "stripe_live_customer_id"
	}
	var company models.Company
	if err := r.db.WithContext(ctx).
		First(&company, column+" = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) GetByStripeSubscriptionID(ctx context.Context, env enums.Environment, subscriptionID string) (*models.Company, error) {
	column := "stripe_test_subscription_id"
	if env == enums.EnvironmentLive {
		column = "stripe_live_subscription_id"
	}
	var company models.Company
	if err := r.db.WithContext(ctx).
		First(&company, column+" = ?", subscriptionID).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *repository) WriteAudit(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
