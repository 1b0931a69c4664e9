package allocation

import (
	"context"

	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db/models"
)

// UniqueRunConstraint names the (company_id, period) guard in the schema.
const UniqueRunConstraint = "uq_allocation_runs_company_period"

// Repository manages allocation run records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateRun(ctx context.Context, run *models.AllocationRun) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an allocation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRun(ctx context.Context, run *models.AllocationRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}
