package points

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/pagination"
)

// Repository manages the append-only point transaction ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.PointTransaction) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, error)
	SumForProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.PointTransaction) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByCompany(ctx context.Context, companyID uuid.UUID, params pagination.Params) ([]models.PointTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.PointTransaction
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumForProfile derives a profile balance from the ledger: credits where the
// profile received points minus debits where it spent or sent them.
func (r *repository) SumForProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var credits int64
	if err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("recipient_profile_id = ? AND type IN ?", profileID, []enums.PointTransactionType{
			enums.PointTransactionTypeRecognition,
			enums.PointTransactionTypeAllocation,
		}).
		Scan(&credits).Error; err != nil {
		return 0, err
	}

	var debitsSent int64
	if err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("sender_profile_id = ? AND type = ?", profileID, enums.PointTransactionTypeRecognition).
		Scan(&debitsSent).Error; err != nil {
		return 0, err
	}

	var debitsRedeemed int64
	if err := r.db.WithContext(ctx).
		Model(&models.PointTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("sender_profile_id = ? AND type = ?", profileID, enums.PointTransactionTypeRedemption).
		Scan(&debitsRedeemed).Error; err != nil {
		return 0, err
	}

	return credits - debitsSent - debitsRedeemed, nil
}
