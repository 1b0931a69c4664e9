package points

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/pagination"
)

// Service exposes the point ledger operations.
type Service interface {
	Give(ctx context.Context, input GiveInput) (*models.PointTransaction, error)
	History(ctx context.Context, companyID uuid.UUID, params pagination.Params) (*HistoryPage, error)
	RecomputeBalance(ctx context.Context, profileID uuid.UUID) (int64, error)
}

// ServiceParams wires the points service dependencies.
type ServiceParams struct {
	DB       *db.Client
	Repo     Repository
	Profiles profiles.Repository
	Logger   *logger.Logger
}

type service struct {
	db       *db.Client
	repo     Repository
	profiles profiles.Repository
	logg     *logger.Logger
}

// NewService builds the points service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		profiles: params.Profiles,
		logg:     params.Logger,
	}, nil
}

// GiveInput captures a peer recognition transfer.
type GiveInput struct {
	CompanyID          uuid.UUID
	SenderProfileID    uuid.UUID
	RecipientProfileID uuid.UUID
	Points             int64
	Description        string
}

// HistoryPage is one cursor page of ledger entries.
type HistoryPage struct {
	Entries    []models.PointTransaction
	NextCursor string
	HasMore    bool
}

// Give moves points between two active profiles of the same company. The
// sender decrement, recipient increment, and ledger append commit together.
func (s *service) Give(ctx context.Context, input GiveInput) (*models.PointTransaction, error) {
	if input.CompanyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	if input.SenderProfileID == uuid.Nil || input.RecipientProfileID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "sender and recipient are required")
	}
	if input.SenderProfileID == input.RecipientProfileID {
		return nil, apperrors.New(apperrors.CodeValidation, "cannot give points to yourself")
	}
	if input.Points <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "points must be positive")
	}

	var entry *models.PointTransaction
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profiles.WithTx(tx)
		ledger := s.repo.WithTx(tx)

		sender, err := profileRepo.GetByIDForUpdate(ctx, input.SenderProfileID)
		if err != nil {
			return wrapProfileErr(err, "sender")
		}
		recipient, err := profileRepo.GetByIDForUpdate(ctx, input.RecipientProfileID)
		if err != nil {
			return wrapProfileErr(err, "recipient")
		}

		if sender.CompanyID != input.CompanyID || recipient.CompanyID != input.CompanyID {
			return apperrors.New(apperrors.CodeForbidden, "profiles must belong to the company")
		}
		if sender.Status != enums.ProfileStatusActive {
			return apperrors.New(apperrors.CodeStateConflict, "sender is not an active member")
		}
		if recipient.Status != enums.ProfileStatusActive {
			return apperrors.New(apperrors.CodeStateConflict, "recipient is not an active member")
		}
		if sender.Points < input.Points {
			return apperrors.New(apperrors.CodeStateConflict, "Insufficient points balance")
		}

		if err := profileRepo.AddPoints(ctx, sender.ID, -input.Points); err != nil {
			return err
		}
		if err := profileRepo.AddPoints(ctx, recipient.ID, input.Points); err != nil {
			return err
		}

		entry = &models.PointTransaction{
			CompanyID:          input.CompanyID,
			Type:               enums.PointTransactionTypeRecognition,
			SenderProfileID:    &sender.ID,
			RecipientProfileID: &recipient.ID,
			Points:             input.Points,
			Description:        strings.TrimSpace(input.Description),
		}
		return ledger.Create(ctx, entry)
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording recognition")
	}
	return entry, nil
}

func (s *service) History(ctx context.Context, companyID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}

	entries, err := s.repo.ListByCompany(ctx, companyID, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing point transactions")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &HistoryPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		page.HasMore = true
		last := page.Entries[len(page.Entries)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// RecomputeBalance derives the profile balance from the ledger. Used by
// support tooling to verify the denormalized profile counter.
func (s *service) RecomputeBalance(ctx context.Context, profileID uuid.UUID) (int64, error) {
	if profileID == uuid.Nil {
		return 0, apperrors.New(apperrors.CodeValidation, "profile id is required")
	}
	balance, err := s.repo.SumForProfile(ctx, profileID)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "recomputing balance")
	}
	return balance, nil
}

func wrapProfileErr(err error, who string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.New(apperrors.CodeNotFound, who+" profile not found")
	}
	return err
}
