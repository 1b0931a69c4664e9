package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db/models"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// Service exposes the reward catalog read/delete surface. Imports go through
// the catalog service.
type Service interface {
	List(ctx context.Context, companyID uuid.UUID) ([]models.Reward, error)
	Get(ctx context.Context, companyID, rewardID uuid.UUID) (*models.Reward, error)
	Delete(ctx context.Context, companyID, rewardID uuid.UUID) error
}

// ServiceParams wires the rewards service dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the rewards service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reward repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]models.Reward, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	rewards, err := s.repo.ListForCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing rewards")
	}
	return rewards, nil
}

// Get returns a reward visible to the company: its own or a global one.
func (s *service) Get(ctx context.Context, companyID, rewardID uuid.UUID) (*models.Reward, error) {
	reward, err := s.load(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward.CompanyID != nil && *reward.CompanyID != companyID {
		return nil, apperrors.New(apperrors.CodeNotFound, "reward not found")
	}
	return reward, nil
}

// Delete removes a company-owned reward. Global catalog entries are managed
// by the platform and cannot be deleted through the tenant surface.
func (s *service) Delete(ctx context.Context, companyID, rewardID uuid.UUID) error {
	reward, err := s.load(ctx, rewardID)
	if err != nil {
		return err
	}
	if reward.CompanyID == nil {
		return apperrors.New(apperrors.CodeForbidden, "global rewards cannot be deleted")
	}
	if *reward.CompanyID != companyID {
		return apperrors.New(apperrors.CodeNotFound, "reward not found")
	}
	if err := s.repo.Delete(ctx, rewardID); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "deleting reward")
	}
	return nil
}

func (s *service) load(ctx context.Context, rewardID uuid.UUID) (*models.Reward, error) {
	if rewardID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "reward id is required")
	}
	reward, err := s.repo.GetByID(ctx, rewardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "reward not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading reward")
	}
	return reward, nil
}
