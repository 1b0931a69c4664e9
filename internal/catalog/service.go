package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grattia/grattia-backend/internal/rewards"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// ImportInput describes one catalog import request. A nil CompanyID imports
// into the global catalog.
type ImportInput struct {
	CompanyID  *uuid.UUID
	Provider   enums.RewardProvider
	ProductID  string
	Multiplier decimal.Decimal
	Stock      *int64
}

// Service imports external products as reward rows.
type Service interface {
	Import(ctx context.Context, input ImportInput) (*models.Reward, error)
}

// ServiceParams wires the catalog service dependencies.
type ServiceParams struct {
	Repo     rewards.Repository
	Fetchers map[enums.RewardProvider]ProductFetcher
	Logger   *logger.Logger
}

type service struct {
	repo     rewards.Repository
	fetchers map[enums.RewardProvider]ProductFetcher
	logg     *logger.Logger
}

// NewService builds the catalog import service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reward repository required")
	}
	if len(params.Fetchers) == 0 {
		return nil, fmt.Errorf("at least one product fetcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		fetchers: params.Fetchers,
		logg:     params.Logger,
	}, nil
}

// PointsCost converts a dollar price into points. Fixed at import time; later
// multiplier changes never reprice existing rewards.
func PointsCost(priceDollars, multiplier decimal.Decimal) int64 {
	return priceDollars.Mul(multiplier).Round(0).IntPart()
}

// Import fetches the product from its provider, prices it, and inserts the
// reward row. Re-importing the same external id into the same scope is a
// conflict.
func (s *service) Import(ctx context.Context, input ImportInput) (*models.Reward, error) {
	if !input.Provider.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid reward provider %q", input.Provider))
	}
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product id is required")
	}
	if !input.Multiplier.IsPositive() {
		return nil, apperrors.New(apperrors.CodeValidation, "multiplier must be positive")
	}
	if input.Stock != nil && *input.Stock < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "stock cannot be negative")
	}

	fetcher, ok := s.fetchers[input.Provider]
	if !ok {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("provider %s is not configured", input.Provider))
	}

	product, err := fetcher.FetchProduct(ctx, strings.TrimSpace(input.ProductID))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "fetching product from provider")
	}
	if product.Name == "" {
		return nil, apperrors.New(apperrors.CodeDependency, "provider returned a product without a name")
	}

	reward := &models.Reward{
		CompanyID:   input.CompanyID,
		Name:        product.Name,
		Description: product.Description,
		PointsCost:  PointsCost(product.PriceDollars, input.Multiplier),
		Provider:    input.Provider,
		ExternalID:  product.ExternalID,
		Price:       product.PriceDollars,
		Stock:       input.Stock,
		ImageURL:    product.ImageURL,
	}

	if err := s.repo.Create(ctx, reward); err != nil {
		if db.IsUniqueViolation(err, rewards.UniqueRewardConstraint) {
			return nil, apperrors.New(apperrors.CodeConflict, "reward already imported for this catalog")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating reward")
	}
	return reward, nil
}
