package redemptions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/internal/rewards"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// OrderChecker polls a provider for the fulfillment status of an order.
type OrderChecker interface {
	CheckOrder(ctx context.Context, orderID string) (enums.RedemptionStatus, error)
}

// SyncResult reports one redemption visited by SyncOrders.
type SyncResult struct {
	RedemptionID uuid.UUID              `json:"redemption_id"`
	From         enums.RedemptionStatus `json:"from"`
	To           enums.RedemptionStatus `json:"to"`
	Advanced     bool                   `json:"advanced"`
	Error        string                 `json:"error,omitempty"`
}

// Service exposes redemption operations.
type Service interface {
	Redeem(ctx context.Context, profileID, rewardID uuid.UUID) (*models.Redemption, error)
	ListForProfile(ctx context.Context, profileID uuid.UUID) ([]models.Redemption, error)
	Advance(ctx context.Context, redemptionID uuid.UUID, next enums.RedemptionStatus) (*models.Redemption, error)
	SyncOrders(ctx context.Context) ([]SyncResult, error)
}

// ServiceParams wires the redemption service dependencies.
type ServiceParams struct {
	DB       *db.Client
	Repo     Repository
	Rewards  rewards.Repository
	Profiles profiles.Repository
	Ledger   points.Repository
	Checkers map[enums.RewardProvider]OrderChecker
	Logger   *logger.Logger
}

type service struct {
	db       *db.Client
	repo     Repository
	rewards  rewards.Repository
	profiles profiles.Repository
	ledger   points.Repository
	checkers map[enums.RewardProvider]OrderChecker
	logg     *logger.Logger
}

// NewService builds the redemption service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("redemption repository required")
	}
	if params.Rewards == nil {
		return nil, fmt.Errorf("reward repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		rewards:  params.Rewards,
		profiles: params.Profiles,
		ledger:   params.Ledger,
		checkers: params.Checkers,
		logg:     params.Logger,
	}, nil
}

// Redeem spends a profile's points on a reward. Balance check, stock
// decrement, points decrement, redemption insert, and ledger append commit as
// one transaction.
func (s *service) Redeem(ctx context.Context, profileID, rewardID uuid.UUID) (*models.Redemption, error) {
	if profileID == uuid.Nil || rewardID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "profile and reward ids are required")
	}

	var redemption *models.Redemption
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		profileRepo := s.profiles.WithTx(tx)
		rewardRepo := s.rewards.WithTx(tx)
		redemptionRepo := s.repo.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		profile, err := profileRepo.GetByIDForUpdate(ctx, profileID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "profile not found")
			}
			return err
		}
		reward, err := rewardRepo.GetByIDForUpdate(ctx, rewardID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "reward not found")
			}
			return err
		}

		if reward.CompanyID != nil && *reward.CompanyID != profile.CompanyID {
			return apperrors.New(apperrors.CodeNotFound, "reward not found")
		}
		if profile.Status != enums.ProfileStatusActive {
			return apperrors.New(apperrors.CodeStateConflict, "profile is not an active member")
		}
		if profile.Points < reward.PointsCost {
			return apperrors.New(apperrors.CodeStateConflict, "Insufficient points balance")
		}
		if reward.Stock != nil && *reward.Stock <= 0 {
			return apperrors.New(apperrors.CodeStateConflict, "reward is out of stock")
		}

		if reward.Stock != nil {
			if err := rewardRepo.DecrementStock(ctx, reward.ID); err != nil {
				return err
			}
		}
		if err := profileRepo.AddPoints(ctx, profile.ID, -reward.PointsCost); err != nil {
			return err
		}

		redemption = &models.Redemption{
			ProfileID:   profile.ID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsCost,
			Status:      enums.RedemptionStatusPending,
		}
		if err := redemptionRepo.Create(ctx, redemption); err != nil {
			return err
		}

		entry := &models.PointTransaction{
			CompanyID:       profile.CompanyID,
			Type:            enums.PointTransactionTypeRedemption,
			SenderProfileID: &profile.ID,
			Points:          reward.PointsCost,
			Description:     fmt.Sprintf("Redeemed %s", reward.Name),
		}
		return ledger.Create(ctx, entry)
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording redemption")
	}
	return redemption, nil
}

func (s *service) ListForProfile(ctx context.Context, profileID uuid.UUID) ([]models.Redemption, error) {
	if profileID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "profile id is required")
	}
	redemptions, err := s.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing redemptions")
	}
	return redemptions, nil
}

// Advance moves a redemption forward. Regressions and transitions out of a
// terminal state are state conflicts, so replayed provider callbacks are
// harmless.
func (s *service) Advance(ctx context.Context, redemptionID uuid.UUID, next enums.RedemptionStatus) (*models.Redemption, error) {
	if redemptionID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "redemption id is required")
	}
	if !next.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid redemption status %q", next))
	}

	var updated *models.Redemption
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		redemptionRepo := s.repo.WithTx(tx)

		redemption, err := redemptionRepo.GetByIDForUpdate(ctx, redemptionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "redemption not found")
			}
			return err
		}
		if !redemption.Status.CanAdvanceTo(next) {
			return apperrors.New(apperrors.CodeStateConflict,
				fmt.Sprintf("cannot move redemption from %s to %s", redemption.Status, next))
		}

		redemption.Status = next
		if err := redemptionRepo.Update(ctx, redemption); err != nil {
			return err
		}
		updated = redemption
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "advancing redemption")
	}
	return updated, nil
}

// SyncOrders polls provider order status for in-flight redemptions and
// advances the local rows. Per-redemption failures are reported in the result
// slice and the sweep continues.
func (s *service) SyncOrders(ctx context.Context) ([]SyncResult, error) {
	inFlight, err := s.repo.ListInFlight(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing in-flight redemptions")
	}

	results := make([]SyncResult, 0, len(inFlight))
	for i := range inFlight {
		redemption := &inFlight[i]
		result := SyncResult{RedemptionID: redemption.ID, From: redemption.Status, To: redemption.Status}

		reward, err := s.rewards.GetByID(ctx, redemption.RewardID)
		if err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		checker, ok := s.checkers[reward.Provider]
		if !ok || redemption.ProviderOrderID == nil {
			results = append(results, result)
			continue
		}

		status, err := checker.CheckOrder(ctx, *redemption.ProviderOrderID)
		if err != nil {
			s.logg.Error(ctx, "order status check failed", err)
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		if status == redemption.Status || !redemption.Status.CanAdvanceTo(status) {
			results = append(results, result)
			continue
		}

		if _, err := s.Advance(ctx, redemption.ID, status); err != nil {
			result.Error = err.Error()
			results = append(results, result)
			continue
		}
		result.To = status
		result.Advanced = true
		results = append(results, result)
	}
	return results, nil
}
