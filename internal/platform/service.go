package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// Operation selects the direction of a platform balance adjustment.
type Operation string

const (
	OperationGrant  Operation = "grant"
	OperationRemove Operation = "remove"
)

// ParseOperation converts raw input into an Operation.
func ParseOperation(value string) (Operation, error) {
	switch Operation(value) {
	case OperationGrant:
		return OperationGrant, nil
	case OperationRemove:
		return OperationRemove, nil
	default:
		return "", fmt.Errorf("invalid operation %q", value)
	}
}

// Actor identifies who is performing a platform operation.
type Actor struct {
	UserID        uuid.UUID
	PlatformAdmin bool
}

// AdjustInput captures a company pool grant or removal.
type AdjustInput struct {
	CompanyID   uuid.UUID
	Amount      int64
	Operation   Operation
	Description string
}

// AdjustResult reports the balance movement.
type AdjustResult struct {
	CompanyID       uuid.UUID `json:"company_id"`
	PreviousBalance int64     `json:"previous_balance"`
	NewBalance      int64     `json:"new_balance"`
	Transaction     *models.PointTransaction
}

// Service exposes platform-admin operations on company point pools.
type Service interface {
	Adjust(ctx context.Context, actor Actor, input AdjustInput) (*AdjustResult, error)
}

// ServiceParams wires the platform service dependencies.
type ServiceParams struct {
	DB        *db.Client
	Companies companies.Repository
	Ledger    points.Repository
	Logger    *logger.Logger
}

type service struct {
	db        *db.Client
	companies companies.Repository
	ledger    points.Repository
	logg      *logger.Logger
}

// NewService builds the platform service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:        params.DB,
		companies: params.Companies,
		ledger:    params.Ledger,
		logg:      params.Logger,
	}, nil
}

// Adjust applies a grant or removal to the company's point pool. The balance
// write and the audit ledger row commit in one transaction, so a failed audit
// insert rolls the balance back. Removals exceeding the current balance are
// rejected and leave the balance untouched.
func (s *service) Adjust(ctx context.Context, actor Actor, input AdjustInput) (*AdjustResult, error) {
	if !actor.PlatformAdmin {
		return nil, apperrors.New(apperrors.CodeForbidden, "platform admin access required")
	}
	if input.CompanyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	if input.Operation != OperationGrant && input.Operation != OperationRemove {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid operation %q", input.Operation))
	}

	var result *AdjustResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		companyRepo := s.companies.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		company, err := companyRepo.GetByIDForUpdate(ctx, input.CompanyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "company not found")
			}
			return err
		}

		previous := company.PointsBalance
		var next int64
		txType := enums.PointTransactionTypePlatformGrant
		if input.Operation == OperationRemove {
			if input.Amount > previous {
				return apperrors.New(apperrors.CodeStateConflict, "Insufficient points balance")
			}
			next = previous - input.Amount
			txType = enums.PointTransactionTypePlatformRemoval
		} else {
			next = previous + input.Amount
		}

		company.PointsBalance = next
		if err := companyRepo.Update(ctx, company); err != nil {
			return err
		}

		entry := &models.PointTransaction{
			CompanyID:   company.ID,
			Type:        txType,
			Points:      input.Amount,
			Description: strings.TrimSpace(input.Description),
		}
		if err := ledger.Create(ctx, entry); err != nil {
			return err
		}

		result = &AdjustResult{
			CompanyID:       company.ID,
			PreviousBalance: previous,
			NewBalance:      next,
			Transaction:     entry,
		}
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "adjusting company balance")
	}

	logCtx := s.logg.WithCompanyID(ctx, input.CompanyID.String())
	logCtx = s.logg.WithField(logCtx, "operation", string(input.Operation))
	s.logg.Info(logCtx, "platform balance adjusted")
	return result, nil
}
