package companies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

const auditActionCompanyBackup = "company.backup_before_delete"

// Service exposes company lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Company, error)
	Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, companyID uuid.UUID, input UpdateInput) (*models.Company, error)
	BackupAndDelete(ctx context.Context, companyID uuid.UUID) error
}

// ServiceParams wires the company service dependencies.
type ServiceParams struct {
	DB     *db.Client
	Repo   Repository
	Logger *logger.Logger
}

type service struct {
	db   *db.Client
	repo Repository
	logg *logger.Logger
}

// NewService builds the company service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: params.DB, repo: params.Repo, logg: params.Logger}, nil
}

// CreateInput carries the fields for a new tenant.
type CreateInput struct {
	Name                   string
	Environment            enums.Environment
	TeamMemberMonthlyLimit int64
	AllocationDay          int
}

// UpdateInput carries optional company settings changes.
type UpdateInput struct {
	Name                   *string
	TeamMemberMonthlyLimit *int64
	AllocationDay          *int
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Company, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "company name is required")
	}
	env := input.Environment
	if env == "" {
		env = enums.EnvironmentTest
	}
	if !env.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid environment %q", input.Environment))
	}
	if input.TeamMemberMonthlyLimit < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "monthly limit must not be negative")
	}
	day := input.AllocationDay
	if day == 0 {
		day = 1
	}
	if day < 1 || day > 28 {
		return nil, apperrors.New(apperrors.CodeValidation, "allocation day must be between 1 and 28")
	}

	company := &models.Company{
		Name:                   name,
		Environment:            env,
		TeamMemberMonthlyLimit: input.TeamMemberMonthlyLimit,
		AllocationDay:          day,
	}
	if err := s.repo.Create(ctx, company); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating company")
	}

	s.logg.Info(s.logg.WithCompanyID(ctx, company.ID.String()), "company created")
	return company, nil
}

func (s *service) Get(ctx context.Context, companyID uuid.UUID) (*models.Company, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	company, err := s.repo.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "company not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading company")
	}
	return company, nil
}

func (s *service) Update(ctx context.Context, companyID uuid.UUID, input UpdateInput) (*models.Company, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "company name must not be empty")
	}
	if input.TeamMemberMonthlyLimit != nil && *input.TeamMemberMonthlyLimit < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "monthly limit must not be negative")
	}
	if input.AllocationDay != nil && (*input.AllocationDay < 1 || *input.AllocationDay > 28) {
		return nil, apperrors.New(apperrors.CodeValidation, "allocation day must be between 1 and 28")
	}

	var updated *models.Company
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		company, err := repo.GetByIDForUpdate(ctx, companyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "company not found")
			}
			return err
		}
		if input.Name != nil {
			company.Name = strings.TrimSpace(*input.Name)
		}
		if input.TeamMemberMonthlyLimit != nil {
			company.TeamMemberMonthlyLimit = *input.TeamMemberMonthlyLimit
		}
		if input.AllocationDay != nil {
			company.AllocationDay = *input.AllocationDay
		}
		if err := repo.Update(ctx, company); err != nil {
			return err
		}
		updated = company
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating company")
	}
	return updated, nil
}

// BackupAndDelete writes a JSON snapshot of the company row to the audit log
// and soft deletes the row in the same transaction.
func (s *service) BackupAndDelete(ctx context.Context, companyID uuid.UUID) error {
	if companyID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "company id is required")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		company, err := repo.GetByIDForUpdate(ctx, companyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "company not found")
			}
			return err
		}

		snapshot, err := json.Marshal(company)
		if err != nil {
			return fmt.Errorf("marshal company snapshot: %w", err)
		}
		entry := &models.AuditLog{
			CompanyID: &company.ID,
			Action:    auditActionCompanyBackup,
			Snapshot:  snapshot,
		}
		if err := repo.WriteAudit(ctx, entry); err != nil {
			return err
		}
		return repo.SoftDelete(ctx, company.ID)
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return typed
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "deleting company")
	}

	s.logg.Info(s.logg.WithCompanyID(ctx, companyID.String()), "company soft deleted after backup")
	return nil
}
