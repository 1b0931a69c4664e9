package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// Status reports the outcome of one company's allocation attempt.
type Status string

const (
	StatusAllocated Status = "allocated"
	StatusSkipped   Status = "skipped"
	StatusNotDue    Status = "not_due"
	StatusError     Status = "error"
)

// CompanyResult is one entry in the RunAll report.
type CompanyResult struct {
	CompanyID       uuid.UUID `json:"company_id"`
	Status          Status    `json:"status"`
	MembersCredited int64     `json:"members_credited"`
	PointsGranted   int64     `json:"points_granted"`
	Error           string    `json:"error,omitempty"`
}

// Service runs the monthly points allocation.
type Service interface {
	RunAll(ctx context.Context) ([]CompanyResult, error)
	RunCompany(ctx context.Context, company *models.Company, now time.Time) CompanyResult
}

// ServiceParams wires the allocation service dependencies.
type ServiceParams struct {
	DB        *db.Client
	Repo      Repository
	Companies companies.Repository
	Profiles  profiles.Repository
	Ledger    points.Repository
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	db        *db.Client
	repo      Repository
	companies companies.Repository
	profiles  profiles.Repository
	ledger    points.Repository
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the allocation service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("allocation repository required")
	}
	if params.Companies == nil {
		return nil, fmt.Errorf("company repository required")
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
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		db:        params.DB,
		repo:      params.Repo,
		companies: params.Companies,
		profiles:  params.Profiles,
		ledger:    params.Ledger,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// RunAll visits every subscribed company. A failure for one company is
// recorded in its result and the loop continues; there is no global rollback.
func (s *service) RunAll(ctx context.Context) ([]CompanyResult, error) {
	subscribed, err := s.companies.ListSubscribed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subscribed companies: %w", err)
	}

	now := s.now()
	results := make([]CompanyResult, 0, len(subscribed))
	for i := range subscribed {
		result := s.RunCompany(ctx, &subscribed[i], now)
		results = append(results, result)
	}
	return results, nil
}

// RunCompany credits every active member once for the current period. The
// AllocationRun insert carries the unique (company_id, period) constraint, so
// a concurrent or repeated run for the same month reports skipped instead of
// crediting twice.
func (s *service) RunCompany(ctx context.Context, company *models.Company, now time.Time) CompanyResult {
	result := CompanyResult{CompanyID: company.ID}

	if !isDue(company.AllocationDay, now) {
		result.Status = StatusNotDue
		return result
	}

	period := now.Format("2006-01")
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		runRepo := s.repo.WithTx(tx)
		profileRepo := s.profiles.WithTx(tx)
		ledger := s.ledger.WithTx(tx)

		members, err := profileRepo.ListActiveByCompany(ctx, company.ID)
		if err != nil {
			return err
		}

		run := &models.AllocationRun{
			CompanyID:       company.ID,
			Period:          period,
			MembersCredited: int64(len(members)),
			PointsGranted:   company.TeamMemberMonthlyLimit * int64(len(members)),
		}
		if err := runRepo.CreateRun(ctx, run); err != nil {
			return err
		}

		if company.TeamMemberMonthlyLimit <= 0 {
			result.MembersCredited = run.MembersCredited
			return nil
		}

		for _, member := range members {
			if err := profileRepo.AddPoints(ctx, member.ID, company.TeamMemberMonthlyLimit); err != nil {
				return err
			}
			recipientID := member.ID
			entry := &models.PointTransaction{
				CompanyID:          company.ID,
				Type:               enums.PointTransactionTypeAllocation,
				RecipientProfileID: &recipientID,
				Points:             company.TeamMemberMonthlyLimit,
				Description:        fmt.Sprintf("Monthly allocation %s", period),
			}
			if err := ledger.Create(ctx, entry); err != nil {
				return err
			}
		}

		result.MembersCredited = run.MembersCredited
		result.PointsGranted = run.PointsGranted
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err, UniqueRunConstraint) {
			result.Status = StatusSkipped
			return result
		}
		logCtx := s.logg.WithCompanyID(ctx, company.ID.String())
		s.logg.Error(logCtx, "allocation failed", err)
		result.Status = StatusError
		result.Error = err.Error()
		return result
	}

	result.Status = StatusAllocated
	return result
}

// isDue clamps the configured allocation day to the last day of short months,
// so day 28 always fires and a day beyond month end fires on the final day.
func isDue(allocationDay int, now time.Time) bool {
	if allocationDay < 1 {
		allocationDay = 1
	}
	lastDay := lastDayOfMonth(now)
	effective := allocationDay
	if effective > lastDay {
		effective = lastDay
	}
	return now.Day() == effective
}

func lastDayOfMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	return firstOfNext.AddDate(0, 0, -1).Day()
}
