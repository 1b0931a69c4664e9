package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/grattia/grattia-backend/internal/allocation"
	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/redemptions"
	"github.com/grattia/grattia-backend/pkg/logger"
)

// AllocationJob runs the monthly points allocation sweep.
type AllocationJob struct {
	Allocator allocation.Service
	Logger    *logger.Logger
}

func (j *AllocationJob) Name() string { return "monthly_allocation" }

func (j *AllocationJob) Run(ctx context.Context) error {
	results, err := j.Allocator.RunAll(ctx)
	if err != nil {
		return err
	}

	var allocated, skipped, notDue, failed int
	var errs error
	for _, result := range results {
		switch result.Status {
		case allocation.StatusAllocated:
			allocated++
		case allocation.StatusSkipped:
			skipped++
		case allocation.StatusNotDue:
			notDue++
		case allocation.StatusError:
			failed++
			errs = multierr.Append(errs, fmt.Errorf("company %s: %s", result.CompanyID, result.Error))
		}
	}
	j.Logger.Info(ctx, fmt.Sprintf(
		"allocation sweep: %d allocated, %d skipped, %d not due, %d failed",
		allocated, skipped, notDue, failed))
	return errs
}

// SeatReconcileJob aligns Stripe seat quantities with active member counts
// for every subscribed company.
type SeatReconcileJob struct {
	Billing   billing.Service
	Companies companies.Repository
	Logger    *logger.Logger
}

func (j *SeatReconcileJob) Name() string { return "seat_reconcile" }

func (j *SeatReconcileJob) Run(ctx context.Context) error {
	subscribed, err := j.Companies.ListSubscribed(ctx)
	if err != nil {
		return fmt.Errorf("listing subscribed companies: %w", err)
	}

	var errs error
	for i := range subscribed {
		company := &subscribed[i]
		result, err := j.Billing.SyncSeatQuantity(ctx, company.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("company %s: %w", company.ID, err))
			continue
		}
		if result.Action != billing.SeatSyncUnchanged {
			companyCtx := j.Logger.WithCompanyID(ctx, company.ID.String())
			j.Logger.Info(companyCtx, fmt.Sprintf(
				"seat sync %s: %d -> %d", result.Action, result.PreviousQuantity, result.NewQuantity))
		}
	}
	return errs
}

// RedemptionSyncJob polls provider order status for in-flight redemptions.
type RedemptionSyncJob struct {
	Redemptions redemptions.Service
	Logger      *logger.Logger
}

func (j *RedemptionSyncJob) Name() string { return "redemption_sync" }

func (j *RedemptionSyncJob) Run(ctx context.Context) error {
	results, err := j.Redemptions.SyncOrders(ctx)
	if err != nil {
		return err
	}

	var advanced, failed int
	var errs error
	for _, result := range results {
		if result.Error != "" {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("redemption %s: %s", result.RedemptionID, result.Error))
			continue
		}
		if result.Advanced {
			advanced++
		}
	}
	j.Logger.Info(ctx, fmt.Sprintf(
		"redemption sync: %d visited, %d advanced, %d failed", len(results), advanced, failed))
	return errs
}
