package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/allocation"
	"github.com/grattia/grattia-backend/internal/billing"
	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/redemptions"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type stubAllocator struct {
	results []allocation.CompanyResult
	err     error
}

func (s *stubAllocator) RunAll(ctx context.Context) ([]allocation.CompanyResult, error) {
	return s.results, s.err
}

func (s *stubAllocator) RunCompany(ctx context.Context, company *models.Company, now time.Time) allocation.CompanyResult {
	return allocation.CompanyResult{}
}

func TestAllocationJobAggregatesCompanyFailures(t *testing.T) {
	failedCompany := uuid.New()
	job := &AllocationJob{
		Allocator: &stubAllocator{results: []allocation.CompanyResult{
			{CompanyID: uuid.New(), Status: allocation.StatusAllocated},
			{CompanyID: uuid.New(), Status: allocation.StatusNotDue},
			{CompanyID: failedCompany, Status: allocation.StatusError, Error: "ledger write failed"},
		}},
		Logger: testLogger(),
	}

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error for failed company")
	}
	if !strings.Contains(err.Error(), failedCompany.String()) {
		t.Fatalf("expected error to mention company %s, got %v", failedCompany, err)
	}
}

func TestAllocationJobSucceedsWhenNoFailures(t *testing.T) {
	job := &AllocationJob{
		Allocator: &stubAllocator{results: []allocation.CompanyResult{
			{CompanyID: uuid.New(), Status: allocation.StatusAllocated},
			{CompanyID: uuid.New(), Status: allocation.StatusSkipped},
		}},
		Logger: testLogger(),
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

type stubRedemptionSync struct {
	results []redemptions.SyncResult
	err     error
}

func (s *stubRedemptionSync) Redeem(ctx context.Context, profileID, rewardID uuid.UUID) (*models.Redemption, error) {
	panic("unimplemented")
}

func (s *stubRedemptionSync) ListForProfile(ctx context.Context, profileID uuid.UUID) ([]models.Redemption, error) {
	panic("unimplemented")
}

func (s *stubRedemptionSync) Advance(ctx context.Context, redemptionID uuid.UUID, next enums.RedemptionStatus) (*models.Redemption, error) {
	panic("unimplemented")
}

func (s *stubRedemptionSync) SyncOrders(ctx context.Context) ([]redemptions.SyncResult, error) {
	return s.results, s.err
}

func TestRedemptionSyncJobAggregatesProviderFailures(t *testing.T) {
	stuck := uuid.New()
	job := &RedemptionSyncJob{
		Redemptions: &stubRedemptionSync{results: []redemptions.SyncResult{
			{RedemptionID: uuid.New(), Advanced: true},
			{RedemptionID: stuck, Error: "provider timeout"},
		}},
		Logger: testLogger(),
	}

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error for failed redemption")
	}
	if !strings.Contains(err.Error(), stuck.String()) {
		t.Fatalf("expected error to mention redemption %s, got %v", stuck, err)
	}
}

func TestRedemptionSyncJobPropagatesSweepError(t *testing.T) {
	sweepErr := errors.New("db down")
	job := &RedemptionSyncJob{
		Redemptions: &stubRedemptionSync{err: sweepErr},
		Logger:      testLogger(),
	}
	if err := job.Run(context.Background()); !errors.Is(err, sweepErr) {
		t.Fatalf("expected sweep error, got %v", err)
	}
}

type stubSeatBilling struct {
	synced  []uuid.UUID
	syncErr error
}

func (s *stubSeatBilling) EnsureCustomer(ctx context.Context, companyID uuid.UUID) (string, error) {
	panic("unimplemented")
}

func (s *stubSeatBilling) CreateCheckoutSession(ctx context.Context, companyID uuid.UUID, input billing.CheckoutInput) (*billing.CheckoutSession, error) {
	panic("unimplemented")
}

func (s *stubSeatBilling) VerifyCheckoutSession(ctx context.Context, companyID uuid.UUID, sessionID string) (*billing.VerifyResult, error) {
	panic("unimplemented")
}

func (s *stubSeatBilling) SyncSeatQuantity(ctx context.Context, companyID uuid.UUID) (*billing.SeatSyncResult, error) {
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	s.synced = append(s.synced, companyID)
	return &billing.SeatSyncResult{CompanyID: companyID, Action: billing.SeatSyncUnchanged}, nil
}

func (s *stubSeatBilling) ListEvents(ctx context.Context, companyID uuid.UUID) ([]models.SubscriptionEvent, error) {
	panic("unimplemented")
}

type stubCompanyRepo struct {
	subscribed []models.Company
	listErr    error
}

func (s *stubCompanyRepo) WithTx(tx *gorm.DB) companies.Repository { return s }

func (s *stubCompanyRepo) Create(ctx context.Context, company *models.Company) error {
	panic("unimplemented")
}

func (s *stubCompanyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	panic("unimplemented")
}

func (s *stubCompanyRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	panic("unimplemented")
}

func (s *stubCompanyRepo) Update(ctx context.Context, company *models.Company) error {
	panic("unimplemented")
}

func (s *stubCompanyRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	panic("unimplemented")
}

func (s *stubCompanyRepo) ListSubscribed(ctx context.Context) ([]models.Company, error) {
	return s.subscribed, s.listErr
}

func (s *stubCompanyRepo) GetByStripeCustomerID(ctx context.Context, env enums.Environment, customerID string) (*models.Company, error) {
	panic("unimplemented")
}

func (s *stubCompanyRepo) GetByStripeSubscriptionID(ctx context.Context, env enums.Environment, subscriptionID string) (*models.Company, error) {
	panic("unimplemented")
}

func (s *stubCompanyRepo) WriteAudit(ctx context.Context, entry *models.AuditLog) error {
	panic("unimplemented")
}

func TestSeatReconcileJobSyncsEverySubscribedCompany(t *testing.T) {
	first := models.Company{ID: uuid.New()}
	second := models.Company{ID: uuid.New()}
	billingStub := &stubSeatBilling{}
	job := &SeatReconcileJob{
		Billing:   billingStub,
		Companies: &stubCompanyRepo{subscribed: []models.Company{first, second}},
		Logger:    testLogger(),
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(billingStub.synced) != 2 {
		t.Fatalf("expected 2 companies synced, got %d", len(billingStub.synced))
	}
}

func TestSeatReconcileJobCollectsSyncErrors(t *testing.T) {
	job := &SeatReconcileJob{
		Billing:   &stubSeatBilling{syncErr: errors.New("stripe unavailable")},
		Companies: &stubCompanyRepo{subscribed: []models.Company{{ID: uuid.New()}}},
		Logger:    testLogger(),
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error when seat sync fails")
	}
}
