package allocation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/companies"
	"github.com/grattia/grattia-backend/internal/points"
	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	"github.com/grattia/grattia-backend/pkg/logger"
)

type stubRunRepo struct {
	runs map[string]bool
}

func newStubRunRepo() *stubRunRepo {
	return &stubRunRepo{runs: map[string]bool{}}
}

func (s *stubRunRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRunRepo) CreateRun(ctx context.Context, run *models.AllocationRun) error {
	key := run.CompanyID.String() + "/" + run.Period
	if s.runs[key] {
		return fmt.Errorf(`duplicate key value violates unique constraint %q`, UniqueRunConstraint)
	}
	s.runs[key] = true
	return nil
}

type stubCompanyRepo struct {
	companies.Repository
	subscribed []models.Company
}

func (s *stubCompanyRepo) WithTx(tx *gorm.DB) companies.Repository { return s }

func (s *stubCompanyRepo) ListSubscribed(ctx context.Context) ([]models.Company, error) {
	return s.subscribed, nil
}

type stubProfileRepo struct {
	profiles.Repository
	active  []models.Profile
	credits map[uuid.UUID]int64
}

func newStubProfileRepo(active []models.Profile) *stubProfileRepo {
	return &stubProfileRepo{active: active, credits: map[uuid.UUID]int64{}}
}

func (s *stubProfileRepo) WithTx(tx *gorm.DB) profiles.Repository { return s }

func (s *stubProfileRepo) ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error) {
	return s.active, nil
}

func (s *stubProfileRepo) AddPoints(ctx context.Context, profileID uuid.UUID, delta int64) error {
	s.credits[profileID] += delta
	return nil
}

type stubLedger struct {
	points.Repository
	entries []models.PointTransaction
}

func (s *stubLedger) WithTx(tx *gorm.DB) points.Repository { return s }

func (s *stubLedger) Create(ctx context.Context, entry *models.PointTransaction) error {
	s.entries = append(s.entries, *entry)
	return nil
}

type allocFixture struct {
	service   Service
	runs      *stubRunRepo
	companies *stubCompanyRepo
	profiles  *stubProfileRepo
	ledger    *stubLedger
}

func newAllocFixture(t *testing.T, subscribed []models.Company, active []models.Profile, now time.Time) *allocFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	runs := newStubRunRepo()
	companyRepo := &stubCompanyRepo{subscribed: subscribed}
	profileRepo := newStubProfileRepo(active)
	ledger := &stubLedger{}

	svc, err := NewService(ServiceParams{
		DB:        db.NewWithConn(conn),
		Repo:      runs,
		Companies: companyRepo,
		Profiles:  profileRepo,
		Ledger:    ledger,
		Logger:    logger.New(logger.Options{ServiceName: "allocation-test", Output: io.Discard}),
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	return &allocFixture{service: svc, runs: runs, companies: companyRepo, profiles: profileRepo, ledger: ledger}
}

func activeMembers(n int, companyID uuid.UUID) []models.Profile {
	members := make([]models.Profile, 0, n)
	for i := 0; i < n; i++ {
		members = append(members, models.Profile{
			ID:        uuid.New(),
			CompanyID: companyID,
			Status:    enums.ProfileStatusActive,
		})
	}
	return members
}

func TestRunCompany_CreditsActiveMembersOnAllocationDay(t *testing.T) {
	company := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 100, AllocationDay: 15}
	members := activeMembers(3, company.ID)
	now := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)
	fx := newAllocFixture(t, nil, members, now)

	result := fx.service.RunCompany(context.Background(), &company, now)

	assert.Equal(t, StatusAllocated, result.Status)
	assert.Equal(t, int64(3), result.MembersCredited)
	assert.Equal(t, int64(300), result.PointsGranted)

	for _, member := range members {
		assert.Equal(t, int64(100), fx.profiles.credits[member.ID])
	}
	require.Len(t, fx.ledger.entries, 3)
	for _, entry := range fx.ledger.entries {
		assert.Equal(t, enums.PointTransactionTypeAllocation, entry.Type)
		assert.Equal(t, int64(100), entry.Points)
		assert.Contains(t, entry.Description, "2026-03")
	}
}

func TestRunCompany_NotDueOffSchedule(t *testing.T) {
	company := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 100, AllocationDay: 15}
	now := time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)
	fx := newAllocFixture(t, nil, activeMembers(2, company.ID), now)

	result := fx.service.RunCompany(context.Background(), &company, now)

	assert.Equal(t, StatusNotDue, result.Status)
	assert.Empty(t, fx.ledger.entries)
	assert.Empty(t, fx.profiles.credits)
}

func TestRunCompany_SecondInvocationSameDaySkipped(t *testing.T) {
	company := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 50, AllocationDay: 1}
	members := activeMembers(2, company.ID)
	now := time.Date(2026, time.June, 1, 6, 0, 0, 0, time.UTC)
	fx := newAllocFixture(t, nil, members, now)

	first := fx.service.RunCompany(context.Background(), &company, now)
	assert.Equal(t, StatusAllocated, first.Status)

	second := fx.service.RunCompany(context.Background(), &company, now)
	assert.Equal(t, StatusSkipped, second.Status)

	// Members were credited exactly once.
	for _, member := range members {
		assert.Equal(t, int64(50), fx.profiles.credits[member.ID])
	}
	assert.Len(t, fx.ledger.entries, 2)
}

func TestRunCompany_AllocationDayClampedToShortMonth(t *testing.T) {
	company := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 10, AllocationDay: 28}
	members := activeMembers(1, company.ID)

	// February 2026 has 28 days, so day 28 fires on the last day.
	now := time.Date(2026, time.February, 28, 12, 0, 0, 0, time.UTC)
	fx := newAllocFixture(t, nil, members, now)

	result := fx.service.RunCompany(context.Background(), &company, now)
	assert.Equal(t, StatusAllocated, result.Status)
}

func TestRunCompany_ZeroLimitRecordsRunWithoutCredits(t *testing.T) {
	company := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 0, AllocationDay: 1}
	members := activeMembers(2, company.ID)
	now := time.Date(2026, time.April, 1, 0, 30, 0, 0, time.UTC)
	fx := newAllocFixture(t, nil, members, now)

	result := fx.service.RunCompany(context.Background(), &company, now)

	assert.Equal(t, StatusAllocated, result.Status)
	assert.Empty(t, fx.ledger.entries)
	assert.Empty(t, fx.profiles.credits)

	// The run record still guards the period against a retry after the limit
	// is raised mid-month.
	second := fx.service.RunCompany(context.Background(), &company, now)
	assert.Equal(t, StatusSkipped, second.Status)
}

func TestRunAll_ContinuesPastFailures(t *testing.T) {
	companyA := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 10, AllocationDay: 5}
	companyB := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 10, AllocationDay: 20}
	now := time.Date(2026, time.May, 5, 8, 0, 0, 0, time.UTC)

	fx := newAllocFixture(t, []models.Company{companyA, companyB}, activeMembers(1, companyA.ID), now)

	results, err := fx.service.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, StatusAllocated, results[0].Status)
	assert.Equal(t, StatusNotDue, results[1].Status)
}

func TestIsDue_Clamping(t *testing.T) {
	feb28 := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	assert.True(t, isDue(28, feb28))
	assert.True(t, isDue(31, feb28))
	assert.False(t, isDue(31, time.Date(2026, time.March, 28, 0, 0, 0, 0, time.UTC)))
	assert.True(t, isDue(31, time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)))

	var notFirst = time.Date(2026, time.July, 2, 0, 0, 0, 0, time.UTC)
	assert.False(t, isDue(0, notFirst))
	assert.True(t, isDue(0, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRunCompany_ErrorStatusOnFailure(t *testing.T) {
	company := models.Company{ID: uuid.New(), TeamMemberMonthlyLimit: 10, AllocationDay: 3}
	now := time.Date(2026, time.August, 3, 8, 0, 0, 0, time.UTC)
	fx := newAllocFixture(t, nil, nil, now)

	svcWithFailure, err := NewService(ServiceParams{
		DB:        mustSqliteClient(t),
		Repo:      newStubRunRepo(),
		Companies: fx.companies,
		Profiles:  &failingProfileRepo{},
		Ledger:    fx.ledger,
		Logger:    logger.New(logger.Options{ServiceName: "allocation-test", Output: io.Discard}),
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	result := svcWithFailure.RunCompany(context.Background(), &company, now)
	assert.Equal(t, StatusError, result.Status)
	assert.NotEmpty(t, result.Error)
}

type failingProfileRepo struct {
	profiles.Repository
}

func (f *failingProfileRepo) WithTx(tx *gorm.DB) profiles.Repository { return f }

func (f *failingProfileRepo) ListActiveByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error) {
	return nil, errors.New("database unavailable")
}

func mustSqliteClient(t *testing.T) *db.Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db.NewWithConn(conn)
}
