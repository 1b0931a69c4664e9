package companies

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

type stubCompanyRepo struct {
	Repository
	byID    map[uuid.UUID]*models.Company
	deleted []uuid.UUID
	audits  []models.AuditLog
}

func newStubCompanyRepo(existing ...*models.Company) *stubCompanyRepo {
	repo := &stubCompanyRepo{byID: map[uuid.UUID]*models.Company{}}
	for _, company := range existing {
		repo.byID[company.ID] = company
	}
	return repo
}

func (s *stubCompanyRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCompanyRepo) Create(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	s.byID[company.ID] = company
	return nil
}

func (s *stubCompanyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *company
	return &copied, nil
}

func (s *stubCompanyRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return s.GetByID(ctx, id)
}

func (s *stubCompanyRepo) Update(ctx context.Context, company *models.Company) error {
	s.byID[company.ID] = company
	return nil
}

func (s *stubCompanyRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubCompanyRepo) WriteAudit(ctx context.Context, entry *models.AuditLog) error {
	s.audits = append(s.audits, *entry)
	return nil
}

type companyFixture struct {
	service Service
	repo    *stubCompanyRepo
}

func newCompanyFixture(t *testing.T, existing ...*models.Company) *companyFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	repo := newStubCompanyRepo(existing...)
	svc, err := NewService(ServiceParams{
		DB:     db.NewWithConn(conn),
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "companies-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &companyFixture{service: svc, repo: repo}
}

func TestCreate_DefaultsEnvironmentAndAllocationDay(t *testing.T) {
	fx := newCompanyFixture(t)

	company, err := fx.service.Create(context.Background(), CreateInput{
		Name:                   "  Acme Corp  ",
		TeamMemberMonthlyLimit: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", company.Name)
	assert.Equal(t, enums.EnvironmentTest, company.Environment)
	assert.Equal(t, 1, company.AllocationDay)
	assert.Equal(t, int64(100), company.TeamMemberMonthlyLimit)
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	fx := newCompanyFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"blank name", CreateInput{Name: "   "}},
		{"bad environment", CreateInput{Name: "Acme", Environment: "staging"}},
		{"negative limit", CreateInput{Name: "Acme", TeamMemberMonthlyLimit: -1}},
		{"allocation day too high", CreateInput{Name: "Acme", AllocationDay: 29}},
	}
	for _, tc := range cases {
		_, err := fx.service.Create(ctx, tc.input)
		require.Error(t, err, tc.name)
		typed := apperrors.As(err)
		require.NotNil(t, typed, tc.name)
		assert.Equal(t, apperrors.CodeValidation, typed.Code(), tc.name)
	}
}

func TestUpdate_AppliesPartialChanges(t *testing.T) {
	existing := &models.Company{
		ID:                     uuid.New(),
		Name:                   "Before",
		Environment:            enums.EnvironmentTest,
		TeamMemberMonthlyLimit: 50,
		AllocationDay:          1,
	}
	fx := newCompanyFixture(t, existing)

	name := "After"
	day := 15
	updated, err := fx.service.Update(context.Background(), existing.ID, UpdateInput{
		Name:          &name,
		AllocationDay: &day,
	})
	require.NoError(t, err)

	assert.Equal(t, "After", updated.Name)
	assert.Equal(t, 15, updated.AllocationDay)
	assert.Equal(t, int64(50), updated.TeamMemberMonthlyLimit)
}

func TestUpdate_UnknownCompanyReturnsNotFound(t *testing.T) {
	fx := newCompanyFixture(t)

	name := "Whatever"
	_, err := fx.service.Update(context.Background(), uuid.New(), UpdateInput{Name: &name})
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeNotFound, typed.Code())
}

func TestBackupAndDelete_WritesSnapshotBeforeSoftDelete(t *testing.T) {
	existing := &models.Company{
		ID:            uuid.New(),
		Name:          "Doomed Inc",
		Environment:   enums.EnvironmentLive,
		AllocationDay: 5,
	}
	fx := newCompanyFixture(t, existing)

	require.NoError(t, fx.service.BackupAndDelete(context.Background(), existing.ID))

	require.Len(t, fx.repo.audits, 1)
	audit := fx.repo.audits[0]
	assert.Equal(t, auditActionCompanyBackup, audit.Action)
	require.NotNil(t, audit.CompanyID)
	assert.Equal(t, existing.ID, *audit.CompanyID)
	assert.Contains(t, string(audit.Snapshot), "Doomed Inc")

	require.Len(t, fx.repo.deleted, 1)
	assert.Equal(t, existing.ID, fx.repo.deleted[0])
}
