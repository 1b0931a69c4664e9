package points

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

type stubProfileRepo struct {
	profiles.Repository
	byID map[uuid.UUID]*models.Profile
}

func newStubProfileRepo(members ...*models.Profile) *stubProfileRepo {
	repo := &stubProfileRepo{byID: map[uuid.UUID]*models.Profile{}}
	for _, member := range members {
		repo.byID[member.ID] = member
	}
	return repo
}

func (s *stubProfileRepo) WithTx(tx *gorm.DB) profiles.Repository { return s }

func (s *stubProfileRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *profile
	return &copied, nil
}

func (s *stubProfileRepo) AddPoints(ctx context.Context, profileID uuid.UUID, delta int64) error {
	s.byID[profileID].Points += delta
	return nil
}

type stubLedger struct {
	Repository
	entries []models.PointTransaction
}

func (s *stubLedger) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLedger) Create(ctx context.Context, entry *models.PointTransaction) error {
	s.entries = append(s.entries, *entry)
	return nil
}

type pointsFixture struct {
	service  Service
	profiles *stubProfileRepo
	ledger   *stubLedger
}

func newPointsFixture(t *testing.T, members ...*models.Profile) *pointsFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	profileRepo := newStubProfileRepo(members...)
	ledger := &stubLedger{}

	svc, err := NewService(ServiceParams{
		DB:       db.NewWithConn(conn),
		Repo:     ledger,
		Profiles: profileRepo,
		Logger:   logger.New(logger.Options{ServiceName: "points-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &pointsFixture{service: svc, profiles: profileRepo, ledger: ledger}
}

func member(companyID uuid.UUID, balance int64) *models.Profile {
	return &models.Profile{
		ID:        uuid.New(),
		CompanyID: companyID,
		Status:    enums.ProfileStatusActive,
		Points:    balance,
	}
}

func TestGive_TransfersPointsAndAppendsLedger(t *testing.T) {
	companyID := uuid.New()
	sender := member(companyID, 100)
	recipient := member(companyID, 20)
	fx := newPointsFixture(t, sender, recipient)

	entry, err := fx.service.Give(context.Background(), GiveInput{
		CompanyID:          companyID,
		SenderProfileID:    sender.ID,
		RecipientProfileID: recipient.ID,
		Points:             30,
		Description:        "Great demo!",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(70), fx.profiles.byID[sender.ID].Points)
	assert.Equal(t, int64(50), fx.profiles.byID[recipient.ID].Points)

	require.Len(t, fx.ledger.entries, 1)
	assert.Equal(t, enums.PointTransactionTypeRecognition, entry.Type)
	assert.Equal(t, int64(30), entry.Points)
	assert.Equal(t, "Great demo!", entry.Description)
	require.NotNil(t, entry.SenderProfileID)
	require.NotNil(t, entry.RecipientProfileID)
	assert.Equal(t, sender.ID, *entry.SenderProfileID)
	assert.Equal(t, recipient.ID, *entry.RecipientProfileID)
}

func TestGive_InsufficientBalance(t *testing.T) {
	companyID := uuid.New()
	sender := member(companyID, 10)
	recipient := member(companyID, 0)
	fx := newPointsFixture(t, sender, recipient)

	_, err := fx.service.Give(context.Background(), GiveInput{
		CompanyID:          companyID,
		SenderProfileID:    sender.ID,
		RecipientProfileID: recipient.ID,
		Points:             50,
	})
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "Insufficient points balance", typed.Message())

	assert.Equal(t, int64(10), fx.profiles.byID[sender.ID].Points)
	assert.Empty(t, fx.ledger.entries)
}

func TestGive_CrossCompanyForbidden(t *testing.T) {
	companyID := uuid.New()
	sender := member(companyID, 100)
	outsider := member(uuid.New(), 0)
	fx := newPointsFixture(t, sender, outsider)

	_, err := fx.service.Give(context.Background(), GiveInput{
		CompanyID:          companyID,
		SenderProfileID:    sender.ID,
		RecipientProfileID: outsider.ID,
		Points:             10,
	})
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeForbidden, typed.Code())
}

func TestGive_InactiveMembersRejected(t *testing.T) {
	companyID := uuid.New()
	sender := member(companyID, 100)
	recipient := member(companyID, 0)
	recipient.Status = enums.ProfileStatusDeactivated
	fx := newPointsFixture(t, sender, recipient)

	_, err := fx.service.Give(context.Background(), GiveInput{
		CompanyID:          companyID,
		SenderProfileID:    sender.ID,
		RecipientProfileID: recipient.ID,
		Points:             10,
	})
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeStateConflict, typed.Code())
}

func TestGive_SelfTransferRejected(t *testing.T) {
	companyID := uuid.New()
	sender := member(companyID, 100)
	fx := newPointsFixture(t, sender)

	_, err := fx.service.Give(context.Background(), GiveInput{
		CompanyID:          companyID,
		SenderProfileID:    sender.ID,
		RecipientProfileID: sender.ID,
		Points:             10,
	})
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeValidation, typed.Code())
}

func TestGive_NonPositiveAmountRejected(t *testing.T) {
	companyID := uuid.New()
	sender := member(companyID, 100)
	recipient := member(companyID, 0)
	fx := newPointsFixture(t, sender, recipient)

	for _, amount := range []int64{0, -25} {
		_, err := fx.service.Give(context.Background(), GiveInput{
			CompanyID:          companyID,
			SenderProfileID:    sender.ID,
			RecipientProfileID: recipient.ID,
			Points:             amount,
		})
		require.Error(t, err)
		typed := apperrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, apperrors.CodeValidation, typed.Code())
	}
}
