package redemptions

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
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

type stubProfileRepo struct {
	profiles.Repository
	profile *models.Profile
}

func (s *stubProfileRepo) WithTx(tx *gorm.DB) profiles.Repository { return s }

func (s *stubProfileRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if s.profile == nil || s.profile.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.profile
	return &copied, nil
}

func (s *stubProfileRepo) AddPoints(ctx context.Context, profileID uuid.UUID, delta int64) error {
	s.profile.Points += delta
	return nil
}

type stubRewardRepo struct {
	rewards.Repository
	reward          *models.Reward
	stockDecrements int
}

func (s *stubRewardRepo) WithTx(tx *gorm.DB) rewards.Repository { return s }

func (s *stubRewardRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	if s.reward == nil || s.reward.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.reward
	return &copied, nil
}

func (s *stubRewardRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	return s.GetByID(ctx, id)
}

func (s *stubRewardRepo) DecrementStock(ctx context.Context, rewardID uuid.UUID) error {
	s.stockDecrements++
	if s.reward.Stock != nil {
		next := *s.reward.Stock - 1
		s.reward.Stock = &next
	}
	return nil
}

type stubRedemptionRepo struct {
	redemptions map[uuid.UUID]*models.Redemption
	inFlight    []models.Redemption
}

func newStubRedemptionRepo() *stubRedemptionRepo {
	return &stubRedemptionRepo{redemptions: map[uuid.UUID]*models.Redemption{}}
}

func (s *stubRedemptionRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRedemptionRepo) Create(ctx context.Context, redemption *models.Redemption) error {
	if redemption.ID == uuid.Nil {
		redemption.ID = uuid.New()
	}
	copied := *redemption
	s.redemptions[redemption.ID] = &copied
	return nil
}

func (s *stubRedemptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	redemption, ok := s.redemptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *redemption
	return &copied, nil
}

func (s *stubRedemptionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Redemption, error) {
	return s.GetByID(ctx, id)
}

func (s *stubRedemptionRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Redemption, error) {
	var out []models.Redemption
	for _, redemption := range s.redemptions {
		if redemption.ProfileID == profileID {
			out = append(out, *redemption)
		}
	}
	return out, nil
}

func (s *stubRedemptionRepo) ListInFlight(ctx context.Context) ([]models.Redemption, error) {
	return s.inFlight, nil
}

func (s *stubRedemptionRepo) Update(ctx context.Context, redemption *models.Redemption) error {
	copied := *redemption
	s.redemptions[redemption.ID] = &copied
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

type stubChecker struct {
	status enums.RedemptionStatus
	err    error
}

func (s *stubChecker) CheckOrder(ctx context.Context, orderID string) (enums.RedemptionStatus, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.status, nil
}

type fixture struct {
	service     Service
	profiles    *stubProfileRepo
	rewards     *stubRewardRepo
	redemptions *stubRedemptionRepo
	ledger      *stubLedger
}

func newFixture(t *testing.T, profile *models.Profile, reward *models.Reward, checkers map[enums.RewardProvider]OrderChecker) *fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	profileRepo := &stubProfileRepo{profile: profile}
	rewardRepo := &stubRewardRepo{reward: reward}
	redemptionRepo := newStubRedemptionRepo()
	ledger := &stubLedger{}

	svc, err := NewService(ServiceParams{
		DB:       db.NewWithConn(conn),
		Repo:     redemptionRepo,
		Rewards:  rewardRepo,
		Profiles: profileRepo,
		Ledger:   ledger,
		Checkers: checkers,
		Logger:   logger.New(logger.Options{ServiceName: "redemptions-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &fixture{
		service:     svc,
		profiles:    profileRepo,
		rewards:     rewardRepo,
		redemptions: redemptionRepo,
		ledger:      ledger,
	}
}

func activeProfile(points int64) *models.Profile {
	return &models.Profile{
		ID:        uuid.New(),
		CompanyID: uuid.New(),
		Status:    enums.ProfileStatusActive,
		Points:    points,
	}
}

func TestRedeem_SpendsPointsAndAppendsLedger(t *testing.T) {
	profile := activeProfile(100)
	stock := int64(5)
	reward := &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &profile.CompanyID,
		Name:       "Gift Card",
		PointsCost: 40,
		Provider:   enums.RewardProviderGoody,
		Stock:      &stock,
	}
	fx := newFixture(t, profile, reward, nil)

	redemption, err := fx.service.Redeem(context.Background(), profile.ID, reward.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.RedemptionStatusPending, redemption.Status)
	assert.Equal(t, int64(40), redemption.PointsSpent)
	assert.Equal(t, int64(60), fx.profiles.profile.Points)
	assert.Equal(t, 1, fx.rewards.stockDecrements)
	assert.Equal(t, int64(4), *fx.rewards.reward.Stock)

	require.Len(t, fx.ledger.entries, 1)
	entry := fx.ledger.entries[0]
	assert.Equal(t, enums.PointTransactionTypeRedemption, entry.Type)
	assert.Equal(t, int64(40), entry.Points)
	require.NotNil(t, entry.SenderProfileID)
	assert.Equal(t, profile.ID, *entry.SenderProfileID)
}

func TestRedeem_InsufficientBalance(t *testing.T) {
	profile := activeProfile(10)
	reward := &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &profile.CompanyID,
		Name:       "Headphones",
		PointsCost: 250,
		Provider:   enums.RewardProviderRye,
	}
	fx := newFixture(t, profile, reward, nil)

	_, err := fx.service.Redeem(context.Background(), profile.ID, reward.ID)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeStateConflict, typed.Code())
	assert.Equal(t, "Insufficient points balance", typed.Message())

	assert.Equal(t, int64(10), fx.profiles.profile.Points)
	assert.Empty(t, fx.ledger.entries)
	assert.Empty(t, fx.redemptions.redemptions)
}

func TestRedeem_OutOfStock(t *testing.T) {
	profile := activeProfile(500)
	empty := int64(0)
	reward := &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &profile.CompanyID,
		Name:       "Mug",
		PointsCost: 20,
		Provider:   enums.RewardProviderGoody,
		Stock:      &empty,
	}
	fx := newFixture(t, profile, reward, nil)

	_, err := fx.service.Redeem(context.Background(), profile.ID, reward.ID)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeStateConflict, typed.Code())
	assert.Equal(t, int64(500), fx.profiles.profile.Points)
}

func TestRedeem_UnlimitedStockSkipsDecrement(t *testing.T) {
	profile := activeProfile(100)
	reward := &models.Reward{
		ID:         uuid.New(),
		Name:       "Global Gift Card",
		PointsCost: 25,
		Provider:   enums.RewardProviderGoody,
	}
	fx := newFixture(t, profile, reward, nil)

	_, err := fx.service.Redeem(context.Background(), profile.ID, reward.ID)
	require.NoError(t, err)
	assert.Zero(t, fx.rewards.stockDecrements)
}

func TestRedeem_OtherCompanyRewardHidden(t *testing.T) {
	profile := activeProfile(100)
	otherCompany := uuid.New()
	reward := &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &otherCompany,
		Name:       "Private Reward",
		PointsCost: 10,
		Provider:   enums.RewardProviderGoody,
	}
	fx := newFixture(t, profile, reward, nil)

	_, err := fx.service.Redeem(context.Background(), profile.ID, reward.ID)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeNotFound, typed.Code())
}

func TestAdvance_MonotonicTransitions(t *testing.T) {
	profile := activeProfile(100)
	fx := newFixture(t, profile, nil, nil)

	redemption := &models.Redemption{
		ID:        uuid.New(),
		ProfileID: profile.ID,
		RewardID:  uuid.New(),
		Status:    enums.RedemptionStatusPending,
	}
	require.NoError(t, fx.redemptions.Create(context.Background(), redemption))

	updated, err := fx.service.Advance(context.Background(), redemption.ID, enums.RedemptionStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.RedemptionStatusProcessing, updated.Status)

	updated, err = fx.service.Advance(context.Background(), redemption.ID, enums.RedemptionStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, enums.RedemptionStatusDelivered, updated.Status)

	_, err = fx.service.Advance(context.Background(), redemption.ID, enums.RedemptionStatusShipped)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeStateConflict, typed.Code())
}

func TestAdvance_RegressionRejected(t *testing.T) {
	profile := activeProfile(100)
	fx := newFixture(t, profile, nil, nil)

	redemption := &models.Redemption{
		ID:        uuid.New(),
		ProfileID: profile.ID,
		RewardID:  uuid.New(),
		Status:    enums.RedemptionStatusShipped,
	}
	require.NoError(t, fx.redemptions.Create(context.Background(), redemption))

	_, err := fx.service.Advance(context.Background(), redemption.ID, enums.RedemptionStatusPending)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeStateConflict, typed.Code())
}

func TestSyncOrders_AdvancesInFlightRedemptions(t *testing.T) {
	profile := activeProfile(100)
	reward := &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &profile.CompanyID,
		Name:       "Tracked Parcel",
		PointsCost: 10,
		Provider:   enums.RewardProviderRye,
	}
	checkers := map[enums.RewardProvider]OrderChecker{
		enums.RewardProviderRye: &stubChecker{status: enums.RedemptionStatusShipped},
	}
	fx := newFixture(t, profile, reward, checkers)

	orderID := "order_123"
	redemption := &models.Redemption{
		ID:              uuid.New(),
		ProfileID:       profile.ID,
		RewardID:        reward.ID,
		Status:          enums.RedemptionStatusProcessing,
		ProviderOrderID: &orderID,
	}
	require.NoError(t, fx.redemptions.Create(context.Background(), redemption))
	fx.redemptions.inFlight = []models.Redemption{*redemption}

	results, err := fx.service.SyncOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Advanced)
	assert.Equal(t, enums.RedemptionStatusShipped, results[0].To)

	stored, err := fx.redemptions.GetByID(context.Background(), redemption.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RedemptionStatusShipped, stored.Status)
}

func TestSyncOrders_UnchangedStatusIsNoOp(t *testing.T) {
	profile := activeProfile(100)
	reward := &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &profile.CompanyID,
		Name:       "Slow Parcel",
		PointsCost: 10,
		Provider:   enums.RewardProviderRye,
	}
	checkers := map[enums.RewardProvider]OrderChecker{
		enums.RewardProviderRye: &stubChecker{status: enums.RedemptionStatusProcessing},
	}
	fx := newFixture(t, profile, reward, checkers)

	orderID := "order_456"
	redemption := &models.Redemption{
		ID:              uuid.New(),
		ProfileID:       profile.ID,
		RewardID:        reward.ID,
		Status:          enums.RedemptionStatusProcessing,
		ProviderOrderID: &orderID,
	}
	require.NoError(t, fx.redemptions.Create(context.Background(), redemption))
	fx.redemptions.inFlight = []models.Redemption{*redemption}

	results, err := fx.service.SyncOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Advanced)
}
