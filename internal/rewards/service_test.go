package rewards

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
)

type stubRewardRepo struct {
	Repository
	byID    map[uuid.UUID]*models.Reward
	deleted []uuid.UUID
}

func newStubRewardRepo(existing ...*models.Reward) *stubRewardRepo {
	repo := &stubRewardRepo{byID: map[uuid.UUID]*models.Reward{}}
	for _, reward := range existing {
		repo.byID[reward.ID] = reward
	}
	return repo
}

func (s *stubRewardRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	reward, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *reward
	return &copied, nil
}

func (s *stubRewardRepo) ListForCompany(ctx context.Context, companyID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	for _, reward := range s.byID {
		if reward.CompanyID == nil || *reward.CompanyID == companyID {
			rewards = append(rewards, *reward)
		}
	}
	return rewards, nil
}

func (s *stubRewardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func newRewardService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "rewards-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func companyReward(companyID uuid.UUID) *models.Reward {
	return &models.Reward{
		ID:         uuid.New(),
		CompanyID:  &companyID,
		Name:       "Coffee Sampler",
		PointsCost: 200,
		Provider:   enums.RewardProviderGoody,
		ExternalID: "goody_prod_1",
	}
}

func TestList_IncludesGlobalRewards(t *testing.T) {
	companyID := uuid.New()
	global := &models.Reward{ID: uuid.New(), Name: "Gift Card", PointsCost: 500, Provider: enums.RewardProviderRye, ExternalID: "rye_prod_1"}
	repo := newStubRewardRepo(companyReward(companyID), global)
	svc := newRewardService(t, repo)

	rewards, err := svc.List(context.Background(), companyID)
	require.NoError(t, err)
	assert.Len(t, rewards, 2)

	_, err = svc.List(context.Background(), uuid.Nil)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeValidation, typed.Code())
}

func TestGet_ScopesRewardsToCompany(t *testing.T) {
	companyID := uuid.New()
	owned := companyReward(companyID)
	global := &models.Reward{ID: uuid.New(), Name: "Gift Card", PointsCost: 500, Provider: enums.RewardProviderRye, ExternalID: "rye_prod_2"}
	repo := newStubRewardRepo(owned, global)
	svc := newRewardService(t, repo)
	ctx := context.Background()

	cases := []struct {
		name     string
		company  uuid.UUID
		reward   uuid.UUID
		wantCode apperrors.Code
	}{
		{"own reward", companyID, owned.ID, ""},
		{"global reward", companyID, global.ID, ""},
		{"another company's reward", uuid.New(), owned.ID, apperrors.CodeNotFound},
		{"unknown reward", companyID, uuid.New(), apperrors.CodeNotFound},
		{"missing reward id", companyID, uuid.Nil, apperrors.CodeValidation},
	}
	for _, tc := range cases {
		reward, err := svc.Get(ctx, tc.company, tc.reward)
		if tc.wantCode == "" {
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.reward, reward.ID, tc.name)
			continue
		}
		require.Error(t, err, tc.name)
		typed := apperrors.As(err)
		require.NotNil(t, typed, tc.name)
		assert.Equal(t, tc.wantCode, typed.Code(), tc.name)
	}
}

func TestDelete_RemovesCompanyOwnedReward(t *testing.T) {
	companyID := uuid.New()
	owned := companyReward(companyID)
	repo := newStubRewardRepo(owned)
	svc := newRewardService(t, repo)

	require.NoError(t, svc.Delete(context.Background(), companyID, owned.ID))
	require.Len(t, repo.deleted, 1)
	assert.Equal(t, owned.ID, repo.deleted[0])
}

func TestDelete_RefusesGlobalAndForeignRewards(t *testing.T) {
	companyID := uuid.New()
	owned := companyReward(companyID)
	global := &models.Reward{ID: uuid.New(), Name: "Gift Card", PointsCost: 500, Provider: enums.RewardProviderRye, ExternalID: "rye_prod_3"}
	repo := newStubRewardRepo(owned, global)
	svc := newRewardService(t, repo)
	ctx := context.Background()

	err := svc.Delete(ctx, companyID, global.ID)
	require.Error(t, err)
	typed := apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeForbidden, typed.Code())

	err = svc.Delete(ctx, uuid.New(), owned.ID)
	require.Error(t, err)
	typed = apperrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, apperrors.CodeNotFound, typed.Code())

	assert.Empty(t, repo.deleted)
}
