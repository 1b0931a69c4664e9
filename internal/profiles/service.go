package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/users"
	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/db"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/email"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/security"
	"github.com/grattia/grattia-backend/pkg/types"
)

const (
	tempPasswordLength  = 16
	inviteEmailTemplate = "member_invitation"
)

// Service exposes membership operations for a company.
type Service interface {
	List(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error)
	Get(ctx context.Context, companyID, profileID uuid.UUID) (*models.Profile, error)
	Invite(ctx context.Context, companyID uuid.UUID, input InviteInput) (*models.Profile, error)
	Update(ctx context.Context, companyID, profileID uuid.UUID, input UpdateInput) (*models.Profile, error)
	Remove(ctx context.Context, companyID, profileID uuid.UUID) error
	ActivateOnFirstLogin(ctx context.Context, profileID uuid.UUID) error
}

// ServiceParams wires the profile service dependencies.
type ServiceParams struct {
	DB          *db.Client
	Repo        Repository
	Users       users.Repository
	Email       email.Sender
	PasswordCfg config.PasswordConfig
	Logger      *logger.Logger
}

type service struct {
	db          *db.Client
	repo        Repository
	users       users.Repository
	email       email.Sender
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds the profile service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		users:       params.Users,
		email:       params.Email,
		passwordCfg: params.PasswordCfg,
		logg:        params.Logger,
	}, nil
}

// InviteInput carries the fields an admin supplies when inviting a member.
type InviteInput struct {
	Email        string
	FirstName    string
	LastName     string
	IsAdmin      bool
	DepartmentID *uuid.UUID
}

// UpdateInput carries optional membership changes.
type UpdateInput struct {
	FirstName    *string
	LastName     *string
	IsAdmin      *bool
	DepartmentID types.NullableUUID
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]models.Profile, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	profiles, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing members")
	}
	return profiles, nil
}

func (s *service) Get(ctx context.Context, companyID, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := s.loadCompanyProfile(ctx, s.repo, companyID, profileID)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Invite creates the auth identity (when the email is new) plus an invited
// profile in one transaction, then relays the invitation email. Email failure
// after commit is logged, not rolled back; the admin can re-send.
func (s *service) Invite(ctx context.Context, companyID uuid.UUID, input InviteInput) (*models.Profile, error) {
	if companyID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id is required")
	}
	address := strings.ToLower(strings.TrimSpace(input.Email))
	if address == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email is required")
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "generating temporary password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "hashing temporary password")
	}

	var profile *models.Profile
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.users.WithTx(tx)
		profileRepo := s.repo.WithTx(tx)

		user, err := userRepo.GetByEmail(ctx, address)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = &models.User{Email: address, PasswordHash: hash}
			if err := userRepo.Create(ctx, user); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if _, err := profileRepo.GetByUserAndCompany(ctx, user.ID, companyID); err == nil {
			return apperrors.New(apperrors.CodeConflict, "member already invited to this company")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		profile = &models.Profile{
			CompanyID:    companyID,
			UserID:       user.ID,
			FirstName:    strings.TrimSpace(input.FirstName),
			LastName:     strings.TrimSpace(input.LastName),
			IsAdmin:      input.IsAdmin,
			DepartmentID: input.DepartmentID,
			Status:       enums.ProfileStatusInvited,
		}
		return profileRepo.Create(ctx, profile)
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "inviting member")
	}

	s.sendInvite(ctx, address, profile, tempPassword)
	return profile, nil
}

func (s *service) sendInvite(ctx context.Context, address string, profile *models.Profile, tempPassword string) {
	if s.email == nil {
		return
	}
	msg := email.Message{
		To:       address,
		Subject:  "You've been invited to Grattia",
		Template: inviteEmailTemplate,
		Data: map[string]any{
			"first_name":    profile.FirstName,
			"temp_password": tempPassword,
		},
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logg.Error(s.logg.WithCompanyID(ctx, profile.CompanyID.String()), "invitation email failed", err)
	}
}

func (s *service) Update(ctx context.Context, companyID, profileID uuid.UUID, input UpdateInput) (*models.Profile, error) {
	var updated *models.Profile
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := s.loadCompanyProfile(ctx, repo, companyID, profileID)
		if err != nil {
			return err
		}
		if input.FirstName != nil {
			profile.FirstName = strings.TrimSpace(*input.FirstName)
		}
		if input.LastName != nil {
			profile.LastName = strings.TrimSpace(*input.LastName)
		}
		if input.IsAdmin != nil {
			profile.IsAdmin = *input.IsAdmin
		}
		if input.DepartmentID.Valid {
			profile.DepartmentID = input.DepartmentID.Value
		}
		if err := repo.Update(ctx, profile); err != nil {
			return err
		}
		updated = profile
		return nil
	})
	if err != nil {
		if typed := apperrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "updating member")
	}
	return updated, nil
}

// Remove deactivates the membership. Seat reconciliation picks the change up
// on the next billing sync.
func (s *service) Remove(ctx context.Context, companyID, profileID uuid.UUID) error {
	profile, err := s.loadCompanyProfile(ctx, s.repo, companyID, profileID)
	if err != nil {
		return err
	}
	if profile.Status == enums.ProfileStatusDeactivated {
		return apperrors.New(apperrors.CodeStateConflict, "member is already deactivated")
	}
	if err := s.repo.SetStatus(ctx, profile.ID, enums.ProfileStatusDeactivated); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "deactivating member")
	}
	return nil
}

// ActivateOnFirstLogin flips invited profiles to active and stamps the
// first_login_at time. Already active profiles are left untouched.
func (s *service) ActivateOnFirstLogin(ctx context.Context, profileID uuid.UUID) error {
	if profileID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "profile id is required")
	}
	if err := s.repo.MarkFirstLogin(ctx, profileID, time.Now().UTC()); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "activating member")
	}
	return nil
}

func (s *service) loadCompanyProfile(ctx context.Context, repo Repository, companyID, profileID uuid.UUID) (*models.Profile, error) {
	if companyID == uuid.Nil || profileID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "company id and profile id are required")
	}
	profile, err := repo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "member not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading member")
	}
	if profile.CompanyID != companyID {
		return nil, apperrors.New(apperrors.CodeNotFound, "member not found")
	}
	return profile, nil
}
