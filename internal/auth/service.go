package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/grattia/grattia-backend/internal/profiles"
	"github.com/grattia/grattia-backend/internal/users"
	pkgauth "github.com/grattia/grattia-backend/pkg/auth"
	"github.com/grattia/grattia-backend/pkg/auth/session"
	"github.com/grattia/grattia-backend/pkg/config"
	"github.com/grattia/grattia-backend/pkg/db/models"
	"github.com/grattia/grattia-backend/pkg/enums"
	apperrors "github.com/grattia/grattia-backend/pkg/errors"
	"github.com/grattia/grattia-backend/pkg/logger"
	"github.com/grattia/grattia-backend/pkg/security"
)

const invalidCredentialsMsg = "invalid email or password"

// SessionManager is the session surface the auth service depends on.
type SessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// RateLimiter applies the login fixed-window limits.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LoginInput carries one login attempt.
type LoginInput struct {
	Email     string
	Password  string
	CompanyID *uuid.UUID
	ClientIP  string
}

// TokenPair is the issued credential set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Tokens  TokenPair       `json:"tokens"`
	User    *models.User    `json:"user"`
	Profile *models.Profile `json:"profile,omitempty"`
}

// Service exposes authentication operations.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	Refresh(ctx context.Context, claims *pkgauth.AccessTokenClaims, refreshToken string) (*LoginResult, error)
	Logout(ctx context.Context, accessID string) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// ServiceParams wires the auth service dependencies.
type ServiceParams struct {
	Users       users.Repository
	Profiles    profiles.Repository
	Memberships profiles.Service
	Sessions    SessionManager
	Limiter     RateLimiter
	JWT         config.JWTConfig
	Password    config.PasswordConfig
	RateLimit   config.AuthRateLimitConfig
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	users       users.Repository
	profiles    profiles.Repository
	memberships profiles.Service
	sessions    SessionManager
	limiter     RateLimiter
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	rateCfg     config.AuthRateLimitConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService builds the auth service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if params.Profiles == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if params.Memberships == nil {
		return nil, fmt.Errorf("profile service required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:       params.Users,
		profiles:    params.Profiles,
		memberships: params.Memberships,
		sessions:    params.Sessions,
		limiter:     params.Limiter,
		jwtCfg:      params.JWT,
		passwordCfg: params.Password,
		rateCfg:     params.RateLimit,
		logg:        params.Logger,
		now:         now,
	}, nil
}

// Login verifies credentials, selects the caller's membership, and issues an
// access/refresh token pair. A profile still in invited state is activated on
// this first successful login.
func (s *service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	address := strings.ToLower(strings.TrimSpace(input.Email))
	if address == "" || input.Password == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "email and password are required")
	}

	if err := s.checkRateLimits(ctx, address, input.ClientIP); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, invalidCredentialsMsg)
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading user")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthorized, invalidCredentialsMsg)
	}

	profile, err := s.selectProfile(ctx, user.ID, input.CompanyID)
	if err != nil {
		return nil, err
	}

	result, err := s.issueTokens(ctx, user, profile)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logg.Error(ctx, "failed to record last login", err)
	}
	if profile != nil && profile.Status == enums.ProfileStatusInvited {
		if err := s.memberships.ActivateOnFirstLogin(ctx, profile.ID); err != nil {
			s.logg.Error(ctx, "failed to activate invited profile", err)
		} else {
			profile.Status = enums.ProfileStatusActive
			profile.FirstLoginAt = &now
		}
	}
	return result, nil
}

// Refresh rotates the refresh token and issues a fresh access token carrying
// the same identity claims.
func (s *service) Refresh(ctx context.Context, claims *pkgauth.AccessTokenClaims, refreshToken string) (*LoginResult, error) {
	if claims == nil || claims.ID == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid session")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, apperrors.New(apperrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "rotating session")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading user")
	}

	var profile *models.Profile
	if claims.ProfileID != nil {
		profile, err = s.profiles.GetByID(ctx, *claims.ProfileID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading profile")
		}
	}

	accessToken, err := s.mintToken(user, profile, newAccessID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Tokens:  TokenPair{AccessToken: accessToken, RefreshToken: newRefresh},
		User:    user,
		Profile: profile,
	}, nil
}

// Logout revokes the Redis session tied to the token's jti; the JWT itself
// expires on its own.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return apperrors.New(apperrors.CodeValidation, "session id is required")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "revoking session")
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if userID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "user id is required")
	}
	if len(next) < 8 {
		return apperrors.New(apperrors.CodeValidation, "password must be at least 8 characters")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading user")
	}

	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "verifying password")
	}
	if !ok {
		return apperrors.New(apperrors.CodeUnauthorized, "current password is incorrect")
	}

	hash, err := security.HashPassword(next, s.passwordCfg)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "hashing password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "updating password")
	}
	return nil
}

func (s *service) checkRateLimits(ctx context.Context, email, ip string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:email:"+email, int64(s.rateCfg.LoginEmailLimit), s.rateCfg.LoginWindow)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "login rate limit check")
	}
	if !allowed {
		return apperrors.New(apperrors.CodeRateLimit, "too many login attempts")
	}
	if ip != "" {
		allowed, _, err = s.limiter.FixedWindowAllow(ctx, "login:ip:"+ip, int64(s.rateCfg.LoginIPLimit), s.rateCfg.LoginWindow)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "login rate limit check")
		}
		if !allowed {
			return apperrors.New(apperrors.CodeRateLimit, "too many login attempts")
		}
	}
	return nil
}

// selectProfile picks the membership the token is scoped to. Users with no
// membership (platform admins) log in without a company scope.
func (s *service) selectProfile(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) (*models.Profile, error) {
	memberships, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing memberships")
	}
	if len(memberships) == 0 {
		return nil, nil
	}
	if companyID == nil {
		return &memberships[0], nil
	}
	for i := range memberships {
		if memberships[i].CompanyID == *companyID {
			return &memberships[i], nil
		}
	}
	return nil, apperrors.New(apperrors.CodeForbidden, "no membership in the requested company")
}

func (s *service) issueTokens(ctx context.Context, user *models.User, profile *models.Profile) (*LoginResult, error) {
	accessID := session.NewAccessID()
	accessToken, err := s.mintToken(user, profile, accessID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating session")
	}
	return &LoginResult{
		Tokens:  TokenPair{AccessToken: accessToken, RefreshToken: refreshToken},
		User:    user,
		Profile: profile,
	}, nil
}

func (s *service) mintToken(user *models.User, profile *models.Profile, accessID string) (string, error) {
	payload := pkgauth.AccessTokenPayload{
		UserID:        user.ID,
		Role:          enums.MemberRoleMember,
		PlatformAdmin: user.PlatformAdmin,
		JTI:           accessID,
	}
	if profile != nil {
		payload.CompanyID = &profile.CompanyID
		payload.ProfileID = &profile.ID
		if profile.IsAdmin {
			payload.Role = enums.MemberRoleAdmin
		}
	}
	token, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), payload)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeInternal, err, "minting access token")
	}
	return token, nil
}
