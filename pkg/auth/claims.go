package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID        uuid.UUID
	CompanyID     *uuid.UUID
	ProfileID     *uuid.UUID
	Role          enums.MemberRole
	PlatformAdmin bool
	JTI           string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID        uuid.UUID        `json:"user_id"`
	CompanyID     *uuid.UUID       `json:"company_id,omitempty"`
	ProfileID     *uuid.UUID       `json:"profile_id,omitempty"`
	Role          enums.MemberRole `json:"role"`
	PlatformAdmin bool             `json:"platform_admin,omitempty"`
	jwt.RegisteredClaims
}
