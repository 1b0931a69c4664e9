package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the auth identity shared across company memberships.
type User struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	PlatformAdmin bool       `gorm:"column:platform_admin;not null;default:false"`
	LastLoginAt   *time.Time `gorm:"column:last_login_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
