package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/grattia/grattia-backend/pkg/enums"
)

// PointTransaction records an immutable ledger entry. Points is always the
// absolute amount moved; the type carries the direction semantics. Rows are
// never updated or deleted.
type PointTransaction struct {
	ID                 uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID          uuid.UUID                  `gorm:"column:company_id;type:uuid;not null"`
	Type               enums.PointTransactionType `gorm:"column:type;not null"`
	SenderProfileID    *uuid.UUID                 `gorm:"column:sender_profile_id;type:uuid"`
	RecipientProfileID *uuid.UUID                 `gorm:"column:recipient_profile_id;type:uuid"`
	Points             int64                      `gorm:"column:points;not null"`
	Description        string                     `gorm:"column:description;not null;default:''"`
	CreatedAt          time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
