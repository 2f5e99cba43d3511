package models

import (
	"time"

	"github.com/google/uuid"
)

// User carries the referral surface the checkout engine needs; account
// management itself lives upstream.
type User struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string     `gorm:"column:name;not null"`
	ReferralCode        string     `gorm:"column:referral_code;not null;uniqueIndex"`
	ReferredBy          *uuid.UUID `gorm:"column:referred_by;type:uuid"`
	FirstOrderCompleted bool       `gorm:"column:first_order_completed;not null;default:false"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
