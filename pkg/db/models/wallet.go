package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/pkg/enums"
)

// WalletAccount holds a user's internal balance. The engine only reads
// snapshots; debits happen through the settlement procedure.
type WalletAccount struct {
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// WalletEntry is the audit trail for every balance movement.
type WalletEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID       *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	TransactionID uuid.UUID             `gorm:"column:transaction_id;type:uuid;not null;index"`
	Kind          enums.WalletEntryKind `gorm:"column:kind;type:wallet_entry_kind;not null"`
	Amount        decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Note          *string               `gorm:"column:note"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
