package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/pkg/enums"
)

// PaymentAttempt tracks how an order's total is funded. At most one attempt
// per order may be processing at a time.
type PaymentAttempt struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	TransactionID    uuid.UUID           `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'created'"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	WalletAmountUsed decimal.Decimal     `gorm:"column:wallet_amount_used;type:numeric(12,2);not null"`
	RemainingAmount  decimal.Decimal     `gorm:"column:remaining_amount;type:numeric(12,2);not null"`
	UPIReference     *string             `gorm:"column:upi_reference"`
	Verified         bool                `gorm:"column:verified;not null;default:false"`
	VerifiedAt       *time.Time          `gorm:"column:verified_at"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// AutoComplete reports whether the attempt settled without the external rail.
func (p PaymentAttempt) AutoComplete() bool {
	return p.Method == enums.PaymentMethodWallet && p.RemainingAmount.IsZero()
}
