package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	"github.com/cigarro-in/cigarro-backend/pkg/types"
)

// Order is the durable record produced by a checkout attempt. The store owns
// it exclusively once created; services hold read references only.
type Order struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayID        string               `gorm:"column:display_id;not null;uniqueIndex"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	TransactionID    uuid.UUID            `gorm:"column:transaction_id;type:uuid;not null;uniqueIndex:idx_orders_transaction_id"`
	Status           enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ShippingMethod   enums.ShippingMethod `gorm:"column:shipping_method;type:shipping_method;not null;default:'standard'"`
	ShippingAddress  *types.Address       `gorm:"column:shipping_address;type:shipping_address_t"`
	Currency         enums.Currency       `gorm:"column:currency;type:text;not null;default:'INR'"`
	Subtotal         decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingCost     decimal.Decimal      `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	CouponCode       *string              `gorm:"column:coupon_code"`
	CouponDiscount   decimal.Decimal      `gorm:"column:coupon_discount;type:numeric(12,2);not null"`
	ReferralDiscount decimal.Decimal      `gorm:"column:referral_discount;type:numeric(12,2);not null"`
	GoodwillDiscount decimal.Decimal      `gorm:"column:goodwill_discount;type:numeric(12,2);not null"`
	Total            decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	Items            []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment          *PaymentAttempt      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem captures the snapshot of each line within an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	ComboID   *uuid.UUID      `gorm:"column:combo_id;type:uuid"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
