// Package pricing computes price breakdowns for checkout attempts. It is
// pure: no I/O, deterministic for a given input.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Line is one immutable row of a cart snapshot.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	ComboID   *uuid.UUID
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Total returns quantity times unit price.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discounts is the stack applied to a breakdown. Values are summed, never
// compounded.
type Discounts struct {
	Coupon   decimal.Decimal
	Referral decimal.Decimal
	Goodwill decimal.Decimal
}

// Sum returns the flat sum of all discounts.
func (d Discounts) Sum() decimal.Decimal {
	return d.Coupon.Add(d.Referral).Add(d.Goodwill)
}

// Breakdown is the priced result of a cart snapshot.
type Breakdown struct {
	Subtotal         decimal.Decimal
	ShippingCost     decimal.Decimal
	CouponDiscount   decimal.Decimal
	ReferralDiscount decimal.Decimal
	GoodwillDiscount decimal.Decimal
	Total            decimal.Decimal
}

var shippingFees = map[enums.ShippingMethod]decimal.Decimal{
	enums.ShippingMethodStandard: decimal.Zero,
	enums.ShippingMethodExpress:  decimal.NewFromInt(49),
	enums.ShippingMethodPriority: decimal.NewFromInt(99),
}

// ShippingFee returns the flat fee for the method. Unknown methods price as
// standard.
func ShippingFee(method enums.ShippingMethod) decimal.Decimal {
	if fee, ok := shippingFees[method]; ok {
		return fee
	}
	return decimal.Zero
}

// ComputeBreakdown prices the snapshot. The total is clamped at zero when the
// discount stack exceeds subtotal plus shipping.
func ComputeBreakdown(lines []Line, method enums.ShippingMethod, discounts Discounts) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "line unit price must not be negative")
		}
		subtotal = subtotal.Add(line.Total())
	}

	if discounts.Coupon.IsNegative() || discounts.Referral.IsNegative() || discounts.Goodwill.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "discounts must not be negative")
	}

	shipping := ShippingFee(method)
	total := subtotal.Add(shipping).Sub(discounts.Sum())
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal:         subtotal,
		ShippingCost:     shipping,
		CouponDiscount:   discounts.Coupon,
		ReferralDiscount: discounts.Referral,
		GoodwillDiscount: discounts.Goodwill,
		Total:            total,
	}, nil
}
