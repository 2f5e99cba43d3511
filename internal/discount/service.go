// Package discount validates coupon codes and draws the per-order goodwill
// discount.
package discount

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// CouponValidation is the outcome of a coupon check. Invalid codes are a
// normal user-visible result, not an error.
type CouponValidation struct {
	Valid    bool
	Code     string
	Title    string
	Discount decimal.Decimal
	Message  string
}

// Service validates coupons and generates goodwill discounts.
type Service interface {
	ValidateCoupon(ctx context.Context, code string) (*CouponValidation, error)
	DrawGoodwill() decimal.Decimal
}

type service struct {
	repo Repository

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService builds the discount service. A nil rng seeds from the clock.
func NewService(repo Repository, rng *rand.Rand) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &service{repo: repo, rng: rng}, nil
}

func (s *service) ValidateCoupon(ctx context.Context, code string) (*CouponValidation, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindActiveByCode(ctx, trimmed)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return &CouponValidation{
			Valid:   false,
			Code:    strings.ToUpper(trimmed),
			Message: "invalid or expired coupon code",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &CouponValidation{
		Valid:    true,
		Code:     coupon.Code,
		Title:    coupon.Title,
		Discount: coupon.Discount,
	}, nil
}

// DrawGoodwill returns a fresh fractional discount in [0.01, 0.99]. It is
// drawn once per new order; retries reuse the recorded value instead.
func (s *service) DrawGoodwill() decimal.Decimal {
	s.mu.Lock()
	cents := s.rng.Intn(99) + 1
	s.mu.Unlock()
	return decimal.New(int64(cents), -2)
}
