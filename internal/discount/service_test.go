package discount

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

type stubCouponRepo struct {
	coupon *models.Coupon
	err    error
}

func (s *stubCouponRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCouponRepo) FindActiveByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.coupon, nil
}

func TestValidateCouponSuccess(t *testing.T) {
	repo := &stubCouponRepo{coupon: &models.Coupon{
		ID:       uuid.New(),
		Code:     "WELCOME50",
		Title:    "Welcome offer",
		Discount: decimal.RequireFromString("50.00"),
		Active:   true,
	}}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.ValidateCoupon(context.Background(), "WELCOME50")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatal("expected valid coupon")
	}
	if !result.Discount.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("discount = %s", result.Discount)
	}
}

func TestValidateCouponUnknownCodeIsNotAnError(t *testing.T) {
	repo := &stubCouponRepo{err: pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")}
	svc, err := NewService(repo, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.ValidateCoupon(context.Background(), "nope")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Valid {
		t.Fatal("expected invalid result")
	}
	if result.Message == "" {
		t.Fatal("expected user-visible message")
	}
}

func TestValidateCouponRequiresCode(t *testing.T) {
	svc, err := NewService(&stubCouponRepo{}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.ValidateCoupon(context.Background(), "   "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDrawGoodwillBounds(t *testing.T) {
	svc, err := NewService(&stubCouponRepo{}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	min := decimal.RequireFromString("0.01")
	max := decimal.RequireFromString("0.99")
	for i := 0; i < 500; i++ {
		got := svc.DrawGoodwill()
		if got.LessThan(min) || got.GreaterThan(max) {
			t.Fatalf("goodwill %s outside [0.01, 0.99]", got)
		}
	}
}
