// Package checkout orchestrates the settlement flow: resolve the session
// context, snapshot the items, price the stack, record the order, settle the
// payment, and hand unfinished attempts to the confirmation protocol.
package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cigarro-in/cigarro-backend/internal/cart"
	"github.com/cigarro-in/cigarro-backend/internal/checkoutctx"
	"github.com/cigarro-in/cigarro-backend/internal/discount"
	"github.com/cigarro-in/cigarro-backend/internal/orders"
	"github.com/cigarro-in/cigarro-backend/internal/pricing"
	"github.com/cigarro-in/cigarro-backend/internal/settlement"
	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/types"
	"github.com/cigarro-in/cigarro-backend/pkg/upi"
)

// Request is one checkout submission.
type Request struct {
	TransactionID   uuid.UUID
	ShippingAddress *types.Address
	ShippingMethod  enums.ShippingMethod
	CouponCode      string
	WalletAmount    decimal.Decimal

	BuyNow     bool
	BuyNowItem *pricing.Line

	Retry        bool
	PriorOrderID *uuid.UUID
}

// Result is what the controller renders after a checkout submission.
type Result struct {
	Order        *models.Order
	Attempt      *models.PaymentAttempt
	UPI          *upi.Intent
	AutoComplete bool
}

// ConfirmationStatus is the client-facing view of an in-flight attempt.
type ConfirmationStatus struct {
	TransactionID uuid.UUID
	OrderID       uuid.UUID
	Status        enums.PaymentStatus
	Verified      bool
	FailureReason *string
}

// Service is the checkout orchestration entry point.
type Service interface {
	Execute(ctx context.Context, userID uuid.UUID, req Request) (*Result, error)
	Confirmation(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*ConfirmationStatus, error)
}

type sessionStore interface {
	Save(ctx context.Context, userID uuid.UUID, value checkoutctx.Context) error
	Load(ctx context.Context, userID uuid.UUID) (*checkoutctx.Context, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type confirmationStarter interface {
	Start(ctx context.Context, attempt *models.PaymentAttempt, userID uuid.UUID, clearCart bool) error
}

type attemptReader interface {
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PaymentAttempt, error)
}

type service struct {
	sessions   sessionStore
	carts      cart.Service
	discounts  discount.Service
	orders     orders.Manager
	settlement settlement.Engine
	attempts   attemptReader
	watcher    confirmationStarter
	logg       *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(
	sessions sessionStore,
	carts cart.Service,
	discounts discount.Service,
	orderMgr orders.Manager,
	engine settlement.Engine,
	attempts attemptReader,
	watcher confirmationStarter,
	logg *logger.Logger,
) (Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if discounts == nil {
		return nil, fmt.Errorf("discount service required")
	}
	if orderMgr == nil {
		return nil, fmt.Errorf("order manager required")
	}
	if engine == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt reader required")
	}
	if watcher == nil {
		return nil, fmt.Errorf("confirmation watcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		sessions:   sessions,
		carts:      carts,
		discounts:  discounts,
		orders:     orderMgr,
		settlement: engine,
		attempts:   attempts,
		watcher:    watcher,
		logg:       logg,
	}, nil
}

func (s *service) Execute(ctx context.Context, userID uuid.UUID, req Request) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if req.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if req.ShippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	if req.WalletAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet amount cannot be negative")
	}

	flow, err := s.resolveFlow(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, userID, flow)
	if err != nil {
		return nil, err
	}

	discounts, couponCode, err := s.resolveDiscounts(ctx, req.CouponCode, flow)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.CreateOrGet(ctx, userID, flow, orders.CreateInput{
		TransactionID:   req.TransactionID,
		Lines:           lines,
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  req.ShippingMethod,
		CouponCode:      couponCode,
		Discounts:       discounts,
	})
	if err != nil {
		return nil, err
	}

	outcome, err := s.settlement.Settle(ctx, order, req.TransactionID, req.WalletAmount)
	if err != nil {
		return nil, err
	}

	if outcome.AutoComplete {
		s.finish(ctx, userID, flow.ShouldClearCart())
		return &Result{Order: order, Attempt: outcome.Attempt, AutoComplete: true}, nil
	}

	// Remember the order so a failed attempt can be retried at its recorded
	// price. The watcher clears this on completion.
	retryCtx := checkoutctx.Context{
		Retry:        true,
		PriorOrderID: &order.ID,
		Goodwill:     &order.GoodwillDiscount,
		BuyNowItem:   flow.BuyNowItem,
	}
	if err := s.sessions.Save(ctx, userID, retryCtx); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "failed to persist retry context")
	}

	if err := s.watcher.Start(ctx, outcome.Attempt, userID, flow.ShouldClearCart()); err != nil {
		return nil, err
	}

	return &Result{Order: order, Attempt: outcome.Attempt, UPI: outcome.UPI}, nil
}

// resolveFlow reconciles the submitted flags with the persisted session
// context. Explicit flags win. A bare submission is a normal cart checkout:
// any remembered retry or buy-now state is stale at that point and is
// cleared before pricing, so a timed-out attempt never hijacks the cart.
func (s *service) resolveFlow(ctx context.Context, userID uuid.UUID, req Request) (checkoutctx.Context, error) {
	stored, err := s.sessions.Load(ctx, userID)
	if err != nil {
		return checkoutctx.Context{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading checkout session")
	}

	var flow checkoutctx.Context
	switch {
	case req.Retry:
		flow = checkoutctx.Context{Retry: true, PriorOrderID: req.PriorOrderID}
		if stored != nil && stored.Retry {
			if flow.PriorOrderID == nil {
				flow.PriorOrderID = stored.PriorOrderID
			}
			flow.Goodwill = stored.Goodwill
			flow.BuyNowItem = stored.BuyNowItem
		}
	case req.BuyNow:
		flow = checkoutctx.Context{BuyNow: true, BuyNowItem: req.BuyNowItem}
	case stored != nil && !stored.Retry && !stored.BuyNow:
		flow = *stored
	case stored != nil:
		if err := s.sessions.Clear(ctx, userID); err != nil {
			s.logg.Warn(ctx, "failed to clear stale checkout session")
		}
	}
	if err := flow.Validate(); err != nil {
		return flow, err
	}

	// Goodwill is drawn once per order and reused on re-renders. A retry
	// normally resumes the prior order's recorded value; drawing here keeps
	// the degraded fallback, where that order is gone, inside the same
	// bounds as a fresh order.
	if flow.Goodwill == nil {
		drawn := s.discounts.DrawGoodwill()
		flow.Goodwill = &drawn
		if !flow.Retry {
			if err := s.sessions.Save(ctx, userID, flow); err != nil {
				s.logg.Warn(ctx, "failed to persist checkout session")
			}
		}
	}
	return flow, nil
}

func (s *service) resolveLines(ctx context.Context, userID uuid.UUID, flow checkoutctx.Context) ([]pricing.Line, error) {
	switch {
	case flow.BuyNow:
		return []pricing.Line{*flow.BuyNowItem}, nil
	case flow.Retry:
		if flow.BuyNowItem != nil {
			// A retried buy-now order re-prices its own item, not the cart.
			return []pricing.Line{*flow.BuyNowItem}, nil
		}
		// The manager resumes the prior order's own snapshot; the cart is
		// only consulted on the degraded path where that order is gone.
		lines, err := s.carts.Snapshot(ctx, userID)
		if pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return nil, nil
		}
		return lines, err
	default:
		return s.carts.Snapshot(ctx, userID)
	}
}

func (s *service) resolveDiscounts(ctx context.Context, couponCode string, flow checkoutctx.Context) (pricing.Discounts, *string, error) {
	discounts := pricing.Discounts{
		Coupon:   decimal.Zero,
		Referral: decimal.Zero,
		Goodwill: decimal.Zero,
	}
	if flow.Goodwill != nil {
		discounts.Goodwill = *flow.Goodwill
	}
	if couponCode == "" {
		return discounts, nil, nil
	}
	validation, err := s.discounts.ValidateCoupon(ctx, couponCode)
	if err != nil {
		return discounts, nil, err
	}
	if !validation.Valid {
		return discounts, nil, pkgerrors.New(pkgerrors.CodeValidation, validation.Message)
	}
	discounts.Coupon = validation.Discount
	return discounts, &validation.Code, nil
}

// finish performs the wallet-only completion cleanup inline; external
// settlements do the same through the watcher.
func (s *service) finish(ctx context.Context, userID uuid.UUID, clearCart bool) {
	if err := s.sessions.Clear(ctx, userID); err != nil {
		s.logg.Warn(ctx, "failed to clear checkout session")
	}
	if clearCart {
		if _, err := s.carts.ClearActive(ctx, userID); err != nil {
			s.logg.Warn(ctx, "failed to clear cart after settlement")
		}
	}
}

func (s *service) Confirmation(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*ConfirmationStatus, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	attempt, err := s.attempts.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.Get(ctx, attempt.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return &ConfirmationStatus{
		TransactionID: attempt.TransactionID,
		OrderID:       attempt.OrderID,
		Status:        attempt.Status,
		Verified:      attempt.Verified,
		FailureReason: attempt.FailureReason,
	}, nil
}
