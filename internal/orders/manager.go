// Package orders owns order identity: creation, idempotent reuse by
// transaction ID, and retry resumption of a prior order.
package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/internal/checkoutctx"
	"github.com/cigarro-in/cigarro-backend/internal/pricing"
	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/pagination"
	"github.com/cigarro-in/cigarro-backend/pkg/types"
)

// CreateInput carries everything needed to durably record a new order.
type CreateInput struct {
	TransactionID   uuid.UUID
	Lines           []pricing.Line
	ShippingAddress *types.Address
	ShippingMethod  enums.ShippingMethod
	CouponCode      *string
	Discounts       pricing.Discounts
}

// Manager is the order lifecycle entry point for checkout.
type Manager interface {
	CreateOrGet(ctx context.Context, userID uuid.UUID, flow checkoutctx.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type manager struct {
	tx         txRunner
	repo       Repository
	displayIDs DisplayIDAllocator
	logg       *logger.Logger
}

// NewManager builds the order lifecycle manager.
func NewManager(tx txRunner, repo Repository, displayIDs DisplayIDAllocator, logg *logger.Logger) (Manager, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if displayIDs == nil {
		return nil, fmt.Errorf("display id allocator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &manager{tx: tx, repo: repo, displayIDs: displayIDs, logg: logg}, nil
}

// CreateOrGet resolves order identity for a checkout attempt.
//
// Retries resume the remembered prior order so its snapshot and recorded
// price, goodwill included, carry over unchanged. A prior order that no
// longer exists falls back to a fresh create on the degraded path; a fetch
// transport failure aborts instead, so a network blip cannot mint duplicate
// orders.
func (m *manager) CreateOrGet(ctx context.Context, userID uuid.UUID, flow checkoutctx.Context, input CreateInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if err := flow.Validate(); err != nil {
		return nil, err
	}
	if input.TransactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	if flow.Retry {
		prior, err := m.repo.FindByID(ctx, *flow.PriorOrderID)
		switch {
		case err == nil:
			if prior.UserID != userID {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
			}
			if prior.Status == enums.OrderStatusCompleted {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already completed")
			}
			return prior, nil
		case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
			m.logg.Warn(m.logg.WithOrderID(ctx, flow.PriorOrderID.String()),
				"retried order no longer exists, creating a new order")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching retried order")
		}
	}

	// Idempotency: a double submit with the same transaction id returns the
	// already created order.
	existing, err := m.repo.FindByTransactionID(ctx, input.TransactionID)
	if err == nil {
		if existing.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		return existing, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking transaction id")
	}

	return m.create(ctx, userID, input)
}

func (m *manager) create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Order, error) {
	breakdown, err := pricing.ComputeBreakdown(input.Lines, input.ShippingMethod, input.Discounts)
	if err != nil {
		return nil, err
	}

	displayID, err := m.displayIDs.Next(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating display id")
	}

	order := &models.Order{
		ID:               uuid.New(),
		DisplayID:        displayID,
		UserID:           userID,
		TransactionID:    input.TransactionID,
		Status:           enums.OrderStatusPending,
		ShippingMethod:   input.ShippingMethod,
		ShippingAddress:  input.ShippingAddress,
		Currency:         enums.CurrencyINR,
		Subtotal:         breakdown.Subtotal,
		ShippingCost:     breakdown.ShippingCost,
		CouponCode:       input.CouponCode,
		CouponDiscount:   breakdown.CouponDiscount,
		ReferralDiscount: breakdown.ReferralDiscount,
		GoodwillDiscount: breakdown.GoodwillDiscount,
		Total:            breakdown.Total,
		Items:            orderItems(input.Lines),
	}

	err = m.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := m.repo.WithTx(tx).Create(ctx, order)
		return err
	})
	if pkgerrors.IsCode(err, pkgerrors.CodeIdempotency) {
		// Lost a double-submit race after the existence check.
		return m.repo.FindByTransactionID(ctx, input.TransactionID)
	}
	if err != nil {
		return nil, err
	}

	m.logg.Info(m.logg.WithOrderID(m.logg.WithTransactionID(ctx, input.TransactionID.String()), order.ID.String()),
		"order created")
	return order, nil
}

func (m *manager) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return m.repo.FindByID(ctx, orderID)
}

func (m *manager) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.Order, error) {
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	return m.repo.FindByTransactionID(ctx, transactionID)
}

func (m *manager) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return m.repo.ListByUser(ctx, userID, params)
}

func orderItems(lines []pricing.Line) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			ComboID:   line.ComboID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.Total(),
		})
	}
	return items
}

// Snapshot converts a persisted order's items back into pricing lines, used
// when a retry re-prices nothing but still needs the original snapshot.
func Snapshot(order *models.Order) []pricing.Line {
	lines := make([]pricing.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, pricing.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			ComboID:   item.ComboID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}

// RecordedDiscounts rebuilds the discount stack recorded on an order.
func RecordedDiscounts(order *models.Order) pricing.Discounts {
	return pricing.Discounts{
		Coupon:   order.CouponDiscount,
		Referral: order.ReferralDiscount,
		Goodwill: order.GoodwillDiscount,
	}
}
