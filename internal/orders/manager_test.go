package orders

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/internal/checkoutctx"
	"github.com/cigarro-in/cigarro-backend/internal/pricing"
	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/pagination"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memoryOrderRepo struct {
	byID  map[uuid.UUID]*models.Order
	byTxn map[uuid.UUID]*models.Order

	findErr error
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{
		byID:  map[uuid.UUID]*models.Order{},
		byTxn: map[uuid.UUID]*models.Order{},
	}
}

func (m *memoryOrderRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memoryOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if _, ok := m.byTxn[order.TransactionID]; ok {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "order already exists for transaction")
	}
	m.byID[order.ID] = order
	m.byTxn[order.TransactionID] = order
	return order, nil
}

func (m *memoryOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if o, ok := m.byID[id]; ok {
		return o, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (m *memoryOrderRepo) FindByTransactionID(ctx context.Context, txnID uuid.UUID) (*models.Order, error) {
	if o, ok := m.byTxn[txnID]; ok {
		return o, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (m *memoryOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	var rows []models.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			rows = append(rows, *o)
		}
	}
	return &OrderList{Orders: rows}, nil
}

func (m *memoryOrderRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	if o, ok := m.byID[orderID]; ok {
		o.Status = status
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type seqDisplayIDs struct{ n int }

func (s *seqDisplayIDs) Next(ctx context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("CIG-2026-%06d", s.n), nil
}

func testManager(t *testing.T, repo Repository) Manager {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	m, err := NewManager(passthroughTx{}, repo, &seqDisplayIDs{}, logg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func createInput() CreateInput {
	return CreateInput{
		TransactionID: uuid.New(),
		Lines: []pricing.Line{{
			ProductID: uuid.New(),
			Name:      "classic pack",
			Quantity:  1,
			UnitPrice: decimal.RequireFromString("999.00"),
		}},
		ShippingMethod: enums.ShippingMethodStandard,
		Discounts: pricing.Discounts{
			Goodwill: decimal.RequireFromString("0.37"),
		},
	}
}

func TestCreateOrGetIsIdempotentPerTransactionID(t *testing.T) {
	repo := newMemoryOrderRepo()
	m := testManager(t, repo)
	ctx := context.Background()
	userID := uuid.New()
	input := createInput()

	first, err := m.CreateOrGet(ctx, userID, checkoutctx.Context{}, input)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := m.CreateOrGet(ctx, userID, checkoutctx.Context{}, input)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same order, got %s and %s", first.ID, second.ID)
	}
}

func TestRetryReusesPriorOrderAndGoodwill(t *testing.T) {
	repo := newMemoryOrderRepo()
	m := testManager(t, repo)
	ctx := context.Background()
	userID := uuid.New()

	original, err := m.CreateOrGet(ctx, userID, checkoutctx.Context{}, createInput())
	if err != nil {
		t.Fatalf("create original: %v", err)
	}

	// The retry carries a fresh draw that must be ignored.
	retryInput := createInput()
	retryInput.Discounts.Goodwill = decimal.RequireFromString("0.88")

	flow := checkoutctx.Context{Retry: true, PriorOrderID: &original.ID}
	resumed, err := m.CreateOrGet(ctx, userID, flow, retryInput)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if resumed.ID != original.ID {
		t.Fatalf("expected prior order reused, got %s", resumed.ID)
	}
	if !resumed.GoodwillDiscount.Equal(decimal.RequireFromString("0.37")) {
		t.Fatalf("goodwill changed on retry: %s", resumed.GoodwillDiscount)
	}
}

func TestRetryMissingOrderFallsBackToCreate(t *testing.T) {
	repo := newMemoryOrderRepo()
	m := testManager(t, repo)
	ctx := context.Background()
	userID := uuid.New()

	gone := uuid.New()
	flow := checkoutctx.Context{Retry: true, PriorOrderID: &gone}
	order, err := m.CreateOrGet(ctx, userID, flow, createInput())
	if err != nil {
		t.Fatalf("expected degraded fallback, got %v", err)
	}
	if order.ID == gone {
		t.Fatal("expected a fresh order")
	}
}

func TestRetryFetchFailureIsDependencyError(t *testing.T) {
	repo := newMemoryOrderRepo()
	repo.findErr = fmt.Errorf("connection reset")
	m := testManager(t, repo)

	prior := uuid.New()
	flow := checkoutctx.Context{Retry: true, PriorOrderID: &prior}
	_, err := m.CreateOrGet(context.Background(), uuid.New(), flow, createInput())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRetryWithoutPriorReferenceFailsFast(t *testing.T) {
	m := testManager(t, newMemoryOrderRepo())

	flow := checkoutctx.Context{Retry: true}
	_, err := m.CreateOrGet(context.Background(), uuid.New(), flow, createInput())
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRetryCompletedOrderRejected(t *testing.T) {
	repo := newMemoryOrderRepo()
	m := testManager(t, repo)
	ctx := context.Background()
	userID := uuid.New()

	order, err := m.CreateOrGet(ctx, userID, checkoutctx.Context{}, createInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	order.Status = enums.OrderStatusCompleted

	flow := checkoutctx.Context{Retry: true, PriorOrderID: &order.ID}
	_, err = m.CreateOrGet(ctx, userID, flow, createInput())
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateOrGetRejectsForeignOrder(t *testing.T) {
	repo := newMemoryOrderRepo()
	m := testManager(t, repo)
	ctx := context.Background()

	input := createInput()
	if _, err := m.CreateOrGet(ctx, uuid.New(), checkoutctx.Context{}, input); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := m.CreateOrGet(ctx, uuid.New(), checkoutctx.Context{}, input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for another user's transaction, got %v", err)
	}
}
