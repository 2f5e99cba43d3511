package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  created_at DATETIME,
  updated_at DATETIME
);`
	items := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  combo_id TEXT,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(carts).Error)
	require.NoError(t, db.Exec(items).Error)
	return db
}

func seedActiveCart(t *testing.T, db *gorm.DB, userID uuid.UUID, itemCount int) models.CartRecord {
	t.Helper()

	record := models.CartRecord{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
	}
	require.NoError(t, db.Create(&record).Error)

	for i := 0; i < itemCount; i++ {
		require.NoError(t, db.Create(&models.CartItem{
			ID:        uuid.New(),
			CartID:    record.ID,
			ProductID: uuid.New(),
			Name:      "item",
			Quantity:  1 + i,
			UnitPrice: decimal.NewFromInt(int64(100 * (i + 1))),
		}).Error)
	}
	return record
}

func TestFindActiveByUserPreloadsItems(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	seedActiveCart(t, db, userID, 2)

	record, err := repo.FindActiveByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, record.Items, 2)
}

func TestFindActiveByUserNoCart(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindActiveByUser(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestClearActiveIsSingleShot(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	seedActiveCart(t, db, userID, 1)

	cleared, err := repo.ClearActive(ctx, userID)
	require.NoError(t, err)
	require.True(t, cleared)

	// A second clear finds no active cart to transition.
	cleared, err = repo.ClearActive(ctx, userID)
	require.NoError(t, err)
	require.False(t, cleared)

	_, err = repo.FindActiveByUser(ctx, userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSnapshotFreezesLines(t *testing.T) {
	db := setupCartTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	userID := uuid.New()
	seedActiveCart(t, db, userID, 2)

	lines, err := svc.Snapshot(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total())
	}
	// 1 x 100 + 2 x 200
	require.True(t, total.Equal(decimal.NewFromInt(500)), "total = %s", total)
}

func TestSnapshotRejectsEmptyCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	userID := uuid.New()
	seedActiveCart(t, db, userID, 0)

	_, err = svc.Snapshot(context.Background(), userID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
