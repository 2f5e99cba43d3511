package wallet

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
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	accounts := `
CREATE TABLE IF NOT EXISTS wallet_accounts (
  user_id TEXT PRIMARY KEY,
  balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	entries := `
CREATE TABLE IF NOT EXISTS wallet_entries (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_id TEXT,
  transaction_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  note TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(accounts).Error)
	require.NoError(t, db.Exec(entries).Error)
	return db
}

func seedAccount(t *testing.T, db *gorm.DB, userID uuid.UUID, balance string) {
	t.Helper()
	require.NoError(t, db.Create(&models.WalletAccount{
		UserID:  userID,
		Balance: decimal.RequireFromString(balance),
	}).Error)
}

func TestDebitHappyPath(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	seedAccount(t, db, userID, "1000.00")

	txnID := uuid.New()
	ok, err := repo.Debit(ctx, models.WalletEntry{
		UserID:        userID,
		TransactionID: txnID,
		Amount:        decimal.RequireFromString("400.00"),
	})
	require.NoError(t, err)
	require.True(t, ok)

	account, err := repo.FindAccount(ctx, userID)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("600.00")), "balance = %s", account.Balance)

	entry, err := repo.FindEntryByTransactionID(ctx, txnID)
	require.NoError(t, err)
	require.Equal(t, enums.WalletEntryDebit, entry.Kind)
}

func TestDebitRejectsStaleSnapshot(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()
	seedAccount(t, db, userID, "100.00")

	ok, err := repo.Debit(ctx, models.WalletEntry{
		UserID:        userID,
		TransactionID: uuid.New(),
		Amount:        decimal.RequireFromString("100.01"),
	})
	require.NoError(t, err)
	require.False(t, ok)

	account, err := repo.FindAccount(ctx, userID)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("100.00")))
}

func TestCreditCreatesAccountOnFirstUse(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Credit(ctx, models.WalletEntry{
		UserID:        userID,
		TransactionID: uuid.New(),
		Amount:        decimal.RequireFromString("250.00"),
	}))

	account, err := repo.FindAccount(ctx, userID)
	require.NoError(t, err)
	require.True(t, account.Balance.Equal(decimal.RequireFromString("250.00")))
}

func TestFindAccountUnknownUserIsZeroBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	repo := NewRepository(db)

	account, err := repo.FindAccount(context.Background(), uuid.New())
	require.NoError(t, err)
	require.True(t, account.Balance.IsZero())
}
