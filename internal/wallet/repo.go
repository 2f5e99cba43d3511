package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
)

// Repository defines wallet persistence. Debits are guarded by the live
// balance so a stale snapshot read loses cleanly at settlement time.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	Debit(ctx context.Context, entry models.WalletEntry) (bool, error)
	Credit(ctx context.Context, entry models.WalletEntry) error
	FindEntryByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.WalletEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindAccount returns the account, or a zero-balance view when the user has
// never funded a wallet.
func (r *repository) FindAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	var account models.WalletAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.WalletAccount{UserID: userID, Balance: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Debit decrements the balance and records the entry. The balance guard in
// the WHERE clause is the authority; a false return means the snapshot the
// caller quoted against is stale.
func (r *repository) Debit(ctx context.Context, entry models.WalletEntry) (bool, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Kind = enums.WalletEntryDebit

	res := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("user_id = ? AND balance >= ?", entry.UserID, entry.Amount).
		Update("balance", gorm.Expr("balance - ?", entry.Amount))
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Credit increments the balance, creating the account if needed, and records
// the entry.
func (r *repository) Credit(ctx context.Context, entry models.WalletEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Kind = enums.WalletEntryCredit

	res := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("user_id = ?", entry.UserID).
		Update("balance", gorm.Expr("balance + ?", entry.Amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		account := models.WalletAccount{UserID: entry.UserID, Balance: entry.Amount}
		if err := r.db.WithContext(ctx).Create(&account).Error; err != nil {
			return err
		}
	}

	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *repository) FindEntryByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.WalletEntry, error) {
	var entry models.WalletEntry
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
