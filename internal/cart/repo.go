package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Repository defines persistence operations for the active cart.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	ClearActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ClearActive marks the active cart cleared. The guarded status transition
// makes a double clear a no-op, reported through the affected flag.
func (r *repository) ClearActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Update("status", enums.CartStatusCleared)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
