package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Repository defines persistence operations for payment attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error)
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PaymentAttempt, error)
	FindProcessingByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentAttempt, error)
	MarkVerified(ctx context.Context, transactionID uuid.UUID, reference *string) (bool, error)
	UpdateStatus(ctx context.Context, transactionID uuid.UUID, status enums.PaymentStatus, failureReason *string) (bool, error)
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.PaymentAttempt) (*models.PaymentAttempt, error) {
	err := r.db.WithContext(ctx).Create(attempt).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "attempt already exists for transaction")
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment attempt not found")
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) FindProcessingByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusProcessing).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no processing attempt")
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// MarkVerified flips the verification flag once. The affected count guards a
// double confirmation from the rail.
func (r *repository) MarkVerified(ctx context.Context, transactionID uuid.UUID, reference *string) (bool, error) {
	updates := map[string]any{
		"verified":    true,
		"verified_at": time.Now().UTC(),
	}
	if reference != nil {
		updates["upi_reference"] = *reference
	}

	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("transaction_id = ? AND verified = ?", transactionID, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus transitions an attempt, refusing to leave a terminal state.
func (r *repository) UpdateStatus(ctx context.Context, transactionID uuid.UUID, status enums.PaymentStatus, failureReason *string) (bool, error) {
	updates := map[string]any{"status": status}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}

	res := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("transaction_id = ? AND status IN ?", transactionID,
			[]enums.PaymentStatus{enums.PaymentStatusCreated, enums.PaymentStatusProcessing}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.PaymentStatusProcessing, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
