package referral

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Repository defines user lookups and the guarded referral attachment write.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	AttachReferrer(ctx context.Context, userID, referrerID uuid.UUID) (bool, error)
	MarkFirstOrderCompleted(ctx context.Context, userID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a referral repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("referral_code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// AttachReferrer attaches atomically. The WHERE clause re-verifies
// eligibility so a concurrent first-order completion or a double attach
// loses the race cleanly; the caller sees affected=false instead of a
// corrupted row.
func (r *repository) AttachReferrer(ctx context.Context, userID, referrerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND referred_by IS NULL AND first_order_completed = ?", userID, false).
		Update("referred_by", referrerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkFirstOrderCompleted(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("first_order_completed", true).Error
}
