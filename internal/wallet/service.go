// Package wallet reads balance snapshots and applies guarded debits and
// credits. Snapshots are advisory only; the debit guard is authoritative.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

// Service exposes the balance snapshot read and top-up verification.
type Service interface {
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	VerifyTopUp(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID, amount decimal.Decimal) error
}

type service struct {
	repo Repository
}

// NewService builds the wallet service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	account, err := s.repo.FindAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// VerifyTopUp credits a confirmed top-up. The transaction id is the
// idempotency key; a replay of an already credited top-up is a no-op.
func (s *service) VerifyTopUp(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID, amount decimal.Decimal) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if transactionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	if _, err := s.repo.FindEntryByTransactionID(ctx, transactionID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	note := "wallet top-up"
	return s.repo.Credit(ctx, models.WalletEntry{
		UserID:        userID,
		TransactionID: transactionID,
		Amount:        amount,
		Note:          &note,
	})
}
