package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
)

type stubRepo struct {
	balance decimal.Decimal
	entries map[uuid.UUID]models.WalletEntry
	credits []models.WalletEntry
}

func newStubRepo(balance string) *stubRepo {
	return &stubRepo{
		balance: decimal.RequireFromString(balance),
		entries: map[uuid.UUID]models.WalletEntry{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) FindAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	return &models.WalletAccount{UserID: userID, Balance: s.balance}, nil
}

func (s *stubRepo) Debit(ctx context.Context, entry models.WalletEntry) (bool, error) {
	return false, nil
}

func (s *stubRepo) Credit(ctx context.Context, entry models.WalletEntry) error {
	s.credits = append(s.credits, entry)
	s.entries[entry.TransactionID] = entry
	return nil
}

func (s *stubRepo) FindEntryByTransactionID(ctx context.Context, transactionID uuid.UUID) (*models.WalletEntry, error) {
	entry, ok := s.entries[transactionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &entry, nil
}

func TestService_Balance(t *testing.T) {
	repo := newStubRepo("120.50")
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	balance, err := svc.Balance(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("balance = %s, want 120.50", balance)
	}

	if _, err := svc.Balance(context.Background(), uuid.Nil); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("nil user err = %v, want validation", err)
	}
}

func TestService_VerifyTopUp_creditsOnce(t *testing.T) {
	repo := newStubRepo("0")
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	userID := uuid.New()
	transactionID := uuid.New()
	amount := decimal.RequireFromString("250.00")

	if err := svc.VerifyTopUp(context.Background(), userID, transactionID, amount); err != nil {
		t.Fatalf("VerifyTopUp: %v", err)
	}
	if len(repo.credits) != 1 {
		t.Fatalf("credits = %d, want 1", len(repo.credits))
	}
	if !repo.credits[0].Amount.Equal(amount) {
		t.Fatalf("credited %s, want %s", repo.credits[0].Amount, amount)
	}

	// Replaying the same transaction id must not credit again.
	if err := svc.VerifyTopUp(context.Background(), userID, transactionID, amount); err != nil {
		t.Fatalf("VerifyTopUp replay: %v", err)
	}
	if len(repo.credits) != 1 {
		t.Fatalf("credits after replay = %d, want 1", len(repo.credits))
	}
}

func TestService_VerifyTopUp_rejectsBadInput(t *testing.T) {
	svc, err := NewService(newStubRepo("0"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cases := []struct {
		name          string
		userID        uuid.UUID
		transactionID uuid.UUID
		amount        decimal.Decimal
	}{
		{"missing user", uuid.Nil, uuid.New(), decimal.RequireFromString("10")},
		{"missing transaction", uuid.New(), uuid.Nil, decimal.RequireFromString("10")},
		{"zero amount", uuid.New(), uuid.New(), decimal.Zero},
		{"negative amount", uuid.New(), uuid.New(), decimal.RequireFromString("-5")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.VerifyTopUp(context.Background(), tc.userID, tc.transactionID, tc.amount)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}
