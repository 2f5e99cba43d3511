// Package settlement funds an order's total from the wallet and the UPI
// rail, and owns the terminal transitions of a payment attempt.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cigarro-in/cigarro-backend/internal/notify"
	"github.com/cigarro-in/cigarro-backend/internal/orders"
	"github.com/cigarro-in/cigarro-backend/internal/referral"
	"github.com/cigarro-in/cigarro-backend/internal/wallet"
	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/metrics"
	"github.com/cigarro-in/cigarro-backend/pkg/upi"
)

// Settlement is the outcome of a settle call. AutoComplete attempts are
// terminal immediately; all others carry the UPI intent the caller hands to
// the confirmation protocol.
type Settlement struct {
	Attempt      *models.PaymentAttempt
	UPI          *upi.Intent
	AutoComplete bool
}

// Engine drives payment settlement.
type Engine interface {
	Settle(ctx context.Context, order *models.Order, transactionID uuid.UUID, requestedWallet decimal.Decimal) (*Settlement, error)
	Poll(ctx context.Context, transactionID uuid.UUID) (bool, error)
	ConfirmExternal(ctx context.Context, transactionID uuid.UUID, reference *string) error
	Complete(ctx context.Context, transactionID uuid.UUID) error
	TimeOut(ctx context.Context, transactionID uuid.UUID, refundWindowDays int) error
	Fail(ctx context.Context, transactionID uuid.UUID, reason string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type engine struct {
	tx          txRunner
	attempts    Repository
	walletRepo  wallet.Repository
	orders      orders.Repository
	referrals   referral.Repository
	upiBuilder  *upi.Builder
	notifier    notify.Notifier
	logg        *logger.Logger
	settlementM *metrics.SettlementMetrics
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Tx         txRunner
	Attempts   Repository
	Wallet     wallet.Repository
	Orders     orders.Repository
	Referrals  referral.Repository
	UPIBuilder *upi.Builder
	Notifier   notify.Notifier
	Logger     *logger.Logger
	Metrics    *metrics.SettlementMetrics
}

// NewEngine builds the settlement engine.
func NewEngine(deps Deps) (Engine, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Attempts == nil {
		return nil, fmt.Errorf("attempts repository required")
	}
	if deps.Wallet == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if deps.Referrals == nil {
		return nil, fmt.Errorf("referral repository required")
	}
	if deps.UPIBuilder == nil {
		return nil, fmt.Errorf("upi builder required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &engine{
		tx:          deps.Tx,
		attempts:    deps.Attempts,
		walletRepo:  deps.Wallet,
		orders:      deps.Orders,
		referrals:   deps.Referrals,
		upiBuilder:  deps.UPIBuilder,
		notifier:    deps.Notifier,
		logg:        deps.Logger,
		settlementM: deps.Metrics,
	}, nil
}

// Settle funds the order. The requested wallet amount is clamped to the live
// snapshot and the order total; the debit guard inside the transaction is
// the final authority, so a stale snapshot surfaces as InsufficientFunds
// rather than a silent re-quote.
func (e *engine) Settle(ctx context.Context, order *models.Order, transactionID uuid.UUID, requestedWallet decimal.Decimal) (*Settlement, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if transactionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	if order.Status == enums.OrderStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already settled")
	}
	if requestedWallet.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet amount must not be negative")
	}

	if _, err := e.attempts.FindProcessingByOrder(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a payment attempt is already in flight for this order")
	} else if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	account, err := e.walletRepo.FindAccount(ctx, order.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading wallet balance")
	}

	walletUse := decimal.Min(requestedWallet, account.Balance, order.Total)
	remaining := order.Total.Sub(walletUse)

	method := enums.PaymentMethodUPI
	switch {
	case remaining.IsZero() && walletUse.IsPositive():
		method = enums.PaymentMethodWallet
	case walletUse.IsPositive():
		method = enums.PaymentMethodWalletUPI
	}
	if order.Total.IsZero() {
		// Fully discounted orders settle without funding.
		method = enums.PaymentMethodWallet
	}

	autoComplete := remaining.IsZero()

	attempt := &models.PaymentAttempt{
		ID:               uuid.New(),
		OrderID:          order.ID,
		TransactionID:    transactionID,
		Method:           method,
		Amount:           order.Total,
		WalletAmountUsed: walletUse,
		RemainingAmount:  remaining,
	}
	if autoComplete {
		attempt.Status = enums.PaymentStatusCompleted
		attempt.Verified = true
		now := time.Now().UTC()
		attempt.VerifiedAt = &now
	} else {
		attempt.Status = enums.PaymentStatusProcessing
	}

	err = e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		attempts := e.attempts.WithTx(tx)
		wallets := e.walletRepo.WithTx(tx)
		orders := e.orders.WithTx(tx)

		if walletUse.IsPositive() {
			debited, err := wallets.Debit(ctx, models.WalletEntry{
				UserID:        order.UserID,
				OrderID:       &order.ID,
				TransactionID: transactionID,
				Amount:        walletUse,
			})
			if err != nil {
				return err
			}
			if !debited {
				return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance changed, please re-quote")
			}
		}

		if _, err := attempts.Create(ctx, attempt); err != nil {
			return err
		}

		if autoComplete {
			if err := orders.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted); err != nil {
				return err
			}
			return e.referrals.WithTx(tx).MarkFirstOrderCompleted(ctx, order.UserID)
		}
		return orders.UpdateStatus(ctx, order.ID, enums.OrderStatusPaymentProcessing)
	})
	if err != nil {
		e.settlementM.IncAttempt(method.String(), "rejected")
		return nil, storeErr(err)
	}

	result := &Settlement{Attempt: attempt, AutoComplete: autoComplete}
	ctx = e.logg.WithTransactionID(e.logg.WithOrderID(ctx, order.ID.String()), transactionID.String())

	if !autoComplete {
		intent, err := e.upiBuilder.Intent(order.DisplayID, transactionID, remaining)
		if err != nil {
			// The attempt is recorded; a formatting failure only loses the
			// rendered link, so surface it for the caller to retry rendering.
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "formatting payment intent")
		}
		result.UPI = intent

		e.notifier.PaymentInitiated(ctx, notify.Event{
			TransactionID:  transactionID,
			OrderReference: order.DisplayID,
			Amount:         remaining,
			Timestamp:      time.Now().UTC(),
		})
		e.logg.Info(ctx, "settlement awaiting external confirmation")
		e.settlementM.IncAttempt(method.String(), "processing")
	} else {
		e.logg.Info(ctx, "settlement completed from wallet")
		e.settlementM.IncAttempt(method.String(), "completed")
	}

	return result, nil
}

// Poll reports whether the attempt has been verified by the rail.
func (e *engine) Poll(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	attempt, err := e.attempts.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return false, err
	}
	if e.settlementM != nil {
		if attempt.Verified {
			e.settlementM.IncPoll("verified")
		} else {
			e.settlementM.IncPoll("pending")
		}
	}
	return attempt.Verified, nil
}

// ConfirmExternal records the rail's confirmation for an attempt. The poll
// loop picks the flag up on its next tick.
func (e *engine) ConfirmExternal(ctx context.Context, transactionID uuid.UUID, reference *string) error {
	confirmed, err := e.attempts.MarkVerified(ctx, transactionID, reference)
	if err != nil {
		return err
	}
	if !confirmed {
		// Already verified, terminal, or unknown; distinguish for the caller.
		attempt, err := e.attempts.FindByTransactionID(ctx, transactionID)
		if err != nil {
			return err
		}
		if attempt.Status == enums.PaymentStatusTimedOut {
			return pkgerrors.New(pkgerrors.CodeConfirmationTimeout, "confirmation window elapsed before the rail confirmed")
		}
	}
	return nil
}

// Complete finalizes a verified attempt: payment and order turn terminal and
// the user's first-order flag is set for referral bookkeeping.
func (e *engine) Complete(ctx context.Context, transactionID uuid.UUID) error {
	attempt, err := e.attempts.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}

	return storeErr(e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		attempts := e.attempts.WithTx(tx)
		orders := e.orders.WithTx(tx)

		changed, err := attempts.UpdateStatus(ctx, transactionID, enums.PaymentStatusCompleted, nil)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "attempt already terminal")
		}
		if err := orders.UpdateStatus(ctx, attempt.OrderID, enums.OrderStatusCompleted); err != nil {
			return err
		}

		order, err := orders.FindByID(ctx, attempt.OrderID)
		if err != nil {
			return err
		}
		return e.referrals.WithTx(tx).MarkFirstOrderCompleted(ctx, order.UserID)
	}))
}

// TimeOut marks the attempt timed out. The rail may still have taken the
// money; the recorded reason carries the refund window shown to the user.
func (e *engine) TimeOut(ctx context.Context, transactionID uuid.UUID, refundWindowDays int) error {
	attempt, err := e.attempts.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}

	reason := fmt.Sprintf("confirmation window elapsed; any deduction will be refunded within %d days", refundWindowDays)
	return storeErr(e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := e.attempts.WithTx(tx).UpdateStatus(ctx, transactionID, enums.PaymentStatusTimedOut, &reason)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "attempt already terminal")
		}
		if err := e.refundWallet(ctx, tx, attempt, "wallet hold released after confirmation timeout"); err != nil {
			return err
		}
		return e.orders.WithTx(tx).UpdateStatus(ctx, attempt.OrderID, enums.OrderStatusFailed)
	}))
}

// Fail marks the attempt failed with an explicit reason.
func (e *engine) Fail(ctx context.Context, transactionID uuid.UUID, reason string) error {
	attempt, err := e.attempts.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}

	return storeErr(e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		changed, err := e.attempts.WithTx(tx).UpdateStatus(ctx, transactionID, enums.PaymentStatusFailed, &reason)
		if err != nil {
			return err
		}
		if !changed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "attempt already terminal")
		}
		if err := e.refundWallet(ctx, tx, attempt, "wallet hold released after failed settlement"); err != nil {
			return err
		}
		return e.orders.WithTx(tx).UpdateStatus(ctx, attempt.OrderID, enums.OrderStatusFailed)
	}))
}

// refundWallet returns the wallet portion of an attempt that just turned
// terminal. The status flip guards it, so the credit lands at most once.
func (e *engine) refundWallet(ctx context.Context, tx *gorm.DB, attempt *models.PaymentAttempt, note string) error {
	if !attempt.WalletAmountUsed.IsPositive() {
		return nil
	}
	order, err := e.orders.WithTx(tx).FindByID(ctx, attempt.OrderID)
	if err != nil {
		return err
	}
	return e.walletRepo.WithTx(tx).Credit(ctx, models.WalletEntry{
		UserID:        order.UserID,
		OrderID:       &attempt.OrderID,
		TransactionID: attempt.TransactionID,
		Amount:        attempt.WalletAmountUsed,
		Note:          &note,
	})
}

// storeErr codes raw store failures at the engine boundary. Coded errors
// pass through untouched.
func storeErr(err error) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeSettlementRejected, err, "settlement store rejected the operation")
}
