package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const staleAttemptBatchSize = 100

// PaymentTimeoutJobParams configure the stale payment sweeper.
type PaymentTimeoutJobParams struct {
	Logger           *logger.Logger
	Attempts         staleAttemptReader
	Settlement       attemptTimeouter
	StaleAfter       time.Duration
	RefundWindowDays int
}

type staleAttemptReader interface {
	ListStaleProcessing(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentAttempt, error)
}

type attemptTimeouter interface {
	TimeOut(ctx context.Context, transactionID uuid.UUID, refundWindowDays int) error
}

// NewPaymentTimeoutJob builds the cron job that times out payment attempts
// whose confirmation watcher never reached a verdict. Watchers die with
// their process; the sweep is the backstop that keeps attempts from sitting
// in processing forever.
func NewPaymentTimeoutJob(params PaymentTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Attempts == nil {
		return nil, fmt.Errorf("attempt reader required")
	}
	if params.Settlement == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	if params.StaleAfter <= 0 {
		return nil, fmt.Errorf("stale-after window must be positive")
	}
	if params.RefundWindowDays <= 0 {
		return nil, fmt.Errorf("refund window days must be positive")
	}
	return &paymentTimeoutJob{
		logg:             params.Logger,
		attempts:         params.Attempts,
		settlement:       params.Settlement,
		staleAfter:       params.StaleAfter,
		refundWindowDays: params.RefundWindowDays,
		now:              time.Now,
	}, nil
}

type paymentTimeoutJob struct {
	logg             *logger.Logger
	attempts         staleAttemptReader
	settlement       attemptTimeouter
	staleAfter       time.Duration
	refundWindowDays int
	now              func() time.Time
}

func (j *paymentTimeoutJob) Name() string { return "payment-timeout-sweep" }

func (j *paymentTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	stale, err := j.attempts.ListStaleProcessing(ctx, cutoff, staleAttemptBatchSize)
	if err != nil {
		return fmt.Errorf("query stale payment attempts: %w", err)
	}

	var errs []error
	swept := 0
	for _, attempt := range stale {
		if err := j.settlement.TimeOut(ctx, attempt.TransactionID, j.refundWindowDays); err != nil {
			attemptCtx := j.logg.WithField(ctx, "transaction_id", attempt.TransactionID.String())
			j.logg.Error(attemptCtx, "failed to time out stale payment attempt", err)
			errs = append(errs, fmt.Errorf("time out attempt %s: %w", attempt.TransactionID, err))
			continue
		}
		swept++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"stale": len(stale), "swept": swept})
	j.logg.Info(logCtx, "payment timeout sweep complete")
	return multierr.Combine(errs...)
}
