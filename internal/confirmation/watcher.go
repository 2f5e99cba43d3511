// Package confirmation drives the poll-based settlement confirmation
// protocol: Processing until verified, timed out, or torn down.
package confirmation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/metrics"
)

// Engine is the slice of the settlement engine the protocol drives.
type Engine interface {
	Poll(ctx context.Context, transactionID uuid.UUID) (bool, error)
	Complete(ctx context.Context, transactionID uuid.UUID) error
	TimeOut(ctx context.Context, transactionID uuid.UUID, refundWindowDays int) error
}

type cartClearer interface {
	ClearActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type sessionClearer interface {
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Options bounds the protocol's timers.
type Options struct {
	Deadline         time.Duration
	PollInterval     time.Duration
	RefundWindowDays int
}

// Watcher runs one confirmation loop per in-flight payment attempt and
// enforces the single-attempt-per-order rule.
type Watcher struct {
	engine   Engine
	carts    cartClearer
	sessions sessionClearer
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
	opts     Options

	mu     sync.Mutex
	active map[uuid.UUID]context.CancelFunc // keyed by order ID
	wg     sync.WaitGroup
}

// NewWatcher builds the confirmation watcher.
func NewWatcher(engine Engine, carts cartClearer, sessions sessionClearer, logg *logger.Logger, m *metrics.SettlementMetrics, opts Options) (*Watcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("settlement engine required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart clearer required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session clearer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.Deadline <= 0 || opts.PollInterval <= 0 {
		return nil, fmt.Errorf("deadline and poll interval must be positive")
	}
	return &Watcher{
		engine:   engine,
		carts:    carts,
		sessions: sessions,
		logg:     logg,
		metrics:  m,
		opts:     opts,
		active:   map[uuid.UUID]context.CancelFunc{},
	}, nil
}

// Start begins polling for a non-wallet-only attempt. Starting a second
// watch for the same order is a caller error.
func (w *Watcher) Start(ctx context.Context, attempt *models.PaymentAttempt, userID uuid.UUID, clearCart bool) error {
	if attempt == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "attempt required")
	}

	w.mu.Lock()
	if _, ok := w.active[attempt.OrderID]; ok {
		w.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "a confirmation watch is already running for this order")
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.active[attempt.OrderID] = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(runCtx, attempt, userID, clearCart)
	return nil
}

// Cancel tears down the watch for an order, if any. The attempt stays
// processing; the sweeper picks it up later.
func (w *Watcher) Cancel(orderID uuid.UUID) {
	w.mu.Lock()
	cancel, ok := w.active[orderID]
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

// Shutdown cancels every watch and waits for the loops to exit.
func (w *Watcher) Shutdown() {
	w.mu.Lock()
	for _, cancel := range w.active {
		cancel()
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, attempt *models.PaymentAttempt, userID uuid.UUID, clearCart bool) {
	defer w.wg.Done()
	defer func() {
		w.mu.Lock()
		delete(w.active, attempt.OrderID)
		w.mu.Unlock()
	}()

	ctx = w.logg.WithTransactionID(w.logg.WithOrderID(ctx, attempt.OrderID.String()), attempt.TransactionID.String())

	started := time.Now()
	deadline := time.NewTimer(w.opts.Deadline)
	defer deadline.Stop()
	tick := time.NewTicker(w.opts.PollInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "confirmation watch torn down before a terminal state")
			return

		case <-deadline.C:
			if err := w.engine.TimeOut(ctx, attempt.TransactionID, w.opts.RefundWindowDays); err != nil {
				w.logg.Error(ctx, "marking attempt timed out", err)
			}
			w.observe(attempt, started)
			w.logg.Warn(ctx, "confirmation deadline elapsed")
			return

		case <-tick.C:
			verified, err := w.engine.Poll(ctx, attempt.TransactionID)
			if err != nil {
				// Transient store failures skip the tick; only the deadline
				// ends the processing state.
				w.logg.Warn(ctx, "confirmation poll failed: "+err.Error())
				continue
			}
			if !verified {
				continue
			}

			if err := w.engine.Complete(ctx, attempt.TransactionID); err != nil {
				w.logg.Error(ctx, "completing verified attempt", err)
				return
			}
			w.cleanup(ctx, userID, clearCart)
			w.observe(attempt, started)
			w.logg.Info(ctx, "settlement confirmed")
			return
		}
	}
}

// cleanup runs exactly once per completed watch: the session context always
// goes, the persistent cart only for ordinary cart checkouts.
func (w *Watcher) cleanup(ctx context.Context, userID uuid.UUID, clearCart bool) {
	if err := w.sessions.Clear(ctx, userID); err != nil {
		w.logg.Warn(ctx, "clearing checkout session failed: "+err.Error())
	}
	if !clearCart {
		return
	}
	if _, err := w.carts.ClearActive(ctx, userID); err != nil {
		w.logg.Warn(ctx, "clearing cart failed: "+err.Error())
	}
}

func (w *Watcher) observe(attempt *models.PaymentAttempt, started time.Time) {
	if w.metrics == nil {
		return
	}
	w.metrics.ObserveConfirmation(attempt.Method.String(), time.Since(started))
}
