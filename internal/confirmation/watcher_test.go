package confirmation

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cigarro-in/cigarro-backend/pkg/db/models"
	"github.com/cigarro-in/cigarro-backend/pkg/enums"
	pkgerrors "github.com/cigarro-in/cigarro-backend/pkg/errors"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
)

type fakeEngine struct {
	mu           sync.Mutex
	polls        int
	pollErrs     int
	verifiedAt   int // poll count at which verification flips true
	completes    int
	timeouts     int
	completeErr  error
	lastPollSeen time.Time
}

func (f *fakeEngine) Poll(ctx context.Context, txnID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	f.lastPollSeen = time.Now()
	if f.pollErrs > 0 {
		f.pollErrs--
		return false, errors.New("transient store failure")
	}
	return f.verifiedAt > 0 && f.polls >= f.verifiedAt, nil
}

func (f *fakeEngine) Complete(ctx context.Context, txnID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	return f.completeErr
}

func (f *fakeEngine) TimeOut(ctx context.Context, txnID uuid.UUID, refundWindowDays int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts++
	return nil
}

func (f *fakeEngine) snapshot() (polls, completes, timeouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls, f.completes, f.timeouts
}

type fakeCleanup struct {
	mu            sync.Mutex
	cartClears    int
	sessionClears int
}

func (f *fakeCleanup) ClearActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cartClears++
	return true, nil
}

func (f *fakeCleanup) Clear(ctx context.Context, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionClears++
	return nil
}

func (f *fakeCleanup) counts() (carts, sessions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cartClears, f.sessionClears
}

func testAttempt() *models.PaymentAttempt {
	return &models.PaymentAttempt{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		TransactionID: uuid.New(),
		Method:        enums.PaymentMethodUPI,
		Status:        enums.PaymentStatusProcessing,
	}
}

func newTestWatcher(t *testing.T, engine Engine, cleanup *fakeCleanup, opts Options) *Watcher {
	t.Helper()
	w, err := NewWatcher(engine, cleanup, cleanup, logger.New(logger.Options{Output: io.Discard}), nil, opts)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	return w
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWatchCompletesOnVerification(t *testing.T) {
	engine := &fakeEngine{verifiedAt: 3}
	cleanup := &fakeCleanup{}
	w := newTestWatcher(t, engine, cleanup, Options{
		Deadline:         time.Second,
		PollInterval:     3 * time.Millisecond,
		RefundWindowDays: 7,
	})

	attempt := testAttempt()
	if err := w.Start(context.Background(), attempt, uuid.New(), true); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		_, completes, _ := engine.snapshot()
		return completes == 1
	})
	w.Shutdown()

	_, completes, timeouts := engine.snapshot()
	if completes != 1 || timeouts != 0 {
		t.Fatalf("completes=%d timeouts=%d", completes, timeouts)
	}
	carts, sessions := cleanup.counts()
	if sessions != 1 {
		t.Fatalf("session clears = %d", sessions)
	}
	if carts != 1 {
		t.Fatalf("cart clears = %d", carts)
	}
}

func TestWatchSkipsCartForBuyNowAndRetry(t *testing.T) {
	engine := &fakeEngine{verifiedAt: 1}
	cleanup := &fakeCleanup{}
	w := newTestWatcher(t, engine, cleanup, Options{
		Deadline:     time.Second,
		PollInterval: 3 * time.Millisecond,
	})

	if err := w.Start(context.Background(), testAttempt(), uuid.New(), false); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		_, completes, _ := engine.snapshot()
		return completes == 1
	})
	w.Shutdown()

	carts, sessions := cleanup.counts()
	if carts != 0 {
		t.Fatalf("cart must stay untouched, clears = %d", carts)
	}
	if sessions != 1 {
		t.Fatalf("session clears = %d", sessions)
	}
}

func TestWatchTimesOutExactlyOnceAndStopsPolling(t *testing.T) {
	engine := &fakeEngine{} // never verifies
	cleanup := &fakeCleanup{}
	w := newTestWatcher(t, engine, cleanup, Options{
		Deadline:         30 * time.Millisecond,
		PollInterval:     5 * time.Millisecond,
		RefundWindowDays: 7,
	})

	if err := w.Start(context.Background(), testAttempt(), uuid.New(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		_, _, timeouts := engine.snapshot()
		return timeouts == 1
	})
	w.Shutdown()

	pollsAtTimeout, _, timeouts := engine.snapshot()
	if timeouts != 1 {
		t.Fatalf("timeouts = %d", timeouts)
	}

	time.Sleep(30 * time.Millisecond)
	pollsAfter, completes, _ := engine.snapshot()
	if pollsAfter != pollsAtTimeout {
		t.Fatalf("polling continued after timeout: %d -> %d", pollsAtTimeout, pollsAfter)
	}
	if completes != 0 {
		t.Fatal("timed out watch must not complete")
	}
	carts, sessions := cleanup.counts()
	if carts != 0 || sessions != 0 {
		t.Fatal("timeout must not trigger cleanup")
	}
}

func TestWatchToleratesTransientPollErrors(t *testing.T) {
	engine := &fakeEngine{pollErrs: 2, verifiedAt: 1}
	cleanup := &fakeCleanup{}
	w := newTestWatcher(t, engine, cleanup, Options{
		Deadline:     time.Second,
		PollInterval: 3 * time.Millisecond,
	})

	if err := w.Start(context.Background(), testAttempt(), uuid.New(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		_, completes, _ := engine.snapshot()
		return completes == 1
	})
	w.Shutdown()

	polls, _, timeouts := engine.snapshot()
	if polls < 3 {
		t.Fatalf("expected at least 3 polls (2 errored), got %d", polls)
	}
	if timeouts != 0 {
		t.Fatal("transient errors must not time the watch out")
	}
}

func TestStartRejectsSecondWatchForSameOrder(t *testing.T) {
	engine := &fakeEngine{}
	cleanup := &fakeCleanup{}
	w := newTestWatcher(t, engine, cleanup, Options{
		Deadline:     time.Second,
		PollInterval: 10 * time.Millisecond,
	})

	attempt := testAttempt()
	if err := w.Start(context.Background(), attempt, uuid.New(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Shutdown()

	second := testAttempt()
	second.OrderID = attempt.OrderID
	err := w.Start(context.Background(), second, uuid.New(), true)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCancelStopsWatchWithoutTerminalState(t *testing.T) {
	engine := &fakeEngine{}
	cleanup := &fakeCleanup{}
	w := newTestWatcher(t, engine, cleanup, Options{
		Deadline:     time.Second,
		PollInterval: 5 * time.Millisecond,
	})

	attempt := testAttempt()
	if err := w.Start(context.Background(), attempt, uuid.New(), true); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		polls, _, _ := engine.snapshot()
		return polls >= 1
	})

	w.Cancel(attempt.OrderID)
	w.Shutdown()

	pollsAtCancel, completes, timeouts := engine.snapshot()
	time.Sleep(20 * time.Millisecond)
	pollsAfter, _, _ := engine.snapshot()
	if pollsAfter != pollsAtCancel {
		t.Fatalf("polling continued after cancel: %d -> %d", pollsAtCancel, pollsAfter)
	}
	if completes != 0 || timeouts != 0 {
		t.Fatal("cancel must not produce a terminal state")
	}

	// The slot frees up for a new attempt.
	if err := w.Start(context.Background(), attempt, uuid.New(), true); err != nil {
		t.Fatalf("restart after cancel: %v", err)
	}
	w.Shutdown()
}
