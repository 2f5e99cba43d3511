package orders

import (
	"context"
	"fmt"
	"time"
)

type counterIncrementer interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// redisDisplayIDs allocates display IDs like CIG-2026-000042 from a shared
// redis counter so numbers stay gapless-ish and unique across instances.
type redisDisplayIDs struct {
	counter counterIncrementer
	now     func() time.Time
}

// NewDisplayIDAllocator builds the redis-backed allocator.
func NewDisplayIDAllocator(counter counterIncrementer) (DisplayIDAllocator, error) {
	if counter == nil {
		return nil, fmt.Errorf("counter client required")
	}
	return &redisDisplayIDs{counter: counter, now: time.Now}, nil
}

func (a *redisDisplayIDs) Next(ctx context.Context) (string, error) {
	seq, err := a.counter.Incr(ctx, a.counter.CounterKey("orders"))
	if err != nil {
		return "", fmt.Errorf("allocating order number: %w", err)
	}
	return fmt.Sprintf("CIG-%d-%06d", a.now().UTC().Year(), seq), nil
}
