package checkoutctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

type sessionKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutSessionKey(userID string) string
}

// Store persists checkout session context in redis so it survives a page
// reload but not a new session (TTL-bounded).
type Store struct {
	kv  sessionKV
	ttl time.Duration
}

// NewStore builds the session store.
func NewStore(kv sessionKV, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("session kv required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

// Save overwrites the session context for the user.
func (s *Store) Save(ctx context.Context, userID uuid.UUID, value Context) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}
	return s.kv.Set(ctx, s.kv.CheckoutSessionKey(userID.String()), payload, s.ttl)
}

// Load returns the stored context, or nil when the session has none.
func (s *Store) Load(ctx context.Context, userID uuid.UUID) (*Context, error) {
	raw, err := s.kv.Get(ctx, s.kv.CheckoutSessionKey(userID.String()))
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var value Context
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("unmarshal session context: %w", err)
	}
	return &value, nil
}

// Clear drops the session context. Called on settlement completion and on
// entry to a normal cart checkout.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.kv.Del(ctx, s.kv.CheckoutSessionKey(userID.String()))
}
