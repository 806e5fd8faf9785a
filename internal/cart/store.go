package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts per session id.
type Store interface {
	Load(ctx context.Context, sessionID string) (Cart, error)
	Save(ctx context.Context, sessionID string, c Cart) error
	Delete(ctx context.Context, sessionID string) error
}

const defaultTTL = 7 * 24 * time.Hour

// RedisStore keeps each cart as a JSON value under "cart:<session>".
type RedisStore struct {
	R   *redis.Client
	TTL time.Duration
}

func (s RedisStore) key(sessionID string) string {
	return "cart:" + sessionID
}

func (s RedisStore) ttl() time.Duration {
	if s.TTL <= 0 {
		return defaultTTL
	}
	return s.TTL
}

// Load returns the stored cart, or an empty one when none exists.
func (s RedisStore) Load(ctx context.Context, sessionID string) (Cart, error) {
	if s.R == nil {
		return Cart{}, errors.New("cart: redis client not configured")
	}
	data, err := s.R.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, nil
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

// Save writes the cart and refreshes its expiry. Empty carts are deleted.
func (s RedisStore) Save(ctx context.Context, sessionID string, c Cart) error {
	if s.R == nil {
		return errors.New("cart: redis client not configured")
	}
	if c.Len() == 0 {
		return s.Delete(ctx, sessionID)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.R.Set(ctx, s.key(sessionID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete drops the stored cart.
func (s RedisStore) Delete(ctx context.Context, sessionID string) error {
	if s.R == nil {
		return errors.New("cart: redis client not configured")
	}
	if err := s.R.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// MemoryStore is a process-local Store used in tests and single-node dev setups.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (Cart, error) {
	s.mu.Lock()
	data, ok := s.carts[sessionID]
	s.mu.Unlock()
	if !ok {
		return Cart{}, nil
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func (s *MemoryStore) Save(ctx context.Context, sessionID string, c Cart) error {
	if c.Len() == 0 {
		return s.Delete(ctx, sessionID)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[sessionID] = data
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}
