// Package dedupe suppresses repeat notifications: a re-run over the same
// history produces the identical alert set, and operators should not be
// emailed twice for it.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Store records which alert keys have already been notified.
type Store interface {
	// Seen reports whether the key was already marked.
	Seen(ctx context.Context, key string) bool
	// Mark records the key for the given TTL.
	Mark(ctx context.Context, key string, ttl time.Duration)
}

// Key builds the canonical dedup key for one tripped alert.
func Key(date time.Time, entity, column string) string {
	return strings.Join([]string{"alert", date.Format("2006-01-02"), entity, column}, "|")
}

// memory is the in-process fallback store. Good for one run; does not
// survive the process, which is exactly the single-batch default.
type memory struct {
	mu sync.Mutex
	m  map[string]time.Time
}

// NewMemory returns an in-process store.
func NewMemory() Store { return &memory{m: make(map[string]time.Time)} }

func (s *memory) Seen(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.m[key]
	if !ok || (!exp.IsZero() && time.Now().After(exp)) {
		return false
	}
	return true
}

func (s *memory) Mark(_ context.Context, key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.m[key] = exp
}

// redisStore shares dedup state across scheduled runs.
type redisStore struct {
	r      *redis.Client
	prefix string
}

// NewRedis returns a redis-backed store.
func NewRedis(addr string, db int) Store {
	return &redisStore{
		r:      redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		prefix: "adpulse:",
	}
}

// New returns a redis store when an address is configured, the memory
// fallback otherwise.
func New(addr string, db int) Store {
	if addr != "" {
		return NewRedis(addr, db)
	}
	return NewMemory()
}

func (s *redisStore) Seen(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	n, err := s.r.Exists(ctx, s.prefix+key).Result()
	// Redis being unreachable must never block a notification.
	return err == nil && n > 0
}

func (s *redisStore) Mark(ctx context.Context, key string, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_ = s.r.Set(ctx, s.prefix+key, "1", ttl).Err()
}
