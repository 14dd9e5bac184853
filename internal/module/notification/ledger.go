package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReminderKey identifies one reminder: a task, an assignee and the day
// the reminder is for.
type ReminderKey struct {
	TaskID     string
	IdentityID string
	Day        string
}

// String returns the ledger key.
func (k ReminderKey) String() string {
	return fmt.Sprintf("reminder:%s:%s:%s", k.Day, k.TaskID, k.IdentityID)
}

// Ledger records dispatched reminders so a rerun for the same day does not
// send them twice.
type Ledger interface {
	// Claim records key and reports whether this caller owns it.
	Claim(ctx context.Context, key ReminderKey) (bool, error)
	// Release forgets key so a later run can retry it.
	Release(ctx context.Context, key ReminderKey) error
}

// RedisLedger keeps claims in redis with a TTL.
type RedisLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLedger creates a redis backed ledger.
func NewRedisLedger(client redis.UniversalClient, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisLedger{client: client, ttl: ttl}
}

// Claim implements Ledger.
func (l *RedisLedger) Claim(ctx context.Context, key ReminderKey) (bool, error) {
	ok, err := l.client.SetNX(ctx, key.String(), time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Release implements Ledger.
func (l *RedisLedger) Release(ctx context.Context, key ReminderKey) error {
	if err := l.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// MemoryLedger keeps claims in process memory.
type MemoryLedger struct {
	mu      sync.Mutex
	ttl     time.Duration
	claims  map[string]time.Time
	nowFunc func() time.Time
}

// NewMemoryLedger creates an in-memory ledger.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &MemoryLedger{ttl: ttl, claims: make(map[string]time.Time), nowFunc: time.Now}
}

// Claim implements Ledger.
func (l *MemoryLedger) Claim(_ context.Context, key ReminderKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	for k, expires := range l.claims {
		if !now.Before(expires) {
			delete(l.claims, k)
		}
	}
	if _, taken := l.claims[key.String()]; taken {
		return false, nil
	}
	l.claims[key.String()] = now.Add(l.ttl)
	return true, nil
}

// Release implements Ledger.
func (l *MemoryLedger) Release(_ context.Context, key ReminderKey) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.claims, key.String())
	return nil
}
