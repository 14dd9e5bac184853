package notification

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(time.Hour)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	l.nowFunc = func() time.Time { return now }

	key := ReminderKey{TaskID: "t1", IdentityID: "U1", Day: "2026-06-02"}

	ok, err := l.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Claim(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	other := key
	other.Day = "2026-06-03"
	ok, err = l.Claim(ctx, other)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, key))
	ok, err = l.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	ok, err = l.Claim(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok, "expired claims are forgotten")
}

func TestReminderKey(t *testing.T) {
	key := ReminderKey{TaskID: "t1", IdentityID: "U1", Day: "2026-06-02"}
	assert.Equal(t, "reminder:2026-06-02:t1:U1", key.String())
}

func TestRedisLedger_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLedger(client, time.Hour)
	_, err := l.Claim(context.Background(), ReminderKey{TaskID: "t1", IdentityID: "U1", Day: "2026-06-02"})
	assert.Error(t, err)
}
