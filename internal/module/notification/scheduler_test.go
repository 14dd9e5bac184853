package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewScheduler_InvalidSpec(t *testing.T) {
	f := newDispatcherFixture(t)
	_, err := NewScheduler("every morning", time.UTC, f.dispatcher(DispatcherConfig{}), nil)
	assert.ErrorContains(t, err, "invalid reminder schedule")
}

func TestScheduler_StartStop(t *testing.T) {
	f := newDispatcherFixture(t)
	core, logs := observer.New(zap.InfoLevel)

	s, err := NewScheduler("0 9 * * *", time.UTC, f.dispatcher(DispatcherConfig{}), zap.New(core))
	require.NoError(t, err)

	s.Start()
	entries := logs.FilterMessage("reminder scheduler started").All()
	require.Len(t, entries, 1)
	next, ok := entries[0].ContextMap()["next_run"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, 9, next.In(time.UTC).Hour())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "stop is idempotent")
}

func TestScheduler_RunDispatches(t *testing.T) {
	f := newDispatcherFixture(t)
	s, err := NewScheduler("@every 1h", time.UTC, f.dispatcher(DispatcherConfig{}), nil)
	require.NoError(t, err)

	// run uses the wall clock, so only the absence of failures is checked.
	s.run()
	assert.Empty(t, f.pusher.messages())
	assert.Equal(t, 1, f.logs.FilterMessage("reminder run finished").Len())
}
