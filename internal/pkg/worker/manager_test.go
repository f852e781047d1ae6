package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
	block chan struct{}
	ctx   atomic.Value
}

func (r *countingRunner) RunCycle(ctx context.Context) *ingest.Summary {
	r.calls.Add(1)
	r.ctx.Store(ctx)
	if r.block != nil {
		<-ctx.Done()
	}
	return &ingest.Summary{}
}

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (e *countingExpirer) ExpireDue(context.Context, time.Time) (int, error) {
	e.calls.Add(1)
	return 1, e.err
}

func TestManagerRunsIngestOnStart(t *testing.T) {
	runner := &countingRunner{}
	m := NewManager(Config{IngestSchedule: "@hourly", ExpirySchedule: "@hourly", RunOnStart: true}, runner, &countingExpirer{})

	require.NoError(t, m.Start())
	defer m.Stop()

	assert.True(t, m.IsRunning())
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestManagerRunsExpiryOnSchedule(t *testing.T) {
	expirer := &countingExpirer{err: errors.New("db gone")}
	m := NewManager(Config{ExpirySchedule: "@every 1s"}, nil, expirer)

	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestManagerRejectsInvalidSchedule(t *testing.T) {
	m := NewManager(Config{IngestSchedule: "every now and then"}, &countingRunner{}, nil)

	err := m.Start()
	assert.ErrorContains(t, err, "invalid ingest schedule")
	assert.False(t, m.IsRunning())
}

func TestManagerStopCancelsRunningCycle(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	m := NewManager(Config{IngestSchedule: "@hourly", RunOnStart: true}, runner, nil)

	require.NoError(t, m.Start())
	require.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 10*time.Millisecond)

	m.Stop()
	assert.False(t, m.IsRunning())
	ctx := runner.ctx.Load().(context.Context)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestManagerStopWithoutStart(t *testing.T) {
	m := NewManager(Config{}, nil, nil)
	m.Stop()
	assert.False(t, m.IsRunning())
}

func TestManagerRestart(t *testing.T) {
	runner := &countingRunner{}
	m := NewManager(Config{IngestSchedule: "@hourly", RunOnStart: true}, runner, nil)

	require.NoError(t, m.Start())
	m.Stop()
	require.NoError(t, m.Start())
	m.Stop()

	assert.Equal(t, int32(2), runner.calls.Load())
}

func TestRunOnceSweepsExpiryAndRunsCycle(t *testing.T) {
	runner := &countingRunner{}
	expirer := &countingExpirer{}
	m := NewManager(Config{}, runner, expirer)

	sum := m.RunOnce(context.Background())

	require.NotNil(t, sum)
	assert.Equal(t, int32(1), runner.calls.Load())
	assert.Equal(t, int32(1), expirer.calls.Load())
	assert.False(t, m.IsRunning())
}
