package executionengine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/testhub.net/internal/adapter/logging"
	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/static/errs"
)

func newEngine(workers, queue int) *ExecutionEngine {
	return NewExecutionEngine(&config.ExecutionConfig{Workers: workers, QueueSize: queue}, logging.NewNopLogger())
}

func TestRunsEverySubmission(t *testing.T) {
	e := newEngine(3, 10)
	e.Start(context.Background())

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, e.Submit(uuid.New(), func(context.Context) { count.Add(1) }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Stop(ctx))
	assert.Equal(t, int32(10), count.Load())
}

func TestSubmitRejectsWhenQueueFull(t *testing.T) {
	e := newEngine(1, 1)
	e.Start(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Submit(uuid.New(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started

	// The worker is busy, so one run fits in the queue and the next does not.
	require.NoError(t, e.Submit(uuid.New(), func(context.Context) {}))
	err := e.Submit(uuid.New(), func(context.Context) {})
	assert.ErrorIs(t, err, errs.QueueFull)
	assert.Equal(t, 1, e.Queued())
	assert.Equal(t, 1, e.Active())

	close(release)
	require.NoError(t, e.Stop(context.Background()))
}

func TestSubmitAfterStop(t *testing.T) {
	e := newEngine(1, 1)
	e.Start(context.Background())
	require.NoError(t, e.Stop(context.Background()))
	require.NoError(t, e.Stop(context.Background()))

	err := e.Submit(uuid.New(), func(context.Context) {})
	assert.ErrorIs(t, err, errs.EngineStopped)
}

func TestPanickingRunDoesNotKillWorker(t *testing.T) {
	e := newEngine(1, 2)
	e.Start(context.Background())

	ran := make(chan struct{})
	require.NoError(t, e.Submit(uuid.New(), func(context.Context) { panic("boom") }))
	require.NoError(t, e.Submit(uuid.New(), func(context.Context) { close(ran) }))

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("second run never executed")
	}
	require.NoError(t, e.Stop(context.Background()))
}

func TestStopTimesOut(t *testing.T) {
	e := newEngine(1, 1)
	e.Start(context.Background())

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, e.Submit(uuid.New(), func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Stop(ctx), context.DeadlineExceeded)
}
