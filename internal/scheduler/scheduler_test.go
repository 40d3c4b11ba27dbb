package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s := NewScheduler(quietLogger())
	err := s.Schedule("reconcile", "every now and then", 0, func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, s.Entries())
}

func TestStartWithoutJobs(t *testing.T) {
	s := NewScheduler(quietLogger())
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
	assert.True(t, s.GetNextRun().IsZero())
	assert.NoError(t, s.Stop())
}

func TestSchedulerRunsJobs(t *testing.T) {
	s := NewScheduler(quietLogger())

	var runs atomic.Int32
	require.NoError(t, s.Schedule("reconcile", "@every 1s", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("broker down")
	}))
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.False(t, s.GetNextRun().IsZero())
	assert.Error(t, s.Schedule("late", "@every 1s", 0, func(context.Context) error { return nil }))
	assert.Error(t, s.Start(context.Background()))

	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestStopCancelsRunningJob(t *testing.T) {
	s := NewScheduler(quietLogger())

	started := make(chan struct{})
	cancelled := make(chan struct{})
	var once sync.Once
	require.NoError(t, s.Schedule("slow", "@every 1s", 0, func(ctx context.Context) error {
		first := false
		once.Do(func() { first = true })
		if !first {
			return nil
		}
		close(started)
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	}))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	require.NoError(t, s.Stop())

	select {
	case <-cancelled:
	default:
		t.Fatal("running job was not cancelled")
	}
}
