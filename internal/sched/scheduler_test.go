package sched

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDailyRejectsBadClock(t *testing.T) {
	s := New(time.UTC, zaptest.NewLogger(t))

	assert.Error(t, s.Daily("25:99", "revenue", func() {}))
	assert.Error(t, s.Daily("noon", "revenue", func() {}))
	assert.NoError(t, s.Daily("01:00", "revenue", func() {}))
}

func TestEveryRuns(t *testing.T) {
	s := New(time.UTC, zaptest.NewLogger(t))

	ran := make(chan struct{}, 4)
	s.Every(time.Second, "poll", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	s.Start()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestStopWaitsForRunningJob(t *testing.T) {
	s := New(time.UTC, zaptest.NewLogger(t))

	started := make(chan struct{})
	var finished atomic.Bool
	s.Every(time.Second, "slow", func() {
		close(started)
		time.Sleep(300 * time.Millisecond)
		finished.Store(true)
	})

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.True(t, finished.Load(), "Stop returned before the job drained")
}

func TestStopHonorsContext(t *testing.T) {
	s := New(time.UTC, zaptest.NewLogger(t))

	started := make(chan struct{})
	release := make(chan struct{})
	s.Every(time.Second, "stuck", func() {
		close(started)
		<-release
	})

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	drain, cancelDrain := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelDrain()
	require.NoError(t, s.Stop(drain))
}
