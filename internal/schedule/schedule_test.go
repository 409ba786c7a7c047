package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

type never struct{}

func (never) Next(time.Time) time.Time { return time.Time{} }

func runUntil(t *testing.T, s *Scheduler, done <-chan struct{}) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("job never signalled")
	}
	cancel()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
		return nil
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("not a cron", func(context.Context) error { return nil }, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a cron")
}

func TestNext(t *testing.T) {
	s, err := New("0 3 * * *", func(context.Context) error { return nil }, nil)
	require.NoError(t, err)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)
	next := s.Next(from)
	assert.Equal(t, time.Date(2026, 1, 1, 3, 0, 0, 0, time.Local), next)

	_, err = New("@hourly", func(context.Context) error { return nil }, nil)
	require.NoError(t, err)
}

func TestRunRepeatsJob(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{})
	s := newScheduler(every(5*time.Millisecond), func(context.Context) error {
		if runs.Add(1) == 3 {
			close(done)
		}
		return nil
	}, zap.NewNop())

	err := runUntil(t, s, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestRunNeverOverlaps(t *testing.T) {
	var (
		running atomic.Int32
		peak    atomic.Int32
		runs    atomic.Int32
	)
	done := make(chan struct{})
	s := newScheduler(every(2*time.Millisecond), func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		select {
		case <-time.After(20 * time.Millisecond):
		case <-ctx.Done():
		}
		if runs.Add(1) == 2 {
			close(done)
		}
		return nil
	}, zap.NewNop())

	_ = runUntil(t, s, done)
	assert.Equal(t, int32(1), peak.Load())
}

func TestRunNowFiresImmediately(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{})
	s := newScheduler(never{}, func(context.Context) error {
		if runs.Add(1) == 1 {
			close(done)
		}
		return nil
	}, zap.NewNop(), WithRunNow())

	_ = runUntil(t, s, done)
	assert.Equal(t, int32(1), runs.Load())
}

func TestJobErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var once atomic.Bool
	done := make(chan struct{})
	s := newScheduler(never{}, func(context.Context) error {
		if once.CompareAndSwap(false, true) {
			close(done)
		}
		return errors.New("db unavailable")
	}, zap.New(core), WithRunNow())

	_ = runUntil(t, s, done)

	failed := logs.FilterMessage("scheduled pass failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "db unavailable", failed[0].ContextMap()["error"])
	assert.Equal(t, 1, logs.FilterMessage("scheduler stopped").Len())
}

func TestPanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var once atomic.Bool
	done := make(chan struct{})
	s := newScheduler(never{}, func(context.Context) error {
		if once.CompareAndSwap(false, true) {
			defer close(done)
		}
		panic("boom")
	}, zap.New(core), WithRunNow())

	err := runUntil(t, s, done)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, logs.FilterMessage("panic").Len())
}
