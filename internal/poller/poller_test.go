package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/petwell/pawchat/internal/logging"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestRun_ImmediateFirstFetch(t *testing.T) {
	var calls atomic.Int32
	p := New(Config{Active: time.Hour, Relaxed: time.Hour}, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	// the limiter starts with one token, so the first fetch fires at once
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestRun_RepeatsOnInterval(t *testing.T) {
	var calls atomic.Int32
	p := New(Config{Active: 20 * time.Millisecond, Relaxed: 20 * time.Millisecond}, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestRun_SwallowsFetchErrors(t *testing.T) {
	var calls atomic.Int32
	p := New(Config{Active: 10 * time.Millisecond, Relaxed: 10 * time.Millisecond}, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("backend down")
	}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	// keeps ticking despite every fetch failing
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	p := New(Config{Active: 10 * time.Millisecond, Relaxed: 10 * time.Millisecond}, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	settled := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, calls.Load())
}

func TestInterval_AdaptsToPushHealth(t *testing.T) {
	var healthy atomic.Bool
	p := New(Config{Active: time.Second, Relaxed: 3 * time.Second}, nil, func() bool {
		return healthy.Load()
	}, testLogger())

	assert.Equal(t, time.Second, p.interval())

	healthy.Store(true)
	assert.Equal(t, 3*time.Second, p.interval())

	healthy.Store(false)
	assert.Equal(t, time.Second, p.interval())
}

func TestNew_ClampsConfig(t *testing.T) {
	p := New(Config{Active: 0, Relaxed: 0}, nil, nil, testLogger())
	assert.Equal(t, time.Second, p.cfg.Active)
	assert.Equal(t, time.Second, p.cfg.Relaxed)

	p = New(Config{Active: 2 * time.Second, Relaxed: time.Second}, nil, nil, testLogger())
	assert.Equal(t, 2*time.Second, p.cfg.Relaxed)
}
