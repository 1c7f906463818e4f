package countdown

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiresOnceAfterAllowance(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := New(clock)
	var fired int
	timer.OnExpire(func() { fired++ })

	require.NoError(t, timer.Start(5))
	for i := 4; i >= 1; i-- {
		clock.Advance(time.Second)
		assert.Equal(t, i, timer.Tick())
	}
	assert.Equal(t, 0, fired)

	clock.Advance(time.Second)
	assert.Equal(t, 0, timer.Tick())
	assert.Equal(t, 1, fired)
	assert.Equal(t, Expired, timer.State())

	clock.Advance(time.Second)
	timer.Tick()
	timer.Tick()
	assert.Equal(t, 1, fired)
}

func TestStopBeforeExpiryNeverFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := New(clock)
	var fired int
	timer.OnExpire(func() { fired++ })

	require.NoError(t, timer.Start(5))
	clock.Advance(3 * time.Second)
	timer.Tick()
	timer.Stop()

	clock.Advance(10 * time.Second)
	timer.Tick()
	assert.Equal(t, 0, fired)
	assert.Equal(t, Stopped, timer.State())
	assert.Equal(t, 2, timer.Remaining())
	assert.Equal(t, 3*time.Second, timer.Elapsed())
}

func TestRemainingIgnoresMissedTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := New(clock)
	require.NoError(t, timer.Start(3600))

	// One late tick after 25 minutes must see the full elapsed time.
	clock.Advance(25*time.Minute + 400*time.Millisecond)
	assert.Equal(t, 35*60, timer.Tick())
}

func TestConcurrentTicksAtBoundaryFireOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := New(clock)
	var fired atomic.Int32
	timer.OnExpire(func() { fired.Add(1) })
	require.NoError(t, timer.Start(1))
	clock.Advance(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			timer.Tick()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fired.Load())
}

func TestStartWhileRunningFails(t *testing.T) {
	timer := New(clockwork.NewFakeClock())
	require.NoError(t, timer.Start(10))
	assert.ErrorIs(t, timer.Start(10), ErrRunning)
}

func TestRunDrivesExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	timer := New(clock)
	expired := make(chan struct{}, 1)
	timer.OnExpire(func() { expired <- struct{}{} })
	require.NoError(t, timer.Start(5))

	done := make(chan error, 1)
	go func() { done <- timer.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		select {
		case <-expired:
			return true
		default:
			clock.Advance(time.Second)
			return false
		}
	}, 2*time.Second, time.Millisecond)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return after expiry")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	timer := New(clockwork.NewFakeClock())
	require.NoError(t, timer.Start(60))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, timer.Run(ctx), context.Canceled)
}
