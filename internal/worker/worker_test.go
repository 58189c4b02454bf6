package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_TicksUntilStopped(t *testing.T) {
	t.Parallel()
	clk := testclock.NewClock(time.Now())
	var ticks atomic.Int32

	l := Start("test", clk, time.Second, nil, func() bool {
		ticks.Add(1)
		return true
	})

	for i := 1; i <= 3; i++ {
		require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
		want := int32(i)
		require.Eventually(t, func() bool { return ticks.Load() == want }, time.Second, time.Millisecond)
	}

	l.Stop()
	select {
	case <-l.Done():
	default:
		t.Fatal("loop still running after Stop")
	}

	clk.Advance(time.Minute)
	assert.Never(t, func() bool { return ticks.Load() != 3 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestLoop_FnEndsLoop(t *testing.T) {
	t.Parallel()
	clk := testclock.NewClock(time.Now())

	l := Start("test", clk, time.Second, nil, func() bool { return false })
	clk.Advance(time.Second)

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not finish")
	}
	l.Stop()
}

func TestLoop_LateWakeRunsOnce(t *testing.T) {
	t.Parallel()
	clk := testclock.NewClock(time.Now())
	var ticks atomic.Int32

	l := Start("test", clk, time.Second, nil, func() bool {
		ticks.Add(1)
		return true
	})
	defer l.Stop()

	clk.Advance(10 * time.Second)
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return ticks.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}
