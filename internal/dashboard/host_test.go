package dashboard

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noahxzhu/widget-dashboard/internal/countdown"
	"github.com/noahxzhu/widget-dashboard/internal/model"
	"github.com/noahxzhu/widget-dashboard/internal/notify"
	"github.com/noahxzhu/widget-dashboard/internal/storage"
)

type env struct {
	clk    *testclock.Clock
	store  *storage.Store
	engine *notify.Engine
	host   *Host
	path   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		clk:  testclock.NewClock(time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)),
		path: filepath.Join(t.TempDir(), "dashboard.json"),
	}
	e.store = storage.NewStore(e.path, e.clk, nil)
	require.NoError(t, e.store.Load())
	e.engine = notify.NewEngine(e.clk, nil, nil)
	e.host = NewHost(e.store, e.clk, e.engine, nil, nil)
	t.Cleanup(func() {
		e.host.Close()
		e.engine.Close()
	})
	return e
}

func TestCountdownCompletionEndToEnd(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w, err := e.host.Add(model.WidgetCountdown, nil)
	require.NoError(t, err)
	timer, err := e.host.Countdown(w.ID)
	require.NoError(t, err)

	require.NoError(t, timer.SetField("minutes", "0"))
	require.NoError(t, timer.SetField("seconds", "5"))
	require.NoError(t, timer.Start())

	require.NoError(t, e.clk.WaitAdvance(5000*time.Millisecond, time.Second, 1))
	require.Eventually(t, func() bool { return len(e.engine.List()) == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, countdown.PhaseExpired, timer.Phase())
	n := e.engine.List()[0]
	assert.Equal(t, model.SeveritySuccess, n.Severity)
	assert.Equal(t, countdown.CompletionMessage, n.Message)

	stored, ok := e.store.Widget(w.ID)
	require.True(t, ok)
	assert.Equal(t, false, stored.Config["isRunning"])
	assert.Nil(t, stored.Config["deadline"])

	// Outlives the default lifetime, then retires.
	e.clk.Advance(notify.DefaultLifetime)
	assert.Never(t, func() bool { return len(e.engine.List()) == 0 }, 50*time.Millisecond, 5*time.Millisecond)
	e.clk.Advance(countdown.CompletionLifetime - notify.DefaultLifetime)
	require.Eventually(t, func() bool { return len(e.engine.List()) == 0 }, time.Second, time.Millisecond)
}

func TestAdd(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w, err := e.host.Add(model.WidgetCountdown, map[string]any{"hours": 2})
	require.NoError(t, err)
	assert.Equal(t, 2, w.Config["hours"])
	assert.Equal(t, 5, w.Config["minutes"])

	weather, err := e.host.Add(model.WidgetWeather, map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	_, err = e.host.Countdown(weather.ID)
	assert.ErrorIs(t, err, ErrNotCountdown)

	_, err = e.host.Add("clock", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = e.host.Countdown("missing")
	assert.ErrorIs(t, err, storage.ErrWidgetNotFound)

	assert.Len(t, e.host.List(), 2)
}

func TestRemove_StopsCountdown(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w, err := e.host.Add(model.WidgetCountdown, map[string]any{"minutes": 0, "seconds": 3})
	require.NoError(t, err)
	timer, err := e.host.Countdown(w.ID)
	require.NoError(t, err)
	require.NoError(t, timer.Start())

	require.NoError(t, e.host.Remove(w.ID))
	_, ok := e.store.Widget(w.ID)
	assert.False(t, ok)

	e.clk.Advance(time.Minute)
	assert.Never(t, func() bool { return len(e.engine.List()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	require.NoError(t, e.host.Remove(w.ID))
}

func TestMountAll_ResumesRunningCountdown(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w, err := e.host.Add(model.WidgetCountdown, map[string]any{"minutes": 1, "seconds": 0})
	require.NoError(t, err)
	timer, err := e.host.Countdown(w.ID)
	require.NoError(t, err)
	require.NoError(t, timer.Start())
	e.host.Close()

	// The process is down for 20 seconds.
	e.clk.Advance(20 * time.Second)

	store := storage.NewStore(e.path, e.clk, nil)
	require.NoError(t, store.Load())
	host := NewHost(store, e.clk, e.engine, nil, nil)
	t.Cleanup(host.Close)
	require.NoError(t, host.MountAll())

	resumed, err := host.Countdown(w.ID)
	require.NoError(t, err)
	assert.Equal(t, countdown.PhaseRunning, resumed.Phase())
	assert.Equal(t, 40, resumed.Remaining())
	assert.Equal(t, 40, resumed.State().Seconds)
}

func TestAdd_NormalizesCountdownConfig(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	tests := map[string]struct {
		config map[string]any
		want   model.CountdownState
	}{
		"not a number": {config: map[string]any{"hours": "abc"}, want: model.CountdownState{Minutes: 5}},
		"above bound":  {config: map[string]any{"hours": 500, "minutes": "75"}, want: model.CountdownState{Hours: 99, Minutes: 59}},
		"nested value": {config: map[string]any{"seconds": map[string]any{"x": 1}}, want: model.CountdownState{Minutes: 5}},
		"overflow":     {config: map[string]any{"seconds": "99999999999999999999"}, want: model.CountdownState{Minutes: 5, Seconds: 59}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			w, err := e.host.Add(model.WidgetCountdown, tt.config)
			require.NoError(t, err)

			timer, err := e.host.Countdown(w.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, timer.State())

			stored, ok := e.store.Widget(w.ID)
			require.True(t, ok)
			assert.Equal(t, tt.want.Hours, stored.Config["hours"])
			assert.Equal(t, tt.want.Minutes, stored.Config["minutes"])
			assert.Equal(t, tt.want.Seconds, stored.Config["seconds"])
		})
	}

	// Every stored widget mounts again after a restart.
	host := NewHost(e.store, e.clk, e.engine, nil, nil)
	t.Cleanup(host.Close)
	require.NoError(t, host.MountAll())
	assert.Len(t, e.store.Widgets(), len(tests))
}

func TestRemove_ClosesCountdown(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	w, err := e.host.Add(model.WidgetCountdown, nil)
	require.NoError(t, err)
	timer, err := e.host.Countdown(w.ID)
	require.NoError(t, err)
	require.NoError(t, e.host.Remove(w.ID))

	assert.ErrorIs(t, timer.Reset(), countdown.ErrClosed)
	assert.ErrorIs(t, timer.SetField("seconds", "5"), countdown.ErrClosed)
	assert.ErrorIs(t, timer.Start(), countdown.ErrClosed)
}
