// Package notify queues on-screen notifications, plays their sounds and
// raises system-level alerts.
//
// Every notification is retired exactly once: either by Remove or by its
// expiry timer, whichever comes first. Sound and desktop delivery run off the
// caller's goroutine and never report failure back to it.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/noahxzhu/widget-dashboard/internal/model"
)

// desktopTimeout bounds permission requests and alert delivery.
const desktopTimeout = 5 * time.Second

type Engine struct {
	clock    clock.Clock
	logger   *slog.Logger
	audio    *AudioCache
	desktops []Desktop

	mu       sync.Mutex
	queue    []model.ActiveNotification
	timers   map[string]clock.Timer
	lifetime time.Duration
	onUpdate func()

	ctx    context.Context
	cancel context.CancelFunc
	// async runs sound and desktop delivery.
	async func(func())
}

// NewEngine builds an engine. audio may be nil, in which case sounds are
// ignored.
func NewEngine(clk clock.Clock, logger *slog.Logger, audio *AudioCache, desktops ...Desktop) *Engine {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		clock:    clk,
		logger:   logger,
		audio:    audio,
		desktops: desktops,
		timers:   make(map[string]clock.Timer),
		lifetime: DefaultLifetime,
		ctx:      ctx,
		cancel:   cancel,
		async:    func(fn func()) { go fn() },
	}
}

// SetOnUpdate sets a callback invoked after the queue changes.
func (e *Engine) SetOnUpdate(fn func()) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

// SetDefaultLifetime changes the lifetime used when Options.Lifetime is unset.
func (e *Engine) SetDefaultLifetime(d time.Duration) {
	if d <= 0 {
		d = DefaultLifetime
	}
	e.mu.Lock()
	e.lifetime = d
	e.mu.Unlock()
}

// Notify queues message and returns its id. It never blocks on sound or
// desktop delivery.
func (e *Engine) Notify(message string, opts Options) string {
	e.mu.Lock()
	opts = opts.withDefaults(e.lifetime)
	n := model.ActiveNotification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  opts.Severity,
		CreatedAt: e.clock.Now(),
	}
	e.queue = append(e.queue, n)
	e.timers[n.ID] = e.clock.AfterFunc(opts.Lifetime, func() {
		if e.retire(n.ID) {
			e.logger.Debug("notification expired", "id", n.ID)
		}
	})
	e.mu.Unlock()

	e.logger.Debug("notification queued", "id", n.ID, "severity", n.Severity, "lifetime", opts.Lifetime)
	e.changed()

	if opts.Sound != nil && e.audio != nil {
		url, volume := opts.Sound.URL, opts.Sound.volume()
		e.async(func() { e.playSound(url, volume) })
	}
	if opts.Desktop && len(e.desktops) > 0 {
		e.async(func() { e.alertDesktop(n) })
	}
	return n.ID
}

// Remove dismisses a notification. It reports whether the notification was
// still visible; removing a retired id is a no-op.
func (e *Engine) Remove(id string) bool {
	return e.retire(id)
}

func (e *Engine) retire(id string) bool {
	e.mu.Lock()
	idx := -1
	for i, n := range e.queue {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return false
	}

	queue := make([]model.ActiveNotification, 0, len(e.queue)-1)
	queue = append(queue, e.queue[:idx]...)
	e.queue = append(queue, e.queue[idx+1:]...)
	if t, ok := e.timers[id]; ok {
		t.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()

	e.changed()
	return true
}

// List returns the visible notifications in creation order.
func (e *Engine) List() []model.ActiveNotification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.ActiveNotification, len(e.queue))
	copy(out, e.queue)
	return out
}

// Close cancels pending expiry timers and in-flight delivery and releases
// cached clips. Notifications still queued stay visible.
func (e *Engine) Close() {
	e.cancel()
	e.mu.Lock()
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()
	if e.audio != nil {
		e.audio.Purge()
	}
}

func (e *Engine) changed() {
	e.mu.Lock()
	fn := e.onUpdate
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (e *Engine) playSound(url string, volume float64) {
	clip, err := e.audio.Get(e.ctx, url)
	if err != nil {
		e.logger.Warn("failed to load notification sound", "url", url, "error", err)
		if errors.Is(err, ErrInvalidSource) {
			e.audio.Invalidate(url)
		}
		return
	}

	if err := clip.Rewind(); err != nil {
		e.logger.Warn("failed to rewind notification sound", "url", url, "error", err)
	}
	if err := clip.Play(e.ctx, volume); err != nil {
		e.logger.Warn("failed to play notification sound", "url", url, "error", err)
		if errors.Is(err, ErrInvalidSource) {
			e.audio.Invalidate(url)
		}
	}
}

func (e *Engine) alertDesktop(n model.ActiveNotification) {
	ctx, cancel := context.WithTimeout(e.ctx, desktopTimeout)
	defer cancel()

	for _, d := range e.desktops {
		perm := d.Permission()
		if perm == PermissionDefault {
			perm = d.RequestPermission(ctx)
		}
		if perm != PermissionGranted {
			e.logger.Debug("desktop alert skipped", "id", n.ID, "permission", perm)
			continue
		}
		if err := d.Show(ctx, n); err != nil {
			e.logger.Warn("failed to show desktop alert", "id", n.ID, "error", err)
		}
	}
}
