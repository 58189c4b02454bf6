// Package dashboard hosts widget instances: it hands each widget its stored
// config blob on mount and writes every update the widget reports back to
// the configuration store.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/juju/clock"

	"github.com/noahxzhu/widget-dashboard/internal/countdown"
	"github.com/noahxzhu/widget-dashboard/internal/model"
	"github.com/noahxzhu/widget-dashboard/internal/notify"
	"github.com/noahxzhu/widget-dashboard/internal/storage"
)

var (
	ErrUnknownKind  = errors.New("unknown widget kind")
	ErrNotCountdown = errors.New("widget is not a countdown")
)

type Host struct {
	store    *storage.Store
	clock    clock.Clock
	notifier countdown.Notifier
	sound    *notify.Sound
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*countdown.Timer
}

// NewHost builds a host. sound is the countdown completion sound and may be
// nil.
func NewHost(store *storage.Store, clk clock.Clock, notifier countdown.Notifier, sound *notify.Sound, logger *slog.Logger) *Host {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		store:    store,
		clock:    clk,
		notifier: notifier,
		sound:    sound,
		logger:   logger,
		timers:   make(map[string]*countdown.Timer),
	}
}

// MountAll mounts every stored widget. Running countdowns resume.
func (h *Host) MountAll() error {
	var errs []error
	for _, w := range h.store.Widgets() {
		if err := h.mount(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Add creates a widget of the given kind. config seeds its blob; countdowns
// start from the default duration.
func (h *Host) Add(kind model.WidgetKind, config map[string]any) (model.Widget, error) {
	if !kind.Valid() {
		return model.Widget{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	w := model.Widget{ID: uuid.NewString(), Kind: kind, Config: map[string]any{}}
	if kind == model.WidgetCountdown {
		for k, v := range countdown.Encode(countdown.DefaultState) {
			w.Config[k] = v
		}
	}
	for k, v := range config {
		w.Config[k] = v
	}
	if kind == model.WidgetCountdown {
		// Store what the timer will hold, not the raw input.
		state, err := countdown.Decode(w.Config)
		if err != nil {
			return model.Widget{}, err
		}
		for k, v := range countdown.Encode(state) {
			w.Config[k] = v
		}
	}

	if err := h.store.PutWidget(w); err != nil {
		return w, err
	}
	if err := h.mount(w); err != nil {
		if rmErr := h.store.RemoveWidget(w.ID); rmErr != nil {
			h.logger.Warn("failed to drop unmountable widget", "widget", w.ID, "error", rmErr)
		}
		return model.Widget{}, err
	}
	h.logger.Info("widget added", "widget", w.ID, "kind", kind)
	return w, nil
}

// Remove tears a widget down and deletes its blob. Its countdown stops
// ticking before the blob goes.
func (h *Host) Remove(id string) error {
	h.mu.Lock()
	t, ok := h.timers[id]
	delete(h.timers, id)
	h.mu.Unlock()

	if ok {
		t.Close()
	}
	if err := h.store.RemoveWidget(id); err != nil {
		return err
	}
	h.logger.Info("widget removed", "widget", id)
	return nil
}

func (h *Host) List() []model.Widget {
	return h.store.Widgets()
}

func (h *Host) Countdown(id string) (*countdown.Timer, error) {
	h.mu.Lock()
	t, ok := h.timers[id]
	h.mu.Unlock()
	if ok {
		return t, nil
	}
	if _, exists := h.store.Widget(id); exists {
		return nil, ErrNotCountdown
	}
	return nil, storage.ErrWidgetNotFound
}

// Close stops every countdown. Stored state is left as is.
func (h *Host) Close() {
	h.mu.Lock()
	timers := h.timers
	h.timers = make(map[string]*countdown.Timer)
	h.mu.Unlock()

	for _, t := range timers {
		t.Close()
	}
}

func (h *Host) mount(w model.Widget) error {
	if w.Kind != model.WidgetCountdown {
		return nil
	}

	h.mu.Lock()
	_, mounted := h.timers[w.ID]
	h.mu.Unlock()
	if mounted {
		return nil
	}

	t, err := countdown.New(w.ID, w.Config, countdown.Deps{
		Clock:    h.clock,
		Notifier: h.notifier,
		OnUpdate: h.store.UpdateWidget,
		Settings: h.store,
		Sound:    h.sound,
		Logger:   h.logger,
	})
	if t == nil {
		return err
	}
	if err != nil {
		h.logger.Warn("countdown mounted with unsaved state", "widget", w.ID, "error", err)
	}

	h.mu.Lock()
	h.timers[w.ID] = t
	h.mu.Unlock()
	return nil
}
