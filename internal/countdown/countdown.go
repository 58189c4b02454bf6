// Package countdown implements the countdown widget's timer.
//
// A running countdown stores an absolute deadline and derives the remaining
// time from it on every wake, so late or missed ticks never make it drift.
package countdown

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/clock"

	"github.com/noahxzhu/widget-dashboard/internal/model"
	"github.com/noahxzhu/widget-dashboard/internal/notify"
	"github.com/noahxzhu/widget-dashboard/internal/worker"
)

var (
	ErrRunning      = errors.New("countdown is running")
	ErrZeroDuration = errors.New("countdown duration must be greater than zero")
	ErrUnknownField = errors.New("unknown countdown field")
	ErrClosed       = errors.New("countdown is closed")
)

const (
	TickInterval       = time.Second
	CompletionLifetime = 10 * time.Second
	CompletionMessage  = "Countdown finished!"
)

// DefaultState is the duration restored by Reset.
var DefaultState = model.CountdownState{Minutes: 5}

type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseExpired Phase = "expired"
)

// Notifier receives the completion announcement.
type Notifier interface {
	Notify(message string, opts notify.Options) string
}

// Settings is the configuration read contract.
type Settings interface {
	Read() model.Configuration
}

// UpdateFunc hands a partial config blob to the widget host for storage.
type UpdateFunc func(widgetID string, partial map[string]any) error

type Deps struct {
	Clock    clock.Clock
	Notifier Notifier
	OnUpdate UpdateFunc
	// Settings is optional; when set and desktop notifications are turned
	// off, completion is announced in-app only.
	Settings Settings
	// Sound is played on completion when set.
	Sound    *notify.Sound
	Logger   *slog.Logger
	Interval time.Duration
}

type Timer struct {
	id   string
	deps Deps

	mu      sync.Mutex
	state   model.CountdownState
	expired bool
	closed  bool
	loop    *worker.Loop
}

// New mounts a countdown from its stored config blob. A blob that was
// running when stored is reconciled at once and keeps running if its
// deadline has not passed.
func New(widgetID string, blob map[string]any, deps Deps) (*Timer, error) {
	if deps.Clock == nil {
		deps.Clock = clock.WallClock
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = TickInterval
	}

	state, err := Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decode countdown %s: %w", widgetID, err)
	}

	t := &Timer{id: widgetID, deps: deps, state: state}
	if !state.IsRunning {
		return t, nil
	}
	if state.Deadline == nil {
		t.mu.Lock()
		t.state.IsRunning = false
		err := t.persistLocked(map[string]any{"isRunning": false})
		t.mu.Unlock()
		return t, err
	}

	t.mu.Lock()
	t.startLoopLocked()
	t.mu.Unlock()
	t.tick(false)
	return t, nil
}

// Decode reads a countdown state from a config blob, clamping every field to
// its bounds. Field values that are not numbers count as 0, so a malformed
// blob still mounts.
func Decode(blob map[string]any) (model.CountdownState, error) {
	var state model.CountdownState
	if len(blob) == 0 {
		return DefaultState, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       lenientHook,
		WeaklyTypedInput: true,
		Result:           &state,
	})
	if err != nil {
		return state, err
	}
	if err := dec.Decode(blob); err != nil {
		return state, err
	}
	state.Hours = limit(state.Hours, model.MaxCountdownHours)
	state.Minutes = limit(state.Minutes, model.MaxCountdownMinutes)
	state.Seconds = limit(state.Seconds, model.MaxCountdownSeconds)
	if !state.IsRunning {
		state.Deadline = nil
	}
	return state, nil
}

// Encode is the blob form of s, as Start and Reset persist it.
func Encode(s model.CountdownState) map[string]any {
	blob := map[string]any{
		"hours":     s.Hours,
		"minutes":   s.Minutes,
		"seconds":   s.Seconds,
		"isRunning": s.IsRunning,
		"deadline":  nil,
	}
	if s.Deadline != nil {
		blob["deadline"] = *s.Deadline
	}
	return blob
}

// lenientHook turns any value bound for a number or a flag into one the
// decoder accepts.
func lenientHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if data == nil {
		return nil, nil
	}
	v := reflect.ValueOf(data)
	switch to.Kind() {
	case reflect.Int, reflect.Int64:
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return v.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if v.Uint() > math.MaxInt64 {
				return int64(math.MaxInt64), nil
			}
			return int64(v.Uint()), nil
		case reflect.Float32, reflect.Float64:
			f := v.Float()
			switch {
			case math.IsNaN(f):
				return int64(0), nil
			case f >= math.MaxInt64:
				return int64(math.MaxInt64), nil
			case f <= math.MinInt64:
				return int64(math.MinInt64), nil
			}
			return int64(f), nil
		case reflect.String:
			return parseCount(v.String()), nil
		}
		return int64(0), nil
	case reflect.Bool:
		switch v.Kind() {
		case reflect.Bool:
			return v.Bool(), nil
		case reflect.String:
			b, _ := strconv.ParseBool(strings.TrimSpace(v.String()))
			return b, nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return data, nil
		}
		return false, nil
	}
	return data, nil
}

// parseCount reads a whole number. Out-of-range input saturates; anything
// else that is not a number is 0.
func parseCount(input string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return n
}

func (t *Timer) ID() string {
	return t.id
}

func (t *Timer) State() model.CountdownState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state
	if s.Deadline != nil {
		d := *s.Deadline
		s.Deadline = &d
	}
	return s
}

func (t *Timer) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.state.IsRunning:
		return PhaseRunning
	case t.expired:
		return PhaseExpired
	}
	return PhaseIdle
}

// Remaining returns the seconds left: derived from the deadline while
// running, the configured duration otherwise.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsRunning && t.state.Deadline != nil {
		return remainingSeconds(*t.state.Deadline, t.deps.Clock.Now())
	}
	return t.state.TotalSeconds()
}

// Start fixes the deadline at now plus the configured duration and begins
// ticking.
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.state.IsRunning {
		return ErrRunning
	}
	total := t.state.TotalSeconds()
	if total <= 0 {
		return ErrZeroDuration
	}

	deadline := t.deps.Clock.Now().UnixMilli() + int64(total)*1000
	t.state.IsRunning = true
	t.state.Deadline = &deadline
	t.expired = false
	t.startLoopLocked()

	t.deps.Logger.Info("countdown started", "widget", t.id, "seconds", total)
	return t.persistLocked(map[string]any{
		"hours":     t.state.Hours,
		"minutes":   t.state.Minutes,
		"seconds":   t.state.Seconds,
		"isRunning": true,
		"deadline":  deadline,
	})
}

// Pause stops the countdown, keeping the last displayed fields. There is no
// resume: a paused countdown is idle and needs a new Start. The tick loop has
// exited by the time Pause returns.
func (t *Timer) Pause() error {
	t.mu.Lock()
	if !t.state.IsRunning {
		t.mu.Unlock()
		return nil
	}
	t.state.IsRunning = false
	t.state.Deadline = nil
	loop := t.loop
	t.loop = nil
	err := t.persistLocked(map[string]any{"isRunning": false, "deadline": nil})
	t.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	t.deps.Logger.Info("countdown paused", "widget", t.id)
	return err
}

// Reset restores the default duration. It is refused while running.
func (t *Timer) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.state.IsRunning {
		return ErrRunning
	}
	t.state = DefaultState
	t.expired = false
	return t.persistLocked(map[string]any{
		"hours":     t.state.Hours,
		"minutes":   t.state.Minutes,
		"seconds":   t.state.Seconds,
		"isRunning": false,
		"deadline":  nil,
	})
}

// SetField edits hours, minutes or seconds. Input that is not a number
// counts as 0 and values are clamped to the field's bounds.
func (t *Timer) SetField(field, input string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.state.IsRunning {
		return ErrRunning
	}

	n := parseCount(input)
	value := int(min(max(n, 0), math.MaxInt32))

	switch field {
	case "hours":
		value = limit(value, model.MaxCountdownHours)
		t.state.Hours = value
	case "minutes":
		value = limit(value, model.MaxCountdownMinutes)
		t.state.Minutes = value
	case "seconds":
		value = limit(value, model.MaxCountdownSeconds)
		t.state.Seconds = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	t.expired = false
	return t.persistLocked(map[string]any{field: value})
}

// Tick reconciles the countdown against the clock. The loop calls it once a
// second; calling it at any other time is harmless.
func (t *Timer) Tick() {
	t.tick(false)
}

// Close stops ticking for good without touching the stored state, so a
// running countdown resumes when mounted again.
func (t *Timer) Close() {
	t.mu.Lock()
	t.closed = true
	loop := t.loop
	t.loop = nil
	t.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
}

func (t *Timer) startLoopLocked() {
	if t.loop != nil {
		return
	}
	t.loop = worker.Start("countdown:"+t.id, t.deps.Clock, t.deps.Interval, t.deps.Logger, func() bool {
		return t.tick(true)
	})
}

// tick reports whether the loop should keep running. fromLoop is set when
// called on the loop goroutine, which exits on its own on a false return.
func (t *Timer) tick(fromLoop bool) bool {
	t.mu.Lock()
	if !t.state.IsRunning || t.state.Deadline == nil {
		t.mu.Unlock()
		return false
	}

	remaining := remainingSeconds(*t.state.Deadline, t.deps.Clock.Now())
	if remaining > 0 {
		h, m, s := split(remaining)
		if h != t.state.Hours || m != t.state.Minutes || s != t.state.Seconds {
			t.state.Hours, t.state.Minutes, t.state.Seconds = h, m, s
			if err := t.persistLocked(map[string]any{"hours": h, "minutes": m, "seconds": s}); err != nil {
				t.deps.Logger.Warn("failed to persist countdown", "widget", t.id, "error", err)
			}
		}
		t.mu.Unlock()
		return true
	}

	t.state = model.CountdownState{}
	t.expired = true
	loop := t.loop
	t.loop = nil
	err := t.persistLocked(map[string]any{
		"hours":     0,
		"minutes":   0,
		"seconds":   0,
		"isRunning": false,
		"deadline":  nil,
	})
	t.mu.Unlock()

	if err != nil {
		t.deps.Logger.Warn("failed to persist countdown", "widget", t.id, "error", err)
	}
	if loop != nil && !fromLoop {
		loop.Stop()
	}

	t.deps.Logger.Info("countdown finished", "widget", t.id)
	t.announce()
	return false
}

func (t *Timer) announce() {
	if t.deps.Notifier == nil {
		return
	}
	desktop := true
	if t.deps.Settings != nil {
		desktop = t.deps.Settings.Read().General.ShowNotifications
	}
	opts := notify.Options{
		Severity: model.SeveritySuccess,
		Lifetime: CompletionLifetime,
		Desktop:  desktop,
	}
	if desktop {
		opts.Sound = t.deps.Sound
	}
	t.deps.Notifier.Notify(CompletionMessage, opts)
}

func (t *Timer) persistLocked(partial map[string]any) error {
	if t.deps.OnUpdate == nil {
		return nil
	}
	if err := t.deps.OnUpdate(t.id, partial); err != nil {
		return fmt.Errorf("failed to store countdown %s: %w", t.id, err)
	}
	return nil
}

// remainingSeconds is ceil((deadline - now) / 1s), never negative.
func remainingSeconds(deadlineMs int64, now time.Time) int {
	diff := deadlineMs - now.UnixMilli()
	if diff <= 0 {
		return 0
	}
	return int((diff + 999) / 1000)
}

func split(total int) (hours, minutes, seconds int) {
	return total / 3600, total % 3600 / 60, total % 60
}

func limit(v, bound int) int {
	if v < 0 {
		return 0
	}
	if v > bound {
		return bound
	}
	return v
}
