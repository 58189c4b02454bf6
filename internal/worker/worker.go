package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/juju/clock"
)

// Loop calls a function on a fixed cadence until it is stopped or the
// function asks to stop. The cadence is nominal: a late wake-up simply runs
// late, so callers must not count ticks to measure time.
type Loop struct {
	name   string
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// Start arms the first wake-up before returning and runs fn on every wake.
// fn returning false ends the loop.
func Start(name string, clk clock.Clock, interval time.Duration, logger *slog.Logger, fn func() bool) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Loop{
		name:   name,
		logger: logger,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	timer := clk.NewTimer(interval)
	go l.run(ctx, timer, interval, fn)
	return l
}

func (l *Loop) run(ctx context.Context, timer clock.Timer, interval time.Duration, fn func() bool) {
	defer close(l.done)
	defer timer.Stop()
	l.logger.Debug("worker started", "worker", l.name, "interval", interval)

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("worker stopped", "worker", l.name)
			return
		case <-timer.Chan():
			if !fn() {
				l.logger.Debug("worker finished", "worker", l.name)
				return
			}
			timer.Reset(interval)
		}
	}
}

// Stop cancels the loop and waits for it to exit. No call to fn starts after
// Stop returns. Stop must not be called from inside fn.
func (l *Loop) Stop() {
	l.cancel()
	<-l.done
}

// Done is closed once the loop has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
