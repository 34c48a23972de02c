package syncq

import (
	"context"
	"log/slog"
	"time"

	"github.com/joshuapare/boxtrace/internal/logging"
)

// DefaultSettleDelay is how long the Watcher waits after connectivity
// returns before draining.
const DefaultSettleDelay = 5 * time.Second

// Watcher drains a Queue when connectivity comes back.
//
// Only a transition from disconnected to connected with a non-empty queue
// starts an attempt. The first event establishes the baseline and never
// drains, so a process that starts online leaves its queue for the next
// reconnect. A disconnect during the settle delay cancels the attempt.
type Watcher struct {
	queue  *Queue
	submit SubmitFunc
	settle time.Duration
	log    *slog.Logger

	// OnDrain, if set, is called after every drain pass the watcher runs.
	OnDrain func(DrainResult, error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSettleDelay overrides DefaultSettleDelay. Zero drains immediately.
func WithSettleDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.settle = d
		}
	}
}

// WithWatcherLogger sets the logger. The default discards.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher returns a Watcher that drains q through submit.
func NewWatcher(q *Queue, submit SubmitFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		queue:  q,
		submit: submit,
		settle: DefaultSettleDelay,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes connectivity events until ctx is done or events is closed.
// Drains run on the calling goroutine, so events arriving during a pass are
// handled after it.
func (w *Watcher) Run(ctx context.Context, events <-chan bool) error {
	var (
		known     bool
		connected bool
		timer     *time.Timer
		fire      <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			fire = nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case up, ok := <-events:
			if !ok {
				return nil
			}
			was := connected
			connected = up
			if !known {
				known = true
				w.log.Debug("connectivity baseline", "connected", up)
				continue
			}
			switch {
			case up && !was:
				n := w.queue.Len()
				if n == 0 {
					w.log.Debug("reconnected, queue empty")
					continue
				}
				w.log.Info("reconnected, draining after settle delay", "queue_len", n, "delay", w.settle)
				stop()
				timer = time.NewTimer(w.settle)
				fire = timer.C
			case !up && was:
				if timer != nil {
					w.log.Info("disconnected during settle delay, drain cancelled")
				}
				stop()
			}

		case <-fire:
			timer, fire = nil, nil
			res, err := w.queue.Drain(ctx, w.submit)
			if err != nil {
				w.log.Warn("drain pass failed", "submitted", res.Submitted, "queue_len", res.Remaining, "error", err)
			}
			if w.OnDrain != nil {
				w.OnDrain(res, err)
			}
		}
	}
}
