// Package connectivity reports whether the backend is reachable.
//
// Sources (an HTTP probe, an MQTT broker link, or a caller flipping the
// state by hand) publish into a Broadcaster, which fans state changes out to
// subscribers as bool events: true for connected, false for disconnected.
// Repeated reports of the same state are not re-sent.
package connectivity

import (
	"log/slog"
	"sync"

	"github.com/joshuapare/boxtrace/internal/logging"
	"github.com/joshuapare/boxtrace/internal/metrics"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind misses events.
const subscriberBuffer = 16

// Observer delivers connectivity changes.
type Observer interface {
	// Subscribe returns a channel of connectivity events. If the state is
	// already known it is delivered first. The channel is closed when the
	// observer shuts down.
	Subscribe() <-chan bool
}

// Broadcaster is an Observer fed by Publish. It is safe for concurrent use.
type Broadcaster struct {
	log *slog.Logger

	mu     sync.Mutex
	subs   []chan bool
	known  bool
	up     bool
	closed bool
}

// NewBroadcaster returns a Broadcaster with unknown state.
func NewBroadcaster(log *slog.Logger) *Broadcaster {
	if log == nil {
		log = logging.Discard()
	}
	return &Broadcaster{log: log}
}

// Static returns a Broadcaster whose state is fixed at up.
func Static(up bool) *Broadcaster {
	b := NewBroadcaster(nil)
	b.Publish(up)
	return b
}

// Subscribe implements Observer.
func (b *Broadcaster) Subscribe() <-chan bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan bool, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	if b.known {
		ch <- b.up
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish records the current state and notifies subscribers if it
// changed.
func (b *Broadcaster) Publish(up bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || (b.known && b.up == up) {
		return
	}
	b.known, b.up = true, up
	if up {
		metrics.Connected.Set(1)
	} else {
		metrics.Connected.Set(0)
	}
	b.log.Info("connectivity changed", "connected", up)
	for _, ch := range b.subs {
		select {
		case ch <- up:
		default:
			b.log.Warn("connectivity subscriber is full, event dropped", "connected", up)
		}
	}
}

// State returns the last published state and whether any was published.
func (b *Broadcaster) State() (up, known bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.up, b.known
}

// Close closes every subscriber channel. Later Publish calls are ignored.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
