// Package notify implements the notifier port. Events are
// fire-and-forget: delivery never blocks the engine and failures are
// swallowed.
package notify

import (
	"sync"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure the notifiers implement the interface.
var (
	_ driven.Notifier = (*Broadcaster)(nil)
	_ driven.Notifier = (*LogNotifier)(nil)
)

// Broadcaster fans events out to subscriber channels. A subscriber that
// falls behind loses events rather than stalling the engine.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan domain.Event
	next int
}

// NewBroadcaster creates an event broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan domain.Event)}
}

// Subscribe registers a listener. The returned cancel function removes
// the subscription and closes the channel.
func (b *Broadcaster) Subscribe(buffer int) (<-chan domain.Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Notify delivers the event to every subscriber without blocking.
func (b *Broadcaster) Notify(event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full; the event is dropped for them.
		}
	}
}

// LogNotifier writes events to the verbose log. Useful as a default
// sink when no UI is attached.
type LogNotifier struct{}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the event.
func (n *LogNotifier) Notify(event domain.Event) {
	if event.Drain != nil {
		logger.Info("event %s: %d ok, %d failed, %d remaining",
			event.Type, event.Drain.Successful, event.Drain.Failed, event.Drain.Remaining)
		return
	}
	logger.Info("event %s %s %s", event.Type, event.TaskID, event.Detail)
}

// Multi composes several notifiers into one.
type Multi []driven.Notifier

// Notify delivers the event to every composed notifier.
func (m Multi) Notify(event domain.Event) {
	for _, n := range m {
		n.Notify(event)
	}
}
