package broker

import (
	"net/http"
	"sync"

	"github.com/go-cometd/cometd/pkg/identity"
)

// Event is a broker lifecycle notification. The concrete types are
// SessionAdded, Subscribed, SessionRemoved and CustomData.
//
// For a given client the broker emits SessionAdded strictly before any
// Subscribed, and Subscribed strictly before SessionRemoved.
type Event interface {
	event()
}

// SessionAdded is emitted when a handshake registers a new session.
// Headers are the HTTP headers of the handshake request, so observers can
// run their own admission logic.
type SessionAdded struct {
	ClientID identity.ClientID
	Headers  http.Header
}

// Subscribed is emitted after a subscribe request succeeds.
type Subscribed struct {
	ClientID identity.ClientID
	Headers  http.Header
	Channels []string
}

// SessionRemoved is emitted when a session leaves the registry, whether by
// disconnect or eviction.
type SessionRemoved struct {
	ClientID identity.ClientID
}

// CustomData carries application payloads posted via PostCustomData. The
// broker itself never produces it.
type CustomData struct {
	Data any
}

func (SessionAdded) event()   {}
func (Subscribed) event()     {}
func (SessionRemoved) event() {}
func (CustomData) event()     {}

// eventBus broadcasts events to any number of observers. Each observer
// owns a bounded buffer; when an observer falls behind, its oldest pending
// event is dropped so the broker never blocks on a slow consumer.
type eventBus struct {
	mu       sync.Mutex
	capacity int
	subs     map[*EventReceiver]struct{}
}

func newEventBus(capacity int) *eventBus {
	return &eventBus{
		capacity: capacity,
		subs:     make(map[*EventReceiver]struct{}),
	}
}

func (b *eventBus) subscribe() *EventReceiver {
	r := &EventReceiver{
		ch:  make(chan Event, b.capacity),
		bus: b,
	}
	b.mu.Lock()
	b.subs[r] = struct{}{}
	b.mu.Unlock()
	return r
}

func (b *eventBus) unsubscribe(r *EventReceiver) {
	b.mu.Lock()
	if _, ok := b.subs[r]; ok {
		delete(b.subs, r)
		close(r.ch)
	}
	b.mu.Unlock()
}

// publish delivers ev to every observer, evicting the oldest buffered
// event of any observer whose buffer is full.
func (b *eventBus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for r := range b.subs {
		for {
			select {
			case r.ch <- ev:
			default:
				// Buffer full: drop the oldest and retry.
				select {
				case <-r.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	for r := range b.subs {
		delete(b.subs, r)
		close(r.ch)
	}
	b.mu.Unlock()
}

// EventReceiver is one observer's view of the event bus.
type EventReceiver struct {
	ch  chan Event
	bus *eventBus
}

// C returns the receive channel. It is closed when the observer is
// cancelled or the broker shuts down.
func (r *EventReceiver) C() <-chan Event { return r.ch }

// Cancel detaches the observer and closes its channel.
func (r *EventReceiver) Cancel() { r.bus.unsubscribe(r) }
