// Package session implements the per-client delivery pipeline: a bounded
// message queue with an exclusive single reader, plus the inactivity
// supervisor that evicts sessions no long-poll has touched for too long.
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-cometd/cometd/pkg/identity"
)

var (
	// ErrAlreadyLocked is returned when a second long-poll tries to read
	// from a queue whose reader is already held.
	ErrAlreadyLocked = errors.New("delivery queue reader already held")

	// ErrElapsed is returned when a blocking read hits its deadline.
	ErrElapsed = errors.New("deadline elapsed")

	// ErrClosed is returned when the session has been torn down.
	ErrClosed = errors.New("delivery queue closed")
)

// Delivery is the unit travelling from a channel's fan-out worker to a
// session's queue: the concrete channel the message was published on and
// its opaque JSON payload.
type Delivery struct {
	Channel string
	Data    json.RawMessage
}

// Session is the per-client record: the bound cookie, the bounded delivery
// queue, the signals driving the timeout supervisor and the reader mutex
// enforcing the one-long-poll-at-a-time rule.
type Session struct {
	clientID identity.ClientID
	cookieID identity.CookieID

	queue chan Delivery

	// reader enforces the single-reader exclusion. Acquisition is a
	// TryLock so a concurrent long-poll observes ErrAlreadyLocked instead
	// of queueing behind the holder.
	reader sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once

	// One-shot style wakeups for the supervisor. Capacity 1 with
	// non-blocking sends: coalescing repeated notifications is fine, the
	// supervisor only needs the edge.
	startTimeout  chan struct{}
	cancelTimeout chan struct{}
}

// New creates a session bound to cookieID with a delivery queue of the
// given capacity and starts its timeout supervisor. The supervisor begins
// armed: a session nobody polls is evicted after maxInterval via the evict
// callback. evict must be safe to call from the supervisor goroutine and
// must tolerate the session already being gone.
func New(clientID identity.ClientID, cookieID identity.CookieID, capacity int, maxInterval time.Duration, evict func(identity.ClientID)) *Session {
	s := &Session{
		clientID:      clientID,
		cookieID:      cookieID,
		queue:         make(chan Delivery, capacity),
		stop:          make(chan struct{}),
		startTimeout:  make(chan struct{}, 1),
		cancelTimeout: make(chan struct{}, 1),
	}
	go s.supervise(maxInterval, evict)
	return s
}

// ClientID returns the session handle.
func (s *Session) ClientID() identity.ClientID { return s.clientID }

// CookieID returns the browser cookie the session is bound to. The value
// is fixed for the session's lifetime.
func (s *Session) CookieID() identity.CookieID { return s.cookieID }

// Enqueue places a delivery on the session's queue, blocking while the
// queue is full. Returns ErrClosed once the session has been torn down.
func (s *Session) Enqueue(msg Delivery) error {
	select {
	case <-s.stop:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- msg:
		return nil
	case <-s.stop:
		return ErrClosed
	}
}

// AcquireReceiver takes the exclusive queue reader. It fails with
// ErrAlreadyLocked when another long-poll currently holds it. On success
// the session's eviction timer is parked until the receiver is released.
func (s *Session) AcquireReceiver() (*Receiver, error) {
	if !s.reader.TryLock() {
		return nil, ErrAlreadyLocked
	}
	notify(s.cancelTimeout)
	return &Receiver{session: s}, nil
}

// Close tears the session down: pending and future reads observe
// ErrClosed and the supervisor exits. Safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// notify performs a non-blocking edge-triggered signal send.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Receiver is the exclusive reader on a session's delivery queue. It must
// be released exactly once; releasing re-arms the eviction timer.
type Receiver struct {
	session     *Session
	releaseOnce sync.Once
}

// ReceiveTimeout blocks until a delivery arrives, the deadline passes
// (ErrElapsed) or the session is closed (ErrClosed). A zero or negative
// deadline still performs one non-blocking poll of the queue.
func (r *Receiver) ReceiveTimeout(d time.Duration) (Delivery, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	// Buffered deliveries win over a concurrent close or an immediate
	// deadline so no accepted message is dropped.
	select {
	case msg := <-r.session.queue:
		return msg, nil
	default:
	}

	select {
	case msg := <-r.session.queue:
		return msg, nil
	case <-r.session.stop:
		return Delivery{}, ErrClosed
	case <-timer.C:
		return Delivery{}, ErrElapsed
	}
}

// Release gives the reader back and restarts the session's eviction clock
// from zero. Subsequent calls are no-ops.
func (r *Receiver) Release() {
	r.releaseOnce.Do(func() {
		notify(r.session.startTimeout)
		r.session.reader.Unlock()
	})
}
