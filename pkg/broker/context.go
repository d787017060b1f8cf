// Package broker implements the long-polling service context: the session
// registry, the channel fan-out engine and the event bus gluing the Bayeux
// HTTP handlers to application code.
package broker

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/pkg/channel"
	"github.com/go-cometd/cometd/pkg/identity"
	"github.com/go-cometd/cometd/pkg/metrics"
	"github.com/go-cometd/cometd/pkg/session"
)

// Context owns all broker state. There is exactly one per broker instance;
// every HTTP handler and application goroutine shares it.
//
// Lock ordering: sessionsMu before channelsMu whenever both are needed.
type Context struct {
	opts    Options
	metrics *metrics.BrokerMetrics

	sessionsMu sync.RWMutex
	sessions   map[identity.ClientID]*session.Session

	channelsMu sync.RWMutex
	channels   map[string]*channelEntry

	wildnames *channel.Cache
	bus       *eventBus

	closeOnce sync.Once
}

// channelEntry is the per-channel record: who is subscribed, the bounded
// ingress queue its fan-out worker drains and the teardown signal. The
// queue carries full deliveries so a wildcard channel still sees the
// concrete name the publisher used.
type channelEntry struct {
	subscribers map[identity.ClientID]struct{}
	ingress     chan session.Delivery
	done        chan struct{}
}

// New builds a Context from opts, filling unset options with defaults.
// Pass nil metrics to run without instrumentation.
func New(opts Options, m *metrics.BrokerMetrics) *Context {
	opts.applyDefaults()
	return &Context{
		opts:      opts,
		metrics:   m,
		sessions:  make(map[identity.ClientID]*session.Session, opts.ClientStorageCapacity),
		channels:  make(map[string]*channelEntry, opts.SubscriptionStorageCapacity),
		wildnames: channel.NewCache(opts.SubscriptionStorageCapacity),
		bus:       newEventBus(opts.EventsChannelCapacity),
	}
}

// Timeout returns the default long-poll wait.
func (c *Context) Timeout() time.Duration { return c.opts.Timeout }

// Interval returns the advised reconnect delay.
func (c *Context) Interval() time.Duration { return c.opts.Interval }

// Events attaches a new observer to the event bus. Observers may attach at
// any time; a slow observer loses its oldest events rather than blocking
// the broker.
func (c *Context) Events() *EventReceiver { return c.bus.subscribe() }

// PostCustomData broadcasts an application-defined payload on the event
// bus. The broker itself never produces CustomData events.
func (c *Context) PostCustomData(data any) {
	c.bus.publish(CustomData{Data: data})
}

// Register creates a session bound to cookieID and returns its fresh
// client id. The session's eviction timer starts immediately, so a client
// that never connects is reclaimed after MaxInterval. headers are the
// handshake request headers, forwarded on the SessionAdded event.
func (c *Context) Register(cookieID identity.CookieID, headers http.Header) (identity.ClientID, error) {
	clientID := identity.GenerateClientID()

	c.sessionsMu.Lock()
	if _, exists := c.sessions[clientID]; exists {
		c.sessionsMu.Unlock()
		return identity.ClientID{}, ErrRegistrationFailed
	}
	c.sessions[clientID] = session.New(
		clientID,
		cookieID,
		c.opts.ClientChannelCapacity,
		c.opts.MaxInterval,
		func(id identity.ClientID) { c.Unsubscribe(id) },
	)
	c.sessionsMu.Unlock()

	c.metrics.SessionRegistered()
	logger.Debug("session registered", logger.ClientID(clientID.String()))
	c.bus.publish(SessionAdded{ClientID: clientID, Headers: headers})

	return clientID, nil
}

// CheckClient reports whether a session exists for clientID and is bound
// to cookieID.
func (c *Context) CheckClient(cookieID identity.CookieID, clientID identity.ClientID) bool {
	c.sessionsMu.RLock()
	s, ok := c.sessions[clientID]
	c.sessionsMu.RUnlock()
	return ok && s.CookieID() == cookieID
}

// Subscribe adds the session to each named channel, creating channel
// records and spawning fan-out workers as needed. The caller must have
// validated the channel names and the session/cookie binding. Subscribing
// twice to the same channel is a no-op.
func (c *Context) Subscribe(clientID identity.ClientID, headers http.Header, channels []string) {
	c.channelsMu.Lock()
	for _, name := range channels {
		entry, ok := c.channels[name]
		if !ok {
			entry = &channelEntry{
				subscribers: make(map[identity.ClientID]struct{}),
				ingress:     make(chan session.Delivery, c.opts.SubscriptionChannelCapacity),
				done:        make(chan struct{}),
			}
			c.channels[name] = entry
			go c.fanout(entry)
			c.metrics.ChannelCreated()
			logger.Debug("channel created", logger.Channel(name))
		}
		entry.subscribers[clientID] = struct{}{}
	}
	c.channelsMu.Unlock()

	c.bus.publish(Subscribed{ClientID: clientID, Headers: headers, Channels: channels})
}

// Unsubscribe removes the session from the registry and from every channel
// it is subscribed to. Channels whose subscriber set becomes empty are torn
// down (terminating their workers) and purged from the wildcard cache.
// Calling Unsubscribe for an unknown client is a no-op.
func (c *Context) Unsubscribe(clientID identity.ClientID) {
	c.sessionsMu.Lock()
	s, existed := c.sessions[clientID]
	if existed {
		delete(c.sessions, clientID)
	}

	c.channelsMu.Lock()
	var removed []string
	for name, entry := range c.channels {
		if _, subscribed := entry.subscribers[clientID]; !subscribed {
			continue
		}
		delete(entry.subscribers, clientID)
		if len(entry.subscribers) == 0 {
			close(entry.done)
			delete(c.channels, name)
			removed = append(removed, name)
		}
	}
	c.channelsMu.Unlock()
	c.sessionsMu.Unlock()

	c.wildnames.Remove(removed)
	for range removed {
		c.metrics.ChannelRemoved()
	}

	if existed {
		s.Close()
		c.metrics.SessionRemoved()
		logger.Debug("session removed", logger.ClientID(clientID.String()))
		c.bus.publish(SessionRemoved{ClientID: clientID})
	}
}

// Publish routes a message to the named channel and to every wildcard
// channel covering it. Deliveries are always tagged with name, the
// concrete channel, even when a wildcard subscription routed them. A
// channel with no subscribers is silently skipped. Returns
// ErrInvalidChannel for names failing the publish grammar and
// ErrQueueClosed if an ingress queue is torn down mid-push.
func (c *Context) Publish(name string, data json.RawMessage) error {
	if !channel.ValidPublish(name) {
		return ErrInvalidChannel
	}

	cover := c.wildnames.Fetch(name)
	targets := make([]*channelEntry, 0, len(cover)+1)

	c.channelsMu.RLock()
	if entry, ok := c.channels[name]; ok {
		targets = append(targets, entry)
	}
	for _, wild := range cover {
		if entry, ok := c.channels[wild]; ok {
			targets = append(targets, entry)
		}
	}
	c.channelsMu.RUnlock()

	if len(targets) == 0 {
		// The teardown purge only covers names that were channels, so
		// drop the expansion here or one-off publish names would pile
		// up in the cache.
		c.wildnames.Remove([]string{name})
		logger.Debug("publish to channel with no subscribers", logger.Channel(name))
		return nil
	}

	// The ingress pushes happen outside the registry locks so a full
	// queue only backpressures this publisher, never the registry.
	d := session.Delivery{Channel: name, Data: data}
	var err error
	for _, entry := range targets {
		select {
		case entry.ingress <- d:
		case <-entry.done:
			err = ErrQueueClosed
		}
	}

	c.metrics.MessagePublished()
	return err
}

// SendToClient bypasses fan-out and places the payload directly on one
// session's delivery queue, tagged with the given channel name.
func (c *Context) SendToClient(name string, clientID identity.ClientID, data json.RawMessage) error {
	if !channel.ValidPublish(name) {
		return ErrInvalidChannel
	}

	c.sessionsMu.RLock()
	s, ok := c.sessions[clientID]
	c.sessionsMu.RUnlock()
	if !ok {
		return ErrClientNotFound
	}

	if err := s.Enqueue(session.Delivery{Channel: name, Data: data}); err != nil {
		return ErrQueueClosed
	}
	return nil
}

// AcquireReceiver takes the exclusive delivery-queue reader for the given
// session. Returns ErrClientNotFound if the session is gone and
// session.ErrAlreadyLocked if another long-poll holds the reader.
func (c *Context) AcquireReceiver(clientID identity.ClientID) (*session.Receiver, error) {
	c.sessionsMu.RLock()
	s, ok := c.sessions[clientID]
	c.sessionsMu.RUnlock()
	if !ok {
		return nil, ErrClientNotFound
	}
	return s.AcquireReceiver()
}

// SessionCount returns the number of live sessions.
func (c *Context) SessionCount() int {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()
	return len(c.sessions)
}

// ChannelCount returns the number of live channels.
func (c *Context) ChannelCount() int {
	c.channelsMu.RLock()
	defer c.channelsMu.RUnlock()
	return len(c.channels)
}

// Close tears down every session and channel and closes the event bus.
// Intended for graceful shutdown; the Context must not be used afterwards.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		c.sessionsMu.Lock()
		c.channelsMu.Lock()
		for name, entry := range c.channels {
			close(entry.done)
			delete(c.channels, name)
		}
		sessions := make([]*session.Session, 0, len(c.sessions))
		for id, s := range c.sessions {
			sessions = append(sessions, s)
			delete(c.sessions, id)
		}
		c.channelsMu.Unlock()
		c.sessionsMu.Unlock()

		for _, s := range sessions {
			s.Close()
		}
		c.bus.close()
		logger.Info("broker context closed", logger.Sessions(len(sessions)))
	})
}
