package broker

import (
	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/pkg/identity"
	"github.com/go-cometd/cometd/pkg/session"
)

// fanout is the per-channel worker. It drains the channel's ingress queue
// and replicates each delivery onto every subscriber's queue. One
// goroutine per live channel; it exits when the entry's done signal fires.
func (c *Context) fanout(entry *channelEntry) {
	for {
		select {
		case <-entry.done:
			return
		case d := <-entry.ingress:
			c.deliver(entry, d)
		}
	}
}

// deliver replicates one delivery to the channel's current subscribers,
// unchanged, so the channel tag stays the concrete published name. The
// subscriber and session snapshots are taken under brief read locks; the
// blocking enqueues happen with no lock held, so a full delivery queue
// stalls only this channel's worker.
func (c *Context) deliver(entry *channelEntry, d session.Delivery) {
	c.channelsMu.RLock()
	ids := make([]identity.ClientID, 0, len(entry.subscribers))
	for id := range entry.subscribers {
		ids = append(ids, id)
	}
	c.channelsMu.RUnlock()

	c.sessionsMu.RLock()
	targets := make([]*session.Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.sessions[id]; ok {
			targets = append(targets, s)
		}
	}
	c.sessionsMu.RUnlock()

	for _, s := range targets {
		if err := s.Enqueue(d); err != nil {
			// Session closed between snapshot and enqueue; it is already
			// on its way out of the registry.
			logger.Debug("skipping delivery to closed session",
				logger.Channel(d.Channel), logger.ClientID(s.ClientID().String()))
		}
	}
	c.metrics.MessageDelivered(len(targets))
}
