package session

import (
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/pkg/identity"
)

// supervise runs the eviction state machine. It owns only the session's
// signal channels and the evict callback, never the registry itself, so
// registry teardown can drop the session without a reference cycle.
//
// States:
//
//	armed:  eviction timer running; a long-poll acquiring the receiver
//	        parks it, expiry evicts the session, stop exits.
//	parked: timer suspended while a long-poll holds the receiver;
//	        releasing the receiver re-arms, stop exits.
func (s *Session) supervise(maxInterval time.Duration, evict func(identity.ClientID)) {
	timer := time.NewTimer(maxInterval)
	defer timer.Stop()

	for {
		// Armed.
		select {
		case <-s.stop:
			return
		case <-timer.C:
			logger.Info("session timed out", "client_id", s.clientID.String())
			evict(s.clientID)
			return
		case <-s.cancelTimeout:
		}

		// Parked.
		select {
		case <-s.stop:
			return
		case <-s.startTimeout:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(maxInterval)
		}
	}
}
