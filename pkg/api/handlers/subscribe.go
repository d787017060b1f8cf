package handlers

import (
	"net/http"
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/internal/telemetry"
	"github.com/go-cometd/cometd/pkg/channel"
	"github.com/go-cometd/cometd/pkg/protocol/bayeux"
)

// Subscribe handles POST {base}/.
//
// Adds the session to every channel in the subscription list. The list
// accepts a bare string or an array; each entry must pass the subscribe
// grammar, wildcards included.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	defer h.observe("subscribe", time.Now())
	_, span := telemetry.StartSpan(r.Context(), "bayeux.subscribe")
	defer span.End()

	msg, err := decodeSingle(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if msg.Channel != bayeux.MetaSubscribe {
		writeMessages(w, http.StatusOK, bayeux.SessionUnknown(msg.ID, msg.Channel, nil))
		return
	}

	clientID, ok := h.authenticate(r, msg.ClientID)
	if !ok {
		writeMessages(w, http.StatusOK, bayeux.SessionUnknown(msg.ID, msg.Channel, nil))
		return
	}

	if len(msg.Subscription) == 0 {
		writeMessages(w, http.StatusOK, bayeux.SubscriptionMissing(msg.ID))
		return
	}
	for _, name := range msg.Subscription {
		if !channel.ValidSubscribe(name) {
			logger.Debug("rejected subscription channel",
				logger.ClientID(msg.ClientID), logger.Channel(name))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	h.broker.Subscribe(clientID, r.Header, msg.Subscription)
	logger.Debug("subscribed",
		logger.ClientID(msg.ClientID), logger.Subscription(msg.Subscription))

	reply := bayeux.Ok(msg.ID, msg.Channel)
	reply.Subscription = msg.Subscription
	writeMessages(w, http.StatusOK, reply)
}
