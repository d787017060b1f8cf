package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/internal/telemetry"
	"github.com/go-cometd/cometd/pkg/broker"
	"github.com/go-cometd/cometd/pkg/protocol/bayeux"
	"github.com/go-cometd/cometd/pkg/session"
)

// Connect handles POST {base}/connect, which plays a dual role: a
// single /meta/connect message is a long-poll wait, anything else is a
// multiplexed publish batch.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	defer h.observe("connect", time.Now())

	msgs, err := decodeEnvelope(r)
	if err != nil || len(msgs) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if len(msgs) == 1 && msgs[0].Channel == bayeux.MetaConnect {
		h.metaConnect(w, r, msgs[0])
		return
	}
	h.publish(w, r, msgs)
}

// metaConnect parks the request on the session's delivery queue until a
// message arrives or the advised timeout elapses.
func (h *Handler) metaConnect(w http.ResponseWriter, r *http.Request, msg bayeux.Message) {
	_, span := telemetry.StartSpan(r.Context(), "bayeux.connect")
	defer span.End()

	clientID, ok := h.authenticate(r, msg.ClientID)
	if !ok {
		writeMessages(w, http.StatusOK,
			bayeux.SessionUnknown(msg.ID, msg.Channel, bayeux.HandshakeAdvice()))
		return
	}

	rx, err := h.broker.AcquireReceiver(clientID)
	switch {
	case errors.Is(err, broker.ErrClientNotFound):
		// Evicted between the check and the acquire.
		writeMessages(w, http.StatusOK,
			bayeux.SessionUnknown(msg.ID, msg.Channel, bayeux.HandshakeAdvice()))
		return
	case errors.Is(err, session.ErrAlreadyLocked):
		writeMessages(w, http.StatusOK,
			bayeux.Failure(bayeux.ErrDuplicateConnection, msg.ID, msg.Channel))
		return
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer rx.Release()

	timeout := msg.Advice.TimeoutOr(h.broker.Timeout())

	delivery, err := rx.ReceiveTimeout(timeout)
	switch {
	case err == nil:
		writeMessages(w, http.StatusOK,
			bayeux.Message{Channel: delivery.Channel, Data: delivery.Data},
			bayeux.Ok(msg.ID, msg.Channel),
		)
	case errors.Is(err, session.ErrElapsed):
		reply := bayeux.Ok(msg.ID, msg.Channel)
		reply.Advice = bayeux.RetryAdvice(h.broker.Timeout(), h.broker.Interval())
		writeMessages(w, http.StatusOK, reply)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// publish fans each batch message out to its channel. The whole batch is
// rejected if any channel contains "/meta/": meta traffic must arrive as
// a proper single-message envelope, and substring matching keeps crafted
// segment tricks out.
func (h *Handler) publish(w http.ResponseWriter, r *http.Request, msgs []bayeux.Message) {
	_, span := telemetry.StartSpan(r.Context(), "bayeux.publish")
	defer span.End()

	for _, msg := range msgs {
		if strings.Contains(msg.Channel, "/meta/") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	replies := make([]bayeux.Message, len(msgs))
	for i, msg := range msgs {
		switch {
		case msg.Channel == "":
			replies[i] = bayeux.ChannelMissing(msg.ID)
		case msg.ClientID == "":
			replies[i] = bayeux.SessionUnknown(msg.ID, msg.Channel, bayeux.HandshakeAdvice())
		default:
			if _, ok := h.authenticate(r, msg.ClientID); !ok {
				replies[i] = bayeux.SessionUnknown(msg.ID, msg.Channel, nil)
				continue
			}
			if err := h.broker.Publish(msg.Channel, msg.Data); err != nil {
				// Delivery problems do not fail the request; the client
				// already holds a valid session.
				logger.Error("publish failed",
					logger.ClientID(msg.ClientID),
					logger.Channel(msg.Channel),
					logger.Err(err),
				)
			}
			replies[i] = bayeux.Ok(msg.ID, msg.Channel)
		}
	}

	writeMessages(w, http.StatusOK, replies...)
}
