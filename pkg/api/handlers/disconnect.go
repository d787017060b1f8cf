package handlers

import (
	"net/http"
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/internal/telemetry"
	"github.com/go-cometd/cometd/pkg/protocol/bayeux"
)

// Disconnect handles POST {base}/disconnect.
//
// Tears the session down and answers with a bare HTTP 400. The 400 is
// deliberate: long-polling clients treat any response to
// /meta/disconnect as terminal and never retry it, and this is what
// deployed clients already expect.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	defer h.observe("disconnect", time.Now())
	_, span := telemetry.StartSpan(r.Context(), "bayeux.disconnect")
	defer span.End()

	msg, err := decodeSingle(r)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if msg.Channel != bayeux.MetaDisconnect {
		writeMessages(w, http.StatusOK, bayeux.SessionUnknown(msg.ID, msg.Channel, nil))
		return
	}

	clientID, ok := h.authenticate(r, msg.ClientID)
	if !ok {
		writeMessages(w, http.StatusOK, bayeux.SessionUnknown(msg.ID, msg.Channel, nil))
		return
	}

	logger.Debug("disconnect", logger.ClientID(msg.ClientID))
	h.broker.Unsubscribe(clientID)

	w.WriteHeader(http.StatusBadRequest)
}
