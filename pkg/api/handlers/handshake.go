package handlers

import (
	"net/http"
	"time"

	"github.com/go-cometd/cometd/internal/logger"
	"github.com/go-cometd/cometd/internal/telemetry"
	"github.com/go-cometd/cometd/pkg/identity"
	"github.com/go-cometd/cometd/pkg/protocol/bayeux"
)

// Handshake handles POST {base}/handshake.
//
// Mints the BAYEUX_BROWSER cookie when the request carries none,
// registers a session bound to it and returns the new clientId together
// with retry advice.
func (h *Handler) Handshake(w http.ResponseWriter, r *http.Request) {
	defer h.observe("handshake", time.Now())
	_, span := telemetry.StartSpan(r.Context(), "bayeux.handshake")
	defer span.End()

	msgs, err := decodeEnvelope(r)
	if err != nil || len(msgs) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	msg := msgs[0]

	if msg.Channel != bayeux.MetaHandshake {
		writeMessages(w, http.StatusOK, bayeux.SessionUnknown(msg.ID, msg.Channel, nil))
		return
	}
	if msg.MinimumVersion != bayeux.Version {
		writeMessages(w, http.StatusOK, bayeux.WrongMinimumVersion(msg.ID, msg.MinimumVersion))
		return
	}

	cookie, ok := cookieID(r)
	if !ok {
		cookie = identity.GenerateCookieID()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    cookie.String(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}

	clientID, err := h.broker.Register(cookie, r.Header)
	if err != nil {
		logger.Error("handshake registration failed", logger.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	writeMessages(w, http.StatusOK, bayeux.Message{
		ID:                       msg.ID,
		Channel:                  msg.Channel,
		Successful:               successful(),
		ClientID:                 clientID.String(),
		Version:                  bayeux.Version,
		SupportedConnectionTypes: []string{bayeux.ConnectionType},
		Advice:                   bayeux.RetryAdvice(h.broker.Timeout(), h.broker.Interval()),
	})
}

func successful() *bool {
	t := true
	return &t
}
