// Package handlers implements the four Bayeux meta endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-cometd/cometd/pkg/broker"
	"github.com/go-cometd/cometd/pkg/identity"
	"github.com/go-cometd/cometd/pkg/metrics"
	"github.com/go-cometd/cometd/pkg/protocol/bayeux"
)

// CookieName is the session-binding cookie set on handshake and required
// on every later request.
const CookieName = "BAYEUX_BROWSER"

var errEnvelopeShape = errors.New("expected a single-message envelope")

// Handler carries the broker context shared by all endpoints.
type Handler struct {
	broker  *broker.Context
	metrics *metrics.BrokerMetrics
}

// New builds the endpoint handler set. Pass nil metrics to disable
// instrumentation.
func New(brk *broker.Context, m *metrics.BrokerMetrics) *Handler {
	return &Handler{broker: brk, metrics: m}
}

func (h *Handler) observe(endpoint string, start time.Time) {
	h.metrics.ObserveRequest(endpoint, time.Since(start).Seconds())
}

// decodeEnvelope reads the request body as a JSON array of messages.
func decodeEnvelope(r *http.Request) ([]bayeux.Message, error) {
	var msgs []bayeux.Message
	if err := json.NewDecoder(r.Body).Decode(&msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// decodeSingle reads the body and requires exactly one message in it.
func decodeSingle(r *http.Request) (bayeux.Message, error) {
	msgs, err := decodeEnvelope(r)
	if err != nil {
		return bayeux.Message{}, err
	}
	if len(msgs) != 1 {
		return bayeux.Message{}, errEnvelopeShape
	}
	return msgs[0], nil
}

// writeMessages serializes msgs as the JSON array envelope.
func writeMessages(w http.ResponseWriter, status int, msgs ...bayeux.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(msgs)
}

// cookieID extracts and parses the BAYEUX_BROWSER cookie.
func cookieID(r *http.Request) (identity.CookieID, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return identity.CookieID{}, false
	}
	id, err := identity.ParseCookieID(c.Value)
	if err != nil {
		return identity.CookieID{}, false
	}
	return id, true
}

// authenticate resolves the envelope clientId against the request cookie.
// Any failure (absent cookie, malformed id, unknown session, cookie
// mismatch) is reported the same way so probes cannot distinguish them.
func (h *Handler) authenticate(r *http.Request, clientID string) (identity.ClientID, bool) {
	cookie, ok := cookieID(r)
	if !ok {
		return identity.ClientID{}, false
	}
	id, err := identity.ParseClientID(clientID)
	if err != nil {
		return identity.ClientID{}, false
	}
	if !h.broker.CheckClient(cookie, id) {
		return identity.ClientID{}, false
	}
	return id, true
}

// Health reports liveness plus the broker's session and channel counts.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "healthy",
		"sessions": h.broker.SessionCount(),
		"channels": h.broker.ChannelCount(),
	})
}
