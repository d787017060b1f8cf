// Package bayeux defines the Bayeux wire envelope and the reply
// constructors shared by the meta handlers.
//
// Requests and responses are JSON arrays of Message. Optional fields are
// omitted from the wire when empty, matching what long-polling clients
// expect.
package bayeux

import (
	"encoding/json"
	"time"
)

// Protocol constants fixed by the long-polling transport.
const (
	Version        = "1.0"
	ConnectionType = "long-polling"

	MetaHandshake  = "/meta/handshake"
	MetaConnect    = "/meta/connect"
	MetaSubscribe  = "/meta/subscribe"
	MetaDisconnect = "/meta/disconnect"
)

// Error strings carried in the error field. The numeric prefixes follow
// the Bayeux convention of mimicking HTTP status codes.
const (
	ErrChannelMissing        = "400::channel_missing"
	ErrMinimumVersionMissing = "400::minimum_version_missing"
	ErrSessionUnknown        = "402::session_unknown"
	ErrSubscriptionMissing   = "403::subscription_missing"

	// ErrDuplicateConnection is returned when a second long-poll arrives
	// while one is already parked on the same session. The wording is
	// fixed; deployed clients match on it.
	ErrDuplicateConnection = "Two connection with same client_id."
)

// Reconnect is the advice.reconnect directive.
type Reconnect string

const (
	ReconnectRetry     Reconnect = "retry"
	ReconnectHandshake Reconnect = "handshake"
	ReconnectNone      Reconnect = "none"
)

// Advice tells the client how to behave after this response. Durations
// are wire-encoded in milliseconds.
type Advice struct {
	Interval    *int64    `json:"interval,omitempty"`
	MaxInterval *int64    `json:"maxInterval,omitempty"`
	Reconnect   Reconnect `json:"reconnect,omitempty"`
	Timeout     *int64    `json:"timeout,omitempty"`
	Hosts       []string  `json:"hosts,omitempty"`
}

// RetryAdvice instructs the client to long-poll again with the given
// timeout and inter-poll delay.
func RetryAdvice(timeout, interval time.Duration) *Advice {
	return &Advice{
		Reconnect: ReconnectRetry,
		Timeout:   millisPtr(timeout),
		Interval:  millisPtr(interval),
	}
}

// HandshakeAdvice instructs the client to drop its session state and
// handshake again immediately.
func HandshakeAdvice() *Advice {
	return &Advice{
		Reconnect: ReconnectHandshake,
		Interval:  millisPtr(0),
	}
}

// TimeoutOr returns the advised timeout, or def when the advice or its
// timeout field is absent.
func (a *Advice) TimeoutOr(def time.Duration) time.Duration {
	if a == nil || a.Timeout == nil {
		return def
	}
	return time.Duration(*a.Timeout) * time.Millisecond
}

// IntervalValue returns the advised interval in milliseconds and whether
// it was present.
func (a *Advice) IntervalValue() (int64, bool) {
	if a == nil || a.Interval == nil {
		return 0, false
	}
	return *a.Interval, true
}

// Message is one Bayeux envelope entry. Every field is optional on the
// wire; which ones matter depends on the channel.
type Message struct {
	Advice                   *Advice          `json:"advice,omitempty"`
	Channel                  string           `json:"channel,omitempty"`
	ClientID                 string           `json:"clientId,omitempty"`
	Data                     json.RawMessage  `json:"data,omitempty"`
	Error                    string           `json:"error,omitempty"`
	ID                       string           `json:"id,omitempty"`
	MinimumVersion           string           `json:"minimumVersion,omitempty"`
	Subscription             SubscriptionList `json:"subscription,omitempty"`
	Successful               *bool            `json:"successful,omitempty"`
	SupportedConnectionTypes []string         `json:"supportedConnectionTypes,omitempty"`
	Version                  string           `json:"version,omitempty"`
}

// Ok is the generic success reply echoing id and channel.
func Ok(id, channel string) Message {
	return Message{
		ID:         id,
		Channel:    channel,
		Successful: boolPtr(true),
	}
}

// SessionUnknown is the 402 reply for requests whose cookie, clientId or
// channel does not match a live session. advice may be nil.
func SessionUnknown(id, channel string, advice *Advice) Message {
	return Message{
		ID:         id,
		Channel:    channel,
		Successful: boolPtr(false),
		Error:      ErrSessionUnknown,
		Advice:     advice,
	}
}

// WrongMinimumVersion is the handshake reply for an unsupported
// minimumVersion, echoing the version the client asked for.
func WrongMinimumVersion(id, minimumVersion string) Message {
	return Message{
		ID:             id,
		MinimumVersion: minimumVersion,
		Successful:     boolPtr(false),
		Error:          ErrMinimumVersionMissing,
	}
}

// SubscriptionMissing is the reply for a subscribe request with no
// subscription list.
func SubscriptionMissing(id string) Message {
	return Message{
		ID:         id,
		Channel:    MetaSubscribe,
		Successful: boolPtr(false),
		Error:      ErrSubscriptionMissing,
	}
}

// ChannelMissing is the reply for a publish message with no channel.
func ChannelMissing(id string) Message {
	return Message{
		ID:         id,
		Successful: boolPtr(false),
		Error:      ErrChannelMissing,
	}
}

// Failure is a generic failed reply carrying only the error string. No
// advice: clients keep their session and decide on their own whether to
// poll again.
func Failure(errText, id, channel string) Message {
	return Message{
		ID:         id,
		Channel:    channel,
		Successful: boolPtr(false),
		Error:      errText,
	}
}

// IsSuccessful reports whether successful is present and true.
func (m Message) IsSuccessful() bool {
	return m.Successful != nil && *m.Successful
}

// SubscriptionList accepts both a bare string and an array of strings on
// the wire; it always marshals back as an array.
type SubscriptionList []string

func (s *SubscriptionList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = SubscriptionList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = SubscriptionList(many)
	return nil
}

func boolPtr(b bool) *bool { return &b }

func millisPtr(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}
