package broker

import "time"

// Defaults mirrored by Options.applyDefaults.
const (
	DefaultTimeout     = 20 * time.Second
	DefaultInterval    = 0
	DefaultMaxInterval = 60 * time.Second

	DefaultChannelCapacity = 500
	DefaultStorageCapacity = 10_000
)

// Options enumerates every tunable of a broker Context. The zero value is
// usable: New fills missing fields with the defaults above.
type Options struct {
	// Timeout is the default long-poll wait when the connect envelope
	// carries no advice.timeout.
	Timeout time.Duration

	// Interval is the advised delay between client reconnects. Reserved;
	// the protocol currently always advises 0.
	Interval time.Duration

	// MaxInterval is the eviction horizon: a session no long-poll has
	// touched for this long is removed.
	MaxInterval time.Duration

	// ClientChannelCapacity bounds each session's delivery queue.
	ClientChannelCapacity int

	// SubscriptionChannelCapacity bounds each channel's ingress queue.
	SubscriptionChannelCapacity int

	// EventsChannelCapacity bounds each event-bus observer's buffer.
	EventsChannelCapacity int

	// ClientStorageCapacity pre-sizes the session registry.
	ClientStorageCapacity int

	// SubscriptionStorageCapacity pre-sizes the channel registry and the
	// wildcard cache.
	SubscriptionStorageCapacity int
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Interval < 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = DefaultMaxInterval
	}
	if o.ClientChannelCapacity <= 0 {
		o.ClientChannelCapacity = DefaultChannelCapacity
	}
	if o.SubscriptionChannelCapacity <= 0 {
		o.SubscriptionChannelCapacity = DefaultChannelCapacity
	}
	if o.EventsChannelCapacity <= 0 {
		o.EventsChannelCapacity = DefaultChannelCapacity
	}
	if o.ClientStorageCapacity <= 0 {
		o.ClientStorageCapacity = DefaultStorageCapacity
	}
	if o.SubscriptionStorageCapacity <= 0 {
		o.SubscriptionStorageCapacity = DefaultStorageCapacity
	}
}
