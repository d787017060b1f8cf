package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for Bayeux operations.
// Client keys follow OpenTelemetry semantic conventions; protocol keys
// use the "bayeux." prefix.
const (
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	AttrBayeuxChannel   = "bayeux.channel"
	AttrBayeuxClientID  = "bayeux.client_id"
	AttrBayeuxRequestID = "bayeux.request_id"
	AttrBayeuxTimeout   = "bayeux.timeout_ms"
	AttrBayeuxBatchSize = "bayeux.batch_size"
	AttrBayeuxError     = "bayeux.error"
)

// Span names for operations.
// Format: bayeux.<endpoint> for HTTP handlers, broker.<operation> for
// internal broker work.
const (
	SpanHandshake  = "bayeux.handshake"
	SpanSubscribe  = "bayeux.subscribe"
	SpanConnect    = "bayeux.connect"
	SpanPublish    = "bayeux.publish"
	SpanDisconnect = "bayeux.disconnect"

	SpanBrokerRegister = "broker.register"
	SpanBrokerFanout   = "broker.fanout"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Channel returns an attribute for a Bayeux channel name
func Channel(name string) attribute.KeyValue {
	return attribute.String(AttrBayeuxChannel, name)
}

// BayeuxClientID returns an attribute for the session client id
func BayeuxClientID(id string) attribute.KeyValue {
	return attribute.String(AttrBayeuxClientID, id)
}

// RequestID returns an attribute for the envelope echo token
func RequestID(id string) attribute.KeyValue {
	return attribute.String(AttrBayeuxRequestID, id)
}

// TimeoutMillis returns an attribute for the long-poll wait in ms
func TimeoutMillis(ms int64) attribute.KeyValue {
	return attribute.Int64(AttrBayeuxTimeout, ms)
}

// BatchSize returns an attribute for the publish batch length
func BatchSize(n int) attribute.KeyValue {
	return attribute.Int(AttrBayeuxBatchSize, n)
}

// BayeuxError returns an attribute for the Bayeux error string
func BayeuxError(err string) attribute.KeyValue {
	return attribute.String(AttrBayeuxError, err)
}

// StartEndpointSpan starts a span for a Bayeux endpoint request.
func StartEndpointSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}
