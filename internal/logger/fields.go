package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log
// aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Bayeux Protocol
	// ========================================================================
	KeyEndpoint     = "endpoint"     // Meta endpoint: handshake, subscribe, connect, disconnect
	KeyChannel      = "channel"      // Bayeux channel name
	KeySubscription = "subscription" // Subscription list on subscribe requests
	KeyClientID     = "client_id"    // Session client id (40-char hex)
	KeyRequestID    = "request_id"   // Envelope echo token or HTTP request id

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP = "client_ip" // Client IP address

	// ========================================================================
	// Broker State
	// ========================================================================
	KeySessions = "sessions" // Live session count

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyStatus     = "status"      // HTTP status code
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// Channel returns a slog.Attr for a Bayeux channel name
func Channel(name string) slog.Attr {
	return slog.String(KeyChannel, name)
}

// Subscription returns a slog.Attr for a subscription list
func Subscription(channels []string) slog.Attr {
	return slog.Any(KeySubscription, channels)
}

// ClientID returns a slog.Attr for a session client id
func ClientID(id string) slog.Attr {
	return slog.String(KeyClientID, id)
}

// RequestID returns a slog.Attr for the envelope echo token
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Sessions returns a slog.Attr for the live session count
func Sessions(n int) slog.Attr {
	return slog.Int(KeySessions, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}
