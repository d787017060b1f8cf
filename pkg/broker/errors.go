package broker

import "errors"

var (
	// ErrInvalidChannel is returned by Publish and SendToClient when the
	// channel name fails the publish grammar.
	ErrInvalidChannel = errors.New("invalid channel name")

	// ErrClientNotFound is returned by SendToClient and AcquireReceiver
	// when no session exists for the client id.
	ErrClientNotFound = errors.New("client not found")

	// ErrQueueClosed is returned when a message is pushed into a queue
	// torn down mid-push. Under the registry invariants this should not
	// surface during normal operation.
	ErrQueueClosed = errors.New("queue closed")

	// ErrRegistrationFailed is returned by Register on a client-id
	// collision. With 160-bit random ids this is statistically
	// impossible but still checked.
	ErrRegistrationFailed = errors.New("client id collision")
)
