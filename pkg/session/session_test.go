package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-cometd/cometd/pkg/identity"
)

func noEvict(identity.ClientID) {}

func newTestSession(t *testing.T, capacity int, maxInterval time.Duration, evict func(identity.ClientID)) *Session {
	t.Helper()
	if evict == nil {
		evict = noEvict
	}
	s := New(identity.GenerateClientID(), identity.GenerateCookieID(), capacity, maxInterval, evict)
	t.Cleanup(s.Close)
	return s
}

func TestEnqueueReceive(t *testing.T) {
	s := newTestSession(t, 4, time.Minute, nil)

	require.NoError(t, s.Enqueue(Delivery{Channel: "/topic", Data: json.RawMessage(`{"n":1}`)}))
	require.NoError(t, s.Enqueue(Delivery{Channel: "/topic", Data: json.RawMessage(`{"n":2}`)}))

	rx, err := s.AcquireReceiver()
	require.NoError(t, err)
	defer rx.Release()

	first, err := rx.ReceiveTimeout(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "/topic", first.Channel)
	assert.JSONEq(t, `{"n":1}`, string(first.Data))

	second, err := rx.ReceiveTimeout(time.Second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":2}`, string(second.Data))
}

func TestReceiveTimeoutElapsed(t *testing.T) {
	s := newTestSession(t, 4, time.Minute, nil)

	rx, err := s.AcquireReceiver()
	require.NoError(t, err)
	defer rx.Release()

	_, err = rx.ReceiveTimeout(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrElapsed)
}

func TestReceiveZeroDeadline(t *testing.T) {
	s := newTestSession(t, 4, time.Minute, nil)

	rx, err := s.AcquireReceiver()
	require.NoError(t, err)
	defer rx.Release()

	// Nothing queued: returns immediately with ErrElapsed.
	start := time.Now()
	_, err = rx.ReceiveTimeout(0)
	assert.ErrorIs(t, err, ErrElapsed)
	assert.Less(t, time.Since(start), time.Second)

	// A buffered message wins over the zero deadline.
	require.NoError(t, s.Enqueue(Delivery{Channel: "/t", Data: json.RawMessage(`1`)}))
	msg, err := rx.ReceiveTimeout(0)
	require.NoError(t, err)
	assert.Equal(t, "/t", msg.Channel)
}

func TestSingleReaderExclusion(t *testing.T) {
	s := newTestSession(t, 4, time.Minute, nil)

	first, err := s.AcquireReceiver()
	require.NoError(t, err)

	_, err = s.AcquireReceiver()
	assert.ErrorIs(t, err, ErrAlreadyLocked)

	first.Release()
	// Release is idempotent.
	first.Release()

	second, err := s.AcquireReceiver()
	require.NoError(t, err)
	second.Release()
}

func TestCloseUnblocksReader(t *testing.T) {
	s := newTestSession(t, 4, time.Minute, nil)

	rx, err := s.AcquireReceiver()
	require.NoError(t, err)
	defer rx.Release()

	errCh := make(chan error, 1)
	go func() {
		_, err := rx.ReceiveTimeout(5 * time.Second)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("reader did not observe close")
	}

	assert.ErrorIs(t, s.Enqueue(Delivery{Channel: "/t"}), ErrClosed)
}

func TestEvictionAfterMaxInterval(t *testing.T) {
	evicted := make(chan identity.ClientID, 1)
	s := newTestSession(t, 4, 30*time.Millisecond, func(id identity.ClientID) {
		evicted <- id
	})

	select {
	case id := <-evicted:
		assert.Equal(t, s.ClientID(), id)
	case <-time.After(time.Second):
		t.Fatal("session was not evicted")
	}
}

func TestLongPollSuspendsEviction(t *testing.T) {
	evicted := make(chan identity.ClientID, 1)
	s := newTestSession(t, 4, 50*time.Millisecond, func(id identity.ClientID) {
		evicted <- id
	})

	rx, err := s.AcquireReceiver()
	require.NoError(t, err)

	// Hold the receiver well past max_interval: no eviction while parked.
	select {
	case <-evicted:
		t.Fatal("evicted while a long-poll held the receiver")
	case <-time.After(150 * time.Millisecond):
	}

	// Releasing restarts the clock from zero; eviction follows.
	rx.Release()
	select {
	case <-evicted:
	case <-time.After(time.Second):
		t.Fatal("session was not evicted after release")
	}
}

func TestStopTerminatesSupervisor(t *testing.T) {
	evicted := make(chan identity.ClientID, 1)
	s := newTestSession(t, 4, 30*time.Millisecond, func(id identity.ClientID) {
		evicted <- id
	})

	s.Close()

	select {
	case <-evicted:
		t.Fatal("closed session must not be evicted")
	case <-time.After(100 * time.Millisecond):
	}
}
