package broker

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, rx *EventReceiver) Event {
	t.Helper()
	select {
	case ev, ok := <-rx.C():
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event within deadline")
		return nil
	}
}

func TestEventLifecycleOrdering(t *testing.T) {
	c := newTestContext(t, Options{})
	rx := c.Events()
	defer rx.Cancel()

	clientID := register(t, c)
	c.Subscribe(clientID, http.Header{}, []string{"/a", "/b"})
	c.Unsubscribe(clientID)

	added, ok := nextEvent(t, rx).(SessionAdded)
	require.True(t, ok)
	assert.Equal(t, clientID, added.ClientID)

	sub, ok := nextEvent(t, rx).(Subscribed)
	require.True(t, ok)
	assert.Equal(t, clientID, sub.ClientID)
	assert.Equal(t, []string{"/a", "/b"}, sub.Channels)

	removed, ok := nextEvent(t, rx).(SessionRemoved)
	require.True(t, ok)
	assert.Equal(t, clientID, removed.ClientID)
}

func TestNoSessionRemovedForUnknownClient(t *testing.T) {
	c := newTestContext(t, Options{})
	rx := c.Events()
	defer rx.Cancel()

	clientID := register(t, c)
	nextEvent(t, rx) // SessionAdded

	c.Unsubscribe(clientID)
	nextEvent(t, rx) // SessionRemoved

	// A second Unsubscribe finds nothing and must stay silent.
	c.Unsubscribe(clientID)
	select {
	case ev := <-rx.C():
		t.Fatalf("unexpected event %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCustomData(t *testing.T) {
	c := newTestContext(t, Options{})
	rx := c.Events()
	defer rx.Cancel()

	c.PostCustomData(map[string]int{"n": 7})

	ev, ok := nextEvent(t, rx).(CustomData)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"n": 7}, ev.Data)
}

func TestSlowObserverDropsOldest(t *testing.T) {
	c := newTestContext(t, Options{EventsChannelCapacity: 2})
	rx := c.Events()
	defer rx.Cancel()

	c.PostCustomData(1)
	c.PostCustomData(2)
	c.PostCustomData(3)

	first, ok := nextEvent(t, rx).(CustomData)
	require.True(t, ok)
	assert.Equal(t, 2, first.Data)

	second, ok := nextEvent(t, rx).(CustomData)
	require.True(t, ok)
	assert.Equal(t, 3, second.Data)
}

func TestCancelClosesChannel(t *testing.T) {
	c := newTestContext(t, Options{})
	rx := c.Events()
	rx.Cancel()
	rx.Cancel() // idempotent

	_, ok := <-rx.C()
	assert.False(t, ok)
}

func TestCloseClosesObservers(t *testing.T) {
	c := New(Options{}, nil)
	rx := c.Events()
	c.Close()

	_, ok := <-rx.C()
	assert.False(t, ok)
}
