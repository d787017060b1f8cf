package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-cometd/cometd/pkg/broker"
	"github.com/go-cometd/cometd/pkg/identity"
	"github.com/go-cometd/cometd/pkg/protocol/bayeux"
)

type testServer struct {
	*httptest.Server
	broker *broker.Context
	client *http.Client
}

func newTestServer(t *testing.T, opts broker.Options) *testServer {
	t.Helper()
	if opts.Timeout == 0 {
		opts.Timeout = 150 * time.Millisecond
	}
	brk := broker.New(opts, nil)
	t.Cleanup(brk.Close)

	srv := httptest.NewServer(NewRouter(Config{BasePath: "/"}, brk, nil))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testServer{
		Server: srv,
		broker: brk,
		client: &http.Client{Jar: jar},
	}
}

func (s *testServer) post(t *testing.T, path, body string) (*http.Response, []bayeux.Message) {
	t.Helper()
	resp, err := s.client.Post(s.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var msgs []bayeux.Message
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	}
	return resp, msgs
}

func (s *testServer) handshake(t *testing.T) string {
	t.Helper()
	resp, msgs := s.post(t, "/handshake",
		`[{"id":"1","channel":"/meta/handshake","version":"1.0","minimumVersion":"1.0","supportedConnectionTypes":["long-polling"]}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsSuccessful())
	require.NotEmpty(t, msgs[0].ClientID)
	return msgs[0].ClientID
}

func TestHandshakeThenConnect(t *testing.T) {
	s := newTestServer(t, broker.Options{})

	resp, msgs := s.post(t, "/handshake",
		`[{"id":"1","channel":"/meta/handshake","version":"1.0","minimumVersion":"1.0","supportedConnectionTypes":["long-polling"]}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)

	reply := msgs[0]
	assert.True(t, reply.IsSuccessful())
	assert.Equal(t, "1", reply.ID)
	assert.Equal(t, "/meta/handshake", reply.Channel)
	assert.Equal(t, "1.0", reply.Version)
	assert.Equal(t, []string{"long-polling"}, reply.SupportedConnectionTypes)
	require.NotNil(t, reply.Advice)
	assert.Equal(t, bayeux.ReconnectRetry, reply.Advice.Reconnect)

	_, err := identity.ParseClientID(reply.ClientID)
	require.NoError(t, err)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "BAYEUX_BROWSER" {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "handshake must set the BAYEUX_BROWSER cookie")
	_, err = identity.ParseCookieID(cookie.Value)
	require.NoError(t, err)

	// Empty long-poll: times out and advises retry.
	resp, msgs = s.post(t, "/connect",
		fmt.Sprintf(`[{"id":"2","channel":"/meta/connect","clientId":%q,"advice":{"timeout":50}}]`, reply.ClientID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsSuccessful())
	assert.Equal(t, "2", msgs[0].ID)
	require.NotNil(t, msgs[0].Advice)
	assert.Equal(t, bayeux.ReconnectRetry, msgs[0].Advice.Reconnect)
}

func TestHandshakeWrongMinimumVersion(t *testing.T) {
	s := newTestServer(t, broker.Options{})

	resp, msgs := s.post(t, "/handshake",
		`[{"id":"1","channel":"/meta/handshake","minimumVersion":"2.0"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsSuccessful())
	assert.Equal(t, "400::minimum_version_missing", msgs[0].Error)
	assert.Equal(t, "2.0", msgs[0].MinimumVersion)
}

func TestSubscribeThenReceivePublished(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	clientID := s.handshake(t)

	resp, msgs := s.post(t, "/",
		fmt.Sprintf(`[{"id":"2","channel":"/meta/subscribe","clientId":%q,"subscription":"/topic"}]`, clientID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsSuccessful())
	assert.Equal(t, bayeux.SubscriptionList{"/topic"}, msgs[0].Subscription)

	require.NoError(t, s.broker.Publish("/topic", json.RawMessage(`{"msg":"hi"}`)))

	resp, msgs = s.post(t, "/connect",
		fmt.Sprintf(`[{"id":"3","channel":"/meta/connect","clientId":%q}]`, clientID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 2)
	assert.Equal(t, "/topic", msgs[0].Channel)
	assert.JSONEq(t, `{"msg":"hi"}`, string(msgs[0].Data))
	assert.True(t, msgs[1].IsSuccessful())
	assert.Equal(t, "3", msgs[1].ID)
	assert.Equal(t, "/meta/connect", msgs[1].Channel)
}

func TestPublishBatchOverConnect(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	publisher := s.handshake(t)
	clientID := publisher

	_, msgs := s.post(t, "/",
		fmt.Sprintf(`[{"id":"2","channel":"/meta/subscribe","clientId":%q,"subscription":["/news/**"]}]`, clientID))
	require.True(t, msgs[0].IsSuccessful())

	resp, msgs := s.post(t, "/connect",
		fmt.Sprintf(`[{"id":"3","channel":"/news/sport/cricket","clientId":%q,"data":{"over":1}}]`, publisher))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsSuccessful())
	assert.Equal(t, "/news/sport/cricket", msgs[0].Channel)

	_, msgs = s.post(t, "/connect",
		fmt.Sprintf(`[{"id":"4","channel":"/meta/connect","clientId":%q}]`, clientID))
	require.Len(t, msgs, 2)
	// The delivery names the channel published on, not the wildcard
	// subscription that matched it.
	assert.Equal(t, "/news/sport/cricket", msgs[0].Channel)
	assert.JSONEq(t, `{"over":1}`, string(msgs[0].Data))
}

func TestPublishBatchRejectsMetaChannels(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	clientID := s.handshake(t)

	body := fmt.Sprintf(`[
		{"id":"2","channel":"/ok","clientId":%q,"data":1},
		{"id":"3","channel":"/nested/meta/x","clientId":%q,"data":2}
	]`, clientID, clientID)
	resp, _ := s.post(t, "/connect", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublishBatchPerMessageErrors(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	clientID := s.handshake(t)

	body := fmt.Sprintf(`[
		{"id":"2","clientId":%q,"data":1},
		{"id":"3","channel":"/a","data":2},
		{"id":"4","channel":"/b","clientId":%q,"data":3}
	]`, clientID, clientID)
	resp, msgs := s.post(t, "/connect", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 3)

	assert.Equal(t, "400::channel_missing", msgs[0].Error)
	assert.Equal(t, "402::session_unknown", msgs[1].Error)
	require.NotNil(t, msgs[1].Advice)
	assert.Equal(t, bayeux.ReconnectHandshake, msgs[1].Advice.Reconnect)
	assert.True(t, msgs[2].IsSuccessful())
}

func TestConnectUnknownClient(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	s.handshake(t)

	unknown := identity.GenerateClientID().String()
	resp, msgs := s.post(t, "/connect",
		fmt.Sprintf(`[{"id":"2","channel":"/meta/connect","clientId":%q}]`, unknown))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.Equal(t, "402::session_unknown", msgs[0].Error)
	require.NotNil(t, msgs[0].Advice)
	assert.Equal(t, bayeux.ReconnectHandshake, msgs[0].Advice.Reconnect)
}

func TestConnectWithoutCookie(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	clientID := s.handshake(t)

	// Same clientId, no cookie jar: must be refused.
	bare := &http.Client{}
	resp, err := bare.Post(s.URL+"/connect", "application/json",
		strings.NewReader(fmt.Sprintf(`[{"id":"2","channel":"/meta/connect","clientId":%q}]`, clientID)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var msgs []bayeux.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "402::session_unknown", msgs[0].Error)
}

func TestDoubleConnectSameSession(t *testing.T) {
	s := newTestServer(t, broker.Options{Timeout: 300 * time.Millisecond})
	clientID := s.handshake(t)

	body := fmt.Sprintf(`[{"id":"2","channel":"/meta/connect","clientId":%q}]`, clientID)

	first := make(chan string, 1)
	go func() {
		resp, err := s.client.Post(s.URL+"/connect", "application/json", strings.NewReader(body))
		if err != nil {
			first <- err.Error()
			return
		}
		defer resp.Body.Close()
		var msgs []bayeux.Message
		if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil || len(msgs) != 1 {
			first <- "bad response"
			return
		}
		first <- msgs[0].Error
	}()

	// Give the first poll time to park, then collide with it.
	time.Sleep(50 * time.Millisecond)
	resp, msgs := s.post(t, "/connect", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Two connection with same client_id.", msgs[0].Error)

	select {
	case errText := <-first:
		assert.Empty(t, errText, "parked poll must complete normally")
	case <-time.After(2 * time.Second):
		t.Fatal("parked poll never returned")
	}
}

func TestSubscribeErrors(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	clientID := s.handshake(t)

	t.Run("missing subscription", func(t *testing.T) {
		resp, msgs := s.post(t, "/",
			fmt.Sprintf(`[{"id":"2","channel":"/meta/subscribe","clientId":%q}]`, clientID))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "403::subscription_missing", msgs[0].Error)
	})

	t.Run("empty subscription array", func(t *testing.T) {
		resp, msgs := s.post(t, "/",
			fmt.Sprintf(`[{"id":"2","channel":"/meta/subscribe","clientId":%q,"subscription":[]}]`, clientID))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "403::subscription_missing", msgs[0].Error)
	})

	t.Run("invalid channel name", func(t *testing.T) {
		resp, _ := s.post(t, "/",
			fmt.Sprintf(`[{"id":"2","channel":"/meta/subscribe","clientId":%q,"subscription":"no-slash"}]`, clientID))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown client", func(t *testing.T) {
		resp, msgs := s.post(t, "/",
			fmt.Sprintf(`[{"id":"2","channel":"/meta/subscribe","clientId":%q,"subscription":"/t"}]`,
				identity.GenerateClientID().String()))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "402::session_unknown", msgs[0].Error)
	})
}

func TestDisconnect(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	clientID := s.handshake(t)

	resp, _ := s.post(t, "/disconnect",
		fmt.Sprintf(`[{"id":"2","channel":"/meta/disconnect","clientId":%q}]`, clientID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The session is gone: a later connect must be refused.
	resp, msgs := s.post(t, "/connect",
		fmt.Sprintf(`[{"id":"3","channel":"/meta/connect","clientId":%q}]`, clientID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, msgs, 1)
	assert.Equal(t, "402::session_unknown", msgs[0].Error)
}

func TestCustomBasePaths(t *testing.T) {
	brk := broker.New(broker.Options{Timeout: 100 * time.Millisecond}, nil)
	t.Cleanup(brk.Close)

	router := NewRouter(Config{
		BasePath:          "/bayeux",
		HandshakeBasePath: "/hs",
	}, brk, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Post(srv.URL+"/hs/handshake", "application/json",
		strings.NewReader(`[{"id":"1","channel":"/meta/handshake","minimumVersion":"1.0"}]`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var msgs []bayeux.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsSuccessful())

	// The default base still serves the others.
	resp, err = client.Post(srv.URL+"/bayeux/connect", "application/json",
		strings.NewReader(fmt.Sprintf(`[{"id":"2","channel":"/meta/connect","clientId":%q}]`, msgs[0].ClientID)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, broker.Options{})
	s.handshake(t)

	resp, err := s.client.Get(s.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["sessions"])
}
