package network

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Scripted selector fake
// --------------------------------------------------------------------------

// fakeSelector is a scriptable Selector. Tests stage the events the next Poll
// should surface; the accessors then report them until the following Poll.
type fakeSelector struct {
	nextID     int
	connectErr error
	pollErr    error

	connects map[ConnectionID]Endpoint // all connects ever initiated
	sends    []NetworkSend             // all sends ever polled
	closed   bool

	// staged events, moved to current by the next Poll
	stagedConnected    []ConnectionID
	stagedDisconnected []ConnectionID
	stagedReceives     []NetworkReceive

	curConnected    []ConnectionID
	curDisconnected []ConnectionID
	curReceives     []NetworkReceive
}

func newFakeSelector() *fakeSelector {
	return &fakeSelector{connects: make(map[ConnectionID]Endpoint)}
}

func (s *fakeSelector) Connect(endpoint Endpoint, _, _ int) (ConnectionID, error) {
	if s.connectErr != nil {
		return "", s.connectErr
	}
	s.nextID++
	id := ConnectionID(fmt.Sprintf("conn-%d", s.nextID))
	s.connects[id] = endpoint
	return id, nil
}

func (s *fakeSelector) Poll(_ time.Duration, sends []NetworkSend) error {
	if s.pollErr != nil {
		err := s.pollErr
		s.pollErr = nil
		return err
	}
	s.sends = append(s.sends, sends...)
	s.curConnected, s.stagedConnected = s.stagedConnected, nil
	s.curDisconnected, s.stagedDisconnected = s.stagedDisconnected, nil
	s.curReceives, s.stagedReceives = s.stagedReceives, nil
	return nil
}

func (s *fakeSelector) Connected() []ConnectionID           { return s.curConnected }
func (s *fakeSelector) Disconnected() []ConnectionID        { return s.curDisconnected }
func (s *fakeSelector) CompletedReceives() []NetworkReceive { return s.curReceives }
func (s *fakeSelector) Close()                              { s.closed = true }

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

var testEndpoint = Endpoint{Host: "localhost", Port: 7000}

func testConfig() common.ClientConfig {
	return common.ClientConfig{
		Network: common.NetworkConf{
			CheckoutTimeoutMs:         1000,
			PollTimeoutMs:             1,
			MaxConnectionsPerEndpoint: 1,
		},
	}
}

func newTestClient(t *testing.T, conf common.ClientConfig) (*NetworkClient, *fakeSelector, *clock.Mock) {
	t.Helper()
	sel := newFakeSelector()
	mock := clock.NewMock()
	return NewNetworkClient(sel, conf, mock), sel, mock
}

// tick runs one dispatch cycle with no new requests and asserts it succeeds
func tick(t *testing.T, c *NetworkClient) []ResponseInfo {
	t.Helper()
	responses, err := c.SendAndPoll(nil)
	require.NoError(t, err)
	return responses
}

// connectRequest submits one request and walks it through connect and checkout
// until it is in flight on the returned connection
func connectRequest(t *testing.T, c *NetworkClient, sel *fakeSelector, req RequestInfo) ConnectionID {
	t.Helper()

	// cycle 1: no connection available, a connect is initiated
	responses, err := c.SendAndPoll([]RequestInfo{req})
	require.NoError(t, err)
	require.Empty(t, responses)
	require.Len(t, sel.connects, 1)

	var connID ConnectionID
	for id := range sel.connects {
		connID = id
	}

	// cycle 2: the connect completes and the connection is checked in. It is
	// never used in the cycle it was created in, checkout happens before poll.
	sel.stagedConnected = []ConnectionID{connID}
	responses = tick(t, c)
	require.Empty(t, responses)
	require.Empty(t, sel.sends)

	// cycle 3: the request is checked out and sent
	responses = tick(t, c)
	require.Empty(t, responses)
	require.Len(t, sel.sends, 1)
	require.Equal(t, connID, sel.sends[0].ConnID)

	return connID
}

// --------------------------------------------------------------------------
// Dispatch cycle tests
// --------------------------------------------------------------------------

func TestRequestLifecycleSuccess(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	req := RequestInfo{Endpoint: testEndpoint, Request: []byte("get blob-1")}
	connID := connectRequest(t, client, sel, req)

	// a connection with an in-flight request is not available for checkout
	assert.Equal(t, 0, client.Tracker().Available(testEndpoint))

	// the response arrives
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("blob-1-data")}}
	responses := tick(t, client)

	require.Len(t, responses, 1)
	assert.Equal(t, NoError, responses[0].Err)
	assert.Equal(t, []byte("blob-1-data"), responses[0].Response)
	assert.Equal(t, []byte("get blob-1"), responses[0].Request.Request)

	// the connection is idle again and no further outcome is ever produced
	assert.Equal(t, 1, client.Tracker().Available(testEndpoint))
	assert.Empty(t, tick(t, client))
}

func TestConnectionIsReused(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	connID := connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("ok")}}
	require.Len(t, tick(t, client), 1)

	// the second request reuses the pooled connection, no second connect
	responses, err := client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r2")}})
	require.NoError(t, err)
	assert.Empty(t, responses)
	assert.Len(t, sel.connects, 1)
	require.Len(t, sel.sends, 2)
	assert.Equal(t, connID, sel.sends[1].ConnID)
}

func TestBackpressureUnderSaturation(t *testing.T) {
	client, sel, mock := newTestClient(t, testConfig())
	defer client.Close()

	// two requests to the same endpoint, pool limit 1
	responses, err := client.SendAndPoll([]RequestInfo{
		{Endpoint: testEndpoint, Request: []byte("r1")},
		{Endpoint: testEndpoint, Request: []byte("r2")},
	})
	require.NoError(t, err)
	assert.Empty(t, responses)

	// only one connect was admitted
	require.Len(t, sel.connects, 1)
	assert.Equal(t, 1, client.Tracker().Total(testEndpoint))

	var connID ConnectionID
	for id := range sel.connects {
		connID = id
	}

	// the connect completes; r1 is dispatched, r2 keeps waiting
	sel.stagedConnected = []ConnectionID{connID}
	assert.Empty(t, tick(t, client))
	assert.Empty(t, tick(t, client))
	require.Len(t, sel.sends, 1)
	assert.Equal(t, []byte("r1"), sel.sends[0].Payload)

	// no response for r1 within the checkout timeout: r2 gives up
	mock.Add(1000 * time.Millisecond)
	responses = tick(t, client)
	require.Len(t, responses, 1)
	assert.Equal(t, ConnectionUnavailable, responses[0].Err)
	assert.Equal(t, []byte("r2"), responses[0].Request.Request)

	// r1 is still in flight and resolves normally
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("ok")}}
	responses = tick(t, client)
	require.Len(t, responses, 1)
	assert.Equal(t, NoError, responses[0].Err)
	assert.Equal(t, []byte("r1"), responses[0].Request.Request)
}

func TestCheckoutTimeoutPrecision(t *testing.T) {
	conf := testConfig()
	conf.Network.MaxConnectionsPerEndpoint = 1
	client, sel, mock := newTestClient(t, conf)
	defer client.Close()

	// the sole connection slot is taken by an in-flight request
	connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})

	// r2 can neither check out nor create
	_, err := client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r2")}})
	require.NoError(t, err)

	// just before the timeout nothing happens
	mock.Add(999 * time.Millisecond)
	assert.Empty(t, tick(t, client))

	// at exactly enqueue time + timeout the request is failed
	mock.Add(1 * time.Millisecond)
	responses := tick(t, client)
	require.Len(t, responses, 1)
	assert.Equal(t, ConnectionUnavailable, responses[0].Err)
	assert.Equal(t, []byte("r2"), responses[0].Request.Request)
}

func TestEvictionPreservesArrivalOrder(t *testing.T) {
	conf := testConfig()
	conf.Network.MaxConnectionsPerEndpoint = 1
	client, sel, mock := newTestClient(t, conf)
	defer client.Close()

	connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})

	// r2 and r3 enqueue 500ms apart
	_, err := client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r2")}})
	require.NoError(t, err)
	mock.Add(500 * time.Millisecond)
	_, err = client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r3")}})
	require.NoError(t, err)

	// r2 expires alone: a younger request never times out before an older one
	mock.Add(500 * time.Millisecond)
	responses := tick(t, client)
	require.Len(t, responses, 1)
	assert.Equal(t, []byte("r2"), responses[0].Request.Request)

	mock.Add(500 * time.Millisecond)
	responses = tick(t, client)
	require.Len(t, responses, 1)
	assert.Equal(t, []byte("r3"), responses[0].Request.Request)
}

func TestDisconnectInFlight(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	connID := connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})

	sel.stagedDisconnected = []ConnectionID{connID}
	responses := tick(t, client)

	// exactly one NetworkError, and the connection left the pool
	require.Len(t, responses, 1)
	assert.Equal(t, NetworkError, responses[0].Err)
	assert.Equal(t, 0, client.Tracker().Total(testEndpoint))
	assert.Empty(t, tick(t, client))
}

func TestDisconnectAndReceiveSamePoll(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	connID := connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})

	// the connection dies in the same poll its response arrives: the
	// disconnect wins, the payload is discarded
	sel.stagedDisconnected = []ConnectionID{connID}
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("too late")}}
	responses := tick(t, client)

	require.Len(t, responses, 1)
	assert.Equal(t, NetworkError, responses[0].Err)
	assert.Equal(t, []byte("r1"), responses[0].Request.Request)

	// the dead connection did not sneak back into the pool
	assert.Equal(t, 0, client.Tracker().Total(testEndpoint))
	assert.Empty(t, tick(t, client))
}

func TestEvictionRunsBeforeCheckout(t *testing.T) {
	conf := testConfig()
	conf.Network.MaxConnectionsPerEndpoint = 1
	client, sel, mock := newTestClient(t, conf)
	defer client.Close()

	connID := connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})

	// r2 queues behind the sole in-flight connection
	_, err := client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r2")}})
	require.NoError(t, err)

	// the connection frees up in the same cycle r2's wait expires. Eviction
	// runs before checkout, so r2 is failed rather than dispatched.
	mock.Add(1000 * time.Millisecond)
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("ok")}}
	responses := tick(t, client)

	require.Len(t, responses, 2)
	assert.Equal(t, ConnectionUnavailable, responses[0].Err)
	assert.Equal(t, []byte("r2"), responses[0].Request.Request)
	assert.Equal(t, NoError, responses[1].Err)
	assert.Equal(t, []byte("r1"), responses[1].Request.Request)

	// r2 was never sent; the freed connection is idle in the pool
	assert.Len(t, sel.sends, 1)
	assert.Equal(t, 1, client.Tracker().Available(testEndpoint))
}

func TestIdleDisconnect(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	connID := connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("ok")}}
	require.Len(t, tick(t, client), 1)
	require.Equal(t, 1, client.Tracker().Available(testEndpoint))

	// the now idle connection drops: silently removed, no outcome
	sel.stagedDisconnected = []ConnectionID{connID}
	assert.Empty(t, tick(t, client))
	assert.Equal(t, 0, client.Tracker().Total(testEndpoint))
}

func TestLateReceiveIsDiscarded(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	connID := connectRequest(t, client, sel, RequestInfo{Endpoint: testEndpoint, Request: []byte("r1")})
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("ok")}}
	require.Len(t, tick(t, client), 1)

	// a second receive for the same connection has no in-flight occupant
	sel.stagedReceives = []NetworkReceive{{ConnID: connID, Payload: []byte("stale")}}
	assert.Empty(t, tick(t, client))

	// the connection stays usable
	assert.Equal(t, 1, client.Tracker().Available(testEndpoint))
}

func TestConnectErrorIsNonFatal(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())
	defer client.Close()

	sel.connectErr = errors.New("no route to host")
	responses, err := client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r1")}})
	require.NoError(t, err)
	assert.Empty(t, responses)
	assert.Equal(t, 0, client.Tracker().Total(testEndpoint))

	// the attempt recovers once connects succeed again
	sel.connectErr = nil
	assert.Empty(t, tick(t, client))
	require.Len(t, sel.connects, 1)
	var connID ConnectionID
	for id := range sel.connects {
		connID = id
	}
	sel.stagedConnected = []ConnectionID{connID}
	assert.Empty(t, tick(t, client))
	assert.Empty(t, tick(t, client))
	require.Len(t, sel.sends, 1)
}

func TestFatalPollFailureClosesClient(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())

	sel.pollErr = errors.New("selector broken")
	_, err := client.SendAndPoll([]RequestInfo{{Endpoint: testEndpoint, Request: []byte("r1")}})
	require.Error(t, err)
	assert.True(t, sel.closed)

	// every later call fails immediately without touching the selector
	sends := len(sel.sends)
	_, err = client.SendAndPoll(nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Len(t, sel.sends, sends)
}

func TestCloseIsIdempotent(t *testing.T) {
	client, sel, _ := newTestClient(t, testConfig())

	client.Close()
	client.Close()
	assert.True(t, sel.closed)

	_, err := client.SendAndPoll(nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFailFastOnPoolExhaustion(t *testing.T) {
	conf := testConfig()
	conf.Network.FailFastOnPoolExhaustion = true
	client, sel, _ := newTestClient(t, conf)
	defer client.Close()

	// r1 admits the only connect, r2 fails in the same cycle
	responses, err := client.SendAndPoll([]RequestInfo{
		{Endpoint: testEndpoint, Request: []byte("r1")},
		{Endpoint: testEndpoint, Request: []byte("r2")},
	})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, ConnectionUnavailable, responses[0].Err)
	assert.Equal(t, []byte("r2"), responses[0].Request.Request)
	require.Len(t, sel.connects, 1)
}

func TestEndpointsArePooledIndependently(t *testing.T) {
	conf := testConfig()
	client, sel, _ := newTestClient(t, conf)
	defer client.Close()

	other := Endpoint{Host: "localhost", Port: 7001}
	responses, err := client.SendAndPoll([]RequestInfo{
		{Endpoint: testEndpoint, Request: []byte("r1")},
		{Endpoint: other, Request: []byte("r2")},
	})
	require.NoError(t, err)
	assert.Empty(t, responses)

	// one connect per endpoint despite the per-endpoint limit of 1
	assert.Len(t, sel.connects, 2)
	assert.Equal(t, 1, client.Tracker().Total(testEndpoint))
	assert.Equal(t, 1, client.Tracker().Total(other))
}
