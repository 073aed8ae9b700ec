package network

import (
	"time"

	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/benbjohnson/clock"
	"github.com/edwingeng/deque/v2"
	"github.com/lni/dragonboat/v4/logger"
)

var netLogger = logger.GetLogger("network")

// NetworkClient sends serialized requests to blob store endpoints and collects
// their responses. Requests that cannot be sent immediately are queued and
// retried on subsequent SendAndPoll calls until they are sent or time out.
//
// A NetworkClient must be driven by a single goroutine; see the package
// documentation for the concurrency model.
type NetworkClient struct {
	selector Selector
	tracker  *ConnectionTracker
	conf     common.ClientConfig
	clock    clock.Clock

	pending  *deque.Deque[*pendingRequest]
	inFlight map[ConnectionID]*pendingRequest

	checkoutTimeout time.Duration
	pollTimeout     time.Duration
	closed          bool
}

// NewNetworkClient creates a NetworkClient on top of the given selector.
// A nil clk selects the wall clock; tests pass a mock to control time.
func NewNetworkClient(selector Selector, conf common.ClientConfig, clk clock.Clock) *NetworkClient {
	conf = conf.WithDefaults()
	if clk == nil {
		clk = clock.New()
	}

	return &NetworkClient{
		selector:        selector,
		tracker:         NewConnectionTracker(conf.Network.MaxConnectionsPerEndpoint),
		conf:            conf,
		clock:           clk,
		pending:         deque.NewDeque[*pendingRequest](),
		inFlight:        make(map[ConnectionID]*pendingRequest),
		checkoutTimeout: time.Duration(conf.Network.CheckoutTimeoutMs) * time.Millisecond,
		pollTimeout:     time.Duration(conf.Network.PollTimeoutMs) * time.Millisecond,
	}
}

// Tracker exposes the client's connection pool for introspection.
func (c *NetworkClient) Tracker() *ConnectionTracker {
	return c.tracker
}

// SendAndPoll runs one dispatch cycle: it queues the given requests, attempts
// to send queued requests (or times them out), polls the selector once with a
// bounded timeout and returns the outcomes resolved during this call. The
// returned outcomes may belong to requests submitted in earlier calls, and
// requests submitted now may resolve in later calls.
//
// If the selector itself fails the client closes permanently and the error is
// returned alongside the outcomes gathered so far; every subsequent call
// returns ErrClosed without attempting I/O.
func (c *NetworkClient) SendAndPoll(requests []RequestInfo) ([]ResponseInfo, error) {
	if c.closed {
		return nil, ErrClosed
	}

	var responses []ResponseInfo

	now := c.clock.Now()
	for i := range requests {
		c.pending.PushBack(&pendingRequest{queuedAt: now, req: &requests[i]})
		metricRequestsQueued.Inc()
	}

	sends := c.prepareSends(&responses)

	if err := c.selector.Poll(c.pollTimeout, sends); err != nil {
		netLogger.Errorf("selector poll failed, closing network client: %v", err)
		c.Close()
		return responses, err
	}
	c.handleSelectorEvents(&responses)

	return responses, nil
}

// Close closes the client: the selector is released and all pooled
// connections are dropped. Close is idempotent, and any SendAndPoll after it
// fails with ErrClosed.
func (c *NetworkClient) Close() {
	if c.closed {
		return
	}
	c.selector.Close()
	c.tracker.Shutdown()
	c.closed = true
}

// --------------------------------------------------------------------------
// Dispatch cycle internals
// --------------------------------------------------------------------------

// prepareSends processes the pending queue: requests that waited past the
// checkout timeout are failed with ConnectionUnavailable, the rest are
// attempted front-to-back and, where a connection could be checked out, turned
// into sends for the selector.
func (c *NetworkClient) prepareSends(responses *[]ResponseInfo) []NetworkSend {
	var sends []NetworkSend
	now := c.clock.Now()

	// Drop requests that have waited too long. The queue is ordered by
	// enqueue time, so the scan stops at the first survivor.
	for c.pending.Len() > 0 {
		pr, _ := c.pending.Front()
		if now.Sub(pr.queuedAt) < c.checkoutTimeout {
			break
		}
		c.pending.PopFront()
		*responses = append(*responses, ResponseInfo{Request: pr.req, Err: ConnectionUnavailable})
		metricCheckoutTimeouts.Inc()
	}

	// One checkout pass over the survivors, in arrival order. Requests that
	// cannot be dispatched cycle back to the tail, which preserves their
	// relative order.
	for n := c.pending.Len(); n > 0; n-- {
		pr := c.pending.PopFront()

		connID, ok := c.tracker.CheckOut(pr.req.Endpoint)
		if !ok {
			if c.tracker.MayCreate(pr.req.Endpoint) {
				// Ask the selector to start a non-blocking connect. The new
				// connection is only usable in a later cycle, once the
				// selector reports it connected.
				id, err := c.selector.Connect(pr.req.Endpoint,
					c.conf.Socket.SendBufferBytes, c.conf.Socket.RecvBufferBytes)
				if err != nil {
					// Local failure of this attempt only: the request stays
					// queued to retry or eventually time out.
					netLogger.Errorf("failed to initiate connection to %s: %v", pr.req.Endpoint, err)
				} else {
					c.tracker.RegisterCreating(pr.req.Endpoint, id)
					metricConnectionsCreated.Inc()
				}
			} else if c.conf.Network.FailFastOnPoolExhaustion {
				// Policy switch: fail now instead of queueing until the
				// checkout timeout.
				*responses = append(*responses, ResponseInfo{Request: pr.req, Err: ConnectionUnavailable})
				metricCheckoutTimeouts.Inc()
				continue
			}
			c.pending.PushBack(pr)
			continue
		}

		sends = append(sends, NetworkSend{ConnID: connID, Payload: pr.req.Request})
		c.inFlight[connID] = pr
	}

	return sends
}

// handleSelectorEvents reconciles the events of the last poll with the pool
// and the in-flight table, appending an outcome for every request resolved.
func (c *NetworkClient) handleSelectorEvents(responses *[]ResponseInfo) {
	for _, connID := range c.selector.Connected() {
		c.tracker.CheckIn(connID)
	}

	for _, connID := range c.selector.Disconnected() {
		c.tracker.Remove(connID)
		metricConnectionsDropped.Inc()
		if pr, ok := c.inFlight[connID]; ok {
			delete(c.inFlight, connID)
			*responses = append(*responses, ResponseInfo{Request: pr.req, Err: NetworkError})
			metricNetworkErrors.Inc()
		}
		// An idle connection dropping produces no outcome
	}

	for _, recv := range c.selector.CompletedReceives() {
		c.tracker.CheckIn(recv.ConnID)
		pr, ok := c.inFlight[recv.ConnID]
		if !ok {
			// The request already timed out and was reported; the late payload
			// is dropped on purpose.
			netLogger.Debugf("discarding response on %s for a request that timed out", recv.ConnID)
			metricLateResponses.Inc()
			continue
		}
		delete(c.inFlight, recv.ConnID)
		*responses = append(*responses, ResponseInfo{Request: pr.req, Response: recv.Payload})
		metricResponsesReceived.Inc()
	}
}
