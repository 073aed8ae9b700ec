package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/ValentinKolb/dBlob/rpc/network"
	"github.com/ValentinKolb/dBlob/rpc/selector"
	"github.com/ValentinKolb/dBlob/rpc/serializer"
)

// outcome is what the dispatch loop hands back to a waiting caller
type outcome struct {
	resp network.ResponseInfo
	err  error
}

// call is one caller-submitted request waiting for its outcome
type call struct {
	req  network.RequestInfo
	done chan outcome
}

// remoteStore implements IBlobStore on top of a NetworkClient. The engine is
// single-owner, so all SendAndPoll calls happen in the dispatchLoop goroutine;
// callers communicate with it only through submitCh and the per-call channels.
type remoteStore struct {
	conf       common.ClientConfig
	serializer serializer.IRPCSerializer
	endpoints  []network.Endpoint
	nextEP     uint64 // atomic counter for round robin

	net      *network.NetworkClient
	submitCh chan *call
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewRemoteStore creates a blob store client for the configured endpoints.
func NewRemoteStore(conf common.ClientConfig, ser serializer.IRPCSerializer) (IBlobStore, error) {
	conf = conf.WithDefaults()

	if len(conf.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints provided")
	}
	endpoints := make([]network.Endpoint, 0, len(conf.Endpoints))
	for _, raw := range conf.Endpoints {
		endpoint, err := network.ParseEndpoint(raw)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, endpoint)
	}

	rs := &remoteStore{
		conf:       conf,
		serializer: ser,
		endpoints:  endpoints,
		net:        network.NewNetworkClient(selector.New(), conf, nil),
		submitCh:   make(chan *call, 256),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	go rs.dispatchLoop()

	Logger.Infof("blob store client created for %d endpoint(s)", len(endpoints))
	return rs, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (rs *remoteStore) Put(ctx context.Context, blobID string, value []byte, ttlSecs uint64) error {
	req := common.NewPutRequest(blobID, value, ttlSecs)
	_, err := rs.roundTrip(ctx, req)
	return err
}

func (rs *remoteStore) Get(ctx context.Context, blobID string) ([]byte, bool, error) {
	req := common.NewGetRequest(blobID)
	resp, err := rs.roundTrip(ctx, req)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (rs *remoteStore) Delete(ctx context.Context, blobID string) (bool, error) {
	req := common.NewDeleteRequest(blobID)
	resp, err := rs.roundTrip(ctx, req)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (rs *remoteStore) UpdateTTL(ctx context.Context, blobID string, ttlSecs uint64) (bool, error) {
	req := common.NewTTLRequest(blobID, ttlSecs)
	resp, err := rs.roundTrip(ctx, req)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (rs *remoteStore) Close() error {
	rs.stopOnce.Do(func() {
		close(rs.stopCh)
	})
	<-rs.doneCh
	return nil
}

// --------------------------------------------------------------------------
// Dispatch loop
// --------------------------------------------------------------------------

// dispatchLoop owns the NetworkClient and drives its dispatch cycle until the
// client is closed or the engine fails fatally.
func (rs *remoteStore) dispatchLoop() {
	defer close(rs.doneCh)

	// waiters maps the requests currently inside the engine to their callers
	waiters := make(map[*network.RequestInfo]*call)

	for {
		select {
		case <-rs.stopCh:
			rs.net.Close()
			rs.failAll(waiters, ErrClientClosed)
			return
		default:
		}

		// Gather new submissions without blocking the cycle
		var calls []*call
	drain:
		for {
			select {
			case c := <-rs.submitCh:
				calls = append(calls, c)
			default:
				break drain
			}
		}

		// The engine keys outcomes by request pointer, so the slice handed to
		// SendAndPoll is what the waiters are registered under
		reqs := make([]network.RequestInfo, len(calls))
		for i, c := range calls {
			reqs[i] = c.req
		}
		for i := range reqs {
			waiters[&reqs[i]] = calls[i]
		}

		responses, err := rs.net.SendAndPoll(reqs)
		for _, resp := range responses {
			if c, ok := waiters[resp.Request]; ok {
				delete(waiters, resp.Request)
				c.done <- outcome{resp: resp}
			}
		}

		if err != nil {
			Logger.Errorf("network engine failed, closing blob store client: %v", err)
			rs.failAll(waiters, err)
			return
		}
	}
}

// failAll resolves every waiting and still queued call with the given error
func (rs *remoteStore) failAll(waiters map[*network.RequestInfo]*call, err error) {
	for req, c := range waiters {
		delete(waiters, req)
		c.done <- outcome{err: err}
	}
	for {
		select {
		case c := <-rs.submitCh:
			c.done <- outcome{err: err}
		default:
			return
		}
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// pickEndpoint selects the next endpoint via Round Robin
func (rs *remoteStore) pickEndpoint() network.Endpoint {
	if len(rs.endpoints) == 1 {
		return rs.endpoints[0]
	}
	index := atomic.AddUint64(&rs.nextEP, 1) % uint64(len(rs.endpoints))
	return rs.endpoints[index]
}

// roundTrip serializes the request, submits it to the dispatch loop and waits
// for its outcome, the context or the configured client timeout.
func (rs *remoteStore) roundTrip(ctx context.Context, req *common.Message) (*common.Message, error) {
	b, err := rs.serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	c := &call{
		req:  network.RequestInfo{Endpoint: rs.pickEndpoint(), Request: b},
		done: make(chan outcome, 1),
	}

	// refuse new requests once the client is closing, the select below could
	// otherwise pick the buffered submit over the closed stop channel
	select {
	case <-rs.stopCh:
		return nil, ErrClientClosed
	case <-rs.doneCh:
		return nil, ErrClientClosed
	default:
	}

	select {
	case rs.submitCh <- c:
	case <-rs.stopCh:
		return nil, ErrClientClosed
	case <-rs.doneCh:
		return nil, ErrClientClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var timeoutCh <-chan time.Time
	if rs.conf.TimeoutSecond > 0 {
		timer := time.NewTimer(time.Duration(rs.conf.TimeoutSecond) * time.Second)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case out := <-c.done:
		if out.err != nil {
			return nil, out.err
		}
		return rs.decodeResponse(req, out.resp)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeoutCh:
		return nil, ErrTimeout
	}
}
