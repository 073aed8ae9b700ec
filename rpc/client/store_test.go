package client

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/ValentinKolb/dBlob/rpc/serializer"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Server
//
// A minimal in-memory blob server speaking the 4-byte length-prefixed frame
// protocol, used to exercise the full client stack over real sockets.
// --------------------------------------------------------------------------

type blobServer struct {
	listener net.Listener
	ser      serializer.IRPCSerializer

	mu    sync.Mutex
	blobs map[string][]byte

	// when set, the server accepts connections but never answers
	stall bool
}

func newBlobServer(t *testing.T) *blobServer {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &blobServer{
		listener: listener,
		ser:      serializer.NewBinarySerializer(),
		blobs:    make(map[string][]byte),
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go srv.serve(conn)
		}
	}()

	return srv
}

func (s *blobServer) addr() string {
	return s.listener.Addr().String()
}

func (s *blobServer) close() {
	_ = s.listener.Close()
}

func (s *blobServer) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	for {
		payload, err := readTestFrame(conn)
		if err != nil {
			return
		}
		if s.stall {
			continue
		}

		req := &common.Message{}
		if err := s.ser.Deserialize(payload, req); err != nil {
			return
		}

		respBytes, err := s.ser.Serialize(*s.handle(req))
		if err != nil {
			return
		}
		if err := writeTestFrame(conn, respBytes); err != nil {
			return
		}
	}
}

func (s *blobServer) handle(req *common.Message) *common.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.MsgType {
	case common.MsgTPut:
		if req.BlobID == "" {
			return common.NewErrorResponse("empty blob id")
		}
		s.blobs[req.BlobID] = req.Value
		return common.NewPutResponse(nil)
	case common.MsgTGet:
		value, ok := s.blobs[req.BlobID]
		return common.NewGetResponse(value, ok, nil)
	case common.MsgTDelete:
		_, ok := s.blobs[req.BlobID]
		delete(s.blobs, req.BlobID)
		return common.NewDeleteResponse(ok, nil)
	case common.MsgTTTL:
		_, ok := s.blobs[req.BlobID]
		return common.NewTTLResponse(ok, nil)
	default:
		return common.NewErrorResponse(fmt.Sprintf("unsupported message type: %s", req.MsgType))
	}
}

func readTestFrame(conn net.Conn) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	payload := make([]byte, binary.BigEndian.Uint32(header[:]))
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func writeTestFrame(conn net.Conn, payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := conn.Write(header[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func newTestStore(t *testing.T, srv *blobServer, timeoutSecond int) IBlobStore {
	store, err := NewRemoteStore(common.ClientConfig{
		Endpoints:     []string{srv.addr()},
		TimeoutSecond: timeoutSecond,
		Network: common.NetworkConf{
			CheckoutTimeoutMs: 500,
			PollTimeoutMs:     1,
		},
	}, serializer.NewBinarySerializer())
	require.NoError(t, err)
	return store
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestPutGetDeleteLifecycle(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	defer srv.close()
	store := newTestStore(t, srv, 5)
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "blob-1", []byte("hello"), 0))

	value, found, err := store.Get(ctx, "blob-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("hello"), value)

	found, err = store.Delete(ctx, "blob-1")
	require.NoError(t, err)
	assert.True(t, found)

	_, found, err = store.Get(ctx, "blob-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGetMissingBlob(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	defer srv.close()
	store := newTestStore(t, srv, 5)
	defer func() { _ = store.Close() }()

	value, found, err := store.Get(context.Background(), "no-such-blob")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestUpdateTTL(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	defer srv.close()
	store := newTestStore(t, srv, 5)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "blob-1", []byte("x"), 60))

	found, err := store.UpdateTTL(ctx, "blob-1", 120)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = store.UpdateTTL(ctx, "no-such-blob", 120)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemoteErrorIsSurfaced(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	defer srv.close()
	store := newTestStore(t, srv, 5)
	defer func() { _ = store.Close() }()

	err := store.Put(context.Background(), "", []byte("x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty blob id")
}

func TestConcurrentRequests(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	defer srv.close()
	store := newTestStore(t, srv, 5)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("blob-%d", i)
			assert.NoError(t, store.Put(ctx, id, []byte(id), 0))
			value, found, err := store.Get(ctx, id)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, []byte(id), value)
		}(i)
	}
	wg.Wait()
}

func TestClientTimeout(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	srv.stall = true
	defer srv.close()
	store := newTestStore(t, srv, 1)
	defer func() { _ = store.Close() }()

	err := store.Put(context.Background(), "blob-1", []byte("x"), 0)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestContextCancellation(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	srv.stall = true
	defer srv.close()
	store := newTestStore(t, srv, 30)
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := store.Put(ctx, "blob-1", []byte("x"), 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnreachableEndpoint(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	// a closed listener gives us a port nothing is listening on
	srv := newBlobServer(t)
	addr := srv.addr()
	srv.close()

	store, err := NewRemoteStore(common.ClientConfig{
		Endpoints:     []string{addr},
		TimeoutSecond: 5,
		Network: common.NetworkConf{
			CheckoutTimeoutMs: 200,
			PollTimeoutMs:     1,
		},
	}, serializer.NewBinarySerializer())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	err = store.Put(context.Background(), "blob-1", []byte("x"), 0)
	require.Error(t, err)
}

func TestOperationsAfterClose(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	srv := newBlobServer(t)
	defer srv.close()
	store := newTestStore(t, srv, 5)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close()) // Close is idempotent

	err := store.Put(context.Background(), "blob-1", []byte("x"), 0)
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestInvalidEndpointIsRejected(t *testing.T) {
	_, err := NewRemoteStore(common.ClientConfig{
		Endpoints: []string{"not-an-endpoint"},
	}, serializer.NewBinarySerializer())
	require.Error(t, err)

	_, err = NewRemoteStore(common.ClientConfig{}, serializer.NewBinarySerializer())
	require.Error(t, err)
}
