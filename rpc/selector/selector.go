package selector

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dBlob/rpc/network"
	"github.com/ValentinKolb/dBlob/rpc/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var selLogger = logger.GetLogger("selector")

// ErrSelectorClosed is the fatal error Poll returns once the selector has
// been closed.
var ErrSelectorClosed = errors.New("selector is closed")

// dialTimeout bounds how long a dial goroutine may linger; it also bounds how
// long Close waits for in-progress dials.
const dialTimeout = 5 * time.Second

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

type eventKind uint8

const (
	evConnected eventKind = iota
	evDisconnected
	evReceive
)

// event is what dial and reader goroutines push into the MPSC queue for the
// poll loop to pick up.
type event struct {
	kind    eventKind
	connID  network.ConnectionID
	payload []byte // only set for evReceive
}

// --------------------------------------------------------------------------
// Connection
// --------------------------------------------------------------------------

// connection is one TCP connection managed by the selector. conn is set by
// the dial goroutine before the connected event is pushed and read by the
// writer and reader afterwards.
type connection struct {
	id   network.ConnectionID
	conn atomic.Pointer[net.TCPConn]
}

// --------------------------------------------------------------------------
// Selector
// --------------------------------------------------------------------------

// Selector implements network.Selector over TCP.
type Selector struct {
	events *util.LockFreeMPSC[event]
	conns  *xsync.MapOf[network.ConnectionID, *connection]
	nextID uint64
	closed atomic.Bool
	wg     sync.WaitGroup

	// event sets of the last poll, owned by the polling goroutine
	connected    []network.ConnectionID
	disconnected []network.ConnectionID
	receives     []network.NetworkReceive
}

// New creates a TCP selector.
func New() *Selector {
	return &Selector{
		events: util.NewLockFreeMPSC[event](),
		conns:  xsync.NewMapOf[network.ConnectionID, *connection](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see network.Selector)
// --------------------------------------------------------------------------

func (s *Selector) Connect(endpoint network.Endpoint, sendBufBytes, recvBufBytes int) (network.ConnectionID, error) {
	if s.closed.Load() {
		return "", ErrSelectorClosed
	}
	if endpoint.PortType != network.PlainText {
		return "", fmt.Errorf("unsupported port type %s", endpoint.PortType)
	}

	id := network.ConnectionID(fmt.Sprintf("%s-%d", endpoint, atomic.AddUint64(&s.nextID, 1)))
	c := &connection{id: id}
	s.conns.Store(id, c)

	// Dial off the dispatch goroutine so Connect never blocks
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		raw, err := net.DialTimeout("tcp", endpoint.String(), dialTimeout)
		if err != nil {
			selLogger.Warningf("connect to %s failed: %v", endpoint, err)
			s.dropConnection(c)
			return
		}

		tcpConn := raw.(*net.TCPConn)
		if err := tcpConn.SetWriteBuffer(sendBufBytes); err != nil {
			selLogger.Warningf("setting send buffer on %s failed: %v", id, err)
		}
		if err := tcpConn.SetReadBuffer(recvBufBytes); err != nil {
			selLogger.Warningf("setting recv buffer on %s failed: %v", id, err)
		}

		c.conn.Store(tcpConn)

		// The selector may have been closed while dialing
		if s.closed.Load() {
			_ = tcpConn.Close()
			return
		}

		s.events.Push(&event{kind: evConnected, connID: id})

		// Start the reader for this connection
		s.wg.Add(1)
		go s.readLoop(c)
	}()

	return id, nil
}

func (s *Selector) Poll(timeout time.Duration, sends []network.NetworkSend) error {
	if s.closed.Load() {
		return ErrSelectorClosed
	}

	// Reset the event sets of the previous poll
	s.connected = nil
	s.disconnected = nil
	s.receives = nil

	// Hand the sends to writer goroutines. At most one request is in flight
	// per connection, so writes to one connection never interleave.
	for _, send := range sends {
		c, ok := s.conns.Load(send.ConnID)
		if !ok || c.conn.Load() == nil {
			// The connection vanished between checkout and send
			s.events.Push(&event{kind: evDisconnected, connID: send.ConnID})
			continue
		}

		s.wg.Add(1)
		go func(c *connection, payload []byte) {
			defer s.wg.Done()
			if err := writeFrame(c.conn.Load(), payload); err != nil {
				selLogger.Warningf("send on %s failed: %v", c.id, err)
				s.dropConnection(c)
			}
		}(c, send.Payload)
	}

	// Wait up to timeout for the first event, then drain without blocking
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-s.events.Recv():
		if !ok {
			return ErrSelectorClosed
		}
		s.dispatchEvent(ev)
	case <-timer.C:
		return nil
	}

	for {
		select {
		case ev, ok := <-s.events.Recv():
			if !ok {
				return nil
			}
			s.dispatchEvent(ev)
		default:
			return nil
		}
	}
}

func (s *Selector) Connected() []network.ConnectionID {
	return s.connected
}

func (s *Selector) Disconnected() []network.ConnectionID {
	return s.disconnected
}

func (s *Selector) CompletedReceives() []network.NetworkReceive {
	return s.receives
}

func (s *Selector) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	// Closing the sockets unblocks all reader goroutines
	s.conns.Range(func(_ network.ConnectionID, c *connection) bool {
		if conn := c.conn.Load(); conn != nil {
			_ = conn.Close()
		}
		return true
	})
	s.wg.Wait()
	s.events.Close()

	// Drain leftover events so the queue's consumer goroutine exits
	for range s.events.Recv() {
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// dispatchEvent sorts one event into the poll's event sets
func (s *Selector) dispatchEvent(ev *event) {
	switch ev.kind {
	case evConnected:
		s.connected = append(s.connected, ev.connID)
	case evDisconnected:
		s.disconnected = append(s.disconnected, ev.connID)
	case evReceive:
		s.receives = append(s.receives, network.NetworkReceive{ConnID: ev.connID, Payload: ev.payload})
	}
}

// dropConnection removes a connection from the registry, closes it and
// reports it disconnected. Safe to call from any goroutine; the registry
// delete makes sure only the first caller pushes the event.
func (s *Selector) dropConnection(c *connection) {
	if _, loaded := s.conns.LoadAndDelete(c.id); !loaded {
		return
	}
	if conn := c.conn.Load(); conn != nil {
		_ = conn.Close()
	}
	s.events.Push(&event{kind: evDisconnected, connID: c.id})
}

// readLoop turns the connection's byte stream into receive events until the
// connection dies.
func (s *Selector) readLoop(c *connection) {
	defer s.wg.Done()

	conn := c.conn.Load()
	for {
		payload, err := readFrame(conn)
		if err != nil {
			if !s.closed.Load() {
				selLogger.Debugf("connection %s closed: %v", c.id, err)
			}
			s.dropConnection(c)
			return
		}
		if !s.events.Push(&event{kind: evReceive, connID: c.id, payload: payload}) {
			return
		}
	}
}
