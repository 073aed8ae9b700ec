package network

import "time"

// --------------------------------------------------------------------------
// Selector contract (consumed by the NetworkClient)
// --------------------------------------------------------------------------

// ConnectionID is an opaque handle for a single transport connection. A
// ConnectionID is bound to exactly one endpoint for its entire lifetime. The
// distinct type keeps connection ids from being mixed up with other strings
// at compile time.
type ConnectionID string

// NetworkSend is a payload bound to the connection it is to be sent on.
type NetworkSend struct {
	ConnID  ConnectionID
	Payload []byte
}

// NetworkReceive is a fully received response payload together with the
// connection it arrived on.
type NetworkReceive struct {
	ConnID  ConnectionID
	Payload []byte
}

// Selector is the non-blocking I/O multiplexer the NetworkClient drives. One
// poll cycle reports, via the three accessors, the events that occurred since
// the previous poll. Implementations are in rpc/selector; tests substitute
// their own.
type Selector interface {
	// Connect initiates a non-blocking connect to the endpoint and returns the
	// id the connection will be known by. The connection must not be used
	// until it shows up in Connected(). A returned error is local to this
	// attempt and leaves the selector usable.
	Connect(endpoint Endpoint, sendBufBytes, recvBufBytes int) (ConnectionID, error)

	// Poll performs the I/O for the given sends and waits at most timeout for
	// new events. An error signals failure of the whole multiplexer, not of a
	// single connection.
	Poll(timeout time.Duration, sends []NetworkSend) error

	// Connected returns the connections whose connect completed during the
	// last poll.
	Connected() []ConnectionID

	// Disconnected returns the connections that were lost during the last poll.
	Disconnected() []ConnectionID

	// CompletedReceives returns the payloads fully received during the last poll.
	CompletedReceives() []NetworkReceive

	// Close releases the selector and all its connections.
	Close()
}
