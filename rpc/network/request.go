package network

import "time"

// --------------------------------------------------------------------------
// Request / Response types
// --------------------------------------------------------------------------

// RequestInfo represents one serialized request to be sent to an endpoint.
// The payload is opaque to the network layer; framing and encoding are the
// codec layer's concern.
type RequestInfo struct {
	Endpoint Endpoint
	Request  []byte
}

// ResponseInfo represents the outcome of a single request. Request points at
// the originating RequestInfo so callers can correlate outcomes with their
// submissions. Exactly one ResponseInfo is ever produced per request.
type ResponseInfo struct {
	Request  *RequestInfo
	Err      ErrorCode
	Response []byte
}

// pendingRequest tags a request with the time it entered the pending queue.
// Ownership moves from the queue to the in-flight table the moment a
// connection is checked out for it.
type pendingRequest struct {
	queuedAt time.Time
	req      *RequestInfo
}
