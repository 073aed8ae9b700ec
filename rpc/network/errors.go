package network

import "errors"

// ErrClosed is returned by SendAndPoll after the client has been closed,
// either explicitly via Close or implicitly after a fatal selector failure.
var ErrClosed = errors.New("network client is closed")

// ErrorCode classifies the outcome of a single request.
type ErrorCode uint8

const (
	// NoError means a response payload was received for the request
	NoError ErrorCode = iota
	// ConnectionUnavailable means the request waited in the pending queue past
	// the checkout timeout without ever obtaining a connection
	ConnectionUnavailable
	// NetworkError means the connection serving the request was dropped while
	// the request was in flight
	NetworkError
)

// String returns the string representation of an ErrorCode.
func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no error"
	case ConnectionUnavailable:
		return "connection unavailable"
	case NetworkError:
		return "network error"
	default:
		return "unknown"
	}
}
