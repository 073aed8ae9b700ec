// Package network implements the request-dispatch and connection-pooling
// engine of the dBlob client. It multiplexes many logical requests over a
// bounded pool of reusable connections per endpoint, on top of a non-blocking
// selector that performs the actual I/O.
//
// The package focuses on:
//   - Queueing requests that cannot be sent immediately, with timeout eviction
//   - Bounding connections per endpoint and applying backpressure via timeouts
//   - Strict one-request-per-connection accounting (no multiplexing on a
//     single connection)
//   - Turning raw selector events into exactly one outcome per request
//
// Key Components:
//
//   - NetworkClient: The dispatch orchestrator. Each SendAndPoll call runs one
//     full cycle: evict timed-out requests, check out or create connections for
//     queued requests, hand prepared sends to the selector, poll it with a
//     bounded timeout and reconcile the resulting events into responses.
//
//   - ConnectionTracker: The per-endpoint connection pool. Tracks available,
//     in-use and pending-creation connections and enforces the per-endpoint
//     connection limit. The tracker never initiates I/O itself.
//
//   - Selector: The consumed multiplexer contract (non-blocking connect, poll,
//     event sets). The rpc/selector package provides a TCP implementation.
//
//   - RequestInfo / ResponseInfo: The request and outcome types. Every request
//     produces exactly one outcome: success, ConnectionUnavailable (timed out
//     waiting for a connection) or NetworkError (disconnected while in flight).
//
// Concurrency model:
//
//	A NetworkClient instance is owned by exactly one goroutine which drives
//	SendAndPoll in a tick loop. All mutable state (pending queue, in-flight
//	table, pool) is confined to that goroutine, so the hot path needs no
//	locking. Use one instance per worker goroutine; instances share no state.
package network
