// Package selector provides the TCP implementation of the network.Selector
// contract: non-blocking connection establishment, framed sends and receives,
// and per-poll event reporting for the dispatch engine.
//
// The package focuses on:
//   - Asynchronous dialing so Connect never blocks the dispatch cycle
//   - One reader goroutine per connection turning the byte stream into frames
//   - Funneling all connection events through a single lock-free MPSC queue
//     that the poll loop drains with a bounded wait
//
// Key Components:
//
//   - Selector: Owns the connection registry and the event queue. Poll writes
//     the cycle's sends, then gathers the connected / disconnected / received
//     events that producers pushed since the last poll.
//
//   - frame codec: Length-prefixed framing of opaque payloads. Request
//     correlation needs no ids on the wire because the engine keeps at most
//     one request in flight per connection.
//
// Concurrency model:
//
//	Connect, Poll and the event accessors must be called from the one
//	goroutine driving the dispatch cycle. Dial and reader goroutines only
//	communicate with it through the MPSC queue and the concurrent connection
//	registry, never by touching poll state.
package selector
