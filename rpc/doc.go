// Package rpc provides the client-side communication layer for the dBlob
// distributed blob store. It multiplexes application requests over pooled TCP
// connections and delivers exactly one outcome per request.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - network: The request-dispatch engine. It queues requests, checks
//     connections out of per-endpoint pools and reconciles network events into
//     request outcomes, one dispatch cycle at a time.
//
//   - selector: The socket layer behind the engine. It owns the TCP
//     connections, performs non-blocking connect and framed send/receive, and
//     reports its events batch-wise per poll.
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The high level blob store client. It drives the network engine
//     from a single goroutine and exposes a blocking, concurrency-safe API.
//
//   - util: Internal concurrency helpers shared by the rpc subpackages.
package rpc
