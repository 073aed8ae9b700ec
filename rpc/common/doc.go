// Package common provides core data structures and utilities shared across
// the dBlob client. It defines fundamental types, configuration structures,
// and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for the network layer and the high level client
//   - Custom logging implementation integrated with the Dragonboat logger facade
//
// Key Components:
//
//   - Message: Core data structure for all blob store communication, with a
//     flexible structure that adapts to different operation types. Includes
//     factory methods for creating various request and response messages.
//
//   - MessageType: Enumeration defining all supported blob operations
//     (put, get, delete, ttl) plus control messages.
//
//   - ClientConfig: Configuration for the client, controlling endpoints,
//     connection pool limits, checkout and poll timeouts, socket buffer
//     sizes and logging.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
