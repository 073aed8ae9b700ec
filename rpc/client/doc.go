// Package client implements the blocking blob store client. It provides the
// IBlobStore interface on top of the network dispatch engine, hiding the tick
// driven request/response model behind ordinary method calls.
//
// The package focuses on:
//   - Transparent access to remote blob store operations
//   - Integration with the network, selector and serialization layers
//   - Error handling and conversion between network outcomes and domain errors
//
// Key Components:
//
//   - NewRemoteStore: Factory function that creates a client implementing the
//     IBlobStore interface. The client owns a NetworkClient and drives its
//     dispatch cycle in a dedicated goroutine, so the engine's single-owner
//     contract is upheld while callers block concurrently on their requests.
//
//   - IBlobStore: Put, Get, Delete and UpdateTTL operations against the
//     remote store, each accepting a context for cancellation.
//
// Usage Example:
//
//	conf := common.ClientConfig{
//	  Endpoints:     []string{"localhost:5000"},
//	  TimeoutSecond: 5,
//	}
//
//	store, _ := client.NewRemoteStore(conf, serializer.NewBinarySerializer())
//	defer store.Close()
//
//	_ = store.Put(context.Background(), "my-blob", []byte("data"), 3600)
//	value, found, _ := store.Get(context.Background(), "my-blob")
//
// Thread Safety:
//
//	The client is thread-safe: any number of goroutines may call its methods
//	concurrently. Requests are multiplexed onto the pooled connections of the
//	underlying network engine.
package client
