package client

import (
	"context"
	"errors"
)

// ErrClientClosed is returned for any operation on a closed client.
var ErrClientClosed = errors.New("blob store client is closed")

// ErrTimeout is returned when a request did not resolve within the configured
// client timeout.
var ErrTimeout = errors.New("request timed out")

// IBlobStore is the interface of the remote blob store.
type IBlobStore interface {
	// Put stores a blob under the given id. A ttl of 0 means the blob never
	// expires.
	Put(ctx context.Context, blobID string, value []byte, ttlSecs uint64) error

	// Get fetches a blob by id. The second return value reports whether the
	// blob exists.
	Get(ctx context.Context, blobID string) (value []byte, found bool, err error)

	// Delete removes a blob. The first return value reports whether the blob
	// existed.
	Delete(ctx context.Context, blobID string) (found bool, err error)

	// UpdateTTL changes the time to live of a stored blob.
	UpdateTTL(ctx context.Context, blobID string, ttlSecs uint64) (found bool, err error)

	// Close shuts the client down and releases all connections.
	Close() error
}
