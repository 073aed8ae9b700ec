// Package cmd implements the command-line interface for the dBlob client. It
// provides a hierarchical command structure for interacting with a dBlob
// server cluster.
//
// The package is organized into several subpackages:
//
//   - blob: Commands for blob store operations (put, get, delete, ttl, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dblob -help for a list of all commands.
package cmd
