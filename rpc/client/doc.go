// Package client provides the typed operation API of a tern connection:
// table management, key/value access, range queries, iterators and secondary
// index reads.
//
// The package sits on top of rpc/transport (which owns the socket and the
// request/response multiplexing) and rpc/codec (which owns the payload
// encoding). A Client is safe for concurrent use; independent operations
// share the single connection without blocking each other.
package client
