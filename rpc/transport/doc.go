// Package transport implements the multiplexed client transport of the tern
// protocol: many concurrent logical requests share one authenticated TCP
// connection.
//
// The package focuses on:
//   - Frame-based wire protocol (4 byte length, 2 byte correlation id,
//     opaque payload) with strict bounds checking
//   - Correlation of responses to requests by id, independent of arrival
//     order, through a concurrent correlation table
//   - A single background listener goroutine per connection completing
//     waiters as frames arrive
//   - Per-request timeouts that never affect other in-flight requests
//   - Clean failure propagation: a connection level failure resolves every
//     outstanding request with ErrConnectionLost exactly once
//
// Key Components:
//
//   - ITransport: the public surface. Send blocks the calling goroutine;
//     SendAsync submits from anywhere and hands back a Call handle. Both
//     run through the same engine.
//
//   - IClientConnector: protocol-specific dialing and socket tuning,
//     injected so the core stays independent of the socket flavor (see the
//     tcp subpackage).
//
//   - auth.IAuthenticator: the connect-time handshake collaborator, invoked
//     once before the connection is marked ready.
//
// Thread Safety:
//
//	All ITransport methods are safe for concurrent use. Frame writes are
//	serialized internally; reads belong to the single listener goroutine.
//	Payload bytes are never interpreted by this package.
package transport
