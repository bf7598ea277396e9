// Package rpc contains the client side stack of the tern wire protocol,
// split into layers that can be exchanged independently:
//
//   - common: configuration, PDU model and logging shared by all layers
//   - codec: PDU encodings (binary, json, gob)
//   - auth: connect-time authentication handshakes (SCRAM)
//   - transport: the multiplexed request/response core over one socket
//   - client: the typed table operation API
//
// A request travels client -> codec -> transport -> socket; the transport's
// listener routes each response frame back to the caller that is waiting
// for it, so any number of operations share the connection concurrently.
package rpc
