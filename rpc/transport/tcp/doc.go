// Package tcp implements the TCP socket connector for the tern client
// transport. It provides a concrete implementation of the transport
// package's IClientConnector interface: dialing, plus TCP-specific tuning
// (NoDelay, buffer sizes, keep-alive, linger) applied right after the
// connection is established.
package tcp
