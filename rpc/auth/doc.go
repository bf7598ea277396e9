// Package auth implements the connect-time authentication handshake of the
// tern protocol. The transport invokes an IAuthenticator exactly once while
// connecting, after the socket is open and before the first frame is sent;
// a failed handshake is fatal to the connection.
//
// Two mechanisms are provided: SCRAM (SHA-1 and SHA-256 flavors, exchanged
// as newline-terminated messages on the raw socket) and None for servers
// running without authentication. Custom mechanisms only need to implement
// the two-method IAuthenticator interface.
package auth
