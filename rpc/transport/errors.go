package transport

import "errors"

// Error taxonomy of the transport. Callers match with errors.Is; everything
// returned by this package wraps exactly one of these sentinels.
var (
	// ErrConnection indicates a connect-time socket failure.
	ErrConnection = errors.New("transport: connection failed")

	// ErrAuthenticationFailed indicates the connect-time handshake was
	// rejected. Fatal to the connection, which is left unusable.
	ErrAuthenticationFailed = errors.New("transport: authentication failed")

	// ErrFrame indicates a malformed or short wire frame.
	ErrFrame = errors.New("transport: malformed frame")

	// ErrConnectionLost indicates the connection failed while requests
	// were outstanding. Every pending request resolves with it.
	ErrConnectionLost = errors.New("transport: connection lost")

	// ErrTimeout indicates a single request got no response in time.
	// Local to that request; the connection stays usable.
	ErrTimeout = errors.New("transport: request timed out")

	// ErrTransportClosed indicates an operation on a torn-down (or never
	// connected) transport.
	ErrTransportClosed = errors.New("transport: closed")

	// ErrCidCollision indicates a correlation id was reallocated while a
	// prior request for it was still in flight. Only possible once 65536
	// requests are outstanding at the same time; callers must bound their
	// concurrency below that.
	ErrCidCollision = errors.New("transport: correlation id collision")
)
