package transport

import (
	"net"
	"time"

	"github.com/terndb/tern-go/rpc/common"
)

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// ITransport is the client side of one multiplexed tern connection. All
// methods are safe for concurrent use; any number of requests may be in
// flight at the same time over the single underlying socket.
type ITransport interface {
	// Connect opens the socket, runs the authentication handshake and
	// starts the background listener. A transport connects exactly once;
	// after Close (or a failed Connect) it is unusable.
	Connect(config common.ClientConfig) error

	// Send transmits one opaque payload and blocks until the matching
	// response arrives, the timeout elapses, or the connection fails.
	// A non-positive timeout selects the configured default.
	Send(payload []byte, timeout time.Duration) ([]byte, error)

	// SendAsync submits the same request without blocking the caller.
	// The returned Call resolves exactly once.
	SendAsync(payload []byte, timeout time.Duration) *Call

	// NextTid hands out the next application level transaction id. The
	// transport never interprets it; the operation layer stamps it into
	// payloads.
	NextTid() uint32

	// Close tears the connection down: the listener stops, the socket is
	// closed, and every pending request resolves with ErrConnectionLost.
	// Idempotent and safe even if Connect never succeeded.
	Close() error
}

// --------------------------------------------------------------------------
// Connector (dependency injection for the socket layer)
// --------------------------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection
// operations
type IClientConnector interface {
	// Connect establishes a single connection to the given endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g. "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an
	// established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}
