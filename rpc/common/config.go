package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Client credentials
// --------------------------------------------------------------------------

// Credentials carries the login data handed to the authenticator during
// connect. The transport core never interprets these fields.
type Credentials struct {
	Username string
	Password string
}

// --------------------------------------------------------------------------
// Socket level configuration
// --------------------------------------------------------------------------

// SocketConf holds buffer settings applied to the raw socket
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific tuning options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ClientTransportConfig holds the wire level settings of one connection
type ClientTransportConfig struct {
	// Endpoint is the host:port of the tern server
	Endpoint string

	// MaxFrameSize bounds the claimed length of incoming frames.
	// Zero selects the transport default.
	MaxFrameSize uint32

	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for a tern client.
type ClientConfig struct {
	// Credentials for the connect-time authentication handshake
	Credentials Credentials

	// TimeoutSecond is the default per-request timeout (60 if zero)
	TimeoutSecond int

	// MaxInflight bounds concurrently outstanding requests. The wire
	// protocol uses 16 bit correlation ids, so values above 65536 are
	// clamped down to 65536.
	MaxInflight int

	// Transport holds the socket level settings
	Transport ClientTransportConfig

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("User", c.Credentials.Username)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Inflight", strconv.Itoa(c.MaxInflight))
	addField("Log Level", c.LogLevel)

	addSection("Transport")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Max Frame Size", strconv.FormatUint(uint64(c.Transport.MaxFrameSize), 10))
	addField("Write Buffer", strconv.Itoa(c.Transport.WriteBufferSize))
	addField("Read Buffer", strconv.Itoa(c.Transport.ReadBufferSize))
	addField("TCP NoDelay", fmt.Sprintf("%t", c.Transport.TCPNoDelay))
	addField("TCP KeepAlive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	return sb.String()
}
