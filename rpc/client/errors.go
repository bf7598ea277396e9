package client

import "errors"

var (
	// ErrServer marks an error response produced by the server for an
	// otherwise well-formed request.
	ErrServer = errors.New("server error")

	// ErrProtocol marks a response the client could not make sense of:
	// undecodable bytes or a transaction id mismatch.
	ErrProtocol = errors.New("protocol error")
)
