// Package common contains the core data structures shared across the RPC
// client: the Pdu protocol unit with its operation types and factory
// functions, the client configuration structures, and the logging setup.
//
// A Pdu describes one logical operation against the tern data store. The
// transport layer never inspects PDUs; it moves their encoded form as
// opaque payload bytes. Encoding and decoding live in the codec package.
package common
