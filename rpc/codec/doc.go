// Package codec converts common.Pdu values to and from the opaque payload
// bytes moved by the transport layer. Three interchangeable formats are
// provided:
//
//   - Binary: a compact tag/length/value format, the recommended default.
//   - JSON: human readable, useful for debugging and interop.
//   - GOB: stdlib binary encoding, useful when both ends are Go.
//
// Client and server must agree on the codec; the wire frame does not carry
// a format marker.
package codec
