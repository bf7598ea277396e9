package codec

import "github.com/terndb/tern-go/rpc/common"

// IPduCodec is the interface for all PDU codecs
type IPduCodec interface {
	// Encode encodes a Pdu into a byte array
	// It returns the encoded byte array and an error if any
	Encode(pdu common.Pdu) ([]byte, error)
	// Decode decodes a byte array into a Pdu
	// It takes a byte array and a pointer to a Pdu as parameters
	// It returns an error if any
	Decode(b []byte, pdu *common.Pdu) error
}
