package codec

import (
	"encoding/json"

	"github.com/terndb/tern-go/rpc/common"
)

// NewJSONCodec creates a new codec using the JSON format.
// Useful for debugging since payloads stay human readable.
func NewJSONCodec() IPduCodec {
	return &jsonCodecImpl{}
}

// jsonCodecImpl implements IPduCodec using encoding/json
type jsonCodecImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IPduCodec)
// --------------------------------------------------------------------------

func (c jsonCodecImpl) Encode(pdu common.Pdu) ([]byte, error) {
	return json.Marshal(pdu)
}

func (c jsonCodecImpl) Decode(b []byte, pdu *common.Pdu) error {
	return json.Unmarshal(b, pdu)
}
