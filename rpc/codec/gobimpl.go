package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/terndb/tern-go/rpc/common"
)

// NewGOBCodec creates a new codec using the stdlib gob format
func NewGOBCodec() IPduCodec {
	return &gobCodecImpl{}
}

// gobCodecImpl implements IPduCodec using encoding/gob
type gobCodecImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IPduCodec)
// --------------------------------------------------------------------------

func (c gobCodecImpl) Encode(pdu common.Pdu) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pdu); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c gobCodecImpl) Decode(b []byte, pdu *common.Pdu) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(pdu)
}
