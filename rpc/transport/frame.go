package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Wire frame layout: length (4B big endian, covering cid and payload),
// correlation id (2B big endian), payload (length-2 opaque bytes).
const (
	lengthSize      = 4
	cidSize         = 2
	frameHeaderSize = lengthSize + cidSize

	// DefaultMaxFrameSize bounds the claimed length of a frame. Chosen
	// well above any sane PDU so only corrupt or hostile peers hit it.
	DefaultMaxFrameSize = 16 << 20
)

// writeFrame writes a single frame. Header and payload go out in one
// writev via net.Buffers.
func writeFrame(w io.Writer, cid uint16, payload []byte, maxFrameSize uint32) error {
	if maxFrameSize > 0 && uint64(len(payload))+cidSize > uint64(maxFrameSize) {
		return fmt.Errorf("%w: payload of %d bytes exceeds frame limit %d", ErrFrame, len(payload), maxFrameSize)
	}

	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header[:lengthSize], uint32(len(payload)+cidSize))
	binary.BigEndian.PutUint16(header[lengthSize:], cid)

	b := net.Buffers{header, payload}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads exactly one frame. The claimed length is validated
// against maxFrameSize before the receive buffer is allocated. A clean EOF
// between frames is returned as io.EOF; a stream that dies mid-frame is a
// frame error.
func readFrame(r io.Reader, maxFrameSize uint32) (uint16, []byte, error) {
	var header [frameHeaderSize]byte

	if _, err := io.ReadFull(r, header[:lengthSize]); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("%w: short length prefix: %v", ErrFrame, err)
	}

	length := binary.BigEndian.Uint32(header[:lengthSize])
	if length < cidSize {
		return 0, nil, fmt.Errorf("%w: claimed length %d below minimum %d", ErrFrame, length, cidSize)
	}
	if maxFrameSize > 0 && length > maxFrameSize {
		return 0, nil, fmt.Errorf("%w: claimed length %d exceeds limit %d", ErrFrame, length, maxFrameSize)
	}

	if _, err := io.ReadFull(r, header[lengthSize:]); err != nil {
		return 0, nil, fmt.Errorf("%w: short correlation id: %v", ErrFrame, err)
	}
	cid := binary.BigEndian.Uint16(header[lengthSize:])

	payload := make([]byte, length-cidSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("%w: short payload: %v", ErrFrame, err)
	}

	return cid, payload, nil
}
