package transport

import "sync/atomic"

const (
	maxCid = 1<<16 - 1
	maxTid = 1<<32 - 1
)

// sequence owns the two wire counters of one transport instance. Both hand
// out the current value and then advance, wrapping to 0 past their maximum,
// and are never reset otherwise. The correlation id demultiplexes responses
// on the wire; the transaction id is an application level field stamped
// into payloads and not interpreted by the transport at all.
type sequence struct {
	cid atomic.Uint32 // only the low 16 bits reach the wire
	tid atomic.Uint32
}

func (s *sequence) nextCid() uint16 {
	// Add wraps modulo 2^32, a multiple of 2^16, so the truncated value
	// wraps 65535 -> 0 exactly.
	return uint16(s.cid.Add(1) - 1)
}

func (s *sequence) nextTid() uint32 {
	return s.tid.Add(1) - 1
}
