package transport

import (
	"testing"
)

// TestSequenceCidStartsAtZero verifies cid allocation starts at zero and
// counts up
func TestSequenceCidStartsAtZero(t *testing.T) {
	var s sequence
	for want := uint16(0); want < 4; want++ {
		if got := s.nextCid(); got != want {
			t.Errorf("Expected cid %d, got %d", want, got)
		}
	}
}

// TestSequenceCidWraps verifies the cid space wraps back to zero after 2^16
// allocations
func TestSequenceCidWraps(t *testing.T) {
	var s sequence
	for i := 0; i < maxCid+1; i++ {
		s.nextCid()
	}
	if got := s.nextCid(); got != 0 {
		t.Errorf("Expected cid to wrap to 0, got %d", got)
	}
}

// TestSequenceTidWraps verifies the tid space wraps back to zero after
// exhausting the 32 bit range
func TestSequenceTidWraps(t *testing.T) {
	var s sequence
	s.tid.Store(maxTid)
	if got := s.nextTid(); got != maxTid {
		t.Errorf("Expected tid %d, got %d", uint32(maxTid), got)
	}
	if got := s.nextTid(); got != 0 {
		t.Errorf("Expected tid to wrap to 0, got %d", got)
	}
}

// TestSequenceCountersAreIndependent verifies cid and tid advance separately
func TestSequenceCountersAreIndependent(t *testing.T) {
	var s sequence
	s.nextCid()
	s.nextCid()
	s.nextCid()
	if got := s.nextTid(); got != 0 {
		t.Errorf("Expected first tid 0 regardless of cid allocations, got %d", got)
	}
	if got := s.nextCid(); got != 3 {
		t.Errorf("Expected cid 3 after three allocations, got %d", got)
	}
}
