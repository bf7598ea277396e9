package codec

import (
	"reflect"
	"testing"

	"github.com/terndb/tern-go/rpc/common"
)

// testCodecs is a map of codec name to factory function
var testCodecs = map[string]func() IPduCodec{
	"JSON":   NewJSONCodec,
	"GOB":    NewGOBCodec,
	"Binary": NewBinaryCodec,
}

// testPdus creates a set of representative PDUs with different fields filled
func testPdus() []common.Pdu {
	version := common.Version{Major: common.ProtocolMajor, Minor: common.ProtocolMinor}

	return []common.Pdu{
		// Minimal request
		{Version: version, Tid: 0, Op: common.OpListTables},

		// Create table request
		{
			Version:   version,
			Tid:       1,
			Op:        common.OpCreateTable,
			TableName: "users",
			KeyDef:    []string{"id", "region"},
			Options:   map[string]string{"type": "leveldb", "data_model": "array"},
		},

		// Write request
		{
			Version:   version,
			Tid:       42,
			Op:        common.OpWrite,
			TableName: "users",
			Key:       []common.Field{{Name: "id", Value: []byte("u-1001")}},
			Columns: []common.Field{
				{Name: "name", Value: []byte("ada")},
				{Name: "mail", Value: []byte("ada@example.com")},
			},
		},

		// Range read request
		{
			Version:   version,
			Tid:       7,
			Op:        common.OpReadRange,
			TableName: "users",
			StartKey:  []common.Field{{Name: "id", Value: []byte("a")}},
			EndKey:    []common.Field{{Name: "id", Value: []byte("z")}},
			Limit:     100,
		},

		// Index read with filter
		{
			Version:    version,
			Tid:        8,
			Op:         common.OpIndexRead,
			TableName:  "posts",
			ColumnName: "body",
			Term:       "tern",
			Filter: &common.PostingFilter{
				SortBy:      "timestamp",
				StartTs:     1000,
				EndTs:       2000,
				MaxPostings: 25,
			},
		},

		// Update request
		{
			Version:   version,
			Tid:       9,
			Op:        common.OpUpdate,
			TableName: "counters",
			Key:       []common.Field{{Name: "id", Value: []byte("hits")}},
			UpdateOps: []common.UpdateOp{
				{Field: "count", Instruction: "increment", Value: []byte{1}},
			},
		},

		// Iterator response
		{
			Version:  version,
			Tid:      10,
			Op:       common.OpFirst,
			Ok:       true,
			Columns:  []common.Field{{Name: "id", Value: []byte("u-0001")}},
			Iterator: []byte{0xde, 0xad, 0xbe, 0xef},
		},

		// Rows response
		{
			Version: version,
			Tid:     11,
			Op:      common.OpReadRange,
			Ok:      true,
			Rows: []common.Row{
				{{Name: "id", Value: []byte("a")}, {Name: "v", Value: []byte("1")}},
				{{Name: "id", Value: []byte("b")}, {Name: "v", Value: []byte("2")}},
			},
		},

		// Error response
		{Version: version, Tid: 12, Op: common.OpError, Err: "table does not exist"},
	}
}

// TestCodecRoundTrip tests that PDUs survive an encode/decode cycle unchanged
func TestCodecRoundTrip(t *testing.T) {
	pdus := testPdus()

	for name, factory := range testCodecs {
		t.Run(name, func(t *testing.T) {
			codec := factory()

			for i, pdu := range pdus {
				data, err := codec.Encode(pdu)
				if err != nil {
					t.Errorf("Failed to encode pdu %d (%s): %v", i, pdu.Op, err)
					continue
				}

				var result common.Pdu
				if err := codec.Decode(data, &result); err != nil {
					t.Errorf("Failed to decode pdu %d (%s): %v", i, pdu.Op, err)
					continue
				}

				if !reflect.DeepEqual(pdu, result) {
					t.Errorf("Pdu %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, pdu, result)
				}
			}
		})
	}
}

// TestBinaryCodecRejectsCorruptData verifies that truncated or garbled input
// fails with an error instead of producing a bogus PDU or panicking
func TestBinaryCodecRejectsCorruptData(t *testing.T) {
	codec := NewBinaryCodec()

	pdu := common.NewWriteRequest("users",
		[]common.Field{{Name: "id", Value: []byte("u-1")}},
		[]common.Field{{Name: "name", Value: []byte("ada")}},
	)
	data, err := codec.Encode(*pdu)
	if err != nil {
		t.Fatalf("Failed to encode pdu: %v", err)
	}

	// Too short for the header
	var out common.Pdu
	if err := codec.Decode(data[:3], &out); err == nil {
		t.Errorf("Expected error for truncated header, got none")
	}

	// Truncated mid-field
	if err := codec.Decode(data[:len(data)-4], &out); err == nil {
		t.Errorf("Expected error for truncated field, got none")
	}

	// Unknown tag
	bad := append(append([]byte{}, data...), 0xff)
	if err := codec.Decode(bad, &out); err == nil {
		t.Errorf("Expected error for unknown tag, got none")
	}
}

// TestBinaryCodecCountGuard verifies that a corrupt collection count larger
// than the remaining input is rejected before allocation
func TestBinaryCodecCountGuard(t *testing.T) {
	codec := NewBinaryCodec()

	// Valid header followed by a rows tag claiming 2^40 rows
	data := []byte{0, 1, 0, 0, 0, 1, byte(common.OpReadRange), binTagRows, 0x80, 0x80, 0x80, 0x80, 0x80, 0x20}

	var out common.Pdu
	if err := codec.Decode(data, &out); err == nil {
		t.Errorf("Expected error for oversized count, got none")
	}
}
