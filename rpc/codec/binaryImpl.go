package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/terndb/tern-go/rpc/common"
)

// NewBinaryCodec creates a new codec using a custom binary format
// optimized for speed and payload size
func NewBinaryCodec() IPduCodec {
	return &binaryCodecImpl{}
}

// binaryCodecImpl implements IPduCodec using a tag/length/value format:
// a fixed 7 byte header (major, minor, tid, op) followed by one tagged
// block per present field. Absent fields are not written at all.
type binaryCodecImpl struct{}

const binaryHeaderSize = 7 // 1B major + 1B minor + 4B tid + 1B op

// Field tags. The order is part of the wire format, never renumber.
const (
	binTagTableName byte = iota + 1
	binTagKeyDef
	binTagOptions
	binTagAttributes
	binTagKey
	binTagColumns
	binTagStartKey
	binTagEndKey
	binTagLimit
	binTagN
	binTagIterator
	binTagColumnName
	binTagTerm
	binTagFilter
	binTagUpdateOps
	binTagIndexes
	binTagColumnList
	binTagOk
	binTagErr
	binTagTables
	binTagRows
)

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.IPduCodec)
// --------------------------------------------------------------------------

func (c binaryCodecImpl) Encode(pdu common.Pdu) ([]byte, error) {
	var buf bytes.Buffer

	// Header
	buf.WriteByte(pdu.Version.Major)
	buf.WriteByte(pdu.Version.Minor)
	var tid [4]byte
	binary.BigEndian.PutUint32(tid[:], pdu.Tid)
	buf.Write(tid[:])
	buf.WriteByte(byte(pdu.Op))

	// Tagged fields
	if pdu.TableName != "" {
		buf.WriteByte(binTagTableName)
		putString(&buf, pdu.TableName)
	}
	if len(pdu.KeyDef) > 0 {
		buf.WriteByte(binTagKeyDef)
		putStrings(&buf, pdu.KeyDef)
	}
	if len(pdu.Options) > 0 {
		buf.WriteByte(binTagOptions)
		putStringMap(&buf, pdu.Options)
	}
	if len(pdu.Attributes) > 0 {
		buf.WriteByte(binTagAttributes)
		putStrings(&buf, pdu.Attributes)
	}
	if len(pdu.Key) > 0 {
		buf.WriteByte(binTagKey)
		putFields(&buf, pdu.Key)
	}
	if len(pdu.Columns) > 0 {
		buf.WriteByte(binTagColumns)
		putFields(&buf, pdu.Columns)
	}
	if len(pdu.StartKey) > 0 {
		buf.WriteByte(binTagStartKey)
		putFields(&buf, pdu.StartKey)
	}
	if len(pdu.EndKey) > 0 {
		buf.WriteByte(binTagEndKey)
		putFields(&buf, pdu.EndKey)
	}
	if pdu.Limit > 0 {
		buf.WriteByte(binTagLimit)
		putUvarint(&buf, uint64(pdu.Limit))
	}
	if pdu.N > 0 {
		buf.WriteByte(binTagN)
		putUvarint(&buf, uint64(pdu.N))
	}
	if len(pdu.Iterator) > 0 {
		buf.WriteByte(binTagIterator)
		putBytes(&buf, pdu.Iterator)
	}
	if pdu.ColumnName != "" {
		buf.WriteByte(binTagColumnName)
		putString(&buf, pdu.ColumnName)
	}
	if pdu.Term != "" {
		buf.WriteByte(binTagTerm)
		putString(&buf, pdu.Term)
	}
	if pdu.Filter != nil {
		buf.WriteByte(binTagFilter)
		putString(&buf, pdu.Filter.SortBy)
		putUvarint(&buf, pdu.Filter.StartTs)
		putUvarint(&buf, pdu.Filter.EndTs)
		putUvarint(&buf, uint64(pdu.Filter.MaxPostings))
	}
	if len(pdu.UpdateOps) > 0 {
		buf.WriteByte(binTagUpdateOps)
		putUvarint(&buf, uint64(len(pdu.UpdateOps)))
		for _, op := range pdu.UpdateOps {
			putString(&buf, op.Field)
			putString(&buf, op.Instruction)
			putBytes(&buf, op.Value)
		}
	}
	if len(pdu.Indexes) > 0 {
		buf.WriteByte(binTagIndexes)
		putUvarint(&buf, uint64(len(pdu.Indexes)))
		for _, idx := range pdu.Indexes {
			putString(&buf, idx.Column)
			putStringMap(&buf, idx.Options)
		}
	}
	if len(pdu.ColumnList) > 0 {
		buf.WriteByte(binTagColumnList)
		putStrings(&buf, pdu.ColumnList)
	}
	if pdu.Ok {
		buf.WriteByte(binTagOk)
		buf.WriteByte(1)
	}
	if pdu.Err != "" {
		buf.WriteByte(binTagErr)
		putString(&buf, pdu.Err)
	}
	if len(pdu.Tables) > 0 {
		buf.WriteByte(binTagTables)
		putStrings(&buf, pdu.Tables)
	}
	if len(pdu.Rows) > 0 {
		buf.WriteByte(binTagRows)
		putUvarint(&buf, uint64(len(pdu.Rows)))
		for _, row := range pdu.Rows {
			putFields(&buf, row)
		}
	}

	return buf.Bytes(), nil
}

func (c binaryCodecImpl) Decode(data []byte, pdu *common.Pdu) error {
	if len(data) < binaryHeaderSize {
		return fmt.Errorf("data too short for pdu header")
	}

	pdu.Version.Major = data[0]
	pdu.Version.Minor = data[1]
	pdu.Tid = binary.BigEndian.Uint32(data[2:6])
	pdu.Op = common.OpType(data[6])

	r := bytes.NewReader(data[binaryHeaderSize:])
	for r.Len() > 0 {
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}

		switch tag {
		case binTagTableName:
			pdu.TableName, err = getString(r)
		case binTagKeyDef:
			pdu.KeyDef, err = getStrings(r)
		case binTagOptions:
			pdu.Options, err = getStringMap(r)
		case binTagAttributes:
			pdu.Attributes, err = getStrings(r)
		case binTagKey:
			pdu.Key, err = getFields(r)
		case binTagColumns:
			pdu.Columns, err = getFields(r)
		case binTagStartKey:
			pdu.StartKey, err = getFields(r)
		case binTagEndKey:
			pdu.EndKey, err = getFields(r)
		case binTagLimit:
			var v uint64
			v, err = getUvarint(r)
			pdu.Limit = uint32(v)
		case binTagN:
			var v uint64
			v, err = getUvarint(r)
			pdu.N = uint32(v)
		case binTagIterator:
			pdu.Iterator, err = getBytes(r)
		case binTagColumnName:
			pdu.ColumnName, err = getString(r)
		case binTagTerm:
			pdu.Term, err = getString(r)
		case binTagFilter:
			f := &common.PostingFilter{}
			if f.SortBy, err = getString(r); err != nil {
				break
			}
			if f.StartTs, err = getUvarint(r); err != nil {
				break
			}
			if f.EndTs, err = getUvarint(r); err != nil {
				break
			}
			var max uint64
			if max, err = getUvarint(r); err != nil {
				break
			}
			f.MaxPostings = uint32(max)
			pdu.Filter = f
		case binTagUpdateOps:
			var n uint64
			if n, err = getCount(r); err != nil {
				break
			}
			ops := make([]common.UpdateOp, 0, n)
			for i := uint64(0); i < n; i++ {
				var op common.UpdateOp
				if op.Field, err = getString(r); err != nil {
					break
				}
				if op.Instruction, err = getString(r); err != nil {
					break
				}
				if op.Value, err = getBytes(r); err != nil {
					break
				}
				ops = append(ops, op)
			}
			pdu.UpdateOps = ops
		case binTagIndexes:
			var n uint64
			if n, err = getCount(r); err != nil {
				break
			}
			indexes := make([]common.IndexConfig, 0, n)
			for i := uint64(0); i < n; i++ {
				var idx common.IndexConfig
				if idx.Column, err = getString(r); err != nil {
					break
				}
				if idx.Options, err = getStringMap(r); err != nil {
					break
				}
				indexes = append(indexes, idx)
			}
			pdu.Indexes = indexes
		case binTagColumnList:
			pdu.ColumnList, err = getStrings(r)
		case binTagOk:
			var b byte
			b, err = r.ReadByte()
			pdu.Ok = b != 0
		case binTagErr:
			pdu.Err, err = getString(r)
		case binTagTables:
			pdu.Tables, err = getStrings(r)
		case binTagRows:
			var n uint64
			if n, err = getCount(r); err != nil {
				break
			}
			rows := make([]common.Row, 0, n)
			for i := uint64(0); i < n; i++ {
				var fields []common.Field
				if fields, err = getFields(r); err != nil {
					break
				}
				rows = append(rows, common.Row(fields))
			}
			pdu.Rows = rows
		default:
			return fmt.Errorf("unknown pdu field tag %d", tag)
		}

		if err != nil {
			return fmt.Errorf("decoding pdu field tag %d: %w", tag, err)
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Encode Helpers
// --------------------------------------------------------------------------

func putUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func putBytes(buf *bytes.Buffer, b []byte) {
	putUvarint(buf, uint64(len(b)))
	buf.Write(b)
}

func putString(buf *bytes.Buffer, s string) {
	putUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func putStrings(buf *bytes.Buffer, list []string) {
	putUvarint(buf, uint64(len(list)))
	for _, s := range list {
		putString(buf, s)
	}
}

func putStringMap(buf *bytes.Buffer, m map[string]string) {
	putUvarint(buf, uint64(len(m)))
	for k, v := range m {
		putString(buf, k)
		putString(buf, v)
	}
}

func putFields(buf *bytes.Buffer, fields []common.Field) {
	putUvarint(buf, uint64(len(fields)))
	for _, f := range fields {
		putString(buf, f.Name)
		putBytes(buf, f.Value)
	}
}

// --------------------------------------------------------------------------
// Decode Helpers
// --------------------------------------------------------------------------

func getUvarint(r *bytes.Reader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// getCount reads a collection length and bounds it against the remaining
// input so corrupt data cannot trigger huge allocations.
func getCount(r *bytes.Reader) (uint64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Len()) {
		return 0, fmt.Errorf("count %d exceeds remaining data %d", n, r.Len())
	}
	return n, nil
}

func getBytes(r *bytes.Reader) ([]byte, error) {
	n, err := getCount(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func getString(r *bytes.Reader) (string, error) {
	b, err := getBytes(r)
	return string(b), err
}

func getStrings(r *bytes.Reader) ([]string, error) {
	n, err := getCount(r)
	if err != nil {
		return nil, err
	}
	list := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := getString(r)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

func getStringMap(r *bytes.Reader) (map[string]string, error) {
	n, err := getCount(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	m := make(map[string]string, n)
	for i := uint64(0); i < n; i++ {
		k, err := getString(r)
		if err != nil {
			return nil, err
		}
		v, err := getString(r)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func getFields(r *bytes.Reader) ([]common.Field, error) {
	n, err := getCount(r)
	if err != nil {
		return nil, err
	}
	fields := make([]common.Field, 0, n)
	for i := uint64(0); i < n; i++ {
		var f common.Field
		if f.Name, err = getString(r); err != nil {
			return nil, err
		}
		if f.Value, err = getBytes(r); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}
