package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Protocol version
// --------------------------------------------------------------------------

const (
	// ProtocolMajor and ProtocolMinor are stamped into every request PDU.
	ProtocolMajor uint8 = 0
	ProtocolMinor uint8 = 1
)

// Version identifies the protocol revision a PDU was built for.
type Version struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
}

// --------------------------------------------------------------------------
// PDU field types
// --------------------------------------------------------------------------

// Field is a named value, used both for row keys and for columns.
type Field struct {
	Name  string `json:"name"`
	Value []byte `json:"value,omitempty"`
}

// Row is one result row of a range or index read.
type Row []Field

// Update instructions understood by the server.
const (
	UpdateInstructionSet       = "set"
	UpdateInstructionIncrement = "increment"
	UpdateInstructionAppend    = "append"
)

// UpdateOp describes a single server side update instruction.
type UpdateOp struct {
	Field       string `json:"field"`
	Instruction string `json:"instruction"` // one of the UpdateInstruction constants
	Value       []byte `json:"value,omitempty"`
}

// PostingFilter narrows an index read.
type PostingFilter struct {
	SortBy      string `json:"sort_by,omitempty"`
	StartTs     uint64 `json:"start_ts,omitempty"`
	EndTs       uint64 `json:"end_ts,omitempty"`
	MaxPostings uint32 `json:"max_postings,omitempty"`
}

// IndexConfig configures one indexed column.
type IndexConfig struct {
	Column  string            `json:"column"`
	Options map[string]string `json:"options,omitempty"`
}

// --------------------------------------------------------------------------
// PDU structure
// --------------------------------------------------------------------------

// Pdu represents a single protocol data unit used for both requests and
// responses. Which fields are used depends on the operation type.
// The transport treats the encoded form as opaque bytes; only this layer
// and the server interpret it.
type Pdu struct {
	Version Version `json:"version"`
	Tid     uint32  `json:"tid"`
	Op      OpType  `json:"op"`

	// Request fields
	TableName  string            `json:"table_name,omitempty"`
	KeyDef     []string          `json:"key_def,omitempty"`     // Used for: CreateTable
	Options    map[string]string `json:"options,omitempty"`     // Used for: CreateTable
	Attributes []string          `json:"attributes,omitempty"`  // Used for: TableInfo
	Key        []Field           `json:"key,omitempty"`         // Used for: Read, Write, Update, Delete, Seek
	Columns    []Field           `json:"columns,omitempty"`     // Used for: Write (request), reads (response)
	StartKey   []Field           `json:"start_key,omitempty"`   // Used for: ReadRange, ReadRangeN
	EndKey     []Field           `json:"end_key,omitempty"`     // Used for: ReadRange
	Limit      uint32            `json:"limit,omitempty"`       // Used for: ReadRange
	N          uint32            `json:"n,omitempty"`           // Used for: ReadRangeN
	Iterator   []byte            `json:"iterator,omitempty"`    // Used for: Next, Prev; returned by First, Last, Seek
	ColumnName string            `json:"column_name,omitempty"` // Used for: IndexRead
	Term       string            `json:"term,omitempty"`        // Used for: IndexRead
	Filter     *PostingFilter    `json:"filter,omitempty"`      // Used for: IndexRead
	UpdateOps  []UpdateOp        `json:"update_ops,omitempty"`  // Used for: Update
	Indexes    []IndexConfig     `json:"indexes,omitempty"`     // Used for: AddIndex
	ColumnList []string          `json:"column_list,omitempty"` // Used for: RemoveIndex

	// Response fields
	Ok     bool     `json:"ok,omitempty"`
	Err    string   `json:"err,omitempty"` // Empty if no error, otherwise contains the error message
	Tables []string `json:"tables,omitempty"`
	Rows   []Row    `json:"rows,omitempty"`
}

// newRequest returns a Pdu with the version stamp set. The transaction id
// is stamped later, right before encoding.
func newRequest(op OpType) *Pdu {
	return &Pdu{
		Version: Version{Major: ProtocolMajor, Minor: ProtocolMinor},
		Op:      op,
	}
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewCreateTableRequest creates a new CreateTable request
func NewCreateTableRequest(tableName string, keyDef []string, options map[string]string) *Pdu {
	pdu := newRequest(OpCreateTable)
	pdu.TableName = tableName
	pdu.KeyDef = keyDef
	pdu.Options = options
	return pdu
}

// NewDeleteTableRequest creates a new DeleteTable request
func NewDeleteTableRequest(tableName string) *Pdu {
	pdu := newRequest(OpDeleteTable)
	pdu.TableName = tableName
	return pdu
}

// NewOpenTableRequest creates a new OpenTable request
func NewOpenTableRequest(tableName string) *Pdu {
	pdu := newRequest(OpOpenTable)
	pdu.TableName = tableName
	return pdu
}

// NewCloseTableRequest creates a new CloseTable request
func NewCloseTableRequest(tableName string) *Pdu {
	pdu := newRequest(OpCloseTable)
	pdu.TableName = tableName
	return pdu
}

// NewTableInfoRequest creates a new TableInfo request
func NewTableInfoRequest(tableName string, attributes []string) *Pdu {
	pdu := newRequest(OpTableInfo)
	pdu.TableName = tableName
	pdu.Attributes = attributes
	return pdu
}

// NewListTablesRequest creates a new ListTables request
func NewListTablesRequest() *Pdu {
	return newRequest(OpListTables)
}

// NewReadRequest creates a new Read request
func NewReadRequest(tableName string, key []Field) *Pdu {
	pdu := newRequest(OpRead)
	pdu.TableName = tableName
	pdu.Key = key
	return pdu
}

// NewWriteRequest creates a new Write request
func NewWriteRequest(tableName string, key, columns []Field) *Pdu {
	pdu := newRequest(OpWrite)
	pdu.TableName = tableName
	pdu.Key = key
	pdu.Columns = columns
	return pdu
}

// NewUpdateRequest creates a new Update request
func NewUpdateRequest(tableName string, key []Field, ops []UpdateOp) *Pdu {
	pdu := newRequest(OpUpdate)
	pdu.TableName = tableName
	pdu.Key = key
	pdu.UpdateOps = ops
	return pdu
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(tableName string, key []Field) *Pdu {
	pdu := newRequest(OpDelete)
	pdu.TableName = tableName
	pdu.Key = key
	return pdu
}

// NewReadRangeRequest creates a new ReadRange request
func NewReadRangeRequest(tableName string, startKey, endKey []Field, limit uint32) *Pdu {
	pdu := newRequest(OpReadRange)
	pdu.TableName = tableName
	pdu.StartKey = startKey
	pdu.EndKey = endKey
	pdu.Limit = limit
	return pdu
}

// NewReadRangeNRequest creates a new ReadRangeN request
func NewReadRangeNRequest(tableName string, startKey []Field, n uint32) *Pdu {
	pdu := newRequest(OpReadRangeN)
	pdu.TableName = tableName
	pdu.StartKey = startKey
	pdu.N = n
	return pdu
}

// NewFirstRequest creates a new First request
func NewFirstRequest(tableName string) *Pdu {
	pdu := newRequest(OpFirst)
	pdu.TableName = tableName
	return pdu
}

// NewLastRequest creates a new Last request
func NewLastRequest(tableName string) *Pdu {
	pdu := newRequest(OpLast)
	pdu.TableName = tableName
	return pdu
}

// NewSeekRequest creates a new Seek request
func NewSeekRequest(tableName string, key []Field) *Pdu {
	pdu := newRequest(OpSeek)
	pdu.TableName = tableName
	pdu.Key = key
	return pdu
}

// NewNextRequest creates a new Next request for the given iterator
func NewNextRequest(iterator []byte) *Pdu {
	pdu := newRequest(OpNext)
	pdu.Iterator = iterator
	return pdu
}

// NewPrevRequest creates a new Prev request for the given iterator
func NewPrevRequest(iterator []byte) *Pdu {
	pdu := newRequest(OpPrev)
	pdu.Iterator = iterator
	return pdu
}

// NewAddIndexRequest creates a new AddIndex request
func NewAddIndexRequest(tableName string, indexes []IndexConfig) *Pdu {
	pdu := newRequest(OpAddIndex)
	pdu.TableName = tableName
	pdu.Indexes = indexes
	return pdu
}

// NewRemoveIndexRequest creates a new RemoveIndex request
func NewRemoveIndexRequest(tableName string, columns []string) *Pdu {
	pdu := newRequest(OpRemoveIndex)
	pdu.TableName = tableName
	pdu.ColumnList = columns
	return pdu
}

// NewIndexReadRequest creates a new IndexRead request
func NewIndexReadRequest(tableName, columnName, term string, filter *PostingFilter) *Pdu {
	pdu := newRequest(OpIndexRead)
	pdu.TableName = tableName
	pdu.ColumnName = columnName
	pdu.Term = term
	pdu.Filter = filter
	return pdu
}

// --------------------------------------------------------------------------
// Response Factory Functions
// --------------------------------------------------------------------------

// NewOkResponse creates a plain success response for the given operation
func NewOkResponse(op OpType, tid uint32) *Pdu {
	return &Pdu{
		Version: Version{Major: ProtocolMajor, Minor: ProtocolMinor},
		Tid:     tid,
		Op:      op,
		Ok:      true,
	}
}

// NewReadResponse creates a Read response carrying the row columns
func NewReadResponse(tid uint32, columns []Field, ok bool) *Pdu {
	pdu := NewOkResponse(OpRead, tid)
	pdu.Columns = columns
	pdu.Ok = ok
	return pdu
}

// NewRowsResponse creates a response carrying multiple rows (range and index reads)
func NewRowsResponse(op OpType, tid uint32, rows []Row) *Pdu {
	pdu := NewOkResponse(op, tid)
	pdu.Rows = rows
	return pdu
}

// NewIteratorResponse creates a response carrying one row plus an iterator handle
func NewIteratorResponse(op OpType, tid uint32, columns []Field, iterator []byte) *Pdu {
	pdu := NewOkResponse(op, tid)
	pdu.Columns = columns
	pdu.Iterator = iterator
	return pdu
}

// NewListTablesResponse creates a ListTables response
func NewListTablesResponse(tid uint32, tables []string) *Pdu {
	pdu := NewOkResponse(OpListTables, tid)
	pdu.Tables = tables
	return pdu
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(tid uint32, err string) *Pdu {
	return &Pdu{
		Version: Version{Major: ProtocolMajor, Minor: ProtocolMinor},
		Tid:     tid,
		Op:      OpError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Operation Type Definition
// --------------------------------------------------------------------------

// OpType defines the operation carried by a PDU.
type OpType uint8

// String returns the string representation of an OpType.
func (t OpType) String() string {
	switch t {
	case OpError:
		return "error"
	case OpCreateTable:
		return "createTable"
	case OpDeleteTable:
		return "deleteTable"
	case OpOpenTable:
		return "openTable"
	case OpCloseTable:
		return "closeTable"
	case OpTableInfo:
		return "tableInfo"
	case OpListTables:
		return "listTables"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpReadRange:
		return "readRange"
	case OpReadRangeN:
		return "readRangeN"
	case OpFirst:
		return "first"
	case OpLast:
		return "last"
	case OpSeek:
		return "seek"
	case OpNext:
		return "next"
	case OpPrev:
		return "prev"
	case OpAddIndex:
		return "addIndex"
	case OpRemoveIndex:
		return "removeIndex"
	case OpIndexRead:
		return "indexRead"
	default:
		return "unknown"
	}
}

// opTypeNames is the inverse of OpType.String, used for JSON decoding.
var opTypeNames = map[string]OpType{
	"error":       OpError,
	"createTable": OpCreateTable,
	"deleteTable": OpDeleteTable,
	"openTable":   OpOpenTable,
	"closeTable":  OpCloseTable,
	"tableInfo":   OpTableInfo,
	"listTables":  OpListTables,
	"read":        OpRead,
	"write":       OpWrite,
	"update":      OpUpdate,
	"delete":      OpDelete,
	"readRange":   OpReadRange,
	"readRangeN":  OpReadRangeN,
	"first":       OpFirst,
	"last":        OpLast,
	"seek":        OpSeek,
	"next":        OpNext,
	"prev":        OpPrev,
	"addIndex":    OpAddIndex,
	"removeIndex": OpRemoveIndex,
	"indexRead":   OpIndexRead,
}

// MarshalJSON implements the json.Marshaller interface for OpType.
// This allows OpType to be serialized as a string in JSON.
func (t OpType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for OpType.
// This allows OpType to be deserialized from a string in JSON.
func (t *OpType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	op, ok := opTypeNames[s]
	if !ok {
		return fmt.Errorf("unknown operation type: %s", s)
	}
	*t = op

	return nil
}

// --------------------------------------------------------------------------
// Operation Type Constants
// --------------------------------------------------------------------------

const (
	// General operation types

	OpUnknown OpType = iota
	OpError          // Indicates an error occurred

	// Table management operations

	OpCreateTable
	OpDeleteTable
	OpOpenTable
	OpCloseTable
	OpTableInfo
	OpListTables

	// Row operations

	OpRead
	OpWrite
	OpUpdate
	OpDelete

	// Range and iterator operations

	OpReadRange
	OpReadRangeN
	OpFirst
	OpLast
	OpSeek
	OpNext
	OpPrev

	// Index operations

	OpAddIndex
	OpRemoveIndex
	OpIndexRead
)
