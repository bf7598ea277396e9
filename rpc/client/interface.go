package client

import "github.com/terndb/tern-go/rpc/common"

// IClient is the operation level API of a tern connection: every call builds
// one request PDU, sends it over the multiplexed transport and interprets
// the matching response. All methods are safe for concurrent use.
type IClient interface {
	// CreateTable creates a table with the given key definition. Options
	// are passed through to the server unchanged (e.g. "type", "comparator").
	CreateTable(tableName string, keyDef []string, options map[string]string) error

	// DeleteTable removes the table and all its data.
	DeleteTable(tableName string) error

	// OpenTable loads an existing table on the server.
	OpenTable(tableName string) error

	// CloseTable unloads the table on the server.
	CloseTable(tableName string) error

	// TableInfo returns the requested attributes of a table as fields.
	// An empty attribute list asks for all of them.
	TableInfo(tableName string, attributes []string) ([]common.Field, error)

	// ListTables returns the names of all tables.
	ListTables() ([]string, error)

	// Read fetches the row stored under key. The bool reports whether the
	// key exists.
	Read(tableName string, key []common.Field) ([]common.Field, bool, error)

	// Write stores columns under key, replacing any existing row.
	Write(tableName string, key, columns []common.Field) error

	// Update applies the given instructions to the row under key and
	// returns the resulting columns.
	Update(tableName string, key []common.Field, ops []common.UpdateOp) ([]common.Field, error)

	// Delete removes the row stored under key.
	Delete(tableName string, key []common.Field) error

	// ReadRange returns up to limit rows with keys in [startKey, endKey].
	ReadRange(tableName string, startKey, endKey []common.Field, limit uint32) ([]common.Row, error)

	// ReadRangeN returns up to n consecutive rows starting at startKey.
	ReadRangeN(tableName string, startKey []common.Field, n uint32) ([]common.Row, error)

	// First positions an iterator at the first row of the table and
	// returns the row plus the iterator handle for Next/Prev.
	First(tableName string) ([]common.Field, []byte, error)

	// Last positions an iterator at the last row of the table.
	Last(tableName string) ([]common.Field, []byte, error)

	// Seek positions an iterator at key.
	Seek(tableName string, key []common.Field) ([]common.Field, []byte, error)

	// Next advances the iterator and returns the next row.
	Next(iterator []byte) ([]common.Field, []byte, error)

	// Prev steps the iterator back and returns the previous row.
	Prev(iterator []byte) ([]common.Field, []byte, error)

	// AddIndex creates secondary indexes on the given columns.
	AddIndex(tableName string, indexes []common.IndexConfig) error

	// RemoveIndex drops the secondary indexes on the given columns.
	RemoveIndex(tableName string, columns []string) error

	// IndexRead queries the secondary index of a column for term. The
	// filter narrows and orders the posting list; nil selects the server
	// defaults.
	IndexRead(tableName, columnName, term string, filter *common.PostingFilter) ([]common.Row, error)

	// Close tears the underlying connection down. Outstanding calls fail.
	Close() error
}
