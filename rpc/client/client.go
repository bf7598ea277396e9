package client

import (
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/terndb/tern-go/rpc/auth"
	"github.com/terndb/tern-go/rpc/codec"
	"github.com/terndb/tern-go/rpc/common"
	"github.com/terndb/tern-go/rpc/transport"
	"github.com/terndb/tern-go/rpc/transport/tcp"
)

var Logger = logger.GetLogger("rpc")

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client implements IClient on top of an ITransport and an IPduCodec. It
// owns neither concurrency nor wire framing; it only translates typed
// operations into PDUs and back.
type Client struct {
	config    common.ClientConfig
	transport transport.ITransport
	codec     codec.IPduCodec
}

// assert interface compliance
var _ IClient = (*Client)(nil)

// NewClient connects the given transport and wraps it with the codec.
// The caller picks both; see Connect for the batteries-included variant.
func NewClient(config common.ClientConfig, tr transport.ITransport, c codec.IPduCodec) (*Client, error) {
	if err := tr.Connect(config); err != nil {
		return nil, err
	}
	return &Client{config: config, transport: tr, codec: c}, nil
}

// Connect creates a client with the default stack: TCP transport, binary
// codec, and SCRAM-SHA-256 when credentials are configured.
func Connect(config common.ClientConfig) (*Client, error) {
	authenticator := auth.IAuthenticator(auth.None())
	if config.Credentials.Username != "" {
		authenticator = auth.NewSCRAMSHA256()
	}
	return NewClient(config, tcp.NewTCPTransport(authenticator), codec.NewBinaryCodec())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IClient)
// --------------------------------------------------------------------------

func (c *Client) CreateTable(tableName string, keyDef []string, options map[string]string) error {
	_, err := c.invoke(common.NewCreateTableRequest(tableName, keyDef, options))
	return err
}

func (c *Client) DeleteTable(tableName string) error {
	_, err := c.invoke(common.NewDeleteTableRequest(tableName))
	return err
}

func (c *Client) OpenTable(tableName string) error {
	_, err := c.invoke(common.NewOpenTableRequest(tableName))
	return err
}

func (c *Client) CloseTable(tableName string) error {
	_, err := c.invoke(common.NewCloseTableRequest(tableName))
	return err
}

func (c *Client) TableInfo(tableName string, attributes []string) ([]common.Field, error) {
	resp, err := c.invoke(common.NewTableInfoRequest(tableName, attributes))
	if err != nil {
		return nil, err
	}
	return resp.Columns, nil
}

func (c *Client) ListTables() ([]string, error) {
	resp, err := c.invoke(common.NewListTablesRequest())
	if err != nil {
		return nil, err
	}
	return resp.Tables, nil
}

func (c *Client) Read(tableName string, key []common.Field) ([]common.Field, bool, error) {
	resp, err := c.invoke(common.NewReadRequest(tableName, key))
	if err != nil {
		return nil, false, err
	}
	return resp.Columns, resp.Ok, nil
}

func (c *Client) Write(tableName string, key, columns []common.Field) error {
	_, err := c.invoke(common.NewWriteRequest(tableName, key, columns))
	return err
}

func (c *Client) Update(tableName string, key []common.Field, ops []common.UpdateOp) ([]common.Field, error) {
	resp, err := c.invoke(common.NewUpdateRequest(tableName, key, ops))
	if err != nil {
		return nil, err
	}
	return resp.Columns, nil
}

func (c *Client) Delete(tableName string, key []common.Field) error {
	_, err := c.invoke(common.NewDeleteRequest(tableName, key))
	return err
}

func (c *Client) ReadRange(tableName string, startKey, endKey []common.Field, limit uint32) ([]common.Row, error) {
	resp, err := c.invoke(common.NewReadRangeRequest(tableName, startKey, endKey, limit))
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) ReadRangeN(tableName string, startKey []common.Field, n uint32) ([]common.Row, error) {
	resp, err := c.invoke(common.NewReadRangeNRequest(tableName, startKey, n))
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) First(tableName string) ([]common.Field, []byte, error) {
	return c.iterate(common.NewFirstRequest(tableName))
}

func (c *Client) Last(tableName string) ([]common.Field, []byte, error) {
	return c.iterate(common.NewLastRequest(tableName))
}

func (c *Client) Seek(tableName string, key []common.Field) ([]common.Field, []byte, error) {
	return c.iterate(common.NewSeekRequest(tableName, key))
}

func (c *Client) Next(iterator []byte) ([]common.Field, []byte, error) {
	return c.iterate(common.NewNextRequest(iterator))
}

func (c *Client) Prev(iterator []byte) ([]common.Field, []byte, error) {
	return c.iterate(common.NewPrevRequest(iterator))
}

func (c *Client) AddIndex(tableName string, indexes []common.IndexConfig) error {
	_, err := c.invoke(common.NewAddIndexRequest(tableName, indexes))
	return err
}

func (c *Client) RemoveIndex(tableName string, columns []string) error {
	_, err := c.invoke(common.NewRemoveIndexRequest(tableName, columns))
	return err
}

func (c *Client) IndexRead(tableName, columnName, term string, filter *common.PostingFilter) ([]common.Row, error) {
	resp, err := c.invoke(common.NewIndexReadRequest(tableName, columnName, term, filter))
	if err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// invoke stamps the request with a fresh transaction id, runs the
// encode/send/decode cycle and turns server side errors into Go errors.
func (c *Client) invoke(req *common.Pdu) (*common.Pdu, error) {
	req.Tid = c.transport.NextTid()

	b, err := c.codec.Encode(*req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", req.Op, err)
	}

	respBytes, err := c.transport.Send(b, 0)
	if err != nil {
		return nil, err
	}

	var resp common.Pdu
	if err := c.codec.Decode(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding %s response: %v", ErrProtocol, req.Op, err)
	}

	if resp.Tid != req.Tid {
		return nil, fmt.Errorf("%w: response tid %d does not match request tid %d", ErrProtocol, resp.Tid, req.Tid)
	}

	if resp.Op == common.OpError {
		return nil, fmt.Errorf("%w: %s: %s", ErrServer, req.Op, resp.Err)
	}

	return &resp, nil
}

// iterate is invoke for the cursor operations, which all return one row plus
// an iterator handle.
func (c *Client) iterate(req *common.Pdu) ([]common.Field, []byte, error) {
	resp, err := c.invoke(req)
	if err != nil {
		return nil, nil, err
	}
	return resp.Columns, resp.Iterator, nil
}
