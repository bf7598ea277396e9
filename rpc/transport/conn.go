package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/terndb/tern-go/rpc/auth"
	"github.com/terndb/tern-go/rpc/common"
)

var Logger = logger.GetLogger("transport/rpc")

const (
	// DefaultTimeout applies to requests sent with a non-positive timeout
	// when the config does not set one either.
	DefaultTimeout = 60 * time.Second

	// maxInflightLimit is the hard upper bound on concurrently outstanding
	// requests, dictated by the 16 bit correlation id space.
	maxInflightLimit = 1 << 16
)

// --------------------------------------------------------------------------
// Connection state machine
// --------------------------------------------------------------------------

// connState: Disconnected -> Connecting -> Ready -> Closing -> Closed.
// Any I/O failure while Ready forces Closing -> Closed.
type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateReady
	stateClosing
	stateClosed
)

// --------------------------------------------------------------------------
// Async call handle
// --------------------------------------------------------------------------

// Result carries the terminal outcome of one request: response payload on
// success, or exactly one of the transport errors.
type Result struct {
	Payload []byte
	Err     error
}

// Call is the handle for a request submitted with SendAsync.
type Call struct {
	done chan Result
}

// NewCall creates an unresolved call handle. Meant for ITransport
// implementations; callers of SendAsync never need it.
func NewCall() *Call {
	return &Call{done: make(chan Result, 1)}
}

// Resolve delivers the terminal result of the call. Must be called exactly
// once per call.
func (c *Call) Resolve(r Result) {
	c.done <- r
}

// Done returns a channel that yields the single Result of the call.
func (c *Call) Done() <-chan Result {
	return c.done
}

// Await blocks until the call resolves.
func (c *Call) Await() ([]byte, error) {
	r := <-c.done
	return r.Payload, r.Err
}

// --------------------------------------------------------------------------
// Transport implementation
// --------------------------------------------------------------------------

// clientTransport implements ITransport over a single connection obtained
// from the configured connector. One background listener goroutine reads
// frames and completes waiters through the correlation table; concurrent
// senders serialize their frame writes on writeMu.
type clientTransport struct {
	connector IClientConnector
	auth      auth.IAuthenticator

	id     uuid.UUID
	config common.ClientConfig

	state atomic.Int32

	conn    net.Conn
	writeMu sync.Mutex // serializes frame writes, never held while waiting

	seq      sequence
	table    *correlationTable
	inflight chan struct{} // counting semaphore bounding outstanding requests

	listening    atomic.Bool
	listenerDone chan struct{}
	teardownOnce sync.Once

	maxFrameSize uint32
	timeout      time.Duration
	m            *transportMetrics
}

// NewTransport creates a transport using the given connector and
// authenticator. The transport is usable after Connect.
func NewTransport(connector IClientConnector, authenticator auth.IAuthenticator) ITransport {
	return &clientTransport{
		connector:    connector,
		auth:         authenticator,
		id:           uuid.New(),
		table:        newCorrelationTable(),
		listenerDone: make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ITransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if !t.state.CompareAndSwap(int32(stateDisconnected), int32(stateConnecting)) {
		return fmt.Errorf("%w: transport already connected or closed", ErrTransportClosed)
	}

	t.config = config

	t.timeout = time.Duration(config.TimeoutSecond) * time.Second
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}

	t.maxFrameSize = config.Transport.MaxFrameSize
	if t.maxFrameSize == 0 {
		t.maxFrameSize = DefaultMaxFrameSize
	}

	slots := config.MaxInflight
	if slots <= 0 || slots > maxInflightLimit {
		slots = maxInflightLimit
	}
	t.inflight = make(chan struct{}, slots)

	endpoint := config.Transport.Endpoint
	conn, err := t.connector.Connect(endpoint)
	if err != nil {
		t.state.Store(int32(stateClosed))
		return fmt.Errorf("%w: dial %s: %v", ErrConnection, endpoint, err)
	}

	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		conn.Close()
		t.state.Store(int32(stateClosed))
		return fmt.Errorf("%w: upgrading connection to %s: %v", ErrConnection, endpoint, err)
	}

	if err := t.auth.Authenticate(config.Credentials, conn); err != nil {
		conn.Close()
		t.state.Store(int32(stateClosed))
		return fmt.Errorf("%w: %s: %v", ErrAuthenticationFailed, t.auth.GetName(), err)
	}

	t.writeMu.Lock()
	t.conn = conn
	t.writeMu.Unlock()
	t.m = newTransportMetrics(t.id.String(), t.table)

	// Close may have raced the handshake; only the winner of this swap owns
	// the connection.
	if !t.state.CompareAndSwap(int32(stateConnecting), int32(stateReady)) {
		t.teardown(ErrTransportClosed)
		return fmt.Errorf("%w: transport closed during connect", ErrTransportClosed)
	}

	t.listening.Store(true)
	go t.listen()

	Logger.Infof("%s connected to %s via %s (auth %s)", t.id, endpoint, t.connector.GetName(), t.auth.GetName())
	return nil
}

func (t *clientTransport) Send(payload []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = t.defaultTimeout()
	}

	if connState(t.state.Load()) != stateReady {
		return nil, fmt.Errorf("%w: transport is not connected", ErrTransportClosed)
	}
	t.m.requests.Inc()

	// One deadline governs the whole request: slot wait, write, response.
	deadline := time.Now().Add(timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// Bound outstanding requests below the correlation id space.
	select {
	case t.inflight <- struct{}{}:
	case <-timer.C:
		t.m.timeouts.Inc()
		return nil, fmt.Errorf("%w: waiting for a request slot", ErrTimeout)
	}
	defer func() { <-t.inflight }()

	if connState(t.state.Load()) != stateReady {
		return nil, fmt.Errorf("%w: transport closed while waiting for a request slot", ErrTransportClosed)
	}

	cid := t.seq.nextCid()
	p, err := t.table.register(cid)
	if err != nil {
		return nil, err
	}

	t.writeMu.Lock()
	t.conn.SetWriteDeadline(deadline)
	werr := writeFrame(t.conn, cid, payload, t.maxFrameSize)
	t.writeMu.Unlock()

	if werr != nil {
		t.table.remove(cid)
		if errors.Is(werr, ErrFrame) {
			// Oversized payload, rejected before any byte went out. The
			// connection itself is fine.
			return nil, werr
		}
		t.teardown(ErrConnectionLost)
		return nil, fmt.Errorf("%w: writing request %d: %v", ErrConnectionLost, cid, werr)
	}

	select {
	case res := <-p.done:
		return res.payload, res.err

	case <-timer.C:
		if t.table.remove(cid) {
			// The id is gone from the table, so it is free for reuse and
			// a late response for it will be dropped by the listener.
			t.m.timeouts.Inc()
			return nil, fmt.Errorf("%w: request %d got no response within %v", ErrTimeout, cid, timeout)
		}
		// Lost the race against a concurrent complete: the resolution is
		// already on its way, take it.
		res := <-p.done
		return res.payload, res.err
	}
}

func (t *clientTransport) SendAsync(payload []byte, timeout time.Duration) *Call {
	call := NewCall()
	go func() {
		resp, err := t.Send(payload, timeout)
		call.Resolve(Result{Payload: resp, Err: err})
	}()
	return call
}

func (t *clientTransport) NextTid() uint32 {
	return t.seq.nextTid()
}

func (t *clientTransport) Close() error {
	if t.state.CompareAndSwap(int32(stateDisconnected), int32(stateClosed)) {
		// Never connected, nothing is running.
		return nil
	}

	// A connect still in progress must not reach Ready after this point;
	// Connect observes the state change and finishes the teardown itself.
	if t.state.CompareAndSwap(int32(stateConnecting), int32(stateClosing)) {
		return nil
	}

	t.teardown(ErrConnectionLost)

	if t.listening.Load() {
		<-t.listenerDone
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (t *clientTransport) defaultTimeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return DefaultTimeout
}

// listen is the single background reader of the connection. It runs once
// per connection, for the connection's lifetime: decode a frame, complete
// the matching waiter, repeat. It never interprets payload bytes. Any read
// failure drives full teardown.
func (t *clientTransport) listen() {
	defer close(t.listenerDone)

	for {
		cid, payload, err := readFrame(t.conn, t.maxFrameSize)
		if err != nil {
			if connState(t.state.Load()) >= stateClosing {
				// Local teardown already in progress; the read failed
				// because we closed our own socket.
				return
			}
			if err == io.EOF {
				Logger.Infof("%s connection closed by server", t.id)
			} else {
				Logger.Errorf("%s read failed: %v", t.id, err)
			}
			t.teardown(ErrConnectionLost)
			return
		}

		if !t.table.complete(cid, payload) {
			// Late or duplicate response. Dropping it is correct (the
			// waiter is gone), but keep the event observable.
			t.m.lateDrops.Inc()
			Logger.Debugf("%s dropped %d byte frame for unknown correlation id %d", t.id, len(payload), cid)
		}
	}
}

// teardown moves the connection to Closed and resolves every outstanding
// waiter with cause. Only the first caller acts; it is invoked by Close,
// by the listener on read failure, by senders on write failure, and by a
// connect that lost its race against Close.
func (t *clientTransport) teardown(cause error) {
	t.teardownOnce.Do(func() {
		t.state.Store(int32(stateClosing))

		t.writeMu.Lock()
		conn := t.conn
		t.writeMu.Unlock()
		if conn != nil {
			conn.Close()
		}

		n := t.table.failAll(cause)
		t.state.Store(int32(stateClosed))

		if t.m != nil {
			t.m.connectionsLost.Inc()
			t.m.unregister()
		}
		Logger.Infof("%s closed, failed %d pending requests", t.id, n)
	})
}
