package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/terndb/tern-go/rpc/auth"
	"github.com/terndb/tern-go/rpc/common"
	"github.com/terndb/tern-go/rpc/transport/transporttest"
)

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

// loopbackConnector dials plain TCP without socket tuning.
type loopbackConnector struct{}

func (loopbackConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (loopbackConnector) GetName() string { return "tcp" }

func (loopbackConnector) UpgradeConnection(_ net.Conn, _ common.ClientConfig) error { return nil }

// gatedConnector blocks the dial until released, so tests can interleave
// Close with a connect in progress.
type gatedConnector struct {
	started chan struct{}
	release chan struct{}
}

func newGatedConnector() *gatedConnector {
	return &gatedConnector{started: make(chan struct{}), release: make(chan struct{})}
}

func (c *gatedConnector) Connect(endpoint string) (net.Conn, error) {
	close(c.started)
	<-c.release
	return net.Dial("tcp", endpoint)
}

func (c *gatedConnector) GetName() string { return "tcp" }

func (c *gatedConnector) UpgradeConnection(_ net.Conn, _ common.ClientConfig) error { return nil }

// rejectingAuthenticator fails every handshake.
type rejectingAuthenticator struct{}

func (rejectingAuthenticator) Authenticate(_ common.Credentials, _ io.ReadWriter) error {
	return errors.New("credentials rejected")
}

func (rejectingAuthenticator) GetName() string { return "rejecting" }

func testConfig(endpoint string) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 10,
		Transport:     common.ClientTransportConfig{Endpoint: endpoint},
	}
}

// newTestTransport starts a peer with the given handler and returns a
// connected transport. Both are torn down with the test.
func newTestTransport(t *testing.T, handler transporttest.HandlerFunc) (*clientTransport, *transporttest.Peer) {
	t.Helper()

	peer, err := transporttest.NewPeer(handler)
	if err != nil {
		t.Fatalf("starting test peer failed: %v", err)
	}
	t.Cleanup(peer.Close)

	tr := NewTransport(loopbackConnector{}, auth.None()).(*clientTransport)
	if err := tr.Connect(testConfig(peer.Addr())); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	return tr, peer
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

// TestSendEcho verifies the basic request/response round trip
func TestSendEcho(t *testing.T) {
	tr, _ := newTestTransport(t, transporttest.EchoHandler)

	resp, err := tr.Send([]byte("PING"), 0)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("PING")) {
		t.Errorf("Expected echoed payload, got %q", resp)
	}
	if tr.table.size() != 0 {
		t.Errorf("Expected no pending entries after completion, got %d", tr.table.size())
	}
}

// TestConcurrentSendsOutOfOrder verifies responses are matched to their
// requests by correlation id, not by arrival order: the peer buffers all
// requests and answers them in reverse
func TestConcurrentSendsOutOfOrder(t *testing.T) {
	const n = 32

	var mu sync.Mutex
	type frame struct {
		cid     uint16
		payload []byte
	}
	pending := make([]frame, 0, n)

	tr, _ := newTestTransport(t, func(p *transporttest.Peer, cid uint16, payload []byte) {
		mu.Lock()
		pending = append(pending, frame{cid, payload})
		ready := len(pending) == n
		var batch []frame
		if ready {
			batch = pending
		}
		mu.Unlock()

		if ready {
			for i := len(batch) - 1; i >= 0; i-- {
				p.Reply(batch[i].cid, batch[i].payload)
			}
		}
	})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			want := []byte(fmt.Sprintf("request-%d", i))
			resp, err := tr.Send(want, 0)
			if err != nil {
				errs[i] = err
				return
			}
			if !bytes.Equal(resp, want) {
				errs[i] = fmt.Errorf("got %q, want %q", resp, want)
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Request %d: %v", i, err)
		}
	}
}

// TestSendTimeoutAndLateDrop verifies a slow response yields ErrTimeout, the
// late frame is dropped and counted, and the connection stays usable
func TestSendTimeoutAndLateDrop(t *testing.T) {
	tr, _ := newTestTransport(t, func(p *transporttest.Peer, cid uint16, payload []byte) {
		if bytes.Equal(payload, []byte("SLOW")) {
			time.Sleep(800 * time.Millisecond)
		}
		p.Reply(cid, payload)
	})

	_, err := tr.Send([]byte("SLOW"), 100*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if tr.table.size() != 0 {
		t.Errorf("Expected the timed out entry to be removed, got size %d", tr.table.size())
	}

	// transport must still work for fresh requests
	resp, err := tr.Send([]byte("PING"), 0)
	if err != nil {
		t.Fatalf("Send after timeout failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("PING")) {
		t.Errorf("Expected echoed payload, got %q", resp)
	}

	// the late SLOW reply must be dropped and show up in the counter
	waitFor(t, "late frame drop", func() bool { return tr.m.lateDrops.Get() >= 1 })
}

// TestCloseDrainsPending verifies Close fails every outstanding request with
// ErrConnectionLost and later sends fail fast with ErrTransportClosed
func TestCloseDrainsPending(t *testing.T) {
	// swallow everything, requests stay pending forever
	tr, _ := newTestTransport(t, func(_ *transporttest.Peer, _ uint16, _ []byte) {})

	const n = 8
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := tr.Send([]byte("stuck"), 30*time.Second)
			results <- err
		}()
	}
	waitFor(t, "all requests in flight", func() bool { return tr.table.size() == n })

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for i := 0; i < n; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, ErrConnectionLost) {
				t.Errorf("Expected ErrConnectionLost, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Pending request was not drained by Close")
		}
	}

	// after Close, sends must fail immediately without touching the network
	start := time.Now()
	_, err := tr.Send([]byte("PING"), 30*time.Second)
	if !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed after Close, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected immediate failure after Close, took %v", elapsed)
	}
}

// TestServerDisconnectFailsPending verifies a connection dropped by the peer
// resolves outstanding requests with ErrConnectionLost
func TestServerDisconnectFailsPending(t *testing.T) {
	tr, peer := newTestTransport(t, func(_ *transporttest.Peer, _ uint16, _ []byte) {})

	result := make(chan error, 1)
	go func() {
		_, err := tr.Send([]byte("stuck"), 30*time.Second)
		result <- err
	}()
	waitFor(t, "request in flight", func() bool { return tr.table.size() == 1 })

	peer.CloseConn()

	select {
	case err := <-result:
		if !errors.Is(err, ErrConnectionLost) {
			t.Errorf("Expected ErrConnectionLost, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Pending request was not failed after server disconnect")
	}

	_, err := tr.Send([]byte("PING"), time.Second)
	if !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed after connection loss, got %v", err)
	}
}

// TestConnectAuthenticationFailure verifies a failed handshake surfaces as
// ErrAuthenticationFailed and leaves the transport closed
func TestConnectAuthenticationFailure(t *testing.T) {
	peer, err := transporttest.NewPeer(nil)
	if err != nil {
		t.Fatalf("starting test peer failed: %v", err)
	}
	defer peer.Close()

	tr := NewTransport(loopbackConnector{}, rejectingAuthenticator{})
	err = tr.Connect(testConfig(peer.Addr()))
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Expected ErrAuthenticationFailed, got %v", err)
	}

	_, err = tr.Send([]byte("PING"), time.Second)
	if !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed after failed connect, got %v", err)
	}
}

// TestConnectDialFailure verifies an unreachable endpoint surfaces as
// ErrConnection
func TestConnectDialFailure(t *testing.T) {
	// a listener closed before dialing guarantees a refused port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port failed: %v", err)
	}
	endpoint := ln.Addr().String()
	ln.Close()

	tr := NewTransport(loopbackConnector{}, auth.None())
	if err := tr.Connect(testConfig(endpoint)); !errors.Is(err, ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", err)
	}
}

// TestConnectTwice verifies the transport is single use
func TestConnectTwice(t *testing.T) {
	tr, peer := newTestTransport(t, transporttest.EchoHandler)

	if err := tr.Connect(testConfig(peer.Addr())); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed on second Connect, got %v", err)
	}
}

// TestSendBeforeConnect verifies sends on a never-connected transport fail
// fast
func TestSendBeforeConnect(t *testing.T) {
	tr := NewTransport(loopbackConnector{}, auth.None())
	if _, err := tr.Send([]byte("PING"), time.Second); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed before Connect, got %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("Close on never-connected transport failed: %v", err)
	}
}

// TestSendOversizedPayload verifies an oversized payload is rejected as a
// frame error without killing the connection
func TestSendOversizedPayload(t *testing.T) {
	peer, err := transporttest.NewPeer(transporttest.EchoHandler)
	if err != nil {
		t.Fatalf("starting test peer failed: %v", err)
	}
	t.Cleanup(peer.Close)

	config := testConfig(peer.Addr())
	config.Transport.MaxFrameSize = 64

	tr := NewTransport(loopbackConnector{}, auth.None()).(*clientTransport)
	if err := tr.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	_, err = tr.Send(make([]byte, 1024), time.Second)
	if !errors.Is(err, ErrFrame) {
		t.Fatalf("Expected ErrFrame, got %v", err)
	}

	// the connection survives the rejected request
	resp, err := tr.Send([]byte("PING"), 0)
	if err != nil {
		t.Fatalf("Send after frame rejection failed: %v", err)
	}
	if !bytes.Equal(resp, []byte("PING")) {
		t.Errorf("Expected echoed payload, got %q", resp)
	}
}

// TestSendCidCollision verifies a live correlation id is never silently
// reused: the colliding request fails without disturbing the original waiter
func TestSendCidCollision(t *testing.T) {
	tr, _ := newTestTransport(t, transporttest.EchoHandler)

	// occupy the id the next send will draw
	blocker, err := tr.table.register(0)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err = tr.Send([]byte("PING"), time.Second)
	if !errors.Is(err, ErrCidCollision) {
		t.Fatalf("Expected ErrCidCollision, got %v", err)
	}

	select {
	case res := <-blocker.done:
		t.Errorf("Expected the original waiter to stay untouched, got %v", res)
	default:
	}
	tr.table.remove(0)

	// the id space advanced, the next send succeeds
	if _, err := tr.Send([]byte("PING"), 0); err != nil {
		t.Errorf("Send after collision failed: %v", err)
	}
}

// TestSendAsync verifies the async surface resolves calls like the blocking
// one
func TestSendAsync(t *testing.T) {
	tr, _ := newTestTransport(t, transporttest.EchoHandler)

	calls := make([]*Call, 4)
	for i := range calls {
		calls[i] = tr.SendAsync([]byte(fmt.Sprintf("async-%d", i)), 0)
	}

	for i, call := range calls {
		resp, err := call.Await()
		if err != nil {
			t.Errorf("Call %d failed: %v", i, err)
			continue
		}
		want := fmt.Sprintf("async-%d", i)
		if string(resp) != want {
			t.Errorf("Call %d: got %q, want %q", i, resp, want)
		}
	}
}

// TestSendInflightBound verifies the in-flight limit: with a single slot
// occupied by a stuck request, a second send must fail with ErrTimeout after
// its own timeout, without ever registering a waiter
func TestSendInflightBound(t *testing.T) {
	// swallow everything, the first request never frees its slot
	peer, err := transporttest.NewPeer(func(_ *transporttest.Peer, _ uint16, _ []byte) {})
	if err != nil {
		t.Fatalf("starting test peer failed: %v", err)
	}
	t.Cleanup(peer.Close)

	config := testConfig(peer.Addr())
	config.MaxInflight = 1

	tr := NewTransport(loopbackConnector{}, auth.None()).(*clientTransport)
	if err := tr.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { tr.Close() })

	stuck := make(chan error, 1)
	go func() {
		_, err := tr.Send([]byte("stuck"), 30*time.Second)
		stuck <- err
	}()
	waitFor(t, "first request in flight", func() bool { return tr.table.size() == 1 })

	start := time.Now()
	_, err = tr.Send([]byte("second"), 200*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout waiting for a slot, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Expected the send to give up around its 200ms timeout, took %v", elapsed)
	}
	if tr.table.size() != 1 {
		t.Errorf("Expected no waiter registered for the rejected send, got table size %d", tr.table.size())
	}

	tr.Close()
	if err := <-stuck; !errors.Is(err, ErrConnectionLost) {
		t.Errorf("Expected ErrConnectionLost for the stuck request, got %v", err)
	}
}

// TestConnectClampsInflight verifies the in-flight slot count is clamped to
// the correlation id space for zero, negative and oversized settings
func TestConnectClampsInflight(t *testing.T) {
	peer, err := transporttest.NewPeer(transporttest.EchoHandler)
	if err != nil {
		t.Fatalf("starting test peer failed: %v", err)
	}
	t.Cleanup(peer.Close)

	cases := []struct {
		maxInflight int
		want        int
	}{
		{maxInflight: 0, want: maxInflightLimit},
		{maxInflight: -5, want: maxInflightLimit},
		{maxInflight: maxInflightLimit + 1, want: maxInflightLimit},
		{maxInflight: 42, want: 42},
	}

	for _, tc := range cases {
		config := testConfig(peer.Addr())
		config.MaxInflight = tc.maxInflight

		tr := NewTransport(loopbackConnector{}, auth.None()).(*clientTransport)
		if err := tr.Connect(config); err != nil {
			t.Fatalf("Connect failed for MaxInflight=%d: %v", tc.maxInflight, err)
		}
		if got := cap(tr.inflight); got != tc.want {
			t.Errorf("Expected %d slots for MaxInflight=%d, got %d", tc.want, tc.maxInflight, got)
		}
		tr.Close()
	}
}

// TestCloseDuringConnect verifies a Close racing a connect in progress wins:
// the connect fails with ErrTransportClosed and the transport ends up fully
// torn down
func TestCloseDuringConnect(t *testing.T) {
	peer, err := transporttest.NewPeer(transporttest.EchoHandler)
	if err != nil {
		t.Fatalf("starting test peer failed: %v", err)
	}
	t.Cleanup(peer.Close)

	connector := newGatedConnector()
	tr := NewTransport(connector, auth.None()).(*clientTransport)

	connErr := make(chan error, 1)
	go func() {
		connErr <- tr.Connect(testConfig(peer.Addr()))
	}()
	<-connector.started

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	close(connector.release)

	select {
	case err := <-connErr:
		if !errors.Is(err, ErrTransportClosed) {
			t.Fatalf("Expected ErrTransportClosed from the raced connect, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for the raced connect to return")
	}

	if _, err := tr.Send([]byte("PING"), time.Second); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("Expected ErrTransportClosed after the race, got %v", err)
	}
	if connState(tr.state.Load()) != stateClosed {
		t.Errorf("Expected the transport to end up closed, got state %d", tr.state.Load())
	}
}

// TestTeardownUnregistersMetrics verifies the per-connection series leave
// the global registry when the connection goes away
func TestTeardownUnregistersMetrics(t *testing.T) {
	tr, _ := newTestTransport(t, transporttest.EchoHandler)

	if _, err := tr.Send([]byte("PING"), 0); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	var before bytes.Buffer
	metrics.WritePrometheus(&before, false)
	if !strings.Contains(before.String(), tr.id.String()) {
		t.Fatal("Expected the connection's series to be registered while open")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var after bytes.Buffer
	metrics.WritePrometheus(&after, false)
	if strings.Contains(after.String(), tr.id.String()) {
		t.Error("Expected the connection's series to be gone after Close")
	}
}

// TestNextTid verifies transaction ids advance independently of traffic
func TestNextTid(t *testing.T) {
	tr := NewTransport(loopbackConnector{}, auth.None())
	for want := uint32(0); want < 3; want++ {
		if got := tr.NextTid(); got != want {
			t.Errorf("Expected tid %d, got %d", want, got)
		}
	}
}
