// Package transporttest provides an in-process peer speaking the tern wire
// frame protocol, for testing the client transport against scripted server
// behavior (echoes, delays, out of order replies, swallowed requests).
package transporttest

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
)

// HandlerFunc decides how the peer reacts to one decoded frame. It runs on
// its own goroutine per frame, so handlers may sleep to simulate slow
// servers. Handlers reply (or not) via Peer.Reply.
type HandlerFunc func(p *Peer, cid uint16, payload []byte)

// EchoHandler replies to every frame with its own cid and payload.
func EchoHandler(p *Peer, cid uint16, payload []byte) {
	p.Reply(cid, payload)
}

// Peer is a minimal server accepting connections on a loopback listener and
// feeding every received frame to the configured handler.
type Peer struct {
	ln      net.Listener
	handler HandlerFunc

	mu      sync.Mutex // guards conn
	conn    net.Conn
	writeMu sync.Mutex // serializes replies

	wg sync.WaitGroup
}

// NewPeer starts a peer on a random loopback port.
func NewPeer(handler HandlerFunc) (*Peer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	p := &Peer{ln: ln, handler: handler}
	p.wg.Add(1)
	go p.acceptLoop()
	return p, nil
}

// Addr returns the listener address in host:port form for client configs.
func (p *Peer) Addr() string {
	return p.ln.Addr().String()
}

// Reply writes one frame back to the connected client. Concurrent replies
// are serialized so frame bytes never interleave.
func (p *Peer) Reply(cid uint16, payload []byte) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()
	if conn == nil {
		return net.ErrClosed
	}

	header := make([]byte, 6)
	binary.BigEndian.PutUint32(header[:4], uint32(len(payload)+2))
	binary.BigEndian.PutUint16(header[4:6], cid)

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	b := net.Buffers{header, payload}
	_, err := b.WriteTo(conn)
	return err
}

// CloseConn drops the active client connection while keeping the listener
// up, simulating a server side disconnect.
func (p *Peer) CloseConn() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

// Close stops the peer and drops the active connection.
func (p *Peer) Close() {
	p.ln.Close()
	p.CloseConn()
	p.wg.Wait()
}

func (p *Peer) acceptLoop() {
	defer p.wg.Done()

	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.mu.Lock()
		if p.conn != nil {
			p.conn.Close()
		}
		p.conn = conn
		p.mu.Unlock()

		p.wg.Add(1)
		go p.readLoop(conn)
	}
}

func (p *Peer) readLoop(conn net.Conn) {
	defer p.wg.Done()

	for {
		cid, payload, err := readFrame(conn)
		if err != nil {
			return
		}

		if p.handler != nil {
			go p.handler(p, cid, payload)
		}
	}
}

// readFrame decodes one frame: 4 byte length (covering cid and payload),
// 2 byte cid, payload.
func readFrame(conn net.Conn) (uint16, []byte, error) {
	header := make([]byte, 6)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}

	length := binary.BigEndian.Uint32(header[:4])
	cid := binary.BigEndian.Uint16(header[4:6])
	if length < 2 {
		return 0, nil, io.ErrUnexpectedEOF
	}

	payload := make([]byte, length-2)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, err
	}

	return cid, payload, nil
}
