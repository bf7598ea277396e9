package transport

import (
	"fmt"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// result carries the single resolution of a pending request.
type result struct {
	payload []byte
	err     error
}

// pending is the waiter for one in-flight request. It resolves at most
// once; losers of the resolve race get false and must not retry. The done
// channel is buffered so resolving never blocks on the waiter.
type pending struct {
	cid      uint16
	resolved atomic.Bool
	done     chan result
}

func newPending(cid uint16) *pending {
	return &pending{cid: cid, done: make(chan result, 1)}
}

func (p *pending) resolve(payload []byte, err error) bool {
	if !p.resolved.CompareAndSwap(false, true) {
		return false
	}
	p.done <- result{payload: payload, err: err}
	return true
}

// correlationTable maps outstanding correlation ids to their waiters.
// register, complete and remove are each atomic on the underlying map, so
// a complete racing a timeout remove settles exactly one winner: whoever
// deletes the entry owns it.
type correlationTable struct {
	entries *xsync.MapOf[uint16, *pending]
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{entries: xsync.NewMapOf[uint16, *pending]()}
}

// register creates and inserts the waiter for cid. Ids are only reused
// after their prior entry is gone; a collision with a live waiter is
// rejected instead of silently overwriting it.
func (t *correlationTable) register(cid uint16) (*pending, error) {
	p := newPending(cid)
	if _, loaded := t.entries.LoadOrStore(cid, p); loaded {
		return nil, fmt.Errorf("%w: id %d still in flight", ErrCidCollision, cid)
	}
	return p, nil
}

// complete resolves the waiter for cid with the given payload and removes
// the entry. Reports false if no entry exists (late or duplicate response),
// in which case the payload is dropped.
func (t *correlationTable) complete(cid uint16, payload []byte) bool {
	p, ok := t.entries.LoadAndDelete(cid)
	if !ok {
		return false
	}
	p.resolve(payload, nil)
	return true
}

// remove deletes the entry for cid without resolving it and reports whether
// one existed. Used by the timeout path: a false return means a concurrent
// complete won the race and the resolution is already on its way.
func (t *correlationTable) remove(cid uint16) bool {
	_, ok := t.entries.LoadAndDelete(cid)
	return ok
}

// failAll resolves every outstanding waiter with err and empties the table.
// Returns how many waiters were failed.
func (t *correlationTable) failAll(err error) int {
	n := 0
	t.entries.Range(func(cid uint16, _ *pending) bool {
		if p, ok := t.entries.LoadAndDelete(cid); ok {
			p.resolve(nil, err)
			n++
		}
		return true
	})
	return n
}

func (t *correlationTable) size() int {
	return t.entries.Size()
}
