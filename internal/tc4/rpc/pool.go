package rpc

import (
	"bytes"
	"context"
	"fmt"
)

// CallContext holds the scratch buffers and reply-correlation state for one
// in-flight RPC call. The pool hands these out and reuses them across calls
// to avoid re-allocating encode/decode buffers on every COMPOUND.
type CallContext struct {
	XID      uint32
	EncodeBuf bytes.Buffer
	reply    chan replyMessage
}

type replyMessage struct {
	body []byte
	err  error
}

// reset clears a CallContext for reuse, keeping the already-allocated
// buffer capacity.
func (c *CallContext) reset() {
	c.XID = 0
	c.EncodeBuf.Reset()
	// drain any stale reply left by a call that errored out before Release.
	select {
	case <-c.reply:
	default:
	}
}

// ContextPool is a bounded, blocking pool of CallContexts. Unlike
// sync.Pool, which may silently drop items and fabricate new ones under
// memory pressure, this pool has a fixed capacity: a caller beyond that
// capacity blocks in Acquire until one is released, giving the transport a
// hard cap on the number of concurrent in-flight RPCs (and therefore on
// outstanding server-side state such as open-owner sequence ids).
type ContextPool struct {
	slots chan *CallContext
}

// NewContextPool creates a pool with the given fixed capacity, pre-populated
// with size ready-to-use contexts.
func NewContextPool(size int) *ContextPool {
	if size <= 0 {
		size = 1
	}
	p := &ContextPool{slots: make(chan *CallContext, size)}
	for i := 0; i < size; i++ {
		p.slots <- &CallContext{reply: make(chan replyMessage, 1)}
	}
	return p
}

// Acquire blocks until a CallContext is available or ctx is done.
func (p *ContextPool) Acquire(ctx context.Context) (*CallContext, error) {
	select {
	case cc := <-p.slots:
		cc.reset()
		return cc, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire call context: %w", ctx.Err())
	}
}

// Release returns a CallContext to the pool for reuse.
func (p *ContextPool) Release(cc *CallContext) {
	select {
	case p.slots <- cc:
	default:
		// Pool was created with exactly `size` contexts in circulation;
		// a full channel here means a double-release, which we drop
		// rather than block or panic.
	}
}

// Len reports the number of contexts currently idle in the pool.
func (p *ContextPool) Len() int {
	return len(p.slots)
}
