package rpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/marmos91/tc4client/internal/logger"
)

// Config configures a Transport's dial and retry behavior.
type Config struct {
	Address         string
	DialTimeout     time.Duration
	CallTimeout     time.Duration
	RetrySleep      time.Duration
	ContextPoolSize int
	Program         uint32
	ProgramVersion  uint32
}

// Transport is a persistent TCP connection to one NFSv4 server, multiplexing
// concurrent calls over a single socket by XID and reconnecting transparently
// on I/O failure. The server never initiates a callback channel on this
// connection (CB_COMPOUND belongs to the v4.1 state layer, out of scope for
// this client), so every message read off the wire is a REPLY.
type Transport struct {
	cfg    Config
	pool   *ContextPool
	xids   *XIDGenerator
	cred   func() UnixAuth
	metrics *Metrics

	mu      sync.Mutex
	conn    net.Conn
	pending map[uint32]chan replyMessage

	closeOnce sync.Once
	closed    chan struct{}
}

// NewTransport creates a Transport. The connection is established lazily on
// the first Call, not in NewTransport, so constructing a client never blocks
// on the network.
func NewTransport(cfg Config, cred func() UnixAuth, metrics *Metrics) *Transport {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Transport{
		cfg:     cfg,
		pool:    NewContextPool(cfg.ContextPoolSize),
		xids:    NewXIDGenerator(),
		cred:    cred,
		metrics: metrics,
		pending: make(map[uint32]chan replyMessage),
		closed:  make(chan struct{}),
	}
}

// Close shuts down the transport's connection and unblocks anyone waiting
// on a reply with an error.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		t.mu.Lock()
		if t.conn != nil {
			err = t.conn.Close()
		}
		for xid, ch := range t.pending {
			ch <- replyMessage{err: fmt.Errorf("transport closed")}
			delete(t.pending, xid)
		}
		t.mu.Unlock()
	})
	return err
}

// Call performs one RPC: acquires a pooled CallContext, encodes and sends
// the CALL message, and blocks until the matching REPLY arrives, ctx is
// done, or the connection drops. On a connection drop it reconnects once
// and retries the send before giving up, mirroring the original tc_client's
// single-retry-on-reconnect behavior around ktcread/ktcwrite.
func (t *Transport) Call(ctx context.Context, procedure uint32, args []byte) ([]byte, error) {
	cc, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("call procedure %d: %w", procedure, err)
	}
	defer t.pool.Release(cc)

	cc.XID = t.xids.Next()
	hdr := CallHeader{
		XID:        cc.XID,
		Program:    t.cfg.Program,
		Version:    t.cfg.ProgramVersion,
		Procedure:  procedure,
		Credential: t.cred(),
	}

	msg, err := EncodeCall(hdr, args)
	if err != nil {
		return nil, fmt.Errorf("encode call: %w", err)
	}

	replyCh := make(chan replyMessage, 1)
	t.mu.Lock()
	t.pending[cc.XID] = replyCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, cc.XID)
		t.mu.Unlock()
	}()

	if err := t.sendWithRetry(ctx, msg); err != nil {
		t.metrics.CallErrors.Inc()
		return nil, err
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if t.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	select {
	case reply := <-replyCh:
		t.metrics.CallLatency.Observe(time.Since(start).Seconds())
		if reply.err != nil {
			t.metrics.CallErrors.Inc()
			return nil, reply.err
		}
		return reply.body, nil
	case <-callCtx.Done():
		t.metrics.CallErrors.Inc()
		return nil, fmt.Errorf("call procedure %d: %w", procedure, callCtx.Err())
	case <-t.closed:
		return nil, fmt.Errorf("call procedure %d: transport closed", procedure)
	}
}

func (t *Transport) sendWithRetry(ctx context.Context, msg []byte) error {
	conn, err := t.ensureConnected(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := t.writeRecord(conn, msg); err == nil {
		return nil
	}

	logger.Warn("rpc write failed, reconnecting", "address", t.cfg.Address)
	t.dropConnection()
	time.Sleep(t.cfg.RetrySleep)

	conn, err = t.ensureConnected(ctx)
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	return t.writeRecord(conn, msg)
}

func (t *Transport) writeRecord(conn net.Conn, msg []byte) error {
	if err := WriteFragmentHeader(conn, uint32(len(msg))); err != nil {
		return err
	}
	_, err := conn.Write(msg)
	return err
}

// ensureConnected returns the current connection, dialing a new one (and
// starting its read loop) if none is established.
func (t *Transport) ensureConnected(ctx context.Context) (net.Conn, error) {
	t.mu.Lock()
	if t.conn != nil {
		conn := t.conn
		t.mu.Unlock()
		return conn, nil
	}
	t.mu.Unlock()

	dialer := net.Dialer{Timeout: t.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.cfg.Address)
	if err != nil {
		t.metrics.ReconnectFailures.Inc()
		return nil, err
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	t.metrics.Reconnects.Inc()
	go t.readLoop(conn)
	return conn, nil
}

func (t *Transport) dropConnection() {
	t.mu.Lock()
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.mu.Unlock()
}

// readLoop reads REPLY records off conn and routes them to the pending
// caller by XID until the connection errors, at which point every pending
// caller still waiting on this connection is woken with an error so Call
// doesn't hang forever on a dead socket.
func (t *Transport) readLoop(conn net.Conn) {
	for {
		record, err := ReadRecord(conn)
		if err != nil {
			t.mu.Lock()
			if t.conn == conn {
				t.conn = nil
			}
			stale := t.pending
			t.pending = make(map[uint32]chan replyMessage)
			t.mu.Unlock()

			for _, ch := range stale {
				ch <- replyMessage{err: fmt.Errorf("connection lost: %w", err)}
			}
			return
		}

		hdr, body, decodeErr := DecodeReplyHeader(record)

		t.mu.Lock()
		ch, ok := t.pending[hdr.XID]
		t.mu.Unlock()
		if !ok {
			logger.Debug("rpc reply for unknown xid (dropped)", "xid", hdr.XID)
			continue
		}
		ch <- replyMessage{body: body, err: decodeErr}
	}
}
