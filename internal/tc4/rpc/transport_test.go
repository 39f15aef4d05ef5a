package rpc

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/marmos91/tc4client/internal/protocol/xdr"
	"github.com/stretchr/testify/require"
)

// decodeCallHeader parses just enough of a CALL message for the fake
// server to echo the XID and locate the argument bytes: xid, msg_type,
// rpcvers, prog, vers, proc, then a credential (flavor + opaque body) and
// a verifier (flavor + opaque body).
func decodeCallHeader(record []byte) (CallHeader, []byte, error) {
	r := bytes.NewReader(record)
	xidVal, err := xdr.DecodeUint32(r)
	if err != nil {
		return CallHeader{}, nil, err
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // msg_type
		return CallHeader{}, nil, err
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // rpcvers
		return CallHeader{}, nil, err
	}
	prog, err := xdr.DecodeUint32(r)
	if err != nil {
		return CallHeader{}, nil, err
	}
	vers, err := xdr.DecodeUint32(r)
	if err != nil {
		return CallHeader{}, nil, err
	}
	proc, err := xdr.DecodeUint32(r)
	if err != nil {
		return CallHeader{}, nil, err
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // cred flavor
		return CallHeader{}, nil, err
	}
	if _, err := xdr.DecodeOpaque(r); err != nil { // cred body
		return CallHeader{}, nil, err
	}
	if _, err := xdr.DecodeUint32(r); err != nil { // verf flavor
		return CallHeader{}, nil, err
	}
	if _, err := xdr.DecodeOpaque(r); err != nil { // verf body
		return CallHeader{}, nil, err
	}

	args := make([]byte, r.Len())
	if _, err := r.Read(args); err != nil && r.Len() > 0 {
		return CallHeader{}, nil, fmt.Errorf("read args: %w", err)
	}
	return CallHeader{XID: xidVal, Program: prog, Version: vers, Procedure: proc}, args, nil
}

// startEchoServer accepts one connection and, for every call it receives,
// replies immediately with an accepted REPLY carrying back the argument
// bytes as the result body. This stands in for a real NFS server: enough
// to exercise framing, XID correlation and pool round-tripping without a
// live network dependency.
func startEchoServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			record, err := ReadRecord(conn)
			if err != nil {
				return
			}
			hdr, args, err := decodeCallHeader(record)
			if err != nil {
				return
			}
			reply := buildAcceptedReply(hdr.XID, AcceptSuccess, args)
			if err := WriteFragmentHeader(conn, uint32(len(reply))); err != nil {
				return
			}
			if _, err := conn.Write(reply); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestTransportCallRoundTrip(t *testing.T) {
	addr := startEchoServer(t)

	tr := NewTransport(Config{
		Address:         addr,
		DialTimeout:     time.Second,
		CallTimeout:     2 * time.Second,
		RetrySleep:      10 * time.Millisecond,
		ContextPoolSize: 2,
		Program:         100003,
		ProgramVersion:  4,
	}, func() UnixAuth { return LocalUnixAuth(1) }, nil)
	defer tr.Close()

	result, err := tr.Call(context.Background(), 0, []byte("payload"))
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), result)
}

func TestTransportConcurrentCallsDoNotCrossXIDs(t *testing.T) {
	addr := startEchoServer(t)

	tr := NewTransport(Config{
		Address:         addr,
		DialTimeout:     time.Second,
		CallTimeout:     2 * time.Second,
		RetrySleep:      10 * time.Millisecond,
		ContextPoolSize: 4,
		Program:         100003,
		ProgramVersion:  4,
	}, func() UnixAuth { return LocalUnixAuth(1) }, nil)
	defer tr.Close()

	const n = 8
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		payload := []byte{byte(i)}
		go func() {
			result, err := tr.Call(context.Background(), 0, payload)
			if err != nil {
				errs <- err
				return
			}
			if len(result) != 1 || result[0] != payload[0] {
				errs <- fmt.Errorf("payload %d: got %v", payload[0], result)
				return
			}
			errs <- nil
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}
