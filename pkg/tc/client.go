// Package tc is the public surface of the transactional-compound NFSv4
// client: one COMPOUND per batch call, mirroring the original tc_client's
// tc_readv/tc_writev/tc_getattrsv/tc_setattrsv/tc_listdir/tc_renamev/
// tc_removev/tc_mkdirv/tc_copyv/tc_write_adb API.
package tc

import (
	"context"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/tc4client/internal/logger"
	"github.com/marmos91/tc4client/internal/tc4/compound"
	"github.com/marmos91/tc4client/internal/tc4/handle"
	"github.com/marmos91/tc4client/internal/tc4/lease"
	"github.com/marmos91/tc4client/internal/tc4/planner"
	"github.com/marmos91/tc4client/internal/tc4/rpc"
	"github.com/marmos91/tc4client/pkg/config"
)

// Result mirrors the original tc_client's tc_res: a batch call's overall
// outcome plus, on failure, the index and errno of the first operation
// that failed.
type Result struct {
	Okay  bool
	Index int
	Errno syscall.Errno
}

// RPCError wraps a transport-level failure (as opposed to an NFS status
// returned inside a successful RPC reply).
type RPCError struct {
	Op  string
	Err error
}

func (e *RPCError) Error() string { return fmt.Sprintf("tc4: %s: %v", e.Op, e.Err) }
func (e *RPCError) Unwrap() error { return e.Err }

// Client is one connection to an NFSv4 server plus its lease, ready to run
// transactional-compound batches against it.
type Client struct {
	cfg       *config.Config
	transport *rpc.Transport
	keeper    *lease.Keeper
	ownerName []byte
	sessionID string

	mu         sync.RWMutex
	openFiles  map[uint64]*handle.Ref
	nextFileID uint64
}

// New dials Config.Server and establishes the client-id/lease handshake.
// The transport itself connects lazily on first use; New blocks only for
// the SETCLIENTID round trip.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	transportCfg := rpc.Config{
		Address:         fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		DialTimeout:     cfg.Transport.DialTimeout,
		CallTimeout:     cfg.Transport.CallTimeout,
		RetrySleep:      cfg.Transport.RetrySleep,
		ContextPoolSize: cfg.Transport.ContextPoolSize,
		Program:         cfg.Server.RPCProgramNumber,
		ProgramVersion:  cfg.Server.RPCProgramVersion,
	}

	stamp := uint32(os.Getpid())
	cred := func() rpc.UnixAuth { return rpc.LocalUnixAuth(stamp) }

	transport := rpc.NewTransport(transportCfg, cred, nil)

	client := &Client{
		cfg:       cfg,
		transport: transport,
		openFiles: make(map[uint64]*handle.Ref),
		ownerName: []byte(fmt.Sprintf("%s: pid=%d", cfg.Lease.OwnerTag, os.Getpid())),
		sessionID: uuid.New().String(),
	}
	adapter := &leaseCaller{client: client}
	client.keeper = lease.NewKeeper(adapter, cfg.Lease.OwnerTag, cfg.Lease.RenewSkew, nil)

	verifier := verifierFromProcess(stamp)
	if err := client.keeper.Establish(ctx, verifier, cfg.Transport.CallTimeout); err != nil {
		transport.Close()
		return nil, fmt.Errorf("establish lease: %w", err)
	}

	logger.Info("tc4 client connected", "address", transportCfg.Address, "session_id", client.sessionID)
	return client, nil
}

// Close shuts down the background lease renewal loop and the transport.
func (c *Client) Close() error {
	c.keeper.Close()
	return c.transport.Close()
}

func verifierFromProcess(stamp uint32) [8]byte {
	var v [8]byte
	now := time.Now().UnixNano()
	for i := 0; i < 4; i++ {
		v[i] = byte(stamp >> (8 * i))
		v[i+4] = byte(now >> (8 * i))
	}
	return v
}

// execute runs one COMPOUND built from ops and decodes its reply. The
// COMPOUND tag is prefixed with the client's session id so a server-side
// trace can be correlated back to the connection that issued it.
func (c *Client) execute(ctx context.Context, tag string, ops []compound.Op) (*compound.Result, error) {
	fullTag := c.sessionID + ":" + tag
	args, err := compound.BuildArgs(fullTag, ops)
	if err != nil {
		return nil, &RPCError{Op: tag, Err: err}
	}

	body, err := c.transport.Call(ctx, compound.NFSPROC4_COMPOUND, args)
	if err != nil {
		return nil, &RPCError{Op: tag, Err: err}
	}

	result, err := compound.DecodeReply(body, ops)
	if err != nil {
		return nil, &RPCError{Op: tag, Err: err}
	}
	return result, nil
}

// leaseCaller adapts Client's compound-execution path to lease.Caller,
// letting lease.Keeper drive SETCLIENTID/SETCLIENTID_CONFIRM/RENEW without
// importing pkg/tc (which would be a cycle: pkg/tc already imports
// internal/tc4/lease).
type leaseCaller struct {
	client *Client
}

// clientIDOrZero returns the confirmed client-id, or 0 if the lease isn't
// confirmed yet (Plan still needs a value to populate OwnerClientID with;
// an unconfirmed client-id means every subsequent OPEN will fail anyway,
// surfaced as an ordinary NFS4ERR status rather than a separate error
// path here).
func (c *Client) clientIDOrZero() uint64 {
	id, err := c.keeper.ClientID()
	if err != nil {
		return 0
	}
	return id
}

func (a *leaseCaller) SetClientID(ctx context.Context, ownerName string, verifier [8]byte) (uint64, [8]byte, error) {
	op := &compound.SetClientIDOp{Verifier: verifier, OwnerName: ownerName}
	result, err := a.client.execute(ctx, "setclientid", []compound.Op{op})
	if err != nil {
		return 0, [8]byte{}, err
	}
	if result.FailedOp >= 0 {
		return 0, [8]byte{}, fmt.Errorf("setclientid failed: nfs status %d", result.Status)
	}
	return op.ClientID, op.ConfirmVerifier, nil
}

func (a *leaseCaller) SetClientIDConfirm(ctx context.Context, clientID uint64, confirmVerifier [8]byte) error {
	op := &compound.SetClientIDConfirmOp{ClientID: clientID, ConfirmVerifier: confirmVerifier}
	result, err := a.client.execute(ctx, "setclientid_confirm", []compound.Op{op})
	if err != nil {
		return err
	}
	if result.FailedOp >= 0 {
		return fmt.Errorf("setclientid_confirm failed: nfs status %d", result.Status)
	}
	return nil
}

// checkBatchSize enforces txn's all-or-nothing contract: a transaction
// call must fit in one COMPOUND, so an estimate of MaxDirDepth+3 ops per
// item is checked against MaxCompoundOps before anything is sent.
func (c *Client) checkBatchSize(txn bool, itemCount int) error {
	if !txn {
		return nil
	}
	estimated := (planner.MaxDirDepth + 3) * itemCount
	if estimated > c.cfg.Planner.MaxCompoundOps {
		return &ErrBatchTooLarge{Requested: estimated, Max: c.cfg.Planner.MaxCompoundOps}
	}
	return nil
}

// resultFromItems builds the tc_res-shaped Result from a planned batch's
// outcome: Okay unless some item failed, Index/Errno pointing at the
// first one that did.
func resultFromItems(items []planner.BatchItem) Result {
	for i := range items {
		if !items[i].Completed && items[i].Errno != 0 {
			return Result{Okay: false, Index: i, Errno: items[i].Errno}
		}
	}
	return Result{Okay: true, Index: -1}
}

func (a *leaseCaller) Renew(ctx context.Context, clientID uint64) error {
	op := &compound.RenewOp{ClientID: clientID}
	result, err := a.client.execute(ctx, "renew", []compound.Op{op})
	if err != nil {
		return err
	}
	if result.FailedOp >= 0 {
		return fmt.Errorf("renew failed: nfs status %d", result.Status)
	}
	return nil
}
