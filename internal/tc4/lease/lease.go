// Package lease implements the NFSv4 client-id/lease lifecycle: the
// SETCLIENTID / SETCLIENTID_CONFIRM handshake and the periodic RENEW that
// keeps server-held state (opens, locks) from expiring.
package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/tc4client/internal/logger"
)

// ErrNotConfirmed is returned when an operation needing a confirmed client
// id runs before the SETCLIENTID_CONFIRM handshake has completed.
var ErrNotConfirmed = fmt.Errorf("client id not confirmed")

// Caller abstracts the single RPC the Keeper needs: encoding and sending
// one COMPOUND and getting back the decoded results. pkg/tc's leaseCaller
// satisfies this without lease importing it back.
type Caller interface {
	SetClientID(ctx context.Context, ownerName string, verifier [8]byte) (clientID uint64, confirmVerifier [8]byte, err error)
	SetClientIDConfirm(ctx context.Context, clientID uint64, confirmVerifier [8]byte) error
	Renew(ctx context.Context, clientID uint64) error
}

// State is a snapshot of the client's current lease, safe to copy.
type State struct {
	ClientID  uint64
	Verifier  [8]byte
	Confirmed bool
	LeaseTime time.Duration
	ExpiresAt time.Time
}

// Keeper owns one client's lease lifecycle against one server. It is safe
// for concurrent use: the renewal loop and the accessors take a lock
// around the shared State.
type Keeper struct {
	caller    Caller
	ownerName string
	renewSkew time.Duration
	metrics   *Metrics

	mu    sync.RWMutex
	state State

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewKeeper creates a lease Keeper. ownerName identifies this client
// instance to the server (the nfs_client_id4.id field) and must be unique
// per client incarnation; verifier must change across client restarts so
// the server can distinguish a reboot from a duplicate SETCLIENTID.
func NewKeeper(caller Caller, ownerName string, renewSkew time.Duration, metrics *Metrics) *Keeper {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Keeper{
		caller:    caller,
		ownerName: ownerName,
		renewSkew: renewSkew,
		metrics:   metrics,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Establish runs SETCLIENTID followed by SETCLIENTID_CONFIRM and starts the
// background renewal loop. The verifier should be stable for this process's
// lifetime (e.g. derived from process start time) so a server restart that
// loses lease state is distinguishable from this client's own restart.
func (k *Keeper) Establish(ctx context.Context, verifier [8]byte, leaseTime time.Duration) error {
	clientID, confirmVerifier, err := k.caller.SetClientID(ctx, k.ownerName, verifier)
	if err != nil {
		k.metrics.SetClientIDErrors.Inc()
		return fmt.Errorf("setclientid: %w", err)
	}

	if err := k.caller.SetClientIDConfirm(ctx, clientID, confirmVerifier); err != nil {
		k.metrics.SetClientIDErrors.Inc()
		return fmt.Errorf("setclientid_confirm: %w", err)
	}

	k.mu.Lock()
	k.state = State{
		ClientID:  clientID,
		Verifier:  verifier,
		Confirmed: true,
		LeaseTime: leaseTime,
		ExpiresAt: time.Now().Add(leaseTime),
	}
	k.mu.Unlock()

	k.metrics.Established.Inc()
	go k.renewLoop()
	return nil
}

// State returns a snapshot of the current lease.
func (k *Keeper) State() State {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.state
}

// ClientID returns the confirmed client id, or an error if the lease isn't
// established yet.
func (k *Keeper) ClientID() (uint64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.state.Confirmed {
		return 0, ErrNotConfirmed
	}
	return k.state.ClientID, nil
}

// Close stops the background renewal loop. It returns at once on a Keeper
// whose lease was never established, since no loop was started.
func (k *Keeper) Close() {
	k.stopOnce.Do(func() {
		close(k.stop)
	})
	k.mu.RLock()
	started := k.state.Confirmed
	k.mu.RUnlock()
	if started {
		<-k.done
	}
}

// renewLoop sends RENEW every leaseTime-renewSkew, i.e. renewSkew before
// the lease would expire (every leaseTime/2 when renewSkew is not smaller
// than leaseTime). A failed RENEW is logged and counted, and the loop
// waits for the next interval.
func (k *Keeper) renewLoop() {
	defer close(k.done)

	for {
		k.mu.RLock()
		leaseTime := k.state.LeaseTime
		k.mu.RUnlock()

		interval := leaseTime - k.renewSkew
		if interval <= 0 {
			interval = leaseTime / 2
		}

		timer := time.NewTimer(interval)
		select {
		case <-k.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		k.mu.RLock()
		clientID := k.state.ClientID
		k.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), leaseTime)
		err := k.caller.Renew(ctx, clientID)
		cancel()

		if err != nil {
			k.metrics.RenewErrors.Inc()
			logger.Warn("lease renew failed", "client_id", clientID, "error", err)
			continue
		}

		k.metrics.Renewals.Inc()
		k.mu.Lock()
		k.state.ExpiresAt = time.Now().Add(leaseTime)
		k.mu.Unlock()
	}
}
