package lease

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	clientID        uint64
	confirmVerifier [8]byte
	renewCount      atomic.Int32
	renewErr        error
}

func (f *fakeCaller) SetClientID(_ context.Context, _ string, _ [8]byte) (uint64, [8]byte, error) {
	return f.clientID, f.confirmVerifier, nil
}

func (f *fakeCaller) SetClientIDConfirm(_ context.Context, _ uint64, _ [8]byte) error {
	return nil
}

func (f *fakeCaller) Renew(_ context.Context, _ uint64) error {
	f.renewCount.Add(1)
	return f.renewErr
}

func TestKeeperEstablishConfirmsClientID(t *testing.T) {
	caller := &fakeCaller{clientID: 99}
	k := NewKeeper(caller, "tc4client-test", 10*time.Millisecond, nil)
	defer k.Close()

	require.NoError(t, k.Establish(context.Background(), [8]byte{1}, time.Second))

	id, err := k.ClientID()
	require.NoError(t, err)
	assert.Equal(t, uint64(99), id)
	assert.True(t, k.State().Confirmed)
}

func TestClientIDBeforeEstablishReturnsError(t *testing.T) {
	k := NewKeeper(&fakeCaller{}, "tc4client-test", time.Second, nil)
	defer k.Close()

	_, err := k.ClientID()
	assert.ErrorIs(t, err, ErrNotConfirmed)
}

// TestRenewLoopFiresBeforeLeaseExpiry establishes a lease with a short
// lease time and a renewSkew close to the full lease time, so the renewal
// fires almost immediately, and asserts at least one RENEW lands before
// the lease's nominal expiry.
func TestRenewLoopFiresBeforeLeaseExpiry(t *testing.T) {
	caller := &fakeCaller{clientID: 1}
	leaseTime := 100 * time.Millisecond
	renewSkew := 90 * time.Millisecond

	k := NewKeeper(caller, "tc4client-test", renewSkew, nil)
	defer k.Close()

	require.NoError(t, k.Establish(context.Background(), [8]byte{2}, leaseTime))

	require.Eventually(t, func() bool {
		return caller.renewCount.Load() >= 1
	}, leaseTime, 5*time.Millisecond, "expected at least one RENEW before lease expiry")
}
