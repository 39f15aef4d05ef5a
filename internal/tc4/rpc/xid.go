package rpc

import (
	"os"
	"sync/atomic"
	"time"
)

// XIDGenerator produces unique RPC transaction IDs for one transport
// connection. The real tc_client seeds rpc_xid from pid XOR boot_time so
// XIDs don't collide across process restarts against a server that might
// still be replaying a pre-reboot duplicate-request cache; this generator
// follows the same idea using the time the generator is created (one per
// transport) in place of system boot time (boot time isn't portably
// observable from Go).
type XIDGenerator struct {
	counter uint32
}

// NewXIDGenerator creates a generator seeded from the process id XOR the
// current Unix time, matching the dispersion property of the original
// pid^boot_time seed: two processes started at different times, or the
// same pid reused after a restart, get different starting XIDs.
func NewXIDGenerator() *XIDGenerator {
	seed := uint32(os.Getpid()) ^ uint32(time.Now().Unix())
	return &XIDGenerator{counter: seed}
}

// Next returns the next XID. Safe for concurrent use: every in-flight call
// on a transport needs a distinct XID to be demultiplexed correctly.
func (g *XIDGenerator) Next() uint32 {
	return atomic.AddUint32(&g.counter, 1)
}
