package rpc

import (
	"bytes"
	"fmt"
	"os"

	"github.com/marmos91/tc4client/internal/protocol/xdr"
)

// RPC authentication flavors per RFC 5531 Section 8.2.
const (
	AuthNull  = 0
	AuthUnix  = 1
	AuthShort = 2
	AuthDES   = 3
)

// maxAuthUnixGIDs bounds the supplementary group list per RFC 5531's
// AUTH_UNIX encoding (a uint8 count in the classic BSD implementation,
// widely enforced as 16 by NFS servers).
const maxAuthUnixGIDs = 16

// UnixAuth is the decoded AUTH_UNIX (AUTH_SYS) credential.
type UnixAuth struct {
	Stamp       uint32
	MachineName string
	UID         uint32
	GID         uint32
	GIDs        []uint32
}

// EncodeUnixAuth encodes cred as an AUTH_UNIX opaque_auth body per RFC 5531
// Section 8.2:
//
//	struct authsys_parms {
//	    unsigned int stamp;
//	    string machinename<255>;
//	    unsigned int uid;
//	    unsigned int gid;
//	    unsigned int gids<16>;
//	};
func EncodeUnixAuth(cred UnixAuth) ([]byte, error) {
	if len(cred.GIDs) > maxAuthUnixGIDs {
		return nil, fmt.Errorf("too many gids: %d (max %d)", len(cred.GIDs), maxAuthUnixGIDs)
	}
	if len(cred.MachineName) > 255 {
		return nil, fmt.Errorf("machine name too long: %d bytes (max 255)", len(cred.MachineName))
	}

	var buf bytes.Buffer
	if err := xdr.WriteUint32(&buf, cred.Stamp); err != nil {
		return nil, err
	}
	if err := xdr.WriteXDRString(&buf, cred.MachineName); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, cred.UID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, cred.GID); err != nil {
		return nil, err
	}
	if err := xdr.WriteUint32(&buf, uint32(len(cred.GIDs))); err != nil {
		return nil, err
	}
	for _, gid := range cred.GIDs {
		if err := xdr.WriteUint32(&buf, gid); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// ParseUnixAuth decodes an AUTH_UNIX body, as used by tests and by any code
// inspecting a looped-back or recorded call.
func ParseUnixAuth(body []byte) (*UnixAuth, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("empty AUTH_UNIX body")
	}

	r := bytes.NewReader(body)
	stamp, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode stamp: %w", err)
	}
	machineName, err := xdr.DecodeString(r)
	if err != nil {
		return nil, fmt.Errorf("decode machine name: %w", err)
	}
	if len(machineName) > 255 {
		return nil, fmt.Errorf("machine name too long: %d bytes (max 255)", len(machineName))
	}
	uid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode uid: %w", err)
	}
	gid, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode gid: %w", err)
	}
	numGIDs, err := xdr.DecodeUint32(r)
	if err != nil {
		return nil, fmt.Errorf("decode gids count: %w", err)
	}
	if numGIDs > maxAuthUnixGIDs {
		return nil, fmt.Errorf("too many gids: %d (max %d)", numGIDs, maxAuthUnixGIDs)
	}
	gids := make([]uint32, numGIDs)
	for i := range gids {
		gids[i], err = xdr.DecodeUint32(r)
		if err != nil {
			return nil, fmt.Errorf("decode gid %d: %w", i, err)
		}
	}

	return &UnixAuth{Stamp: stamp, MachineName: machineName, UID: uid, GID: gid, GIDs: gids}, nil
}

// String renders the credential for debug logging.
func (u *UnixAuth) String() string {
	return fmt.Sprintf("AUTH_UNIX{stamp=%d machine=%q uid=%d gid=%d gids=%v}", u.Stamp, u.MachineName, u.UID, u.GID, u.GIDs)
}

// LocalUnixAuth builds the AUTH_UNIX credential this process presents,
// mirroring the real tc_client's use of the calling process's pid/uid/gid.
func LocalUnixAuth(stamp uint32) UnixAuth {
	hostname, _ := os.Hostname()
	return UnixAuth{
		Stamp:       stamp,
		MachineName: hostname,
		UID:         uint32(os.Getuid()),
		GID:         uint32(os.Getgid()),
	}
}
