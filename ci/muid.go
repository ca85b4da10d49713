// Package ci implements a MIDI Capability Inquiry endpoint: device
// discovery, MUID collision handling, and the Profile Configuration
// sub-protocol, all layered on top of the wire-level septet codec in
// package wire.
package ci

import "fmt"

// MUID is a 28-bit MIDI Unique Identifier, session-scoped and assigned
// either by local random generation or learned from a remote Discovery
// message.
type MUID uint32

const (
	// MUIDMaxAssignable is the highest value RandomMUID may generate;
	// values above it are reserved.
	MUIDMaxAssignable = MUID(0x0FFFFF00 - 1)
	// MUIDBroadcast addresses every listening endpoint.
	MUIDBroadcast = MUID(0x0FFFFFFF)
	// MUIDInvalid marks an unpopulated DeviceInfo.
	MUIDInvalid = MUID(0x0FFFFFFE)
)

func (m MUID) String() string {
	switch m {
	case MUIDBroadcast:
		return "Broadcast"
	case MUIDInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("%#07X", uint32(m))
	}
}

// RNG supplies uniformly distributed 32-bit values for MUID generation;
// the only consumer of randomness in this package.
type RNG interface {
	NextUint32() uint32
}

// knownMUID reports whether m collides with the local muid or any
// member of remote.
func knownMUID(local MUID, remote []MUID, m MUID) bool {
	if m == local {
		return true
	}
	for _, r := range remote {
		if r == m {
			return true
		}
	}
	return false
}

// RandomMUID generates a fresh assignable MUID via rejection sampling,
// excluding local and every MUID in remote. Implementations must seed
// rng from a non-deterministic source; MUIDs are never reused across
// sessions.
func RandomMUID(rng RNG, local MUID, remote []MUID) MUID {
	for {
		candidate := MUID(rng.NextUint32() % (uint32(MUIDMaxAssignable) + 1))
		if candidate == 0 {
			continue
		}
		if !knownMUID(local, remote, candidate) {
			return candidate
		}
	}
}
