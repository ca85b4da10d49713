package ci

import (
	"time"

	"github.com/bomeworks/go-midi2/wire"
)

// Discovery payload field offsets, following the common header.
const (
	offDiscManufacturer = headerLength
	offDiscFamily       = offDiscManufacturer + 3
	offDiscModel        = offDiscFamily + 2
	offDiscVersion      = offDiscModel + 2
	offDiscCategories   = offDiscVersion + 4
	offDiscMaxSysEx     = offDiscCategories + 1

	offInvalidateTarget = headerLength
)

// stopDrainDelay gives the transport time to flush the final
// InvalidateMUID before the session closes.
const stopDrainDelay = 20 * time.Millisecond

// DiscoveryEngine implements the management half of MIDI-CI: Discovery,
// Discovery Reply, Invalidate MUID and NAK, including the local MUID
// lifecycle and collision recovery.
type DiscoveryEngine struct {
	ep       *Endpoint
	dispatch map[byte]func(frame []byte) bool
}

func newDiscoveryEngine(ep *Endpoint) *DiscoveryEngine {
	d := &DiscoveryEngine{ep: ep}
	d.dispatch = map[byte]func(frame []byte) bool{
		msgDiscovery:      func(frame []byte) bool { return d.handleDiscovery(frame, false) },
		msgDiscoveryReply: func(frame []byte) bool { return d.handleDiscovery(frame, true) },
		msgInvalidateMUID: d.handleInvalidateMUID,
		msgNAK:            d.handleNAK,
	}
	return d
}

// start assigns a fresh random MUID to the local device.
func (d *DiscoveryEngine) start() {
	d.ep.Registry.Local.SetMUID(d.nextRandomMUID())
	d.ep.logf("local MUID: %s", d.ep.LocalMUID())
}

// stop broadcasts InvalidateMUID for the local MUID if this session
// ever transmitted (the MUID is observable by peers), then sleeps
// briefly so the transport can flush it.
func (d *DiscoveryEngine) stop() {
	if d.ep.sentMessages {
		d.SendInvalidateMUID(d.ep.LocalMUID())
		time.Sleep(stopDrainDelay)
	}
}

// handle routes one management-range frame. Frames addressed to another
// MUID are ignored without a NAK; frames carrying our own MUID as the
// source are either loopback echoes (dropped) or, for Discovery, a
// genuine MUID collision.
func (d *DiscoveryEngine) handle(frame []byte) bool {
	if !IsAddressedToUs(DestinationMUID(frame), d.ep.LocalMUID()) {
		return true
	}

	if SourceMUID(frame) == d.ep.LocalMUID() {
		if MessageType(frame) != msgDiscovery {
			// Loopback of one of our own messages.
			return true
		}
		if !d.handleCollision() {
			// InvalidateMUID went out instead; the remote will
			// re-discover us, so no Discovery Reply here.
			return true
		}
	}

	if h, ok := d.dispatch[MessageType(frame)]; ok {
		return h(frame)
	}
	return false
}

// TriggerDiscovery broadcasts a Discovery message announcing the local
// device.
func (d *DiscoveryEngine) TriggerDiscovery() bool {
	return d.sendDiscovery(false, MUIDBroadcast)
}

// GenerateNewRandomMUID rotates the local MUID. When canSendInvalidate
// is set and the old MUID was ever transmitted, InvalidateMUID for the
// old value is broadcast so peers drop it.
func (d *DiscoveryEngine) GenerateNewRandomMUID(canSendInvalidate bool) {
	old := d.ep.LocalMUID()
	d.ep.Registry.Local.SetMUID(d.nextRandomMUID())
	d.ep.logf("generated new MUID: %s", d.ep.LocalMUID())

	if canSendInvalidate && d.ep.sentMessages {
		d.SendInvalidateMUID(old)
	}
	d.ep.sentMessages = false
}

func (d *DiscoveryEngine) nextRandomMUID() MUID {
	return RandomMUID(d.ep.rng, d.ep.LocalMUID(), d.ep.Registry.RemoteMUIDs())
}

// handleCollision reacts to a Discovery whose source MUID equals our
// own. It reports whether normal Discovery processing may continue: if
// our MUID was already published this session, we must invalidate it
// and stay silent instead of replying.
func (d *DiscoveryEngine) handleCollision() bool {
	hadTransmitted := d.ep.sentMessages
	if hadTransmitted {
		d.ep.logf("RX Discovery: MUID collision on %s, sending InvalidateMUID", d.ep.LocalMUID())
	} else {
		d.ep.log("RX Discovery: MUID collision, old MUID never published, rotating quietly")
	}
	d.GenerateNewRandomMUID(true)
	return !hadTransmitted
}

func (d *DiscoveryEngine) handleDiscovery(frame []byte, isReply bool) bool {
	if len(frame) < sizeDiscovery {
		d.ep.logf("RX corrupt Discovery with len=%d, return NAK", len(frame))
		d.ep.sendNAK(frame)
		return true
	}

	src := SourceMUID(frame)
	info := NewDeviceInfo(src)
	info.ManufacturerID = wire.Read24(frame, offDiscManufacturer)
	info.FamilyID = wire.Read16(frame, offDiscFamily)
	info.ModelID = wire.Read16(frame, offDiscModel)
	info.VersionID = wire.Read32(frame, offDiscVersion)
	info.CategoriesSupported = frame[offDiscCategories]
	info.MaxSysExSize = int(wire.Read28(frame, offDiscMaxSysEx))
	info.LastReceiveTime = d.ep.clock.NowMillis()

	if info.MaxSysExSize < minSysExSize {
		d.ep.logf("remote %s reports %d bytes receivable SysEx size, assuming the minimum of %d",
			src, info.MaxSysExSize, minSysExSize)
		info.MaxSysExSize = minSysExSize
	}

	d.logDiscovery(isReply, info)
	d.ep.Registry.AddOrReplaceRemote(info)

	if !isReply {
		return d.sendDiscovery(true, src)
	}
	return true
}

func (d *DiscoveryEngine) handleInvalidateMUID(frame []byte) bool {
	if len(frame) < sizeInvalidateMUID {
		d.ep.logf("RX InvalidateMUID with invalid len=%d, return NAK", len(frame))
		d.ep.sendNAK(frame)
		return true
	}

	target := MUID(wire.Read28(frame, offInvalidateTarget))
	if target == d.ep.LocalMUID() {
		d.ep.logf("RX InvalidateMUID: our own MUID %s got invalidated", target)
		// No outgoing InvalidateMUID: we are responding to one.
		d.GenerateNewRandomMUID(false)
		return true
	}

	d.ep.logf("RX InvalidateMUID: %s", target)
	d.ep.Registry.RemoveRemote(target)
	return true
}

func (d *DiscoveryEngine) handleNAK(frame []byte) bool {
	// Receiver response to a NAK is undefined by MIDI-CI.
	d.ep.logf("RX NAK from %s (ignored)", SourceMUID(frame))
	return true
}

// SendInvalidateMUID broadcasts an InvalidateMUID for old.
func (d *DiscoveryEngine) SendInvalidateMUID(old MUID) bool {
	frame := newHeader(sizeInvalidateMUID, ChannelPort, msgInvalidateMUID, d.ep.LocalMUID(), MUIDBroadcast)
	wire.Write28(frame, offInvalidateTarget, uint32(old))
	return d.ep.sendMIDI(frame)
}

func (d *DiscoveryEngine) sendDiscovery(isReply bool, destination MUID) bool {
	local := d.ep.Registry.Local
	if !local.IsValid() {
		d.ep.logf("cannot send Discovery to %s: local device info is not valid", destination)
		return false
	}

	msgType := byte(msgDiscovery)
	if isReply {
		msgType = msgDiscoveryReply
	}
	frame := newHeader(sizeDiscovery, ChannelPort, msgType, local.MUID, destination)
	wire.Write24(frame, offDiscManufacturer, local.ManufacturerID)
	wire.Write16(frame, offDiscFamily, local.FamilyID)
	wire.Write16(frame, offDiscModel, local.ModelID)
	wire.Write32(frame, offDiscVersion, local.VersionID)
	frame[offDiscCategories] = local.CategoriesSupported
	wire.Write28(frame, offDiscMaxSysEx, uint32(local.MaxSysExSize))
	return d.ep.sendMIDI(frame)
}

func (d *DiscoveryEngine) logDiscovery(isReply bool, info *DeviceInfo) {
	name := "Discovery"
	if isReply {
		name = "Discovery Reply"
	}
	d.ep.logf("RX %s from %s: manufacturer=%#06X family=%#04X model=%#04X version=%#08X categories=%#02X maxSysEx=%d",
		name, info.MUID, info.ManufacturerID, info.FamilyID, info.ModelID,
		info.VersionID, info.CategoriesSupported, info.MaxSysExSize)
}
