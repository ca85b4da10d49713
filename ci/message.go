package ci

import "github.com/bomeworks/go-midi2/wire"

// Sub-ID-2 message type bytes and the fixed header shared by every
// MIDI-CI message.
const (
	sysexStart           = 0xF0
	sysexEnd             = 0xF7
	sysexUniversalNonRT  = 0x7E
	subID1MIDICI         = 0x0D
	currentVersion       = 0x01
	managementRangeBegin = 0x70
	managementRangeEnd   = 0x7F
	profileRangeBegin    = 0x20
	profileRangeEnd      = 0x2F

	msgDiscovery      = 0x70
	msgDiscoveryReply = 0x71
	msgInvalidateMUID = 0x7E
	msgNAK            = 0x7F

	msgProfileInquiry      = 0x20
	msgProfileReply        = 0x21
	msgProfileSetOn        = 0x22
	msgProfileSetOff       = 0x23
	msgProfileReportOn     = 0x24
	msgProfileReportOff    = 0x25
	msgProfileSpecificData = 0x2F
)

// Header field offsets, shared by every MIDI-CI message.
const (
	offSysExStart  = 0
	offSysExID     = 1
	offChannel     = 2
	offSubID1      = 3
	offMessageType = 4
	offVersion     = 5
	offSrcMUID     = 6
	offDstMUID     = 10

	headerLength = offDstMUID + 4 // 14

	sizeDiscovery      = 31
	sizeInvalidateMUID = 19
	sizeNAK            = 15
)

// IsMIDICIMessage reports whether frame is a well-formed MIDI-CI SysEx:
// longer than the header, every fixed byte matches, the device ID is in
// range, and the frame ends with 0xF7. Malformed frames are dropped
// silently elsewhere in the stack, since they may not even be intended
// for MIDI-CI.
func IsMIDICIMessage(frame []byte) bool {
	if len(frame) <= headerLength {
		return false
	}
	if frame[offSysExStart] != sysexStart || frame[len(frame)-1] != sysexEnd {
		return false
	}
	if frame[offSysExID] != sysexUniversalNonRT || frame[offSubID1] != subID1MIDICI {
		return false
	}
	channel := frame[offChannel]
	if channel > 0x0F && channel != ChannelPort {
		return false
	}
	if frame[offVersion] < 0x01 {
		return false
	}
	return true
}

// MessageType returns the sub-id-2 byte (offset 4) of a frame already
// validated by IsMIDICIMessage.
func MessageType(frame []byte) byte { return frame[offMessageType] }

// Channel returns the device-ID / channel field (offset 2).
func Channel(frame []byte) uint8 { return frame[offChannel] }

// SourceMUID extracts the 28-bit source MUID at offset 6.
func SourceMUID(frame []byte) MUID { return MUID(wire.Read28(frame, offSrcMUID)) }

// DestinationMUID extracts the 28-bit destination MUID at offset 10.
func DestinationMUID(frame []byte) MUID { return MUID(wire.Read28(frame, offDstMUID)) }

// IsAddressedToUs reports whether dst is either our own MUID or the
// broadcast MUID.
func IsAddressedToUs(dst, ours MUID) bool { return dst == ours || dst == MUIDBroadcast }

// IsManagementMessage reports whether a sub-id-2 byte falls in the
// Discovery/Invalidate/NAK range (0x70-0x7F).
func IsManagementMessage(subID2 byte) bool {
	return subID2 >= managementRangeBegin && subID2 <= managementRangeEnd
}

// IsProfileMessage reports whether a sub-id-2 byte falls in the Profile
// Configuration range (0x20-0x2F).
func IsProfileMessage(subID2 byte) bool {
	return subID2 >= profileRangeBegin && subID2 <= profileRangeEnd
}

// newHeader allocates a buffer of size bytes (including the trailing
// 0xF7) and fills in the common 14-byte header, message type included.
func newHeader(size int, channel uint8, msgType byte, src, dst MUID) []byte {
	buf := make([]byte, size)
	buf[offSysExStart] = sysexStart
	buf[offSysExID] = sysexUniversalNonRT
	buf[offChannel] = channel
	buf[offSubID1] = subID1MIDICI
	buf[offMessageType] = msgType
	buf[offVersion] = currentVersion
	wire.Write28(buf, offSrcMUID, uint32(src))
	wire.Write28(buf, offDstMUID, uint32(dst))
	buf[len(buf)-1] = sysexEnd
	return buf
}
