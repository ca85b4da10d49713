package ci

import "github.com/bomeworks/go-midi2/wire"

// Profile message layout constants following the common header.
const (
	offProfileID = headerLength

	// Single-profile messages: header + id + EOX.
	sizeOneProfileMessage = headerLength + ProfileIdSize + 1

	// Inquiry Reply carries two 14-bit count fields.
	inquiryReplyOverhead = headerLength + 2 + 2 + 1

	// Specific Data carries a 28-bit length prefix after the id.
	offSpecificDataLength = offProfileID + ProfileIdSize
	offSpecificDataBytes  = offSpecificDataLength + 4

	// Advertised profiles per Inquiry Reply are capped so the reply
	// buffer has a fixed upper bound.
	maxProfilesPerReply = 100
)

// ProfileEngine implements the Profile Configuration half of MIDI-CI:
// inquiry, enable/disable, reporting and profile-specific data, for the
// local registry and every discovered remote's registry.
type ProfileEngine struct {
	ep       *Endpoint
	dispatch map[byte]func(frame []byte) bool

	localSub  Handle
	remoteSub Handle
	listening bool
}

func newProfileEngine(ep *Endpoint) *ProfileEngine {
	p := &ProfileEngine{ep: ep}
	p.dispatch = map[byte]func(frame []byte) bool{
		msgProfileInquiry: p.handleInquiry,
		msgProfileReply:   p.handleInquiryReply,
		msgProfileSetOn:   func(frame []byte) bool { return p.handleSetOnOrOff(frame, true) },
		msgProfileSetOff:  func(frame []byte) bool { return p.handleSetOnOrOff(frame, false) },
		msgProfileReportOn: func(frame []byte) bool {
			return p.handleReport(frame, true)
		},
		msgProfileReportOff: func(frame []byte) bool {
			return p.handleReport(frame, false)
		},
		msgProfileSpecificData: p.handleSpecificData,
	}
	return p
}

// start subscribes the engine to local and remote profile events and
// advertises profile support in the local category bits. The bit set
// here is ProtocolNegotiation, matching deployed devices that advertise
// profile support on that bit rather than ProfileConfiguration; see
// DESIGN.md.
func (p *ProfileEngine) start() {
	if p.listening {
		return
	}
	local := p.ep.Registry.Local
	p.localSub = local.Profiles.Subscribe(ProfileRegistryListener{
		OnEnabledChange: p.localEnabledChanged,
	})
	local.CategoriesSupported |= CategoryProtocolNegotiation
	p.remoteSub = p.ep.Registry.SubscribeRemoteProfiles(RemoteProfileListener{
		OnSpecificDataChange: p.remoteSpecificDataChanged,
	})
	p.listening = true
}

func (p *ProfileEngine) stop() {
	if !p.listening {
		return
	}
	local := p.ep.Registry.Local
	local.Profiles.Unsubscribe(p.localSub)
	local.CategoriesSupported &^= CategoryProtocolNegotiation
	p.ep.Registry.UnsubscribeRemoteProfiles(p.remoteSub)
	p.listening = false
}

// localEnabledChanged broadcasts a Profile Report whenever a local
// profile's enabled state changes, whether from a remote Set request or
// a host call.
func (p *ProfileEngine) localEnabledChanged(id ProfileId, channel uint8) {
	state, ok := p.ep.Registry.Local.Profiles.Get(id)
	if !ok {
		return
	}
	p.sendProfileReport(channel, id, state.IsChannelEnabled(channel))
}

// remoteSpecificDataChanged pushes locally-written specific data out to
// the remote that owns the mutated state. Changes to local states stay
// local (the inbound Specific Data handler writes those), so the owner
// split here is what prevents echo loops.
func (p *ProfileEngine) remoteSpecificDataChanged(owner MUID, id ProfileId) {
	if p.ep.IsLocalMUID(owner) {
		return
	}
	info, ok := p.ep.Registry.Lookup(owner)
	if !ok {
		return
	}
	state, ok := info.Profiles.Get(id)
	if !ok {
		return
	}
	p.SendProfileSpecificData(owner, id, state.SpecificData())
}

// handle routes one profile-range frame. Messages on an invalid channel
// are rejected (NAK); messages from a source we have not discovered are
// dropped with a log but no NAK, since we may have restarted and lost
// the discovery state; messages addressed to another MUID are ignored.
func (p *ProfileEngine) handle(frame []byte) bool {
	if !validChannel(Channel(frame)) {
		p.ep.logf("RX profile message %#02x from %s: invalid channel %#02x",
			MessageType(frame), SourceMUID(frame), Channel(frame))
		return false
	}

	src := SourceMUID(frame)
	info, known := p.ep.Registry.Lookup(src)
	if !known || !info.IsValid() {
		p.ep.logf("RX profile message %#02x from undiscovered device %s, dropped",
			MessageType(frame), src)
		return true
	}

	if !IsAddressedToUs(DestinationMUID(frame), p.ep.LocalMUID()) {
		return true
	}

	if h, ok := p.dispatch[MessageType(frame)]; ok {
		return h(frame)
	}
	return false
}

// TriggerProfileInquiry asks destination for its profile list.
func (p *ProfileEngine) TriggerProfileInquiry(destination MUID) bool {
	frame := newHeader(headerLength+1, ChannelPort, msgProfileInquiry, p.ep.LocalMUID(), destination)
	return p.ep.sendMIDI(frame)
}

func (p *ProfileEngine) handleInquiry(frame []byte) bool {
	remote := SourceMUID(frame)
	channel := Channel(frame)
	p.ep.logf("RX Profile Inquiry from %s on channel %#02x", remote, channel)

	if channel == ChannelPort {
		// One reply per channel with profiles, then the port-wide
		// reply, which is sent even when empty so the requester always
		// hears back.
		for ch := uint8(0); ch <= 0x0F; ch++ {
			if !p.sendInquiryReply(ch, remote, false) {
				return false
			}
		}
		return p.sendInquiryReply(ChannelPort, remote, true)
	}
	return p.sendInquiryReply(channel, remote, true)
}

func (p *ProfileEngine) handleInquiryReply(frame []byte) bool {
	remote := SourceMUID(frame)
	info, _ := p.ep.Registry.Lookup(remote)

	// Both count fields and all advertised ids must fit the frame.
	enabledCountOff := headerLength
	if enabledCountOff+2 > len(frame) {
		p.ep.logf("RX Profile Inquiry Reply from %s: truncated counts", remote)
		return false
	}
	enabledCount := int(wire.Read14(frame, enabledCountOff))
	enabledOff := enabledCountOff + 2

	disabledCountOff := enabledOff + enabledCount*ProfileIdSize
	if disabledCountOff+2 > len(frame) {
		p.ep.logf("RX Profile Inquiry Reply from %s: %d enabled profiles overflow length %d",
			remote, enabledCount, len(frame))
		return false
	}
	disabledCount := int(wire.Read14(frame, disabledCountOff))
	disabledOff := disabledCountOff + 2
	if disabledOff+disabledCount*ProfileIdSize > len(frame) {
		p.ep.logf("RX Profile Inquiry Reply from %s: %d enabled and %d disabled profiles, but length is only %d",
			remote, enabledCount, disabledCount, len(frame))
		return false
	}

	channel := Channel(frame)
	p.ep.logf("RX Profile Inquiry Reply from %s on channel %#02x: %d enabled, %d disabled",
		remote, channel, enabledCount, disabledCount)

	for i := 0; i < enabledCount; i++ {
		info.Profiles.Add(ParseProfileId(frame, enabledOff+i*ProfileIdSize), channel, true)
	}
	for i := 0; i < disabledCount; i++ {
		info.Profiles.Add(ParseProfileId(frame, disabledOff+i*ProfileIdSize), channel, false)
	}
	return true
}

// profileIDFromFrame extracts the five-byte profile id of a
// single-profile message, returning the zero (invalid) id when the
// frame is too short.
func (p *ProfileEngine) profileIDFromFrame(frame []byte) ProfileId {
	if len(frame) < sizeOneProfileMessage {
		p.ep.logf("RX profile message %#02x from %s is too short: %d bytes",
			MessageType(frame), SourceMUID(frame), len(frame))
		return ProfileId{}
	}
	return ParseProfileId(frame, offProfileID)
}

func (p *ProfileEngine) handleSetOnOrOff(frame []byte, on bool) bool {
	id := p.profileIDFromFrame(frame)
	if !id.IsValid() {
		return false
	}

	state, ok := p.ep.Registry.Local.Profiles.Get(id)
	if !ok {
		p.ep.logf("RX Profile Set from %s: profile not available: %s", SourceMUID(frame), id)
		return false
	}

	channel := Channel(frame)
	// A committed change broadcasts its own Report through the enabled
	// listener; a vetoed one answers with the actual (opposite) state
	// so the requester converges.
	state.SetChannelEnabled(channel, on)
	if state.IsChannelEnabled(channel) != on {
		p.sendProfileReport(channel, id, !on)
	}
	return true
}

func (p *ProfileEngine) handleReport(frame []byte, enabled bool) bool {
	id := p.profileIDFromFrame(frame)
	if !id.IsValid() {
		return false
	}

	remote := SourceMUID(frame)
	info, _ := p.ep.Registry.Lookup(remote)
	p.ep.logf("RX Profile Report from %s: %s enabled=%t", remote, id, enabled)
	info.Profiles.Add(id, Channel(frame), enabled)
	return true
}

func (p *ProfileEngine) handleSpecificData(frame []byte) bool {
	id := p.profileIDFromFrame(frame)
	if !id.IsValid() {
		return false
	}

	state, ok := p.ep.Registry.Local.Profiles.Get(id)
	if !ok {
		p.ep.logf("RX Profile Specific Data from %s: profile not available: %s", SourceMUID(frame), id)
		return false
	}

	if len(frame) < offSpecificDataBytes+1 {
		p.ep.logf("RX Profile Specific Data from %s: message is too short: %d bytes", SourceMUID(frame), len(frame))
		return false
	}
	size := int(wire.Read28(frame, offSpecificDataLength))
	if len(frame) < offSpecificDataBytes+size+1 {
		p.ep.logf("RX Profile Specific Data from %s: declared %d bytes but frame has %d",
			SourceMUID(frame), size, len(frame))
		return false
	}

	p.ep.logf("RX Profile Specific Data for %s from %s: %d bytes", id, SourceMUID(frame), size)
	state.SetSpecificData(frame[offSpecificDataBytes : offSpecificDataBytes+size])
	return true
}

// sendInquiryReply advertises the local profiles available on channel
// to destination. When sendIfEmpty is false, channels with no profiles
// are skipped entirely.
func (p *ProfileEngine) sendInquiryReply(channel uint8, destination MUID, sendIfEmpty bool) bool {
	profiles := p.ep.Registry.Local.Profiles

	count := profiles.ChannelCount(channel)
	if count == 0 && !sendIfEmpty {
		return true
	}

	maxSize := inquiryReplyOverhead + maxProfilesPerReply*ProfileIdSize
	if remote, ok := p.ep.Registry.Lookup(destination); ok && remote.IsValid() && remote.MaxSysExSize < maxSize {
		maxSize = remote.MaxSysExSize
	}
	if size := inquiryReplyOverhead + count*ProfileIdSize; size > maxSize {
		adapted := (maxSize - inquiryReplyOverhead) / ProfileIdSize
		if adapted < 0 {
			adapted = 0
		}
		p.ep.logf("TX Profile Inquiry Reply: max SysEx size %d restricts advertised profiles from %d to %d",
			maxSize, count, adapted)
		count = adapted
	}

	frame := newHeader(inquiryReplyOverhead+count*ProfileIdSize, channel, msgProfileReply,
		p.ep.LocalMUID(), destination)

	// Enabled profiles first, then available-but-disabled, each section
	// preceded by its 14-bit count, trimmed enabled-first to the
	// negotiated capacity.
	written := 0
	countOff := headerLength
	off := countOff + 2
	for _, id := range profiles.Ordered() {
		state, _ := profiles.Get(id)
		if !state.IsChannelEnabled(channel) {
			continue
		}
		if written >= count {
			break
		}
		copy(frame[off:], id.Bytes())
		off += ProfileIdSize
		written++
	}
	wire.Write14(frame, countOff, uint16(written))
	enabledWritten := written

	countOff = off
	off = countOff + 2
	written = 0
	for _, id := range profiles.Ordered() {
		state, _ := profiles.Get(id)
		if !state.IsChannelAvailable(channel) || state.IsChannelEnabled(channel) {
			continue
		}
		if enabledWritten+written >= count {
			break
		}
		copy(frame[off:], id.Bytes())
		off += ProfileIdSize
		written++
	}
	wire.Write14(frame, countOff, uint16(written))

	return p.ep.sendMIDI(frame)
}

// SendProfileSetOn asks destination to enable its profile id on
// channel.
func (p *ProfileEngine) SendProfileSetOn(channel uint8, destination MUID, id ProfileId) bool {
	return p.sendOneProfileMessage(msgProfileSetOn, channel, destination, id)
}

// SendProfileSetOff asks destination to disable its profile id on
// channel.
func (p *ProfileEngine) SendProfileSetOff(channel uint8, destination MUID, id ProfileId) bool {
	return p.sendOneProfileMessage(msgProfileSetOff, channel, destination, id)
}

func (p *ProfileEngine) sendProfileReport(channel uint8, id ProfileId, enabled bool) bool {
	msgType := byte(msgProfileReportOff)
	if enabled {
		msgType = msgProfileReportOn
	}
	return p.sendOneProfileMessage(msgType, channel, MUIDBroadcast, id)
}

func (p *ProfileEngine) sendOneProfileMessage(msgType byte, channel uint8, destination MUID, id ProfileId) bool {
	frame := newHeader(sizeOneProfileMessage, channel, msgType, p.ep.LocalMUID(), destination)
	copy(frame[offProfileID:], id.Bytes())
	return p.ep.sendMIDI(frame)
}

// SendProfileSpecificData transmits data for profile id to destination,
// refusing when the remote's receivable SysEx size cannot hold it.
func (p *ProfileEngine) SendProfileSpecificData(destination MUID, id ProfileId, data []byte) bool {
	size := offSpecificDataBytes + len(data) + 1
	if remote, ok := p.ep.Registry.Lookup(destination); ok && remote.IsValid() && remote.MaxSysExSize < size {
		p.ep.logf("TX Profile Specific Data: %d bytes for %s exceed remote %s max SysEx size %d",
			len(data), id, destination, remote.MaxSysExSize)
		return false
	}

	frame := newHeader(size, ChannelPort, msgProfileSpecificData, p.ep.LocalMUID(), destination)
	copy(frame[offProfileID:], id.Bytes())
	wire.Write28(frame, offSpecificDataLength, uint32(len(data)))
	copy(frame[offSpecificDataBytes:], data)
	return p.ep.sendMIDI(frame)
}
