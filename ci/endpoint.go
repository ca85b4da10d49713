package ci

import (
	"errors"
	"fmt"
)

// ProfileConfig seeds one profile into the local registry at endpoint
// construction time.
type ProfileConfig struct {
	ID      ProfileId
	Channel uint8
	Enabled bool
}

// Config collects everything a local MIDI-CI endpoint needs: the local
// device identity, the initial profile list, and the external
// collaborators. Transport is mandatory; Clock and RNG default to the
// standard adapters when nil, and a nil Logger disables logging.
type Config struct {
	// ManufacturerID is the 21-bit manufacturer ID; a zero value leaves
	// the local device invalid and discovery sends will refuse.
	ManufacturerID      uint32
	FamilyID            uint16
	ModelID             uint16
	VersionID           uint32
	CategoriesSupported uint8

	// MaxReceivableSysExSize is clamped to the 128-byte protocol floor.
	MaxReceivableSysExSize int

	Profiles []ProfileConfig

	Transport Transport
	Clock     Clock
	Logger    Logger
	RNG       RNG
}

// Endpoint is one local MIDI-CI peer: the device registry, the
// discovery and profile engines, and the inbound dispatcher that routes
// validated frames to them by sub-id-2.
type Endpoint struct {
	Registry  *DeviceRegistry
	Discovery *DiscoveryEngine
	Profiles  *ProfileEngine

	transport Transport
	clock     Clock
	logger    Logger
	rng       RNG

	sentMessages bool
	started      bool
}

// NewEndpoint builds an endpoint from cfg. The local MUID stays
// MUIDInvalid until Start assigns one.
func NewEndpoint(cfg Config) (*Endpoint, error) {
	if cfg.Transport == nil {
		return nil, errors.New("ci: Config.Transport is required")
	}
	e := &Endpoint{
		transport: cfg.Transport,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		rng:       cfg.RNG,
	}
	if e.clock == nil {
		c := NewStdClock()
		e.clock = c
	}
	if e.rng == nil {
		e.rng = NewMathRNG()
	}

	local := NewDeviceInfo(MUIDInvalid)
	local.ManufacturerID = cfg.ManufacturerID
	local.FamilyID = cfg.FamilyID
	local.ModelID = cfg.ModelID
	local.VersionID = cfg.VersionID
	local.CategoriesSupported = cfg.CategoriesSupported
	local.MaxSysExSize = ClampMaxSysExSize(cfg.MaxReceivableSysExSize)
	for _, p := range cfg.Profiles {
		local.Profiles.Add(p.ID, p.Channel, p.Enabled)
	}

	e.Registry = NewDeviceRegistry(local)
	e.Discovery = newDiscoveryEngine(e)
	e.Profiles = newProfileEngine(e)
	return e, nil
}

// LocalMUID returns the local device's current MUID.
func (e *Endpoint) LocalMUID() MUID { return e.Registry.Local.MUID }

// IsLocalMUID reports whether m is the local device's MUID.
func (e *Endpoint) IsLocalMUID(m MUID) bool { return m == e.LocalMUID() }

// Start assigns a fresh local MUID and activates both engines. The
// session's sent-messages flag is reset so a MUID that was never
// transmitted need not be invalidated later.
func (e *Endpoint) Start() {
	if e.started {
		return
	}
	e.sentMessages = false
	e.Discovery.start()
	e.Profiles.start()
	e.started = true
}

// Stop deactivates both engines. If any message went out during the
// session, the discovery engine broadcasts InvalidateMUID for the local
// MUID and briefly drains the transport before returning.
func (e *Endpoint) Stop() {
	if !e.started {
		return
	}
	e.Profiles.stop()
	e.Discovery.stop()
	e.started = false
}

// OnMIDI is the inbound entry point: the transport delivers one
// complete SysEx frame (or one non-SysEx message) per call. Frames that
// are not well-formed MIDI-CI are dropped without reply; everything
// else is routed by sub-id-2 to the discovery or profile engine, and a
// frame neither engine consumes is answered with a NAK.
func (e *Endpoint) OnMIDI(frame []byte) {
	if !IsMIDICIMessage(frame) {
		return
	}

	src := SourceMUID(frame)
	if src != e.LocalMUID() {
		e.Registry.Touch(src, e.clock.NowMillis())
	}

	e.log(FormatFrame("RX", messageName(MessageType(frame)), frame))

	subID2 := MessageType(frame)
	handled := false
	switch {
	case IsManagementMessage(subID2):
		handled = e.Discovery.handle(frame)
	case IsProfileMessage(subID2):
		handled = e.Profiles.handle(frame)
	}
	if !handled {
		e.log("--> message not handled, return NAK")
		e.sendNAK(frame)
	}
}

// sendMIDI logs and transmits one outbound frame, recording that this
// session has published the local MUID.
func (e *Endpoint) sendMIDI(frame []byte) bool {
	e.log(FormatFrame("TX", messageName(MessageType(frame)), frame))
	if !e.transport.SendMIDI(frame) {
		return false
	}
	e.sentMessages = true
	return true
}

// sendNAK answers received with a NAK addressed to its source MUID.
func (e *Endpoint) sendNAK(received []byte) bool {
	if len(received) < offSrcMUID+4 {
		e.log("cannot send NAK: incoming message carries no source MUID")
		return false
	}
	frame := newHeader(sizeNAK, ChannelPort, msgNAK, e.LocalMUID(), SourceMUID(received))
	return e.sendMIDI(frame)
}

func (e *Endpoint) log(line string) {
	if e.logger != nil {
		e.logger.Log(line)
	}
}

func (e *Endpoint) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Log(fmt.Sprintf(format, args...))
	}
}

// messageNames maps each sub-id-2 this endpoint knows to its short log
// name.
var messageNames = map[byte]string{
	msgDiscovery:           "Discovery",
	msgDiscoveryReply:      "DiscoveryReply",
	msgInvalidateMUID:      "InvalidateMUID",
	msgNAK:                 "NAK",
	msgProfileInquiry:      "ProfileInquiry",
	msgProfileReply:        "ProfileInquiryReply",
	msgProfileSetOn:        "ProfileSetOn",
	msgProfileSetOff:       "ProfileSetOff",
	msgProfileReportOn:     "ProfileReportOn",
	msgProfileReportOff:    "ProfileReportOff",
	msgProfileSpecificData: "ProfileSpecificData",
}

func messageName(subID2 byte) string {
	if name, ok := messageNames[subID2]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02X)", subID2)
}
