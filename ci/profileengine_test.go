package ci

import (
	"bytes"
	"testing"

	"github.com/bomeworks/go-midi2/wire"
)

var testProfile = ManufacturerProfileId([3]byte{0x21, 0x09, 0x04}, 1, 2)

// newProfileEndpoint builds a started endpoint hosting testProfile on
// the given channel, with remoteMUID already discovered.
func newProfileEndpoint(t *testing.T, channel uint8, enabled bool) (*Endpoint, *fakeTransport) {
	t.Helper()
	transport := &fakeTransport{}
	ep, err := NewEndpoint(Config{
		ManufacturerID:         0x123456,
		MaxReceivableSysExSize: 512,
		Profiles:               []ProfileConfig{{ID: testProfile, Channel: channel, Enabled: enabled}},
		Transport:              transport,
		Clock:                  &fakeClock{},
		RNG:                    &seqRNG{values: []uint32{1000, 2000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	ep.Start()
	discoverRemote(t, ep, transport, 4096)
	return ep, transport
}

func buildOneProfileMessage(msgType byte, channel uint8, src, dst MUID, id ProfileId) []byte {
	frame := newHeader(sizeOneProfileMessage, channel, msgType, src, dst)
	copy(frame[offProfileID:], id.Bytes())
	return frame
}

func TestProfileMessageFromUnknownSourceDroppedWithoutNAK(t *testing.T) {
	ep, transport, _ := newTestEndpoint(t)
	ep.Start()

	frame := newHeader(headerLength+1, ChannelPort, msgProfileInquiry, remoteMUID, ep.LocalMUID())
	ep.OnMIDI(frame)

	if len(transport.frames) != 0 {
		t.Fatalf("undiscovered source must be dropped silently, got %v", transport.frames)
	}
}

func TestInvalidChannelFrameDroppedByFraming(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	// Device-ID 0x20 fails header validation, so the frame never
	// reaches the profile engine and no NAK goes out.
	frame := buildOneProfileMessage(msgProfileSetOn, 0x20, remoteMUID, ep.LocalMUID(), testProfile)
	ep.OnMIDI(frame)

	if len(transport.frames) != 0 {
		t.Fatalf("expected silent drop, got %v", transport.frames)
	}
}

func TestProfileInquirySingleChannelRepliesEvenWhenEmpty(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 3, false)

	frame := newHeader(headerLength+1, 5, msgProfileInquiry, remoteMUID, ep.LocalMUID())
	ep.OnMIDI(frame)

	replies := transport.framesOfType(msgProfileReply)
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %v", transport.frames)
	}
	reply := replies[0]
	if Channel(reply) != 5 || len(reply) != inquiryReplyOverhead {
		t.Fatalf("reply channel=%d len=%d", Channel(reply), len(reply))
	}
	if wire.Read14(reply, headerLength) != 0 || wire.Read14(reply, headerLength+2) != 0 {
		t.Fatal("empty channel must advertise zero profiles")
	}
}

func TestProfileInquirySingleChannelAdvertisesDisabledProfile(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 3, false)

	frame := newHeader(headerLength+1, 3, msgProfileInquiry, remoteMUID, ep.LocalMUID())
	ep.OnMIDI(frame)

	replies := transport.framesOfType(msgProfileReply)
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %v", transport.frames)
	}
	reply := replies[0]
	if wire.Read14(reply, headerLength) != 0 {
		t.Fatal("profile is not enabled")
	}
	disabledCountOff := headerLength + 2
	if wire.Read14(reply, disabledCountOff) != 1 {
		t.Fatal("disabled profile not advertised")
	}
	if got := ParseProfileId(reply, disabledCountOff+2); !got.Equal(testProfile) {
		t.Fatalf("advertised id = %s", got)
	}
}

func TestProfileInquiryPortWideSkipsEmptyChannels(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 2, true)

	frame := newHeader(headerLength+1, ChannelPort, msgProfileInquiry, remoteMUID, ep.LocalMUID())
	ep.OnMIDI(frame)

	replies := transport.framesOfType(msgProfileReply)
	if len(replies) != 2 {
		t.Fatalf("expected channel-2 reply plus port reply, got %d", len(replies))
	}
	if Channel(replies[0]) != 2 {
		t.Fatalf("first reply channel = %d", Channel(replies[0]))
	}
	if wire.Read14(replies[0], headerLength) != 1 {
		t.Fatal("enabled profile missing from channel reply")
	}
	if Channel(replies[1]) != ChannelPort {
		t.Fatalf("final reply channel = %d", Channel(replies[1]))
	}
}

func TestProfileInquiryReplyTruncatesToRemoteSysExSize(t *testing.T) {
	ep, transport, _ := newTestEndpoint(t)
	ep.Start()
	discoverRemote(t, ep, transport, 256)

	for i := 0; i < 80; i++ {
		id := ManufacturerProfileId([3]byte{0x21, byte(i >> 7), byte(i & 0x7F)}, 0, 0)
		ep.Registry.Local.Profiles.Add(id, ChannelPort, false)
	}

	frame := newHeader(headerLength+1, ChannelPort, msgProfileInquiry, remoteMUID, ep.LocalMUID())
	ep.OnMIDI(frame)

	replies := transport.framesOfType(msgProfileReply)
	if len(replies) != 1 {
		t.Fatalf("expected 1 port-wide reply, got %d", len(replies))
	}
	reply := replies[0]
	if len(reply) > 256 {
		t.Fatalf("reply length %d exceeds remote max SysEx size", len(reply))
	}
	enabled := int(wire.Read14(reply, headerLength))
	disabled := int(wire.Read14(reply, headerLength+2+enabled*ProfileIdSize))
	if enabled+disabled != 47 {
		t.Fatalf("advertised %d+%d profiles, want 47", enabled, disabled)
	}
}

func TestProfileInquiryReplyParsing(t *testing.T) {
	ep, _ := newProfileEndpoint(t, 0, false)

	enabledID := StandardProfileId(1, 2, 3, 0)
	disabledID := ManufacturerProfileId([3]byte{0x44, 0x55, 0x66}, 0, 0)

	size := inquiryReplyOverhead + 2*ProfileIdSize
	frame := newHeader(size, 4, msgProfileReply, remoteMUID, ep.LocalMUID())
	wire.Write14(frame, headerLength, 1)
	copy(frame[headerLength+2:], enabledID.Bytes())
	wire.Write14(frame, headerLength+2+ProfileIdSize, 1)
	copy(frame[headerLength+2+ProfileIdSize+2:], disabledID.Bytes())
	ep.OnMIDI(frame)

	remote, _ := ep.Registry.Lookup(remoteMUID)
	state, ok := remote.Profiles.Get(enabledID)
	if !ok || !state.IsChannelEnabled(4) {
		t.Fatal("enabled profile not recorded")
	}
	state, ok = remote.Profiles.Get(disabledID)
	if !ok || state.IsChannelEnabled(4) || !state.IsChannelAvailable(4) {
		t.Fatal("disabled profile must be recorded available but not enabled")
	}
}

func TestProfileInquiryReplyMalformedLengthRejected(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	// Claims 10 enabled profiles in a frame with room for none.
	frame := newHeader(inquiryReplyOverhead, 0, msgProfileReply, remoteMUID, ep.LocalMUID())
	wire.Write14(frame, headerLength, 10)
	ep.OnMIDI(frame)

	if len(transport.framesOfType(msgNAK)) != 1 {
		t.Fatalf("malformed reply must NAK, got %v", transport.frames)
	}
}

func TestProfileSetOnEnablesAndReports(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	ep.OnMIDI(buildOneProfileMessage(msgProfileSetOn, 0, remoteMUID, ep.LocalMUID(), testProfile))

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	if !state.IsChannelEnabled(0) {
		t.Fatal("profile not enabled")
	}
	reports := transport.framesOfType(msgProfileReportOn)
	if len(reports) != 1 {
		t.Fatalf("expected broadcast Report On, got %v", transport.frames)
	}
	if DestinationMUID(reports[0]) != MUIDBroadcast || Channel(reports[0]) != 0 {
		t.Fatalf("report = % X", reports[0])
	}
	if got := ParseProfileId(reports[0], offProfileID); !got.Equal(testProfile) {
		t.Fatalf("report id = %s", got)
	}
}

func TestProfileSetOffDisablesAndReports(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, true)

	ep.OnMIDI(buildOneProfileMessage(msgProfileSetOff, 0, remoteMUID, ep.LocalMUID(), testProfile))

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	if state.IsChannelEnabled(0) {
		t.Fatal("profile still enabled")
	}
	if !state.IsChannelAvailable(0) {
		t.Fatal("disabling must leave the channel available")
	}
	if len(transport.framesOfType(msgProfileReportOff)) != 1 {
		t.Fatalf("expected broadcast Report Off, got %v", transport.frames)
	}
}

func TestProfileSetOnUnknownProfileGetsNAK(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	unknown := ManufacturerProfileId([3]byte{0x7F, 0x7F, 0x7F}, 0, 0)
	ep.OnMIDI(buildOneProfileMessage(msgProfileSetOn, 0, remoteMUID, ep.LocalMUID(), unknown))

	if len(transport.framesOfType(msgNAK)) != 1 {
		t.Fatalf("expected NAK, got %v", transport.frames)
	}
}

func TestProfileSetOnVetoReportsOppositeState(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	state.Subscribe(ProfileStateListener{
		OnCanEnable: func(channel uint8, newState bool) bool { return false },
	})

	ep.OnMIDI(buildOneProfileMessage(msgProfileSetOn, 0, remoteMUID, ep.LocalMUID(), testProfile))

	if state.IsChannelEnabled(0) {
		t.Fatal("veto did not hold")
	}
	if len(transport.framesOfType(msgProfileReportOn)) != 0 {
		t.Fatal("vetoed change must not report On")
	}
	reports := transport.framesOfType(msgProfileReportOff)
	if len(reports) != 1 {
		t.Fatalf("expected Report Off after veto, got %v", transport.frames)
	}
}

func TestProfileReportUpdatesRemoteRegistry(t *testing.T) {
	ep, _ := newProfileEndpoint(t, 0, false)

	id := StandardProfileId(7, 8, 1, 0)
	ep.OnMIDI(buildOneProfileMessage(msgProfileReportOn, 4, remoteMUID, MUIDBroadcast, id))

	remote, _ := ep.Registry.Lookup(remoteMUID)
	state, ok := remote.Profiles.Get(id)
	if !ok || !state.IsChannelEnabled(4) {
		t.Fatal("remote report not recorded")
	}

	ep.OnMIDI(buildOneProfileMessage(msgProfileReportOff, 4, remoteMUID, MUIDBroadcast, id))
	if state.IsChannelEnabled(4) {
		t.Fatal("report off not recorded")
	}
}

func TestProfileSpecificDataStored(t *testing.T) {
	ep, _ := newProfileEndpoint(t, 0, false)

	data := []byte{0x11, 0x22, 0x33}
	size := offSpecificDataBytes + len(data) + 1
	frame := newHeader(size, ChannelPort, msgProfileSpecificData, remoteMUID, ep.LocalMUID())
	copy(frame[offProfileID:], testProfile.Bytes())
	wire.Write28(frame, offSpecificDataLength, uint32(len(data)))
	copy(frame[offSpecificDataBytes:], data)
	ep.OnMIDI(frame)

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	if !bytes.Equal(state.SpecificData(), data) {
		t.Fatalf("specific data = % X", state.SpecificData())
	}
}

func TestProfileSpecificDataTruncatedGetsNAK(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	// Declares 10 bytes but carries none.
	size := offSpecificDataBytes + 1
	frame := newHeader(size, ChannelPort, msgProfileSpecificData, remoteMUID, ep.LocalMUID())
	copy(frame[offProfileID:], testProfile.Bytes())
	wire.Write28(frame, offSpecificDataLength, 10)
	ep.OnMIDI(frame)

	if len(transport.framesOfType(msgNAK)) != 1 {
		t.Fatalf("expected NAK, got %v", transport.frames)
	}
}

func TestLocalSpecificDataWriteToRemoteStateIsSent(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	remote, _ := ep.Registry.Lookup(remoteMUID)
	state := remote.Profiles.Add(testProfile, 2, false)
	transport.frames = nil

	data := []byte{0x01, 0x02}
	state.SetSpecificData(data)

	sent := transport.framesOfType(msgProfileSpecificData)
	if len(sent) != 1 {
		t.Fatalf("expected Profile Specific Data TX, got %v", transport.frames)
	}
	frame := sent[0]
	if DestinationMUID(frame) != remoteMUID {
		t.Fatalf("destination = %s", DestinationMUID(frame))
	}
	n := int(wire.Read28(frame, offSpecificDataLength))
	if n != len(data) || !bytes.Equal(frame[offSpecificDataBytes:offSpecificDataBytes+n], data) {
		t.Fatalf("payload = % X", frame)
	}
}

func TestLocalSpecificDataWriteStaysLocal(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	state.SetSpecificData([]byte{0x7F})

	if len(transport.frames) != 0 {
		t.Fatalf("local specific-data write must not transmit, got %v", transport.frames)
	}
}

func TestHostEnableBroadcastsReport(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	state.SetChannelEnabled(3, true)

	reports := transport.framesOfType(msgProfileReportOn)
	if len(reports) != 1 || Channel(reports[0]) != 3 {
		t.Fatalf("expected Report On for channel 3, got %v", transport.frames)
	}
}

func TestProfileEngineStopStopsReporting(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)
	ep.Stop()
	transport.frames = nil

	state, _ := ep.Registry.Local.Profiles.Get(testProfile)
	state.SetChannelEnabled(3, true)

	if len(transport.frames) != 0 {
		t.Fatalf("stopped engine must not report, got %v", transport.frames)
	}
}

func TestProfileEngineTogglesCategoryBit(t *testing.T) {
	ep, _, _ := newTestEndpoint(t)
	ep.Start()
	if ep.Registry.Local.CategoriesSupported&CategoryProtocolNegotiation == 0 {
		t.Fatal("category bit not set on start")
	}
	ep.Stop()
	if ep.Registry.Local.CategoriesSupported&CategoryProtocolNegotiation != 0 {
		t.Fatal("category bit not cleared on stop")
	}
}

func TestTriggerProfileInquiry(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	if !ep.Profiles.TriggerProfileInquiry(remoteMUID) {
		t.Fatal("TriggerProfileInquiry failed")
	}
	frames := transport.framesOfType(msgProfileInquiry)
	if len(frames) != 1 || DestinationMUID(frames[0]) != remoteMUID {
		t.Fatalf("expected inquiry to %s, got %v", remoteMUID, transport.frames)
	}
}

func TestSendProfileSetOnAndOff(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	for _, tc := range []struct {
		name string
		send func() bool
		want byte
	}{
		{"on", func() bool { return ep.Profiles.SendProfileSetOn(1, remoteMUID, testProfile) }, msgProfileSetOn},
		{"off", func() bool { return ep.Profiles.SendProfileSetOff(1, remoteMUID, testProfile) }, msgProfileSetOff},
	} {
		t.Run(tc.name, func(t *testing.T) {
			transport.frames = nil
			if !tc.send() {
				t.Fatal("send failed")
			}
			frames := transport.framesOfType(tc.want)
			if len(frames) != 1 {
				t.Fatalf("expected message %#02x, got %v", tc.want, transport.frames)
			}
			if got := ParseProfileId(frames[0], offProfileID); !got.Equal(testProfile) {
				t.Fatalf("id = %s", got)
			}
		})
	}
}

func TestSendProfileSpecificDataRespectsRemoteLimit(t *testing.T) {
	ep, transport, _ := newTestEndpoint(t)
	ep.Start()
	discoverRemote(t, ep, transport, 128)

	big := make([]byte, 200)
	if ep.Profiles.SendProfileSpecificData(remoteMUID, testProfile, big) {
		t.Fatal("oversized specific data must be refused")
	}
	if len(transport.frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(transport.frames))
	}
}

func TestProfileMessageAddressedElsewhereIgnored(t *testing.T) {
	ep, transport := newProfileEndpoint(t, 0, false)

	other := MUID(0x0054321)
	frame := buildOneProfileMessage(msgProfileSetOn, 0, remoteMUID, other, testProfile)
	ep.OnMIDI(frame)

	if len(transport.frames) != 0 {
		t.Fatalf("message for %s must be ignored, got %v", other, transport.frames)
	}
}
