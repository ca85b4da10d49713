package ump

// Clock supplies the monotonic millisecond time source the translator
// needs for its Bank-Select coalescing window. Only deltas matter; any
// monotonic source works (wall-clock time must not be used).
type Clock interface {
	NowMillis() uint64
}

// Listener receives the output of a Translator: translated UMP packets
// in one direction, translated MIDI 1.0 byte messages in the other.
type Listener interface {
	TranslatedPacket(p Packet)
	TranslatedMIDI1(data []byte, group uint8)
}

// MIDI1 status nibbles and controller indices the translator inspects.
const (
	midi1NoteOff         = 0x80
	midi1NoteOn          = 0x90
	midi1PolyPressure    = 0xA0
	midi1ControlChange   = 0xB0
	midi1ProgramChange   = 0xC0
	midi1ChannelPressure = 0xD0
	midi1PitchBend       = 0xE0

	ccBankSelectMSB = 0
	ccDataMSB       = 6
	ccBankSelectLSB = 32
	ccDataLSB       = 38
	ccNRPNLSB       = 98
	ccNRPNMSB       = 99
	ccRPNLSB        = 100
	ccRPNMSB        = 101
)

// bankChangeThresholdMillis is the Bank-Select-to-Program-Change
// coalescing window.
const bankChangeThresholdMillis = 500

// Translator is a stateful MIDI 1.0 <-> UMP (MIDI 2.0 channel voice)
// translator. The zero value is not usable; construct with
// NewTranslator.
type Translator struct {
	listener  Listener
	clock     Clock
	toGroup   uint8
	fromGroup int // -1 means all groups

	bank     bankState
	channels [channelCount]channelState
}

// NewTranslator builds a Translator with no listener attached and
// fromGroup set to "all groups".
func NewTranslator(clock Clock) *Translator {
	return &Translator{clock: clock, fromGroup: -1}
}

// SetListener attaches the receiver of translated output.
func (t *Translator) SetListener(l Listener) { t.listener = l }

// SetTranslateToGroup sets the MIDI 2.0 Group stamped on UMPs produced
// from incoming MIDI 1.0 messages.
func (t *Translator) SetTranslateToGroup(group uint8) { t.toGroup = group }

// SetTranslateFromGroup restricts UMP-to-MIDI1 translation to packets
// carrying the given Group; -1 means all groups.
func (t *Translator) SetTranslateFromGroup(group int) { t.fromGroup = group }

// MIDI1Received translates one complete MIDI 1.0 channel-voice message
// (no running status; the caller reassembles the byte stream first)
// into one or more UMPs delivered to the listener. It reports whether
// the message was recognized and translated.
func (t *Translator) MIDI1Received(data []byte) bool {
	if t.listener == nil || len(data) == 0 {
		return false
	}
	channel := data[0] & 0x0F
	status := data[0] & 0xF0

	switch len(data) {
	case 3:
		data1, data2 := data[1]&0x7F, data[2]&0x7F
		switch status {
		case midi1NoteOn:
			if data2 > 0 {
				t.listener.TranslatedPacket(InitNoteOn(t.toGroup, channel, data1, Convert7To16(data2), 0, 0))
				return true
			}
			// Note On with velocity 0 is a Note Off; MIDI 2.0 has no
			// such convention, so translate to an explicit Note Off at
			// 50% velocity.
			t.listener.TranslatedPacket(InitNoteOff(t.toGroup, channel, data1, 0x8000, 0, 0))
			return true
		case midi1NoteOff:
			t.listener.TranslatedPacket(InitNoteOff(t.toGroup, channel, data1, Convert7To16(data2), 0, 0))
			return true
		case midi1PolyPressure:
			t.listener.TranslatedPacket(InitPolyPressure(t.toGroup, channel, data1, Convert7To32(data2)))
			return true
		case midi1ControlChange:
			return t.controlChangeReceived(channel, data1, data2)
		case midi1PitchBend:
			t.listener.TranslatedPacket(InitPitchBend(t.toGroup, channel, Convert14To32FromHalves(data1, data2)))
			return true
		}
	case 2:
		data1 := data[1] & 0x7F
		switch status {
		case midi1ProgramChange:
			now := t.clock.NowMillis()
			var bankMSB, bankLSB uint8
			var valid bool
			if t.bank.msbSet && now-t.bank.msbTime < bankChangeThresholdMillis {
				bankMSB = t.bank.msb
				valid = true
			}
			if t.bank.lsbSet && now-t.bank.lsbTime < bankChangeThresholdMillis {
				bankLSB = t.bank.lsb
				valid = true
			}
			t.bank.msbSet = false
			t.bank.lsbSet = false
			t.listener.TranslatedPacket(InitProgramChange(t.toGroup, channel, data1, valid, bankMSB, bankLSB))
			return true
		case midi1ChannelPressure:
			t.listener.TranslatedPacket(InitChannelPressure(t.toGroup, channel, Convert7To32(data1)))
			return true
		}
	}
	// System messages, SysEx and anything else tunnel unmodified; the
	// transport (not this translator) decides what to do with them.
	return false
}

// controlChangeReceived implements (N)RPN assembly and Bank-Select
// tracking. Every incoming CC also produces a raw MIDI2 ControlChange,
// whether or not it participates in an (N)RPN sequence.
func (t *Translator) controlChangeReceived(channel, index, value uint8) bool {
	cs := &t.channels[channel]
	switch index {
	case ccBankSelectMSB:
		t.bank.msb = value
		t.bank.msbTime = t.clock.NowMillis()
		t.bank.msbSet = true
	case ccBankSelectLSB:
		t.bank.lsb = value
		t.bank.lsbTime = t.clock.NowMillis()
		t.bank.lsbSet = true
	case ccDataMSB:
		cs.valueMSB = value
		cs.flags |= flagReceivedNRPNValueMSB
	case ccDataLSB:
		switch {
		case cs.flags&(flagReceivedNRPNParamMSB|flagReceivedNRPNParamLSB|flagReceivedNRPNValueMSB) !=
			flagReceivedNRPNParamMSB|flagReceivedNRPNParamLSB|flagReceivedNRPNValueMSB:
			// incomplete (N)RPN state; ignore
		case cs.flags&flagReceivedNRPN != 0:
			t.listener.TranslatedPacket(InitAssignableCC(t.toGroup, channel, cs.paramMSB, cs.paramLSB,
				Convert14To32FromHalves(value, cs.valueMSB)))
		case cs.flags&flagReceivedRPN != 0:
			t.listener.TranslatedPacket(InitRegisteredCC(t.toGroup, channel, cs.paramMSB, cs.paramLSB,
				Convert14To32FromHalves(value, cs.valueMSB)))
		}
	case ccNRPNLSB:
		if cs.flags&flagReceivedNRPN != 0 {
			cs.flags |= flagReceivedNRPNParamLSB
			cs.paramLSB = value
		}
	case ccNRPNMSB:
		cs.flags |= flagReceivedNRPN | flagReceivedNRPNParamMSB
		cs.flags &^= flagReceivedRPN | flagReceivedNRPNValueMSB | flagReceivedNRPNParamLSB
		cs.paramMSB = value
	case ccRPNLSB:
		if cs.flags&flagReceivedRPN != 0 {
			cs.flags |= flagReceivedNRPNParamLSB
			cs.paramLSB = value
		}
	case ccRPNMSB:
		cs.flags |= flagReceivedRPN | flagReceivedNRPNParamMSB
		cs.flags &^= flagReceivedNRPN | flagReceivedNRPNValueMSB | flagReceivedNRPNParamLSB
		cs.paramMSB = value
	}

	t.listener.TranslatedPacket(InitControlChange(t.toGroup, channel, index, Convert7To32(value)))
	return true
}

// UMPReceived translates a MIDI2-channel-voice UMP into zero or more
// MIDI 1.0 messages delivered to the listener. Non-MIDI2-channel-voice
// packets, and packets outside the configured fromGroup filter, are
// reported as not translated.
func (t *Translator) UMPReceived(p Packet) bool {
	if t.listener == nil {
		return false
	}
	if t.fromGroup >= 0 && int(p.Group()) != t.fromGroup {
		return false
	}
	if p.MessageType() != MessageTypeMIDI2CV {
		return false
	}

	channel := p.Channel()
	group := p.Group()

	switch p.Status() {
	case StatusNoteOn:
		note, _, velocity16, _ := p.NoteFields()
		v := Convert32To7(uint32(velocity16) << 16)
		if v == 0 {
			v = 1
		}
		t.listener.TranslatedMIDI1([]byte{midi1NoteOn | channel, note, v}, group)
		return true
	case StatusNoteOff:
		note, _, velocity16, _ := p.NoteFields()
		t.listener.TranslatedMIDI1([]byte{midi1NoteOff | channel, note, Convert32To7(uint32(velocity16) << 16)}, group)
		return true
	case StatusProgramChange:
		program, bankMSB, bankLSB, valid := p.ProgramChangeFields()
		if valid {
			t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, ccBankSelectMSB, bankMSB}, group)
			t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, ccBankSelectLSB, bankLSB}, group)
		}
		t.listener.TranslatedMIDI1([]byte{midi1ProgramChange | channel, program}, group)
		return true
	case StatusControlChange:
		index, _ := p.BankIndex()
		t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, index, Convert32To7(p.Value32())}, group)
		return true
	case StatusPressure:
		note, _ := p.BankIndex()
		t.listener.TranslatedMIDI1([]byte{midi1PolyPressure | channel, note, Convert32To7(p.Value32())}, group)
		return true
	case StatusChannelPressure:
		t.listener.TranslatedMIDI1([]byte{midi1ChannelPressure | channel, Convert32To7(p.Value32())}, group)
		return true
	case StatusAssignableCC, StatusRegisteredCC:
		bank, index := p.BankIndex()
		indexCC, paramCC := uint8(ccNRPNMSB), uint8(ccNRPNLSB)
		if p.Status() == StatusRegisteredCC {
			indexCC, paramCC = ccRPNMSB, ccRPNLSB
		}
		value14 := Convert32To14(p.Value32())
		t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, indexCC, bank}, group)
		t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, paramCC, index}, group)
		t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, ccDataMSB, uint8(value14 >> 7)}, group)
		t.listener.TranslatedMIDI1([]byte{midi1ControlChange | channel, ccDataLSB, uint8(value14 & 0x7F)}, group)
		return true
	case StatusPitchBend:
		value14 := Convert32To14(p.Value32())
		t.listener.TranslatedMIDI1([]byte{midi1PitchBend | channel, uint8(value14 & 0x7F), uint8(value14 >> 7)}, group)
		return true
	}
	return false
}
