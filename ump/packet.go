package ump

import (
	"fmt"
	"strings"
)

// ChannelVoiceStatus is the 4-bit status nibble of a MIDI1- or
// MIDI2-channel-voice UMP. The two families share most status values;
// MIDI2 additionally defines per-note and relative-controller statuses
// that have no MIDI1 equivalent.
type ChannelVoiceStatus uint8

const (
	StatusRegisteredPerNoteCC  = ChannelVoiceStatus(0x0)
	StatusAssignablePerNoteCC  = ChannelVoiceStatus(0x1)
	StatusRegisteredCC         = ChannelVoiceStatus(0x2)
	StatusAssignableCC         = ChannelVoiceStatus(0x3)
	StatusRelativeRegisteredCC = ChannelVoiceStatus(0x4)
	StatusRelativeAssignableCC = ChannelVoiceStatus(0x5)
	StatusPerNotePitchBend     = ChannelVoiceStatus(0x6)
	StatusNoteOff              = ChannelVoiceStatus(0x8)
	StatusNoteOn               = ChannelVoiceStatus(0x9)
	StatusPressure             = ChannelVoiceStatus(0xA)
	StatusControlChange        = ChannelVoiceStatus(0xB)
	StatusProgramChange        = ChannelVoiceStatus(0xC)
	StatusChannelPressure      = ChannelVoiceStatus(0xD)
	StatusPitchBend            = ChannelVoiceStatus(0xE)
	StatusPerNoteManagement    = ChannelVoiceStatus(0xF)
)

// Per-note management option flags.
const (
	PerNoteDetach = uint8(0b01)
	PerNoteReset  = uint8(0b10)
)

// ProgramChangeBankValid is the word-0 byte2 option flag bit indicating
// the bank bytes in word 1 are meaningful.
const ProgramChangeBankValid = uint8(0b01)

// Packet is a typed view over 1-4 32-bit UMP words. The zero value is
// not a valid packet; use one of the initX constructors.
type Packet struct {
	words [4]uint32
	n     int
}

// Word returns the i-th 32-bit word (0-indexed).
func (p Packet) Word(i int) uint32 { return p.words[i] }

// SizeInWords reports how many of the packet's words are in use.
func (p Packet) SizeInWords() int { return p.n }

// MessageType returns the top nibble of word 0.
func (p Packet) MessageType() MessageType {
	return MessageType(p.words[0] >> 28)
}

// Group returns the 4-bit group field common to every UMP.
func (p Packet) Group() uint8 {
	return uint8((p.words[0] >> 24) & 0xF)
}

// Status returns the 4-bit status nibble (only meaningful for
// channel-voice message types).
func (p Packet) Status() ChannelVoiceStatus {
	return ChannelVoiceStatus((p.words[0] >> 20) & 0xF)
}

// Channel returns the 4-bit channel field (only meaningful for
// channel-voice message types).
func (p Packet) Channel() uint8 {
	return uint8((p.words[0] >> 16) & 0xF)
}

// byte1/byte2 access word 0's low 16 bits, split into two bytes. For
// MIDI2-channel-voice these are full 8-bit fields; MIDI1-channel-voice
// restricts them to 7 bits, which callers are responsible for masking
// on construction (this accessor does not re-mask on read).
func (p Packet) byte1() uint8 { return uint8((p.words[0] >> 8) & 0xFF) }
func (p Packet) byte2() uint8 { return uint8(p.words[0] & 0xFF) }

func wordZero(mt MessageType, group uint8, status ChannelVoiceStatus, channel uint8, b1, b2 uint8) uint32 {
	return (uint32(mt&0xF) << 28) |
		(uint32(group&0xF) << 24) |
		(uint32(status&0xF) << 20) |
		(uint32(channel&0xF) << 16) |
		(uint32(b1) << 8) |
		uint32(b2)
}

// FromWords builds a typed view over raw UMP words received from a
// transport. The packet length implied by word 0's message-type nibble
// must match the number of words supplied.
func FromWords(words ...uint32) (Packet, error) {
	if len(words) == 0 || len(words) > 4 {
		return Packet{}, fmt.Errorf("ump: packet must be 1-4 words, got %d", len(words))
	}
	mt := MessageType(words[0] >> 28)
	if want := SizeInWords(mt); want != len(words) {
		return Packet{}, fmt.Errorf("ump: message type %s needs %d words, got %d", mt, want, len(words))
	}
	var p Packet
	copy(p.words[:], words)
	p.n = len(words)
	return p, nil
}

func newPacket1(word0 uint32) Packet {
	return Packet{words: [4]uint32{word0}, n: 1}
}

func newPacket2(word0, word1 uint32) Packet {
	return Packet{words: [4]uint32{word0, word1}, n: 2}
}

// --- MIDI1-channel-voice constructors (MT=2, 7-bit data fields) ---

// InitMIDI1NoteOn builds a MIDI1-channel-voice Note On (status 9).
func InitMIDI1NoteOn(group, channel, note, velocity uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusNoteOn, channel, note&0x7F, velocity&0x7F)
	return newPacket1(w)
}

// InitMIDI1NoteOff builds a MIDI1-channel-voice Note Off (status 8).
func InitMIDI1NoteOff(group, channel, note, velocity uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusNoteOff, channel, note&0x7F, velocity&0x7F)
	return newPacket1(w)
}

// InitMIDI1ControlChange builds a MIDI1-channel-voice Control Change.
func InitMIDI1ControlChange(group, channel, index, value uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusControlChange, channel, index&0x7F, value&0x7F)
	return newPacket1(w)
}

// InitMIDI1ProgramChange builds a MIDI1-channel-voice Program Change.
func InitMIDI1ProgramChange(group, channel, program uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusProgramChange, channel, program&0x7F, 0)
	return newPacket1(w)
}

// InitMIDI1ChannelPressure builds a MIDI1-channel-voice Channel
// Pressure message.
func InitMIDI1ChannelPressure(group, channel, value uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusChannelPressure, channel, value&0x7F, 0)
	return newPacket1(w)
}

// InitMIDI1PolyPressure builds a MIDI1-channel-voice poly key pressure
// message.
func InitMIDI1PolyPressure(group, channel, note, value uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusPressure, channel, note&0x7F, value&0x7F)
	return newPacket1(w)
}

// InitMIDI1PitchBend builds a MIDI1-channel-voice Pitch Bend message
// from its 7-bit LSB/MSB halves.
func InitMIDI1PitchBend(group, channel, lsb, msb uint8) Packet {
	w := wordZero(MessageTypeMIDI1CV, group, StatusPitchBend, channel, lsb&0x7F, msb&0x7F)
	return newPacket1(w)
}

// --- MIDI2-channel-voice constructors (MT=4, full 8-bit fields, 2 words) ---

// InitNoteOn builds a MIDI2-channel-voice Note On with an optional
// 8-bit attribute type and 16-bit attribute value.
func InitNoteOn(group, channel, note uint8, velocity16 uint16, attrType uint8, attrData uint16) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusNoteOn, channel, note, attrType)
	w1 := (uint32(velocity16) << 16) | uint32(attrData)
	return newPacket2(w0, w1)
}

// InitNoteOff builds a MIDI2-channel-voice Note Off with an optional
// 8-bit attribute type and 16-bit attribute value.
func InitNoteOff(group, channel, note uint8, velocity16 uint16, attrType uint8, attrData uint16) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusNoteOff, channel, note, attrType)
	w1 := (uint32(velocity16) << 16) | uint32(attrData)
	return newPacket2(w0, w1)
}

// InitPolyPressure builds a MIDI2-channel-voice poly key pressure
// message with a 32-bit pressure value.
func InitPolyPressure(group, channel, note uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusPressure, channel, note, 0)
	return newPacket2(w0, value32)
}

// InitControlChange builds a MIDI2-channel-voice Control Change with a
// 32-bit value.
func InitControlChange(group, channel, index uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusControlChange, channel, index, 0)
	return newPacket2(w0, value32)
}

// InitRegisteredCC builds a MIDI2-channel-voice Registered Controller
// (RPN) message: bank + index select the parameter, value32 is the
// 32-bit expanded data.
func InitRegisteredCC(group, channel, bank, index uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusRegisteredCC, channel, bank, index)
	return newPacket2(w0, value32)
}

// InitAssignableCC builds a MIDI2-channel-voice Assignable Controller
// (NRPN) message: bank + index select the parameter, value32 is the
// 32-bit expanded data.
func InitAssignableCC(group, channel, bank, index uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusAssignableCC, channel, bank, index)
	return newPacket2(w0, value32)
}

// InitRegisteredPerNoteCC builds a per-note Registered Controller
// message.
func InitRegisteredPerNoteCC(group, channel, note, index uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusRegisteredPerNoteCC, channel, note, index)
	return newPacket2(w0, value32)
}

// InitAssignablePerNoteCC builds a per-note Assignable Controller
// message.
func InitAssignablePerNoteCC(group, channel, note, index uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusAssignablePerNoteCC, channel, note, index)
	return newPacket2(w0, value32)
}

// InitProgramChange builds a MIDI2-channel-voice Program Change.
// bankValid controls the ProgramChangeBankValid option flag; when it
// is false the bank bytes are still encoded but receivers must ignore
// them, so callers pass zero for both.
func InitProgramChange(group, channel, program uint8, bankValid bool, bankMSB, bankLSB uint8) Packet {
	var flags uint8
	if bankValid {
		flags = ProgramChangeBankValid
	}
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusProgramChange, channel, 0, flags)
	w1 := (uint32(program&0x7F) << 24) | (uint32(bankMSB&0x7F) << 8) | uint32(bankLSB&0x7F)
	return newPacket2(w0, w1)
}

// ProgramChangeFields extracts the Program Change payload encoded by
// InitProgramChange.
func (p Packet) ProgramChangeFields() (program, bankMSB, bankLSB uint8, bankValid bool) {
	bankValid = p.byte2()&ProgramChangeBankValid != 0
	w1 := p.words[1]
	program = uint8((w1 >> 24) & 0x7F)
	bankMSB = uint8((w1 >> 8) & 0x7F)
	bankLSB = uint8(w1 & 0x7F)
	return
}

// InitChannelPressure builds a MIDI2-channel-voice Channel Pressure
// message with a 32-bit value.
func InitChannelPressure(group, channel uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusChannelPressure, channel, 0, 0)
	return newPacket2(w0, value32)
}

// InitPitchBend builds a MIDI2-channel-voice Pitch Bend message with a
// 32-bit value.
func InitPitchBend(group, channel uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusPitchBend, channel, 0, 0)
	return newPacket2(w0, value32)
}

// InitPerNotePitchBend builds a per-note Pitch Bend message.
func InitPerNotePitchBend(group, channel, note uint8, value32 uint32) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusPerNotePitchBend, channel, note, 0)
	return newPacket2(w0, value32)
}

// InitPerNoteManagement builds a per-note management message. flags is
// PerNoteDetach and/or PerNoteReset.
func InitPerNoteManagement(group, channel, note, flags uint8) Packet {
	w0 := wordZero(MessageTypeMIDI2CV, group, StatusPerNoteManagement, channel, note, flags&0x3)
	return newPacket2(w0, 0)
}

// NoteFields extracts note/velocity/attribute fields common to Note On
// and Note Off packets.
func (p Packet) NoteFields() (note uint8, attrType uint8, velocity16 uint16, attrData uint16) {
	note = p.byte1()
	attrType = p.byte2()
	velocity16 = uint16(p.words[1] >> 16)
	attrData = uint16(p.words[1])
	return
}

// Value32 returns word 1 interpreted as a plain 32-bit value, valid for
// any two-word MIDI2-channel-voice message whose second word is a bare
// value (pressure, control change, pitch bend, per-note variants).
func (p Packet) Value32() uint32 { return p.words[1] }

// BankIndex returns the byte1/byte2 fields of word 0, valid for
// Registered/Assignable (per-note) Controller messages.
func (p Packet) BankIndex() (bank, index uint8) { return p.byte1(), p.byte2() }

// PerNoteManagementFlags returns the option-flags byte of a per-note
// management message.
func (p Packet) PerNoteManagementFlags() uint8 { return p.byte2() & 0x3 }

// String renders a debug string: hex of the first word, a multi-word
// suffix when applicable, the message-type name, and (for
// channel-voice messages) the status name.
func (p Packet) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%08X", p.words[0])
	for i := 1; i < p.n; i++ {
		fmt.Fprintf(&b, " %08X", p.words[i])
	}
	mt := p.MessageType()
	fmt.Fprintf(&b, " %s", mt)
	if mt == MessageTypeMIDI2CV {
		fmt.Fprintf(&b, "/%s", p.Status().m2String())
	} else if mt == MessageTypeMIDI1CV {
		fmt.Fprintf(&b, "/%s", p.Status().m1String())
	}
	return b.String()
}
