package ump

import (
	"strings"
	"testing"
)

func TestMessageTypeAndSizeAgree(t *testing.T) {
	cases := []struct {
		name   string
		packet Packet
		mt     MessageType
		size   int
	}{
		{"MIDI1 NoteOn", InitMIDI1NoteOn(0, 1, 60, 100), MessageTypeMIDI1CV, 1},
		{"MIDI2 NoteOn", InitNoteOn(0, 1, 60, 0x8000, 0, 0), MessageTypeMIDI2CV, 2},
		{"MIDI2 ControlChange", InitControlChange(0, 1, 7, 0x12345678), MessageTypeMIDI2CV, 2},
		{"MIDI2 ProgramChange", InitProgramChange(0, 1, 42, true, 1, 2), MessageTypeMIDI2CV, 2},
		{"MIDI2 PerNoteManagement", InitPerNoteManagement(0, 1, 60, PerNoteDetach), MessageTypeMIDI2CV, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.packet.MessageType(); got != tc.mt {
				t.Fatalf("MessageType() = %v, want %v", got, tc.mt)
			}
			if got := tc.packet.SizeInWords(); got != tc.size {
				t.Fatalf("SizeInWords() = %d, want %d", got, tc.size)
			}
			if got := SizeInWords(tc.mt); got != tc.size {
				t.Fatalf("SizeInWords(mt) = %d, want %d", got, tc.size)
			}
		})
	}
}

func TestFromWords(t *testing.T) {
	built := InitNoteOn(1, 2, 60, 0x8000, 0, 0)
	parsed, err := FromWords(built.Word(0), built.Word(1))
	if err != nil {
		t.Fatal(err)
	}
	if parsed != built {
		t.Fatalf("FromWords = %v, want %v", parsed, built)
	}

	if _, err := FromWords(built.Word(0)); err == nil {
		t.Fatal("short word count must be rejected")
	}
	if _, err := FromWords(); err == nil {
		t.Fatal("empty word list must be rejected")
	}
}

func TestNoteFieldsRoundTrip(t *testing.T) {
	p := InitNoteOn(3, 5, 60, 0x8000, 9, 0x1234)
	note, attrType, velocity, attrData := p.NoteFields()
	if note != 60 || attrType != 9 || velocity != 0x8000 || attrData != 0x1234 {
		t.Fatalf("NoteFields() = %d %d %#x %#x", note, attrType, velocity, attrData)
	}
	if p.Channel() != 5 || p.Group() != 3 {
		t.Fatalf("Channel/Group = %d/%d", p.Channel(), p.Group())
	}
	if p.Status() != StatusNoteOn {
		t.Fatalf("Status() = %v", p.Status())
	}
}

func TestProgramChangeFieldsRoundTrip(t *testing.T) {
	p := InitProgramChange(0, 3, 0x7A, true, 2, 5)
	program, bankMSB, bankLSB, valid := p.ProgramChangeFields()
	if program != 0x7A || bankMSB != 2 || bankLSB != 5 || !valid {
		t.Fatalf("ProgramChangeFields() = %d %d %d %v", program, bankMSB, bankLSB, valid)
	}

	p2 := InitProgramChange(0, 3, 0x7A, false, 0, 0)
	_, _, _, valid2 := p2.ProgramChangeFields()
	if valid2 {
		t.Fatalf("expected BankSelectValid clear")
	}
}

func TestBankIndexRoundTrip(t *testing.T) {
	p := InitRegisteredCC(0, 2, 5, 6, 0x2020_0000)
	bank, index := p.BankIndex()
	if bank != 5 || index != 6 {
		t.Fatalf("BankIndex() = %d %d", bank, index)
	}
	if p.Value32() != 0x2020_0000 {
		t.Fatalf("Value32() = %#x", p.Value32())
	}
}

func TestStringIncludesMessageTypeAndStatus(t *testing.T) {
	p := InitControlChange(0, 0, 7, 0)
	s := p.String()
	if s == "" {
		t.Fatal("empty String()")
	}
	if !strings.Contains(s, "MIDI2ChannelVoice/ControlChange") {
		t.Fatalf("String() = %q, want message type and status names", s)
	}
	if got := p.MessageType().String(); got != "MIDI2ChannelVoice" {
		t.Fatalf("MessageType String() = %q", got)
	}
}
