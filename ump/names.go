package ump

import "fmt"

// messageTypeNames backs MessageType.String.
var messageTypeNames = map[MessageType]string{
	MessageTypeUtility: "Utility",
	MessageTypeSystem:  "System",
	MessageTypeMIDI1CV: "MIDI1ChannelVoice",
	MessageTypeData64:  "Data64",
	MessageTypeMIDI2CV: "MIDI2ChannelVoice",
	MessageTypeData128: "Data128",
}

// m1StatusNames backs the status suffix of Packet.String for
// MIDI1-channel-voice packets.
var m1StatusNames = map[ChannelVoiceStatus]string{
	StatusNoteOff:         "NoteOff",
	StatusNoteOn:          "NoteOn",
	StatusPressure:        "PolyPressure",
	StatusControlChange:   "ControlChange",
	StatusProgramChange:   "ProgramChange",
	StatusChannelPressure: "ChannelPressure",
	StatusPitchBend:       "PitchBend",
}

// m2StatusNames backs the status suffix for MIDI2-channel-voice
// packets, which define several statuses MIDI1 does not have.
var m2StatusNames = map[ChannelVoiceStatus]string{
	StatusRegisteredPerNoteCC:  "RegisteredPerNoteCC",
	StatusAssignablePerNoteCC:  "AssignablePerNoteCC",
	StatusRegisteredCC:         "RegisteredCC",
	StatusAssignableCC:         "AssignableCC",
	StatusRelativeRegisteredCC: "RelativeRegisteredCC",
	StatusRelativeAssignableCC: "RelativeAssignableCC",
	StatusPerNotePitchBend:     "PerNotePitchBend",
	StatusNoteOff:              "NoteOff",
	StatusNoteOn:               "NoteOn",
	StatusPressure:             "Pressure",
	StatusControlChange:        "ControlChange",
	StatusProgramChange:        "ProgramChange",
	StatusChannelPressure:      "ChannelPressure",
	StatusPitchBend:            "PitchBend",
	StatusPerNoteManagement:    "PerNoteManagement",
}

func (s ChannelVoiceStatus) m1String() string {
	if name, ok := m1StatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%X)", uint8(s))
}

func (s ChannelVoiceStatus) m2String() string {
	if name, ok := m2StatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%X)", uint8(s))
}

// FormatMIDI1Bytes renders a raw MIDI 1.0 message as space-separated
// uppercase hex: 1-3 bytes are printed in full, anything longer is
// summarized by length only.
func FormatMIDI1Bytes(data []byte) string {
	switch len(data) {
	case 1:
		return fmt.Sprintf("%02X", data[0])
	case 2:
		return fmt.Sprintf("%02X %02X", data[0], data[1])
	case 3:
		return fmt.Sprintf("%02X %02X %02X", data[0], data[1], data[2])
	default:
		return fmt.Sprintf("(%d bytes)", len(data))
	}
}
