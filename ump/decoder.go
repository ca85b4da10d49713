package ump

// midi1DataLengths maps a MIDI 1.0 status byte (channel-voice statuses
// keyed by their high nibble, system statuses keyed exactly) to the
// number of data bytes that follow it.
var midi1DataLengths = map[byte]int{
	0x80: 2, // note off
	0x90: 2, // note on
	0xA0: 2, // poly key pressure
	0xB0: 2, // control change
	0xC0: 1, // program change
	0xD0: 1, // channel pressure
	0xE0: 2, // pitch bend

	0xF1: 1, // MTC quarter frame
	0xF2: 2, // song position pointer
	0xF3: 1, // song select
	0xF6: 0, // tune request
}

// midi1DataLength returns the data-byte count for status, trying the
// exact byte first and falling back to the channel-voice high nibble.
func midi1DataLength(status byte) (int, bool) {
	if n, ok := midi1DataLengths[status]; ok {
		return n, ok
	}
	n, ok := midi1DataLengths[status&0xF0]
	return n, ok
}

// Decoder reassembles discrete MIDI 1.0 messages from a raw transport
// byte stream, handling running status (a repeated channel-voice status
// byte may be omitted), interleaved real-time bytes, and SysEx
// accumulation. Complete messages are passed to emit; a Translator's
// MIDI1Received is the intended receiver. The zero value is not usable;
// construct with NewDecoder.
type Decoder struct {
	emit func(msg []byte)

	running byte   // last channel-voice status, 0 when none
	pending []byte // partially accumulated message, status first
	need    int    // data bytes still missing from pending
	sysex   []byte // partially accumulated SysEx, nil when not inside one
}

// NewDecoder builds a Decoder delivering each complete message to emit.
func NewDecoder(emit func(msg []byte)) *Decoder {
	return &Decoder{emit: emit}
}

// Feed consumes the next chunk of raw bytes. Chunk boundaries are
// arbitrary; messages may span calls.
func (d *Decoder) Feed(data []byte) {
	for _, b := range data {
		d.feedByte(b)
	}
}

func (d *Decoder) feedByte(b byte) {
	// Real-time bytes may appear anywhere, even inside another message
	// or a SysEx, and never disturb the surrounding state.
	if b >= 0xF8 {
		d.emit([]byte{b})
		return
	}

	if d.sysex != nil {
		d.sysex = append(d.sysex, b)
		if b == 0xF7 {
			d.emit(d.sysex)
			d.sysex = nil
		}
		return
	}

	if b&0x80 != 0 {
		d.startStatus(b)
		return
	}

	// Data byte. Without a pending message, running status supplies the
	// status byte; without that either, the byte is stray and dropped.
	if d.pending == nil {
		if d.running == 0 {
			return
		}
		n, _ := midi1DataLength(d.running)
		d.pending = []byte{d.running}
		d.need = n
	}
	d.pending = append(d.pending, b)
	d.need--
	if d.need <= 0 {
		d.emit(d.pending)
		d.pending = nil
	}
}

func (d *Decoder) startStatus(status byte) {
	d.pending = nil

	if status == 0xF0 {
		d.sysex = []byte{status}
		d.running = 0
		return
	}
	if status == 0xF7 {
		// End of exclusive without a start; drop.
		return
	}

	n, known := midi1DataLength(status)
	if !known {
		// Undefined system status; swallow and reset running status.
		d.running = 0
		return
	}

	if status < 0xF0 {
		d.running = status
	} else {
		// System-common messages cancel running status.
		d.running = 0
	}

	if n == 0 {
		d.emit([]byte{status})
		return
	}
	d.pending = []byte{status}
	d.need = n
}
