// Package wire implements the 7-bit-safe integer packing used inside
// MIDI-CI SysEx payloads.
//
// Every MIDI SysEx data byte must have its top bit clear, so none of
// the integer widths below can be packed with encoding/binary: fields
// are split into 7-bit "septets" instead of 8-bit bytes. Two of the
// widths (16-bit and 32-bit) mask each byte to 7 bits but shift by a
// full 8; the asymmetry with the 14- and 28-bit forms is part of the
// wire format and is reproduced verbatim.
package wire

// Read14 reads a 14-bit value LSB-septet-first starting at off:
// value = b0 | (b1<<7).
func Read14(buf []byte, off int) uint16 {
	b0 := uint16(buf[off] & 0x7F)
	b1 := uint16(buf[off+1] & 0x7F)
	return b0 | (b1 << 7)
}

// Write14 writes a 14-bit value LSB-septet-first starting at off. Each
// emitted byte is masked to 7 bits.
func Write14(buf []byte, off int, value uint16) {
	buf[off] = byte(value) & 0x7F
	buf[off+1] = byte(value>>7) & 0x7F
}

// Read16 reads the 16-bit-on-the-wire encoding used for Family/Model
// IDs, which are semantically 14-bit but shifted by 8 rather than 7:
// value = (b0 & 0x7F) | ((b1 & 0x7F) << 8).
func Read16(buf []byte, off int) uint16 {
	b0 := uint16(buf[off] & 0x7F)
	b1 := uint16(buf[off+1] & 0x7F)
	return b0 | (b1 << 8)
}

// Write16 writes the 16-bit-on-the-wire encoding. Each byte is masked
// to 7 bits but the shift between bytes is 8, not 7 as in Write14.
func Write16(buf []byte, off int, value uint16) {
	buf[off] = byte(value) & 0x7F
	buf[off+1] = byte(value>>8) & 0x7F
}

// Read24 reads a 24-bit value MSB-septet-first starting at off.
func Read24(buf []byte, off int) uint32 {
	b0 := uint32(buf[off] & 0x7F)
	b1 := uint32(buf[off+1] & 0x7F)
	b2 := uint32(buf[off+2] & 0x7F)
	return (b0 << 14) | (b1 << 7) | b2
}

// Write24 writes a 24-bit value MSB-septet-first starting at off.
func Write24(buf []byte, off int, value uint32) {
	buf[off] = byte(value>>14) & 0x7F
	buf[off+1] = byte(value>>7) & 0x7F
	buf[off+2] = byte(value) & 0x7F
}

// Read28 reads a 28-bit value LSB-septet-first starting at off:
// value = b0 | b1<<7 | b2<<14 | b3<<21.
func Read28(buf []byte, off int) uint32 {
	b0 := uint32(buf[off] & 0x7F)
	b1 := uint32(buf[off+1] & 0x7F)
	b2 := uint32(buf[off+2] & 0x7F)
	b3 := uint32(buf[off+3] & 0x7F)
	return b0 | (b1 << 7) | (b2 << 14) | (b3 << 21)
}

// Write28 writes a 28-bit value LSB-septet-first starting at off. Each
// emitted byte is masked to 7 bits.
func Write28(buf []byte, off int, value uint32) {
	buf[off] = byte(value) & 0x7F
	buf[off+1] = byte(value>>7) & 0x7F
	buf[off+2] = byte(value>>14) & 0x7F
	buf[off+3] = byte(value>>21) & 0x7F
}

// Read32 reads the 32-bit-on-the-wire encoding starting at off: four
// bytes masked to 7 bits each, shifted by 0/8/16/24, again asymmetric
// with Read28's 7-bit shifts.
func Read32(buf []byte, off int) uint32 {
	b0 := uint32(buf[off] & 0x7F)
	b1 := uint32(buf[off+1] & 0x7F)
	b2 := uint32(buf[off+2] & 0x7F)
	b3 := uint32(buf[off+3] & 0x7F)
	return b0 | (b1 << 8) | (b2 << 16) | (b3 << 24)
}

// Write32 writes the 32-bit-on-the-wire encoding starting at off.
func Write32(buf []byte, off int, value uint32) {
	buf[off] = byte(value) & 0x7F
	buf[off+1] = byte(value>>8) & 0x7F
	buf[off+2] = byte(value>>16) & 0x7F
	buf[off+3] = byte(value>>24) & 0x7F
}
