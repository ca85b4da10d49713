package ci

// SplitSysEx scans a raw inbound byte stream for complete SysEx frames
// (0xF0 through 0xF7 inclusive) and returns them together with any
// trailing bytes that do not yet form a complete frame. Bytes outside a
// frame are discarded. Hosts whose transport delivers an unframed byte
// stream can run this in front of Endpoint.OnMIDI; transports that
// already deliver whole frames do not need it.
func SplitSysEx(stream []byte) (frames [][]byte, rest []byte) {
	start := -1
	for i, b := range stream {
		switch b {
		case sysexStart:
			start = i
		case sysexEnd:
			if start >= 0 {
				frame := append([]byte(nil), stream[start:i+1]...)
				frames = append(frames, frame)
				start = -1
			}
		}
	}
	if start >= 0 {
		rest = append([]byte(nil), stream[start:]...)
	}
	return frames, rest
}
