package ci

import (
	"bytes"
	"testing"
)

func TestSplitSysEx(t *testing.T) {
	f1 := []byte{0xF0, 0x7E, 0x01, 0xF7}
	f2 := []byte{0xF0, 0x7E, 0x02, 0x03, 0xF7}

	stream := append(append(append([]byte{0x42}, f1...), 0x55), f2...)
	stream = append(stream, 0xF0, 0x7E) // incomplete trailer

	frames, rest := SplitSysEx(stream)
	if len(frames) != 2 {
		t.Fatalf("frames = %d", len(frames))
	}
	if !bytes.Equal(frames[0], f1) || !bytes.Equal(frames[1], f2) {
		t.Fatalf("frames = % X / % X", frames[0], frames[1])
	}
	if !bytes.Equal(rest, []byte{0xF0, 0x7E}) {
		t.Fatalf("rest = % X", rest)
	}
}

func TestSplitSysExNoFrames(t *testing.T) {
	frames, rest := SplitSysEx([]byte{0x90, 0x40, 0x7F})
	if frames != nil || rest != nil {
		t.Fatalf("frames=%v rest=%v", frames, rest)
	}
}

func TestSplitSysExDanglingEOX(t *testing.T) {
	frames, rest := SplitSysEx([]byte{0xF7, 0xF0, 0x01, 0xF7})
	if len(frames) != 1 || rest != nil {
		t.Fatalf("frames=%v rest=%v", frames, rest)
	}
}
