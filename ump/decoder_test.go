package ump

import (
	"bytes"
	"testing"
)

func collectDecoded() (*Decoder, *[][]byte) {
	var msgs [][]byte
	d := NewDecoder(func(msg []byte) {
		msgs = append(msgs, append([]byte(nil), msg...))
	})
	return d, &msgs
}

func TestDecoderRunningStatus(t *testing.T) {
	d, msgs := collectDecoded()
	// Note on, then two more notes with the status byte omitted.
	d.Feed([]byte{0x90, 60, 100, 64, 100, 67, 0})

	want := [][]byte{
		{0x90, 60, 100},
		{0x90, 64, 100},
		{0x90, 67, 0},
	}
	if len(*msgs) != len(want) {
		t.Fatalf("decoded %d messages, want %d", len(*msgs), len(want))
	}
	for i, m := range want {
		if !bytes.Equal((*msgs)[i], m) {
			t.Fatalf("message %d = % X, want % X", i, (*msgs)[i], m)
		}
	}
}

func TestDecoderMessageSpansChunks(t *testing.T) {
	d, msgs := collectDecoded()
	d.Feed([]byte{0xB3, 7})
	if len(*msgs) != 0 {
		t.Fatal("incomplete message must not be emitted")
	}
	d.Feed([]byte{0x44})
	if len(*msgs) != 1 || !bytes.Equal((*msgs)[0], []byte{0xB3, 7, 0x44}) {
		t.Fatalf("messages = %v", *msgs)
	}
}

func TestDecoderRealTimeInterleaved(t *testing.T) {
	d, msgs := collectDecoded()
	// Timing clock in the middle of a note-on must not break it.
	d.Feed([]byte{0x90, 60, 0xF8, 100})

	if len(*msgs) != 2 {
		t.Fatalf("decoded %d messages", len(*msgs))
	}
	if !bytes.Equal((*msgs)[0], []byte{0xF8}) {
		t.Fatalf("first = % X", (*msgs)[0])
	}
	if !bytes.Equal((*msgs)[1], []byte{0x90, 60, 100}) {
		t.Fatalf("second = % X", (*msgs)[1])
	}
}

func TestDecoderSysExAccumulation(t *testing.T) {
	d, msgs := collectDecoded()
	d.Feed([]byte{0xF0, 0x7E, 0x7F})
	d.Feed([]byte{0x0D, 0x70, 0xF7})

	if len(*msgs) != 1 {
		t.Fatalf("decoded %d messages", len(*msgs))
	}
	if !bytes.Equal((*msgs)[0], []byte{0xF0, 0x7E, 0x7F, 0x0D, 0x70, 0xF7}) {
		t.Fatalf("sysex = % X", (*msgs)[0])
	}
}

func TestDecoderSystemCommonCancelsRunningStatus(t *testing.T) {
	d, msgs := collectDecoded()
	d.Feed([]byte{0x90, 60, 100}) // establishes running status
	d.Feed([]byte{0xF6})          // tune request, no data
	d.Feed([]byte{61, 100})       // stray data without running status

	if len(*msgs) != 2 {
		t.Fatalf("decoded %d messages, want note-on and tune request only", len(*msgs))
	}
	if !bytes.Equal((*msgs)[1], []byte{0xF6}) {
		t.Fatalf("second = % X", (*msgs)[1])
	}
}

func TestDecoderSingleDataByteStatuses(t *testing.T) {
	d, msgs := collectDecoded()
	d.Feed([]byte{0xC2, 0x10, 0xD5, 0x33})

	want := [][]byte{{0xC2, 0x10}, {0xD5, 0x33}}
	if len(*msgs) != 2 || !bytes.Equal((*msgs)[0], want[0]) || !bytes.Equal((*msgs)[1], want[1]) {
		t.Fatalf("messages = %v", *msgs)
	}
}
