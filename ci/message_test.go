package ci

import "testing"

func TestIsMIDICIMessage(t *testing.T) {
	valid := newHeader(sizeNAK, 0x05, msgNAK, 0x1234, 0x4321)

	tests := []struct {
		name   string
		mutate func(frame []byte)
		want   bool
	}{
		{"valid", func(frame []byte) {}, true},
		{"wrong start", func(frame []byte) { frame[0] = 0x90 }, false},
		{"wrong universal id", func(frame []byte) { frame[1] = 0x7D }, false},
		{"wrong sub-id-1", func(frame []byte) { frame[3] = 0x0E }, false},
		{"channel out of range", func(frame []byte) { frame[2] = 0x10 }, false},
		{"port channel", func(frame []byte) { frame[2] = ChannelPort }, true},
		{"version zero", func(frame []byte) { frame[5] = 0x00 }, false},
		{"future version accepted", func(frame []byte) { frame[5] = 0x05 }, true},
		{"missing EOX", func(frame []byte) { frame[len(frame)-1] = 0x00 }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			frame := append([]byte(nil), valid...)
			tc.mutate(frame)
			if got := IsMIDICIMessage(frame); got != tc.want {
				t.Fatalf("IsMIDICIMessage() = %v, want %v", got, tc.want)
			}
		})
	}

	if IsMIDICIMessage(valid[:headerLength]) {
		t.Fatal("header-only frame must be rejected")
	}
	if IsMIDICIMessage(nil) {
		t.Fatal("empty frame must be rejected")
	}
}

func TestHeaderMUIDRoundTrip(t *testing.T) {
	src, dst := MUID(0x0ABCDEF), MUID(0x0123456)
	frame := newHeader(sizeNAK, ChannelPort, msgNAK, src, dst)

	if !IsMIDICIMessage(frame) {
		t.Fatal("built frame must validate")
	}
	if SourceMUID(frame) != src || DestinationMUID(frame) != dst {
		t.Fatalf("MUIDs = %s -> %s", SourceMUID(frame), DestinationMUID(frame))
	}
	for i, b := range frame[:len(frame)-1] {
		if i == 0 {
			continue // SysEx start has the top bit set
		}
		if b&0x80 != 0 {
			t.Fatalf("byte %d = %#02x has top bit set", i, b)
		}
	}
}

func TestIsAddressedToUs(t *testing.T) {
	ours := MUID(0x42)
	if !IsAddressedToUs(ours, ours) || !IsAddressedToUs(MUIDBroadcast, ours) {
		t.Fatal("own MUID and broadcast must match")
	}
	if IsAddressedToUs(MUID(0x43), ours) {
		t.Fatal("foreign MUID must not match")
	}
}

func TestMessageRanges(t *testing.T) {
	if !IsManagementMessage(msgDiscovery) || !IsManagementMessage(msgNAK) {
		t.Fatal("management range wrong")
	}
	if IsManagementMessage(msgProfileInquiry) {
		t.Fatal("profile message classified as management")
	}
	if !IsProfileMessage(msgProfileInquiry) || !IsProfileMessage(msgProfileSpecificData) {
		t.Fatal("profile range wrong")
	}
	if IsProfileMessage(msgDiscovery) {
		t.Fatal("management message classified as profile")
	}
}
