package ci

import "math/bits"

// ProfileState holds one profile's per-channel availability and
// enablement for one device (local or remote), plus its
// manufacturer-specific data blob. The zero value is not usable;
// construct with newProfileState.
type ProfileState struct {
	id           ProfileId
	available    uint32 // bit i = channel i available, bit 31 = port
	enabled      uint32 // bit i = channel i enabled, bit 31 = port
	specificData []byte

	alloc handleAllocator
	subs  []stateSub
}

// stateSub pairs a listener with its handle; the slice keeps listeners
// in subscription order, which is the order callbacks fire in.
type stateSub struct {
	h Handle
	l ProfileStateListener
}

func newProfileState(id ProfileId) *ProfileState {
	return &ProfileState{id: id}
}

// Id returns the profile identifier this state describes.
func (s *ProfileState) Id() ProfileId { return s.id }

// Subscribe registers l and returns a Handle for later Unsubscribe.
func (s *ProfileState) Subscribe(l ProfileStateListener) Handle {
	h := s.alloc.alloc()
	s.subs = append(s.subs, stateSub{h, l})
	return h
}

// Unsubscribe removes a previously registered listener. Unsubscribing
// an unknown or already-removed handle is a no-op.
func (s *ProfileState) Unsubscribe(h Handle) {
	for i, sub := range s.subs {
		if sub.h == h {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// snapshotSubs returns a copy of the current listener list; callbacks
// iterate the snapshot so a listener may subscribe or unsubscribe
// during its own callback.
func (s *ProfileState) snapshotSubs() []stateSub {
	return append([]stateSub(nil), s.subs...)
}

// IsChannelAvailable reports whether channel is marked available.
func (s *ProfileState) IsChannelAvailable(channel uint8) bool {
	return s.available&(1<<channelBit(channel)) != 0
}

// IsChannelEnabled reports whether channel is marked enabled.
func (s *ProfileState) IsChannelEnabled(channel uint8) bool {
	return s.enabled&(1<<channelBit(channel)) != 0
}

// SetChannelAvailable sets or clears the available bit for channel and
// fires OnAvailableChange on every subscriber if the bit actually
// changed.
func (s *ProfileState) SetChannelAvailable(channel uint8, available bool) {
	bit := uint32(1) << channelBit(channel)
	before := s.available & bit
	if available {
		s.available |= bit
	} else {
		s.available &^= bit
	}
	if (s.available & bit) == before {
		return
	}
	for _, sub := range s.snapshotSubs() {
		if sub.l.OnAvailableChange != nil {
			sub.l.OnAvailableChange(channel)
		}
	}
}

// SetChannelEnabled requests that channel's enabled bit become enabled.
// Any channel that gets enabled or disabled is marked available first.
// When the request would change the current state, every subscribed
// OnCanEnable callback is consulted in subscription order, each
// receiving the value the previous one returned; the last returned
// value is what gets committed, so any subscriber can veto the change
// by returning the previous state. The committed value is returned so
// callers can detect a veto by comparing it against the request.
func (s *ProfileState) SetChannelEnabled(channel uint8, enabled bool) bool {
	s.SetChannelAvailable(channel, true)

	bit := uint32(1) << channelBit(channel)
	previously := s.enabled&bit != 0

	committed := enabled
	if previously != enabled {
		for _, sub := range s.snapshotSubs() {
			if sub.l.OnCanEnable != nil {
				committed = sub.l.OnCanEnable(channel, committed)
			}
		}
	}
	if previously == committed {
		return committed
	}

	if committed {
		s.enabled |= bit
	} else {
		s.enabled &^= bit
	}
	for _, sub := range s.snapshotSubs() {
		if sub.l.OnEnabledChange != nil {
			sub.l.OnEnabledChange(channel)
		}
	}
	return committed
}

// SetSpecificData replaces the profile's manufacturer-specific data and
// fires OnSpecificDataChange.
func (s *ProfileState) SetSpecificData(data []byte) {
	s.specificData = append([]byte(nil), data...)
	for _, sub := range s.snapshotSubs() {
		if sub.l.OnSpecificDataChange != nil {
			sub.l.OnSpecificDataChange()
		}
	}
}

// SpecificData returns the profile's manufacturer-specific data.
func (s *ProfileState) SpecificData() []byte { return s.specificData }

// FirstAvailableChannel returns the lowest channel 0-15 marked
// available, and whether one exists. The port-wide slot is not
// considered a "channel" for this query.
func (s *ProfileState) FirstAvailableChannel() (uint8, bool) {
	return firstSetChannel(s.available)
}

// FirstEnabledChannel returns the lowest channel 0-15 marked enabled,
// and whether one exists.
func (s *ProfileState) FirstEnabledChannel() (uint8, bool) {
	return firstSetChannel(s.enabled)
}

func firstSetChannel(bitset uint32) (uint8, bool) {
	low16 := bitset & 0xFFFF
	if low16 == 0 {
		return 0, false
	}
	return uint8(bits.TrailingZeros16(uint16(low16))), true
}

// AvailableChannelCount counts channels 0-15 marked available (the
// port-wide slot is not counted).
func (s *ProfileState) AvailableChannelCount() int {
	return bits.OnesCount16(uint16(s.available & 0xFFFF))
}

// EnabledChannelCount counts channels 0-15 marked enabled.
func (s *ProfileState) EnabledChannelCount() int {
	return bits.OnesCount16(uint16(s.enabled & 0xFFFF))
}
