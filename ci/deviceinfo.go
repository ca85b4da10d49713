package ci

// Category bits of DeviceInfo.CategoriesSupported.
const (
	CategoryReserved             = uint8(1 << 0)
	CategoryProtocolNegotiation  = uint8(1 << 1)
	CategoryProfileConfiguration = uint8(1 << 2)
	CategoryPropertyExchange     = uint8(1 << 3)
)

// minSysExSize is the floor max_sysex_size is clamped to on receive.
const minSysExSize = 128

// DeviceInfo describes one MIDI-CI endpoint, local or remote.
type DeviceInfo struct {
	MUID MUID

	ManufacturerID      uint32 // 21-bit, MSB-first on the wire
	FamilyID            uint16 // 14-bit
	ModelID             uint16 // 14-bit
	VersionID           uint32 // 28-bit
	MaxSysExSize        int    // clamped to >= 128 on receive
	CategoriesSupported uint8

	Profiles *ProfileRegistry

	// LastReceiveTime is updated (in milliseconds) whenever a message
	// from this device is processed.
	LastReceiveTime uint64
}

// NewDeviceInfo builds an empty, invalid DeviceInfo with muid set and
// an empty embedded ProfileRegistry owned by muid.
func NewDeviceInfo(muid MUID) *DeviceInfo {
	return &DeviceInfo{MUID: muid, Profiles: NewProfileRegistry(muid)}
}

// IsValid reports whether the device record is populated enough to
// participate in discovery: a non-zero manufacturer ID.
func (d *DeviceInfo) IsValid() bool { return d.ManufacturerID != 0 }

// ClampMaxSysExSize enforces the 128-byte floor on a value read from
// the wire.
func ClampMaxSysExSize(v int) int {
	if v < minSysExSize {
		return minSysExSize
	}
	return v
}

// SetMUID updates the identity and re-homes the embedded profile
// registry's Owner to match.
func (d *DeviceInfo) SetMUID(muid MUID) {
	d.MUID = muid
	d.Profiles.Owner = muid
}
