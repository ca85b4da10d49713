package ump

// channelCount is the number of MIDI channels a translator tracks
// per-channel (N)RPN state for.
const channelCount = 16

// runtimeFlags are OR'ed bits of channelState.flags.
type runtimeFlag uint32

const (
	flagReceivedRPN          runtimeFlag = 1 << 0
	flagReceivedNRPN         runtimeFlag = 1 << 1
	flagReceivedNRPNValueMSB runtimeFlag = 1 << 2
	flagReceivedNRPNParamMSB runtimeFlag = 1 << 3
	flagReceivedNRPNParamLSB runtimeFlag = 1 << 4
)

// channelState is the per-channel (N)RPN assembly state. Bank-Select
// state is not here: it is tracked once per translator by bankState
// below, not per channel.
type channelState struct {
	flags    runtimeFlag
	paramMSB uint8
	paramLSB uint8
	valueMSB uint8
}

// bankState is the process-wide last-seen Bank-Select state consumed by
// Program Change translation.
type bankState struct {
	lsb, msb         uint8
	lsbTime, msbTime uint64
	lsbSet, msbSet   bool
}
