package ci

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	mrand "math/rand"
	"strings"
	"time"
)

// Transport is the consumer-supplied MIDI byte-stream sink. SendMIDI
// transmits data verbatim and reports whether the transport accepted
// it; false is reported upward but never changes protocol state.
type Transport interface {
	SendMIDI(data []byte) bool
}

// Clock is the monotonic millisecond time source; only deltas between
// calls are meaningful. Do not implement this with wall-clock time.
type Clock interface {
	NowMillis() uint64
}

// Logger is a best-effort log sink; failures here must never propagate.
type Logger interface {
	Log(line string)
}

// StdClock is Clock backed by time.Now()/time.Since against a fixed
// start, giving a monotonic millisecond counter without depending on
// wall-clock adjustments.
type StdClock struct {
	start time.Time
}

// NewStdClock returns a StdClock anchored at the current instant.
func NewStdClock() StdClock { return StdClock{start: time.Now()} }

// NowMillis implements Clock.
func (c StdClock) NowMillis() uint64 { return uint64(time.Since(c.start).Milliseconds()) }

// StdLogger adapts the standard library's log package for hosts that
// do not bring their own sink.
type StdLogger struct {
	*log.Logger
}

// NewStdLogger wraps a *log.Logger (or log.Default() if nil).
func NewStdLogger(l *log.Logger) StdLogger {
	if l == nil {
		l = log.Default()
	}
	return StdLogger{l}
}

// Log implements Logger.
func (l StdLogger) Log(line string) { l.Logger.Print(line) }

// FormatFrame renders a logged CI frame as a direction tag, a short
// message name, and a space-separated uppercase hex dump, all on one
// line.
func FormatFrame(direction, name string, data []byte) string {
	var hex strings.Builder
	for i, b := range data {
		if i > 0 {
			hex.WriteByte(' ')
		}
		fmt.Fprintf(&hex, "%02X", b)
	}
	return fmt.Sprintf("%s %s %s", direction, name, hex.String())
}

// MathRNG is RNG backed by math/rand, seeded once from crypto/rand at
// construction so MUIDs are not predictable across process restarts.
type MathRNG struct {
	r *mrand.Rand
}

// NewMathRNG builds a MathRNG seeded from a non-deterministic source.
func NewMathRNG() MathRNG {
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand failure on a sane platform is not expected; fall
		// back to a time-based seed rather than panic.
		binary.LittleEndian.PutUint64(seed[:], uint64(time.Now().UnixNano()))
	}
	return MathRNG{r: mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))}
}

// NextUint32 implements RNG.
func (m MathRNG) NextUint32() uint32 { return m.r.Uint32() }

// CryptoRNG is RNG backed directly by crypto/rand, for hosts that would
// rather not carry math/rand's non-cryptographic PRNG state at all.
type CryptoRNG struct{}

// NextUint32 implements RNG.
func (CryptoRNG) NextUint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint32(b[:])
}
