package cryptoauth

import (
	"crypto/rand"
	"time"
)

// Clock is the external time source a Session asks for the current
// wall-clock time, in whole seconds, to drive inactivity timeouts. It is
// declared an external collaborator by design: production deployments
// typically already have an event loop's notion of "now".
type Clock interface {
	CurrentTimeSeconds() uint32
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// CurrentTimeSeconds returns the current Unix time truncated to uint32
// seconds, matching the wire-level time_of_last_packet field width.
func (SystemClock) CurrentTimeSeconds() uint32 {
	return uint32(time.Now().Unix())
}

// RandomSource is the external CSPRNG collaborator used to generate
// ephemeral keypairs and handshake nonces.
type RandomSource interface {
	RandomBytes(dst []byte)
}

// SystemRandom is the default RandomSource, backed by crypto/rand.
type SystemRandom struct{}

// RandomBytes fills dst with cryptographically secure random bytes. It
// panics if the system entropy source is unavailable, matching the
// teacher/original assumption that CSPRNG failure is unrecoverable.
func (SystemRandom) RandomBytes(dst []byte) {
	if _, err := rand.Read(dst); err != nil {
		panic("cryptoauth: system entropy source failed: " + err.Error())
	}
}
