package cryptoauth

import "sync"

// replayWindow is the width, in packets, of the sliding bitmap window.
const replayWindow = 64

// CryptoStats is a snapshot of a session's replay-protection counters,
// carried over from the original implementation's CryptoStats struct
// (spec.md's distillation omits it; it is useful operational telemetry).
type CryptoStats struct {
	ReceivedPackets     uint64
	DuplicatePackets    uint64
	ReceivedUnexpected  uint64
	LostPackets         uint64
}

// ReplayProtector rejects duplicate or too-far-out-of-order packet
// counters using a sliding 64-bit bitmap window. It holds its own mutex,
// deliberately decoupled from a Session's state lock: the replay check is
// the hottest per-packet operation, and letting it run under a short,
// private lock keeps it from contending with (or extending the hold time
// of) the session's read/write lock.
type ReplayProtector struct {
	mu sync.Mutex

	highestSeen uint32
	seenAny     bool
	bitmap      uint64

	stats CryptoStats
}

// NewReplayProtector returns a protector with an empty window.
func NewReplayProtector() *ReplayProtector {
	return &ReplayProtector{}
}

// Init positions the window's floor at nonce, without running the usual
// duplicate/gap accounting: nonce and later values stay acceptable, and
// every earlier nonce is rejected. Used once, right after a session's
// final handshake step decrypts, to discard a few "ghost" packets that may
// have arrived during setup.
func (r *ReplayProtector) Init(nonce uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if nonce == 0 {
		r.highestSeen = 0
		r.seenAny = false
		r.bitmap = 0
		return
	}
	// Mark the whole window below the floor as already seen.
	r.highestSeen = nonce - 1
	r.seenAny = true
	r.bitmap = ^uint64(0)
}

// Reset clears the window entirely, as happens whenever a session resets
// or restarts its handshake.
func (r *ReplayProtector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highestSeen = 0
	r.seenAny = false
	r.bitmap = 0
}

// CheckNonce reports whether nonce is acceptable (not previously seen, and
// within the sliding window of the highest nonce seen so far) and, if so,
// records it. Nonces below the window or already marked seen are
// rejected.
func (r *ReplayProtector) CheckNonce(nonce uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.ReceivedPackets++

	if !r.seenAny {
		r.highestSeen = nonce
		r.seenAny = true
		r.bitmap = 1
		return true
	}

	if nonce > r.highestSeen {
		shift := nonce - r.highestSeen
		if shift >= replayWindow {
			r.bitmap = 0
			if shift > replayWindow {
				r.stats.LostPackets += uint64(shift - replayWindow)
			}
		} else {
			r.bitmap <<= shift
			if shift > 1 {
				r.stats.LostPackets += uint64(shift - 1)
			}
		}
		r.bitmap |= 1
		r.highestSeen = nonce
		return true
	}

	back := r.highestSeen - nonce
	if back >= replayWindow {
		r.stats.ReceivedUnexpected++
		return false
	}

	bit := uint64(1) << back
	if r.bitmap&bit != 0 {
		r.stats.DuplicatePackets++
		return false
	}
	r.bitmap |= bit
	return true
}

// Stats returns a snapshot of the protector's counters.
func (r *ReplayProtector) Stats() CryptoStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
