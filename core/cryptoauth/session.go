package cryptoauth

import (
	"bytes"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sage-x-project/sage/internal/logger"
	"github.com/sage-x-project/sage/internal/metrics"
)

// State is the coarse handshake/traffic phase of a Session, derived from
// its internal nonce counter.
type State int

const (
	StateInit State = iota
	StateSentHello
	StateReceivedHello
	StateSentKey
	StateReceivedKey
	StateEstablished
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSentHello:
		return "sent_hello"
	case StateReceivedHello:
		return "received_hello"
	case StateSentKey:
		return "sent_key"
	case StateReceivedKey:
		return "received_key"
	case StateEstablished:
		return "established"
	default:
		return "unknown"
	}
}

// The handshake nonce progression and the State enum share a single
// number space by design (0..4), exactly as the original implementation's
// Nonce and State enums do: "next_nonce" doubles as both "which handshake
// message are we about to send/expect" and "how far has this session's
// setup progressed".
const (
	nonceHello        uint32 = 0
	nonceRepeatHello   uint32 = 1
	nonceKey           uint32 = 2
	nonceRepeatKey     uint32 = 3
	nonceFirstTraffic  uint32 = 4
)

// maxNonce is the point at which a session's nonce counter is considered
// close enough to wrapping that it should be reset rather than risk nonce
// reuse.
const maxNonce = ^uint32(0) - 0xF

// DefaultResetAfterInactivitySeconds is the inactivity window after which
// an established session is torn down and re-handshaken.
const DefaultResetAfterInactivitySeconds = 60

// DefaultSetupResetAfterInactivitySeconds is the inactivity window after
// which a session still mid-handshake is torn down.
const DefaultSetupResetAfterInactivitySeconds = 10

// sessionState is the mutable, lock-guarded data of a Session. It mirrors
// the original implementation's SessionMut.
type sessionState struct {
	herPublicKey PublicKey
	herIP6       [16]byte
	displayName  string

	resetAfterInactivitySeconds      uint32
	setupResetAfterInactivitySeconds uint32

	sharedSecret   [32]byte
	herTempPubKey  [32]byte
	ourTempPrivKey [32]byte
	ourTempPubKey  [32]byte

	password []byte
	login    *string

	nextNonce        uint32
	timeOfLastPacket uint32

	authType    AuthType
	isInitiator bool
	requireAuth bool
	established bool
}

// Session is the per-peer CryptoAuth state: the handshake/traffic machine
// plus a decoupled replay protector. A single sync.RWMutex guards
// sessionState; Go has no upgradable-read-lock primitive, so Encrypt and
// Decrypt take the full write lock for their entire critical section
// rather than modeling the original's read-then-upgrade dance (see
// DESIGN.md). The ReplayProtector keeps its own mutex so the hot
// traffic-decrypt path never waits on it.
type Session struct {
	id string

	mu    sync.RWMutex
	state sessionState

	replay *ReplayProtector
	auth   *Authenticator
	clock  Clock
	rnd    RandomSource
	log    logger.Logger
}

// NewSession constructs a Session for a handshake with herPubKey. requireAuth
// rejects inbound handshakes that present no recognized credentials.
// useNoise is accepted for interface parity but is not implemented; passing
// true always fails.
func NewSession(auth *Authenticator, herPubKey PublicKey, requireAuth bool, displayName string, useNoise bool, clock Clock) (*Session, error) {
	if useNoise {
		return nil, encryptErrorf("noise protocol handshake is not implemented")
	}
	if herPubKey.IsZero() {
		return nil, ErrZeroPublicKey
	}
	ip6, err := IPv6ForPublicKey(herPubKey)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}

	s := &Session{
		id:     uuid.NewString(),
		replay: NewReplayProtector(),
		auth:   auth,
		clock:  clock,
		rnd:    auth.rnd,
		log:    auth.log,
	}
	s.state = sessionState{
		herPublicKey:                      herPubKey,
		herIP6:                            ip6,
		displayName:                       displayName,
		resetAfterInactivitySeconds:       DefaultResetAfterInactivitySeconds,
		setupResetAfterInactivitySeconds:  DefaultSetupResetAfterInactivitySeconds,
		timeOfLastPacket:                  clock.CurrentTimeSeconds(),
		requireAuth:                       requireAuth,
	}
	return s, nil
}

// ID returns the session's log-correlation identifier.
func (s *Session) ID() string { return s.id }

// HerPublicKey returns the peer's permanent public key.
func (s *Session) HerPublicKey() PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.herPublicKey
}

// HerIP6 returns the peer's derived IPv6 identity address.
func (s *Session) HerIP6() [16]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.herIP6
}

// DisplayName returns the session's log-correlation display name, if any.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.displayName
}

// GetState reports the session's current handshake/traffic phase.
func (s *Session) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getStateLocked()
}

func (s *Session) getStateLocked() State {
	if s.state.nextNonce <= nonceFirstTraffic {
		return State(s.state.nextNonce)
	}
	if s.state.established {
		return StateEstablished
	}
	return StateReceivedKey
}

// Stats returns a snapshot of the session's replay-protection counters.
func (s *Session) Stats() CryptoStats {
	return s.replay.Stats()
}

// HerKeyKnown reports whether the peer's permanent public key is set.
func (s *Session) HerKeyKnown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.state.herPublicKey.IsZero()
}

// SetAuth sets (or clears, with a nil password) the credentials this
// session will present to the peer, resetting the handshake if the
// password actually changed. A call that repeats the current password is a
// no-op even when login differs.
func (s *Session) SetAuth(password []byte, login *string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	noCreds := password == nil
	hadCreds := s.state.password != nil || s.state.authType != AuthTypeZero
	if noCreds && hadCreds {
		s.state.password = nil
		s.state.authType = AuthTypeZero
	} else if noCreds {
		return
	} else if s.state.password == nil || !bytes.Equal(s.state.password, password) {
		s.state.password = password
		s.state.authType = AuthTypeOne
		if login != nil {
			s.state.authType = AuthTypeTwo
			s.state.login = login
		}
	} else {
		return
	}
	s.resetLocked()
}

// ResetIfTimeout tears the session down to Init if too much time has
// passed since the last packet, per the configured inactivity windows. It
// never resets a session that is waiting on a response to its first Hello
// (a late reply after reset would otherwise land on a session nobody
// recognizes).
func (s *Session) ResetIfTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetIfTimeoutLocked()
}

func (s *Session) resetIfTimeoutLocked() {
	if s.state.nextNonce == uint32(StateSentHello) {
		return
	}

	now := int64(s.clock.CurrentTimeSeconds())
	delta := now - int64(s.state.timeOfLastPacket)
	if delta < int64(s.state.setupResetAfterInactivitySeconds) {
		return
	}
	if delta < int64(s.state.resetAfterInactivitySeconds) && s.state.established {
		return
	}

	s.sessionLogger().Debug("no traffic in configured window, resetting connection",
		logger.Int("delta_seconds", int(delta)))
	s.state.timeOfLastPacket = uint32(now)
	s.resetLocked()
}

// Reset tears the session down to Init and clears the replay window. Does
// not forget the peer's permanent public key.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay.Reset()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.state.nextNonce = uint32(StateInit)
	s.state.isInitiator = false
	s.state.ourTempPrivKey = [32]byte{}
	s.state.ourTempPubKey = [32]byte{}
	s.state.herTempPubKey = [32]byte{}
	s.state.sharedSecret = [32]byte{}
	s.state.established = false
}

func (s *Session) herKeyKnownLocked() bool {
	return !s.state.herPublicKey.IsZero()
}

// sessionLogger returns a logger tagged with this session's correlation
// fields: its id, the peer's derived IPv6, and the current handshake/
// traffic state. Call sites append any event-specific fields on top.
func (s *Session) sessionLogger() logger.Logger {
	return s.log.WithFields(
		logger.String("session_id", s.id),
		logger.String("ip6", net.IP(s.state.herIP6[:]).String()),
		logger.Int("state", int(s.getStateLocked())),
	)
}

// Encrypt seals plaintext for transmission to the peer. Depending on the
// session's current phase, the result is either a handshake packet
// (Hello/RepeatHello/Key/RepeatKey) or an encrypted traffic packet; the
// wire format already carries the framing the peer's Decrypt needs, so
// callers never branch on phase themselves.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.CryptoAuthPacketDuration.WithLabelValues("encrypt").Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetIfTimeoutLocked()
	if s.state.nextNonce >= maxNonce {
		s.resetLocked()
	}

	if s.state.nextNonce <= nonceFirstTraffic {
		if s.state.nextNonce < nonceFirstTraffic {
			return s.encryptHandshakeLocked(plaintext)
		}
		s.sessionLogger().Debug("sending final handshake step as data")
		s.state.sharedSecret = getSharedSecret(PrivateKey(s.state.ourTempPrivKey), PublicKey(s.state.herTempPubKey), nil)
	}

	if len(plaintext) == 0 {
		return nil, encryptErrorf("cannot encrypt an empty packet")
	}

	ciphertext := encryptPacket(s.state.nextNonce, plaintext, s.state.sharedSecret, s.state.isInitiator)
	buf := NewBuffer(ciphertext, 4)
	var nonceBytes [4]byte
	binary.BigEndian.PutUint32(nonceBytes[:], s.state.nextNonce)
	if err := buf.PushFront(nonceBytes[:]); err != nil {
		return nil, err
	}
	s.state.nextNonce++
	return buf.Bytes(), nil
}

// Decrypt authenticates and opens an inbound packet, routing it to the
// handshake or traffic path depending on its leading nonce and the
// session's current phase. The returned DecryptErr values are stable and
// safe to expose across an FFI boundary.
func (s *Session) Decrypt(wire []byte) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.CryptoAuthPacketDuration.WithLabelValues("decrypt").Observe(time.Since(start).Seconds())
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(wire) < 20 {
		metrics.CryptoAuthDecryptErrors.WithLabelValues(DecryptErrRunt.Error()).Inc()
		return nil, DecryptErrRunt
	}
	buf := NewBuffer(wire, 0)
	nonceBytes, err := buf.PopFront(4)
	if err != nil {
		return nil, DecryptErrRunt
	}
	nonce := binary.BigEndian.Uint32(nonceBytes)
	body := buf.Bytes()

	if !s.state.established {
		if nonce >= nonceFirstTraffic {
			if s.state.nextNonce < uint32(StateSentKey) {
				s.sessionLogger().Debug("dropping run message to un-setup session")
				return nil, DecryptErrNoSession
			}

			secret := getSharedSecret(PrivateKey(s.state.ourTempPrivKey), PublicKey(s.state.herTempPubKey), nil)
			plaintext, err := s.decryptMessageLocked(nonce, body, secret)
			// Initialize the replay window to discard a handful of ghost
			// packets that may have arrived mid-setup, regardless of outcome.
			s.replay.Init(nonce + 1)
			if err != nil {
				s.sessionLogger().Debug("final handshake step failed")
				return nil, err
			}
			s.state.sharedSecret = secret
			s.state.established = true
			s.state.nextNonce += 3
			s.state.timeOfLastPacket = s.clock.CurrentTimeSeconds()
			metrics.CryptoAuthSessionsEstablished.Inc()
			return plaintext, nil
		}
		return s.decryptHandshakeLocked(nonce, wire)
	}

	if nonce >= nonceFirstTraffic {
		plaintext, err := s.decryptMessageLocked(nonce, body, s.state.sharedSecret)
		if err != nil {
			return nil, err
		}
		s.state.timeOfLastPacket = s.clock.CurrentTimeSeconds()
		return plaintext, nil
	}
	if nonce <= nonceRepeatHello {
		return s.decryptHandshakeLocked(nonce, wire)
	}
	return nil, DecryptErrKeyPktEstablishedSession
}
