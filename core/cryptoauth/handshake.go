package cryptoauth

import (
	"bytes"

	"github.com/sage-x-project/sage/internal/logger"
	"github.com/sage-x-project/sage/internal/metrics"
)

// handshakeStepName names a handshake nonce for metrics label purposes.
func handshakeStepName(nonce uint32) string {
	switch nonce {
	case nonceHello:
		return "hello"
	case nonceRepeatHello:
		return "repeat_hello"
	case nonceKey:
		return "key"
	case nonceRepeatKey:
		return "repeat_key"
	default:
		return "unknown"
	}
}

// encryptHandshakeLocked builds a Hello/RepeatHello/Key/RepeatKey packet.
// Rather than replicating the original implementation's pop/push dance
// over a fixed-headroom buffer (popping the header down to the tag field,
// sealing, then pushing the prefix back), this computes the Poly1305 tag
// placement directly and serializes the header in one pass; the resulting
// byte layout is identical. Any plaintext piggybacked on a handshake
// packet travels unencrypted after the header, exactly as the original
// "blind handshake" framing describes (in a blind handshake every such
// payload is empty).
func (s *Session) encryptHandshakeLocked(payload []byte) ([]byte, error) {
	if !s.herKeyKnownLocked() {
		return nil, encryptErrorf("peer permanent public key is not known")
	}

	var header CryptoHeader
	header.PublicKey = s.auth.PublicKey

	var passwordHash *[32]byte
	if s.state.login != nil && s.state.password != nil {
		secret, challenge := hashPassword([]byte(*s.state.login), s.state.password, s.state.authType)
		header.Auth = challenge
		passwordHash = &secret
	} else {
		header.Auth = Challenge{AuthType: s.state.authType}
		// Garbage the lookup bytes so a passive observer cannot distinguish
		// an unauthenticated hello from one carrying a real challenge.
		s.rnd.RandomBytes(header.Auth.Lookup[:])
	}

	s.rnd.RandomBytes(header.HandshakeNonce[:])
	header.Nonce = s.state.nextNonce

	if s.state.nextNonce == uint32(StateInit) || s.state.nextNonce == uint32(StateReceivedHello) {
		s.rnd.RandomBytes(s.state.ourTempPrivKey[:])
		s.state.ourTempPubKey = DerivePublicKey(PrivateKey(s.state.ourTempPrivKey))
	}
	header.EncryptedTempKey = s.state.ourTempPubKey

	var sharedSecret [32]byte
	if s.state.nextNonce < uint32(StateReceivedHello) {
		sharedSecret = getSharedSecret(s.auth.privateKey, s.state.herPublicKey, passwordHash)
		s.state.isInitiator = true
		s.state.nextNonce = uint32(StateSentHello)
	} else {
		sharedSecret = getSharedSecret(s.auth.privateKey, PublicKey(s.state.herTempPubKey), passwordHash)
		s.state.nextNonce = uint32(StateSentKey)
	}

	s.sessionLogger().Debug("sending handshake packet",
		logger.Int("nonce", int(header.Nonce)),
		logger.Bool("authenticated", passwordHash != nil))
	metrics.CryptoAuthHandshakeSteps.WithLabelValues("send", handshakeStepName(header.Nonce)).Inc()

	sealed := encryptRndNonce(header.HandshakeNonce, header.EncryptedTempKey[:], sharedSecret)
	copy(header.Tag[:], sealed[0:16])
	copy(header.EncryptedTempKey[:], sealed[16:48])

	wire := header.Encode()
	if len(payload) > 0 {
		wire = append(wire, payload...)
	}
	return wire, nil
}

// decryptHandshakeLocked validates and applies a Hello/RepeatHello/Key/
// RepeatKey packet, including the crossed-hello tie-break and the
// duplicate/replay rejection rules.
func (s *Session) decryptHandshakeLocked(nonce uint32, wire []byte) ([]byte, error) {
	if len(wire) < CryptoHeaderSize {
		metrics.CryptoAuthDecryptErrors.WithLabelValues(DecryptErrRunt.Error()).Inc()
		return nil, DecryptErrRunt
	}
	header := decodeCryptoHeader(wire[:CryptoHeaderSize])
	metrics.CryptoAuthHandshakeSteps.WithLabelValues("recv", handshakeStepName(nonce)).Inc()

	if !s.herKeyKnownLocked() {
		return nil, decryptErrorf("session has no peer public key")
	}
	if header.PublicKey != [32]byte(s.state.herPublicKey) {
		s.sessionLogger().Debug("dropping packet with mismatched permanent public key")
		return nil, DecryptErrWrongPermPubkey
	}

	user := s.auth.getAuth(header.Auth)
	hasUser := user != nil

	var passwordHash *[32]byte
	if user != nil {
		passwordHash = &user.secret
		if user.restrictedToIP6 != nil && *user.restrictedToIP6 != s.state.herIP6 {
			s.sessionLogger().Debug("dropping packet outside restricted ipv6")
			return nil, DecryptErrIpRestricted
		}
	}

	if s.state.requireAuth && !hasUser {
		return nil, DecryptErrAuthRequired
	}
	if !hasUser && header.Auth.AuthType != AuthTypeZero {
		return nil, DecryptErrUnrecognizedAuth
	}

	var nextNonceCandidate uint32
	var sharedSecret [32]byte

	switch {
	case nonce < nonceKey:
		sharedSecret = getSharedSecret(s.auth.privateKey, s.state.herPublicKey, passwordHash)
		nextNonceCandidate = uint32(StateReceivedHello)
	case nonce == nonceKey || nonce == nonceRepeatKey:
		if !s.state.isInitiator {
			s.sessionLogger().Debug("dropping stray key packet")
			return nil, DecryptErrStrayKey
		}
		sharedSecret = getSharedSecret(PrivateKey(s.state.ourTempPrivKey), s.state.herPublicKey, passwordHash)
		nextNonceCandidate = uint32(StateReceivedKey)
	default:
		return nil, decryptErrorf("unexpected handshake nonce %d", nonce)
	}

	opened, ok := decryptRndNonce(header.HandshakeNonce, wire[72:120], sharedSecret)
	if !ok {
		return nil, DecryptErrHandshakeDecryptFailed
	}
	var herNewTempPub [32]byte
	copy(herNewTempPub[:], opened)
	if (herNewTempPub == [32]byte{}) {
		return nil, DecryptErrWiseguy
	}

	switch nonce {
	case nonceHello:
		if s.state.herTempPubKey == herNewTempPub {
			return nil, DecryptErrInvalidPacket
		}
	case nonceKey:
		if s.state.nextNonce >= uint32(StateReceivedKey) && s.state.herTempPubKey == herNewTempPub {
			return nil, DecryptErrInvalidPacket
		}
	case nonceRepeatKey:
		if s.state.nextNonce >= uint32(StateReceivedKey) && s.state.herTempPubKey != herNewTempPub {
			return nil, DecryptErrInvalidPacket
		}
	}

	switch nextNonceCandidate {
	case uint32(StateReceivedKey):
		switch s.state.nextNonce {
		case uint32(StateInit), uint32(StateReceivedHello), uint32(StateSentKey):
			s.sessionLogger().Debug("dropping stray key packet")
			return nil, DecryptErrStrayKey
		case uint32(StateSentHello):
			s.state.herTempPubKey = herNewTempPub
		case uint32(StateReceivedKey):
			if nonce == nonceKey {
				s.state.herTempPubKey = herNewTempPub
			} else if s.state.herTempPubKey != herNewTempPub {
				return nil, DecryptErrInvalidPacket
			}
		default:
			if s.state.established {
				return nil, DecryptErrInvalidPacket
			}
			if nonce == nonceKey {
				s.state.herTempPubKey = herNewTempPub
				s.sessionLogger().Debug("new key packet, recalculating shared secret")
				s.state.sharedSecret = getSharedSecret(PrivateKey(s.state.ourTempPrivKey), PublicKey(s.state.herTempPubKey), nil)
			} else if s.state.herTempPubKey != herNewTempPub {
				return nil, DecryptErrInvalidPacket
			}
			nextNonceCandidate = s.state.nextNonce + 1
		}

	case uint32(StateReceivedHello):
		if s.state.herTempPubKey != herNewTempPub {
			switch s.state.nextNonce {
			case uint32(StateSentHello):
				if bytes.Compare(s.state.herPublicKey[:], s.auth.PublicKey[:]) < 0 {
					s.sessionLogger().Debug("incoming hello from lower key, resetting")
					s.resetLocked()
					s.replay.Reset()
					s.state.herTempPubKey = herNewTempPub
				} else {
					s.sessionLogger().Debug("incoming hello from higher key, not resetting")
					return nil, nil
				}
			case uint32(StateInit):
				s.state.herTempPubKey = herNewTempPub
			default:
				s.sessionLogger().Debug("incoming hello packet resetting session")
				s.resetLocked()
				s.replay.Reset()
				s.state.herTempPubKey = herNewTempPub
			}
		} else {
			switch s.state.nextNonce {
			case uint32(StateReceivedHello), uint32(StateSentKey):
				nextNonceCandidate = s.state.nextNonce
			default:
				s.sessionLogger().Debug("dropping incoming repeat hello")
				return nil, DecryptErrInvalidPacket
			}
		}
	}

	if !(s.state.nextNonce < nextNonceCandidate ||
		(s.state.nextNonce <= uint32(StateReceivedKey) && nextNonceCandidate == s.state.nextNonce)) {
		return nil, decryptErrorf("nonce sequence error")
	}
	s.state.nextNonce = nextNonceCandidate
	s.replay.Reset()

	if len(wire) > CryptoHeaderSize {
		return wire[CryptoHeaderSize:], nil
	}
	return nil, nil
}

// decryptMessageLocked authenticates a traffic packet's ciphertext and
// runs it through the replay protector.
func (s *Session) decryptMessageLocked(nonce uint32, ciphertext []byte, secret [32]byte) ([]byte, error) {
	plaintext, ok := decryptPacket(nonce, ciphertext, secret, s.state.isInitiator)
	if !ok {
		metrics.CryptoAuthDecryptErrors.WithLabelValues(DecryptErrDecrypt.Error()).Inc()
		return nil, DecryptErrDecrypt
	}
	if !s.replay.CheckNonce(nonce) {
		metrics.CryptoAuthReplayRejections.WithLabelValues("window").Inc()
		return nil, DecryptErrReplay
	}
	return plaintext, nil
}
