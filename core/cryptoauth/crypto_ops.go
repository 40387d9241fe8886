package cryptoauth

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"
)

// PublicKey and PrivateKey are 32-byte Curve25519 scalars.
type PublicKey [32]byte
type PrivateKey [32]byte

// IsZero reports whether k is the all-zero key.
func (k PublicKey) IsZero() bool {
	var zero PublicKey
	return k == zero
}

// DerivePublicKey computes the Curve25519 base-point scalar multiplication.
func DerivePublicKey(priv PrivateKey) PublicKey {
	var pub PublicKey
	out, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		panic("cryptoauth: scalar base mult failed: " + err.Error())
	}
	copy(pub[:], out)
	return pub
}

// GenerateKeyPair creates a random Curve25519 identity keypair using rnd,
// drawing fresh private keys until the public key hashes to a valid
// (0xfc-prefixed) IPv6 address.
func GenerateKeyPair(rnd RandomSource) (PrivateKey, PublicKey) {
	for {
		var priv PrivateKey
		rnd.RandomBytes(priv[:])
		pub := DerivePublicKey(priv)
		if _, err := IPv6ForPublicKey(pub); err == nil {
			return priv, pub
		}
	}
}

// DeriveIPv6 computes a node's identity address: the first 16 bytes of
// SHA-512(SHA-512(pubkey)). The result is only a valid cjdns address if its
// first byte is 0xfc; callers that need a validated address should use
// IPv6ForPublicKey instead.
func DeriveIPv6(pub PublicKey) [16]byte {
	first := sha512.Sum512(pub[:])
	second := sha512.Sum512(first[:])
	var ip6 [16]byte
	copy(ip6[:], second[:16])
	return ip6
}

// IPv6ForPublicKey validates that pub hashes to a well-formed cjdns address
// (first byte 0xfc) and returns it, or ErrBadPublicKey / ErrZeroPublicKey.
func IPv6ForPublicKey(pub PublicKey) ([16]byte, error) {
	if pub.IsZero() {
		return [16]byte{}, ErrZeroPublicKey
	}
	ip6 := DeriveIPv6(pub)
	if ip6[0] != 0xfc {
		return [16]byte{}, ErrBadPublicKey
	}
	return ip6, nil
}

// getSharedSecret derives the 32-byte symmetric secret for a handshake or
// traffic exchange. When passwordHash is nil, this is the standard NaCl
// box precomputed key (HSalsa20 of the Curve25519 scalarmult output with a
// zero nonce). When passwordHash is present, the secret instead mixes in
// the password: SHA-256(scalarmult(myPriv, herPub) || passwordHash).
func getSharedSecret(myPriv PrivateKey, herPub PublicKey, passwordHash *[32]byte) [32]byte {
	if passwordHash != nil {
		raw, err := curve25519.X25519(myPriv[:], herPub[:])
		if err != nil {
			// A low-order/identity point; still hash it through, matching the
			// original implementation which has no rejection path here.
			raw = make([]byte, 32)
		}
		buf := make([]byte, 0, 64)
		buf = append(buf, raw...)
		buf = append(buf, passwordHash[:]...)
		return sha256.Sum256(buf)
	}

	var priv, pub [32]byte
	copy(priv[:], myPriv[:])
	copy(pub[:], herPub[:])
	var shared [32]byte
	box.Precompute(&shared, &pub, &priv)
	return shared
}

// hashPassword derives the secret (SHA-256 of the password) and the
// matching Challenge lookup value for a login/password pair. AuthTypeZero is not a valid
// input; callers select AuthTypeOne (password only) or AuthTypeTwo
// (login + password).
func hashPassword(login, password []byte, authType AuthType) ([32]byte, Challenge) {
	secret := sha256.Sum256(password)

	var tmp [32]byte
	switch authType {
	case AuthTypeOne:
		tmp = sha256.Sum256(secret[:])
	case AuthTypeTwo:
		tmp = sha256.Sum256(login)
	default:
		panic("cryptoauth: hashPassword called with AuthTypeZero")
	}

	var challenge Challenge
	challenge.AuthType = authType
	copy(challenge.Lookup[:], tmp[1:8])
	return secret, challenge
}

// encryptRndNonce seals plaintext in place (append-style), growing it by
// 16 bytes for the Poly1305 tag.
func encryptRndNonce(nonce [24]byte, plaintext []byte, secret [32]byte) []byte {
	return secretbox.Seal(nil, plaintext, &nonce, &secret)
}

// decryptRndNonce opens a ciphertext produced by encryptRndNonce.
func decryptRndNonce(nonce [24]byte, ciphertext []byte, secret [32]byte) ([]byte, bool) {
	return secretbox.Open(nil, ciphertext, &nonce, &secret)
}

// packetNonce builds the 24-byte nonce used to encrypt/decrypt a traffic
// packet: the 32-bit counter is placed little-endian at word offset 0 or 1
// depending on direction, so the two directions of a connection never
// reuse the same nonce value against the same key.
func packetNonce(counter uint32, wordOffset int) [24]byte {
	var nonce [24]byte
	binary.LittleEndian.PutUint32(nonce[wordOffset*4:wordOffset*4+4], counter)
	return nonce
}

// encryptPacket seals a traffic packet's plaintext. isInitiator selects
// the nonce word offset (1 for the initiator, 0 for the responder).
func encryptPacket(counter uint32, plaintext []byte, secret [32]byte, isInitiator bool) []byte {
	offs := 0
	if isInitiator {
		offs = 1
	}
	return encryptRndNonce(packetNonce(counter, offs), plaintext, secret)
}

// decryptPacket opens a traffic packet's ciphertext. isInitiator is this
// session's own role; the peer's packets were encrypted with the opposite
// word offset from what we use to encrypt.
func decryptPacket(counter uint32, ciphertext []byte, secret [32]byte, isInitiator bool) ([]byte, bool) {
	offs := 1
	if isInitiator {
		offs = 0
	}
	return decryptRndNonce(packetNonce(counter, offs), ciphertext, secret)
}
