package cryptoauth

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

// Known-answer style coverage for the low-level primitives crypto_ops.go
// wraps, isolated from the handshake state machine that exercises them
// indirectly elsewhere.

func TestEncryptDecryptRndNonceRoundTrip(t *testing.T) {
	var nonce [24]byte
	for i := range nonce {
		nonce[i] = byte(i)
	}
	var secret [32]byte
	for i := range secret {
		secret[i] = byte(i * 3)
	}
	plaintext := []byte("round trip payload")

	sealed := encryptRndNonce(nonce, plaintext, secret)
	require.Len(t, sealed, len(plaintext)+16)

	opened, ok := decryptRndNonce(nonce, sealed, secret)
	require.True(t, ok)
	require.Equal(t, plaintext, opened)

	tampered := append([]byte(nil), sealed...)
	tampered[0] ^= 0xFF
	_, ok = decryptRndNonce(nonce, tampered, secret)
	require.False(t, ok)
}

// TestGetSharedSecretZeroPeerWithPasswordKnownAnswer pins the fallback
// behavior crypto_ops.go documents: golang.org/x/crypto/curve25519.X25519
// rejects the all-zero (low-order) point, and getSharedSecret's
// password-mixing branch hashes through a 32-byte zero scalarmult result
// rather than propagating that error, matching the original implementation.
func TestGetSharedSecretZeroPeerWithPasswordKnownAnswer(t *testing.T) {
	var myPriv PrivateKey
	for i := range myPriv {
		myPriv[i] = byte(i + 1)
	}
	var herPub PublicKey // all-zero: a low-order point
	passwordHash := sha256.Sum256([]byte("kat"))

	got := getSharedSecret(myPriv, herPub, &passwordHash)

	want := sha256.Sum256(append(make([]byte, 32), passwordHash[:]...))
	require.Equal(t, want, got)
}

func TestGetSharedSecretWithoutPasswordIsDeterministic(t *testing.T) {
	privA, pubA := GenerateKeyPair(SystemRandom{})
	_, pubB := GenerateKeyPair(SystemRandom{})

	secret1 := getSharedSecret(privA, pubB, nil)
	secret2 := getSharedSecret(privA, pubB, nil)
	require.Equal(t, secret1, secret2)
	require.NotEqual(t, secret1, getSharedSecret(privA, pubA, nil))
}

func TestEncryptRejectsEmptyPlaintextOnTrafficPath(t *testing.T) {
	aAuth, bAuth := newPair(t)
	a, err := NewSession(aAuth, bAuth.PublicKey, false, "a", false, nil)
	require.NoError(t, err)
	b, err := NewSession(bAuth, aAuth.PublicKey, false, "b", false, nil)
	require.NoError(t, err)
	runHandshake(t, a, b)

	_, err = a.Encrypt(nil)
	require.Error(t, err)
	var encErr *EncryptError
	require.ErrorAs(t, err, &encErr)
}

func TestEncryptAllowsEmptyPlaintextDuringRealHandshake(t *testing.T) {
	aAuth, bAuth := newPair(t)
	a, err := NewSession(aAuth, bAuth.PublicKey, false, "a", false, nil)
	require.NoError(t, err)

	// A true Hello packet is a "blind handshake" with an empty piggyback
	// payload; only the traffic/finalizing-as-data path rejects this.
	wire, err := a.Encrypt(nil)
	require.NoError(t, err)
	require.Equal(t, StateSentHello, a.GetState())
	require.Equal(t, CryptoHeaderSize, len(wire))
}

func TestEncryptResetsSessionNearMaxNonce(t *testing.T) {
	aAuth, bAuth := newPair(t)
	a, err := NewSession(aAuth, bAuth.PublicKey, false, "a", false, nil)
	require.NoError(t, err)

	a.mu.Lock()
	a.state.nextNonce = maxNonce
	a.state.established = true
	a.mu.Unlock()

	_, err = a.Encrypt([]byte{0})
	require.NoError(t, err)
	require.Equal(t, StateSentHello, a.GetState())
}

func TestHandshakeRejectsMissingAuthWhenRequired(t *testing.T) {
	aAuth, bAuth := newPair(t)
	a, err := NewSession(aAuth, bAuth.PublicKey, false, "a", false, nil)
	require.NoError(t, err)
	b, err := NewSession(bAuth, aAuth.PublicKey, true, "b", false, nil)
	require.NoError(t, err)

	hello, err := a.Encrypt([]byte{0})
	require.NoError(t, err)

	_, err = b.Decrypt(hello)
	require.ErrorIs(t, err, DecryptErrAuthRequired)
}

func TestHandshakeRejectsIpRestrictedWrongPeer(t *testing.T) {
	aAuth, bAuth := newPair(t)
	wrongIP := [16]byte{0xfc, 0x01}
	login := "alice"
	require.NoError(t, bAuth.AddUser([]byte("hunter2"), &login, &wrongIP))

	a, err := NewSession(aAuth, bAuth.PublicKey, false, "a", false, nil)
	require.NoError(t, err)
	b, err := NewSession(bAuth, aAuth.PublicKey, false, "b", false, nil)
	require.NoError(t, err)
	a.SetAuth([]byte("hunter2"), &login)

	hello, err := a.Encrypt([]byte{0})
	require.NoError(t, err)

	_, err = b.Decrypt(hello)
	require.ErrorIs(t, err, DecryptErrIpRestricted)
}

func TestSetAuthResetsSessionOnCredentialChange(t *testing.T) {
	aAuth, bAuth := newPair(t)
	a, err := NewSession(aAuth, bAuth.PublicKey, false, "a", false, nil)
	require.NoError(t, err)

	_, err = a.Encrypt([]byte{0})
	require.NoError(t, err)
	require.Equal(t, StateSentHello, a.GetState())

	login := "alice"
	a.SetAuth([]byte("hunter2"), &login)
	require.Equal(t, StateInit, a.GetState())
}
