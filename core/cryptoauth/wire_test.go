package cryptoauth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCryptoHeaderEncodeDecodeRoundTrip(t *testing.T) {
	var h CryptoHeader
	h.Nonce = 2
	h.Auth = Challenge{AuthType: AuthTypeOne, DerivationCount: 7, Additional: 3}
	for i := range h.Auth.Lookup {
		h.Auth.Lookup[i] = byte(i + 1)
	}
	for i := range h.HandshakeNonce {
		h.HandshakeNonce[i] = byte(i)
	}
	for i := range h.PublicKey {
		h.PublicKey[i] = byte(0xA0 + i)
	}
	for i := range h.Tag {
		h.Tag[i] = byte(0xB0 + i)
	}
	for i := range h.EncryptedTempKey {
		h.EncryptedTempKey[i] = byte(0xC0 + i)
	}

	wire := h.Encode()
	require.Len(t, wire, CryptoHeaderSize)

	got := decodeCryptoHeader(wire)
	require.Equal(t, h, got)
}

func TestCryptoHeaderFieldOffsets(t *testing.T) {
	var h CryptoHeader
	h.Nonce = 0xAABBCCDD
	h.PublicKey = [32]byte{1, 2, 3}
	h.Tag = [16]byte{9, 9, 9}
	h.EncryptedTempKey = [32]byte{7, 7, 7}

	wire := h.Encode()
	require.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, wire[0:4])
	require.Equal(t, h.PublicKey[:], wire[40:72])
	require.Equal(t, h.Tag[:], wire[72:88])
	require.Equal(t, h.EncryptedTempKey[:], wire[88:120])
}

func TestBufferPushFrontAndPopFront(t *testing.T) {
	buf := NewBuffer([]byte("payload"), 4)
	require.Equal(t, 4, buf.Pad())

	require.NoError(t, buf.PushFront([]byte{1, 2, 3, 4}))
	require.Equal(t, 0, buf.Pad())
	require.Equal(t, []byte{1, 2, 3, 4, 'p', 'a', 'y', 'l', 'o', 'a', 'd'}, buf.Bytes())

	popped, err := buf.PopFront(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, popped)
	require.Equal(t, []byte("payload"), buf.Bytes())
}

func TestBufferPushFrontFailsWithoutHeadroom(t *testing.T) {
	buf := NewBuffer([]byte("x"), 1)
	err := buf.PushFront([]byte{1, 2})
	require.Error(t, err)
}
