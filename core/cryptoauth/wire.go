package cryptoauth

import "encoding/binary"

// AuthType selects how a handshake packet's Challenge is interpreted.
type AuthType uint8

const (
	// AuthTypeZero means no credentials were presented.
	AuthTypeZero AuthType = 0
	// AuthTypeOne looks a user up by password hash alone.
	AuthTypeOne AuthType = 1
	// AuthTypeTwo looks a user up by a hash of the login name.
	AuthTypeTwo AuthType = 2
)

// ChallengeSize is the wire size of a Challenge.
const ChallengeSize = 12

// Challenge is the 12-byte auth-lookup field carried in every handshake
// packet (CryptoHeader offset 4..16).
type Challenge struct {
	AuthType         AuthType
	Lookup           [7]byte
	DerivationCount  uint16
	Additional       uint16
}

// lookupBytes returns the 7-byte lookup value, the part of the Challenge
// an Authenticator compares against a stored 7-byte hash slice.
func (c *Challenge) lookupBytes() [7]byte {
	return c.Lookup
}

func (c *Challenge) encode(dst []byte) {
	dst[0] = byte(c.AuthType)
	copy(dst[1:8], c.Lookup[:])
	binary.BigEndian.PutUint16(dst[8:10], c.DerivationCount)
	binary.BigEndian.PutUint16(dst[10:12], c.Additional)
}

func decodeChallenge(src []byte) Challenge {
	var c Challenge
	c.AuthType = AuthType(src[0])
	copy(c.Lookup[:], src[1:8])
	c.DerivationCount = binary.BigEndian.Uint16(src[8:10])
	c.Additional = binary.BigEndian.Uint16(src[10:12])
	return c
}

// CryptoHeaderSize is the wire size of a CryptoHeader, including the
// leading 4-byte nonce but excluding the packet payload that follows.
const CryptoHeaderSize = 120

// CryptoHeader is the bit-exact handshake header:
//
//	offset  size  field
//	  0      4    nonce (big-endian u32: 0=Hello, 1=RepeatHello, 2=Key, 3=RepeatKey)
//	  4     12    auth challenge
//	 16     24    handshake_nonce (random)
//	 40     32    public_key (sender's permanent)
//	 72     16    poly1305 tag (produced by sealing the following 32 bytes)
//	 88     32    encrypted_temp_key (sender's ephemeral public key)
type CryptoHeader struct {
	Nonce             uint32
	Auth              Challenge
	HandshakeNonce    [24]byte
	PublicKey         [32]byte
	Tag               [16]byte
	EncryptedTempKey  [32]byte
}

// Encode writes the header to a freshly allocated 120-byte slice.
func (h *CryptoHeader) Encode() []byte {
	buf := make([]byte, CryptoHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Nonce)
	h.Auth.encode(buf[4:16])
	copy(buf[16:40], h.HandshakeNonce[:])
	copy(buf[40:72], h.PublicKey[:])
	copy(buf[72:88], h.Tag[:])
	copy(buf[88:120], h.EncryptedTempKey[:])
	return buf
}

// decodeCryptoHeader parses a 120-byte slice into a CryptoHeader.
func decodeCryptoHeader(buf []byte) CryptoHeader {
	var h CryptoHeader
	h.Nonce = binary.BigEndian.Uint32(buf[0:4])
	h.Auth = decodeChallenge(buf[4:16])
	copy(h.HandshakeNonce[:], buf[16:40])
	copy(h.PublicKey[:], buf[40:72])
	copy(h.Tag[:], buf[72:88])
	copy(h.EncryptedTempKey[:], buf[88:120])
	return h
}
