package cryptoauth

import "fmt"

// DecryptErr is the closed, FFI-stable taxonomy of decrypt failures. The
// numeric values are load-bearing: callers embedding this package behind a
// C ABI depend on them staying put.
type DecryptErr uint8

const (
	// DecryptErrNone means no error.
	DecryptErrNone DecryptErr = iota
	// DecryptErrRunt means the packet was too short to contain a nonce.
	DecryptErrRunt
	// DecryptErrNoSession means a traffic packet arrived before the handshake completed.
	DecryptErrNoSession
	// DecryptErrFinalShakeFail means the last handshake step failed to decrypt.
	DecryptErrFinalShakeFail
	// DecryptErrFailedDecryptionRunMsg means an established-session traffic packet failed to decrypt.
	DecryptErrFailedDecryptionRunMsg
	// DecryptErrKeyPktEstablishedSession means a Key/RepeatKey packet arrived on an established session.
	DecryptErrKeyPktEstablishedSession
	// DecryptErrWrongPermPubkey means the packet's permanent public key did not match the session's.
	DecryptErrWrongPermPubkey
	// DecryptErrIpRestricted means the sender's derived IPv6 did not match the user's restriction.
	DecryptErrIpRestricted
	// DecryptErrAuthRequired means authentication is mandatory and was missing.
	DecryptErrAuthRequired
	// DecryptErrUnrecognizedAuth means the auth challenge did not match any registered user.
	DecryptErrUnrecognizedAuth
	// DecryptErrStrayKey means a Key/RepeatKey packet arrived when we never sent a Hello.
	DecryptErrStrayKey
	// DecryptErrHandshakeDecryptFailed means the handshake payload failed authenticated decryption.
	DecryptErrHandshakeDecryptFailed
	// DecryptErrWiseguy means the sender presented an all-zero ephemeral public key.
	DecryptErrWiseguy
	// DecryptErrInvalidPacket means a duplicate or out-of-sequence handshake packet was rejected.
	DecryptErrInvalidPacket
	// DecryptErrReplay means the replay protector rejected the packet's nonce.
	DecryptErrReplay
	// DecryptErrDecrypt means authenticated decryption of a traffic packet failed.
	DecryptErrDecrypt
)

var decryptErrNames = [...]string{
	"NONE", "RUNT", "NO_SESSION", "FINAL_HANDSHAKE_FAIL",
	"FAILED_DECRYPT_RUN_MSG", "KEY_PKT_ESTABLISHED_SESSION",
	"WRONG_PERM_PUBKEY", "IP_RESTRICTED", "AUTH_REQUIRED",
	"UNRECOGNIZED_AUTH", "STRAY_KEY", "HANDSHAKE_DECRYPT_FAILED",
	"WISEGUY", "INVALID_PACKET", "REPLAY", "DECRYPT",
}

// Error implements the error interface.
func (e DecryptErr) Error() string {
	if int(e) < len(decryptErrNames) {
		return decryptErrNames[e]
	}
	return "UNKNOWN"
}

// Code returns the stable FFI numeric code for this error.
func (e DecryptErr) Code() uint8 { return uint8(e) }

// AddUserErrDuplicate is returned by Authenticator.AddUser when a different
// secret is registered under a login that already exists.
type AddUserErrDuplicate struct {
	Login string
}

func (e *AddUserErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate user %q", e.Login)
}

// KeyError reports a problem with a supplied PublicKey.
type KeyError struct {
	msg string
}

func (e *KeyError) Error() string { return e.msg }

var (
	// ErrBadPublicKey means a public key could not be converted to a valid IPv6 address.
	ErrBadPublicKey = &KeyError{"public key cannot be converted to a valid ipv6 address"}
	// ErrZeroPublicKey means a public key was all zeroes.
	ErrZeroPublicKey = &KeyError{"public key is all zeroes"}
)

// EncryptError reports an internal invariant violation on the encrypt path.
// Under correct use of the API these should never occur; they exist so a
// violated precondition (e.g. an unaligned or empty buffer) surfaces as an
// error rather than a panic.
type EncryptError struct {
	msg string
}

func (e *EncryptError) Error() string { return "cryptoauth: " + e.msg }

func encryptErrorf(format string, args ...interface{}) error {
	return &EncryptError{msg: fmt.Sprintf(format, args...)}
}

// InternalError reports a violated session invariant on the decrypt path:
// a precondition the handshake state machine guarantees but that this
// defensive check found false. Distinct from DecryptErr, whose values are
// an FFI-stable catalog of peer-caused rejections.
type InternalError struct {
	msg string
}

func (e *InternalError) Error() string { return "cryptoauth: internal: " + e.msg }

func decryptErrorf(format string, args ...interface{}) error {
	return &InternalError{msg: fmt.Sprintf(format, args...)}
}
