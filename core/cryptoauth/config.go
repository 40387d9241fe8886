package cryptoauth

import (
	"encoding/hex"
	"net"
	"os"

	"github.com/sage-x-project/sage/config"
	"github.com/sage-x-project/sage/internal/logger"
)

// NewAuthenticatorFromConfig builds an Authenticator from a
// config.CryptoAuthConfig: it loads (or generates, if PrivateKeyPath is
// empty) the local identity key and registers every configured user.
func NewAuthenticatorFromConfig(cfg config.CryptoAuthConfig, log logger.Logger) (*Authenticator, error) {
	var priv *PrivateKey
	if cfg.PrivateKeyPath != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, encryptErrorf("reading private key file: %v", err)
		}
		key, err := decodeHexKey(raw)
		if err != nil {
			return nil, err
		}
		priv = &key
	}

	auth := NewAuthenticator(priv, nil, log)
	for _, u := range cfg.Users {
		var login *string
		if u.Login != "" {
			login = &u.Login
		}
		var ip6 *[16]byte
		if u.RestrictToIPv6 != "" {
			parsed := net.ParseIP(u.RestrictToIPv6).To16()
			if parsed == nil {
				return nil, encryptErrorf("invalid restrict_to_ipv6 %q for user %q", u.RestrictToIPv6, u.Login)
			}
			var arr [16]byte
			copy(arr[:], parsed)
			ip6 = &arr
		}
		if err := auth.AddUser([]byte(u.Password), login, ip6); err != nil {
			return nil, err
		}
	}
	return auth, nil
}

// NewSessionFromConfig builds a Session the way NewSession does, then
// applies cfg's inactivity windows and require_auth setting in place of
// the package defaults.
func NewSessionFromConfig(auth *Authenticator, herPubKey PublicKey, cfg config.CryptoAuthConfig, displayName string, clock Clock) (*Session, error) {
	s, err := NewSession(auth, herPubKey, cfg.RequireAuth, displayName, false, clock)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	sessionDefaultsFromConfig(s, cfg)
	s.mu.Unlock()
	return s, nil
}

// sessionDefaultsFromConfig applies a CryptoAuthConfig's inactivity
// windows to a freshly built Session, falling back to the package
// defaults for zero values.
func sessionDefaultsFromConfig(s *Session, cfg config.CryptoAuthConfig) {
	s.state.resetAfterInactivitySeconds = cfg.ResetAfterInactivitySeconds
	if s.state.resetAfterInactivitySeconds == 0 {
		s.state.resetAfterInactivitySeconds = DefaultResetAfterInactivitySeconds
	}
	s.state.setupResetAfterInactivitySeconds = cfg.SetupResetAfterInactivitySeconds
	if s.state.setupResetAfterInactivitySeconds == 0 {
		s.state.setupResetAfterInactivitySeconds = DefaultSetupResetAfterInactivitySeconds
	}
	s.state.requireAuth = cfg.RequireAuth
}

func decodeHexKey(raw []byte) (PrivateKey, error) {
	var key PrivateKey
	trimmed := trimTrailingNewline(raw)
	decoded := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(decoded, trimmed)
	if err != nil || n != 32 {
		return key, encryptErrorf("private key file must contain 64 hex characters (32 bytes)")
	}
	copy(key[:], decoded[:32])
	return key, nil
}

func trimTrailingNewline(raw []byte) []byte {
	for len(raw) > 0 && (raw[len(raw)-1] == '\n' || raw[len(raw)-1] == '\r') {
		raw = raw[:len(raw)-1]
	}
	return raw
}
