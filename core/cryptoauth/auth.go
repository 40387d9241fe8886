package cryptoauth

import (
	"fmt"
	"sync"

	"github.com/sage-x-project/sage/internal/logger"
)

// user is a registered set of credentials an Authenticator can match an
// inbound handshake's Challenge against.
type user struct {
	login           string
	passwordHash    [32]byte // bytes 1..8 of SHA-256(SHA-256(password)), rest zero; AuthType-1 lookup key
	userNameHash    [32]byte // bytes 1..8 of SHA-256(login), rest zero; AuthType-2 lookup key
	secret          [32]byte // SHA-256(password), mixed into the shared secret
	restrictedToIP6 *[16]byte
}

// Authenticator is the process-scoped context shared by every Session: it
// holds the local permanent Curve25519 identity and the registry of
// credentials inbound handshakes may present.
type Authenticator struct {
	PublicKey  PublicKey
	privateKey PrivateKey

	mu    sync.RWMutex
	users []user

	rnd RandomSource
	log logger.Logger
}

// NewAuthenticator creates an Authenticator. If priv is nil a fresh
// identity keypair is generated from rnd. A nil log defaults to
// logger.NewDefaultLogger(); a nil rnd defaults to SystemRandom{}.
func NewAuthenticator(priv *PrivateKey, rnd RandomSource, log logger.Logger) *Authenticator {
	if rnd == nil {
		rnd = SystemRandom{}
	}
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	var sk PrivateKey
	if priv != nil {
		sk = *priv
	} else {
		sk, _ = GenerateKeyPair(rnd)
	}
	return &Authenticator{
		PublicKey:  DerivePublicKey(sk),
		privateKey: sk,
		rnd:        rnd,
		log:        log,
	}
}

// AddUser registers a password, optionally scoped to an explicit login and
// restricted to a specific peer IPv6 address.
//
// If another registered user shares the same derived secret, this call is
// a silent no-op (the new login, if any, is not recorded) even if the
// logins differ. If a different secret is registered under a login that
// already exists, it returns *AddUserErrDuplicate.
func (a *Authenticator) AddUser(password []byte, login *string, ipv6 *[16]byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	loginStr := ""
	if login != nil {
		loginStr = *login
	} else {
		loginStr = fmt.Sprintf("Anon #%d", len(a.users))
	}

	_, nameChallenge := hashPassword([]byte(loginStr), password, AuthTypeTwo)
	secret, passChallenge := hashPassword(nil, password, AuthTypeOne)

	u := user{
		login:           loginStr,
		secret:          secret,
		restrictedToIP6: ipv6,
	}
	copy(u.userNameHash[:], padLookup(nameChallenge.Lookup))
	copy(u.passwordHash[:], padLookup(passChallenge.Lookup))

	for _, existing := range a.users {
		if u.secret == existing.secret {
			return nil
		}
		if login != nil && *login == existing.login {
			return &AddUserErrDuplicate{Login: *login}
		}
	}

	a.users = append(a.users, u)
	return nil
}

// padLookup expands a 7-byte Challenge lookup value back into a comparable
// form; only the 7 bytes actually carried on the wire matter for matching.
func padLookup(lookup [7]byte) []byte {
	out := make([]byte, 32)
	copy(out[1:8], lookup[:])
	return out
}

// RemoveUsers removes users from the registry. If login is nil, every
// user is removed; otherwise only users with a matching login are. It
// returns the number of users removed.
func (a *Authenticator) RemoveUsers(login *string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if login == nil {
		n := len(a.users)
		a.users = nil
		a.log.Debug("flushing all users", logger.Int("count", n))
		return n
	}

	kept := a.users[:0]
	removed := 0
	for _, u := range a.users {
		if u.login == *login {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	a.users = kept
	a.log.Debug("removing users", logger.String("login", *login), logger.Int("count", removed))
	return removed
}

// GetUsers returns the login names of every registered user.
func (a *Authenticator) GetUsers() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.users))
	for i, u := range a.users {
		out[i] = u.login
	}
	return out
}

// getAuth searches the registry for a user whose password or login hash
// matches the given Challenge's lookup bytes.
func (a *Authenticator) getAuth(challenge Challenge) *user {
	if challenge.AuthType == AuthTypeZero {
		return nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	count := 0
	for i := range a.users {
		count++
		u := &a.users[i]
		switch challenge.AuthType {
		case AuthTypeOne:
			if challenge.Lookup == sevenOf(u.passwordHash) {
				cp := *u
				return &cp
			}
		case AuthTypeTwo:
			if challenge.Lookup == sevenOf(u.userNameHash) {
				cp := *u
				return &cp
			}
		}
	}
	a.log.Debug("got unrecognized auth", logger.Int("password_count", count))
	return nil
}

func sevenOf(hash [32]byte) [7]byte {
	var out [7]byte
	copy(out[:], hash[1:8])
	return out
}
