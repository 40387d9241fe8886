// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package config

// CryptoAuthConfig contains CryptoAuth session configuration: the local
// identity keypair source and the inactivity windows that govern when a
// Session resets.
type CryptoAuthConfig struct {
	// PrivateKeyPath points at a file holding the local Curve25519 identity
	// key. Empty means generate and hold an ephemeral identity in memory.
	PrivateKeyPath string `yaml:"private_key_path,omitempty" json:"private_key_path,omitempty"`

	// RequireAuth rejects inbound handshakes that present no recognized
	// credentials.
	RequireAuth bool `yaml:"require_auth" json:"require_auth"`

	// ResetAfterInactivitySeconds tears an established session down after
	// this many seconds with no traffic.
	ResetAfterInactivitySeconds uint32 `yaml:"reset_after_inactivity_seconds" json:"reset_after_inactivity_seconds"`

	// SetupResetAfterInactivitySeconds tears a mid-handshake session down
	// after this many seconds with no progress.
	SetupResetAfterInactivitySeconds uint32 `yaml:"setup_reset_after_inactivity_seconds" json:"setup_reset_after_inactivity_seconds"`

	// Users lists credentials this node's Authenticator accepts from peers.
	Users []CryptoAuthUserConfig `yaml:"users,omitempty" json:"users,omitempty"`
}

// CryptoAuthUserConfig is one entry in an Authenticator's user registry.
type CryptoAuthUserConfig struct {
	Login          string `yaml:"login,omitempty" json:"login,omitempty"`
	Password       string `yaml:"password" json:"password"`
	RestrictToIPv6 string `yaml:"restrict_to_ipv6,omitempty" json:"restrict_to_ipv6,omitempty"`
}

// DefaultCryptoAuthConfig returns the configuration matching
// cryptoauth.DefaultResetAfterInactivitySeconds /
// DefaultSetupResetAfterInactivitySeconds.
func DefaultCryptoAuthConfig() CryptoAuthConfig {
	return CryptoAuthConfig{
		RequireAuth:                      false,
		ResetAfterInactivitySeconds:      60,
		SetupResetAfterInactivitySeconds: 10,
	}
}
