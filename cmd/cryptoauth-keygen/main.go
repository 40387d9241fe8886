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

// Command cryptoauth-keygen generates a CryptoAuth identity keypair and
// prints its derived cjdns-style IPv6 address.
package main

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"

	"filippo.io/edwards25519"
	"github.com/spf13/cobra"

	"github.com/sage-x-project/sage/core/cryptoauth"
)

var (
	outputFile string
	selfCheck  bool
)

var rootCmd = &cobra.Command{
	Use:   "cryptoauth-keygen",
	Short: "Generate a CryptoAuth Curve25519 identity keypair",
	Long: `cryptoauth-keygen generates a fresh Curve25519 identity keypair for
use as a CryptoAuth permanent key, printing the private key, public key,
and derived IPv6 address.`,
	RunE: runKeygen,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write the private key (hex) to this file instead of stdout")
	rootCmd.Flags().BoolVar(&selfCheck, "self-check", true, "validate the generated scalar clamps to a canonical nonzero value before printing it")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygen(cmd *cobra.Command, args []string) error {
	priv, pub := cryptoauth.GenerateKeyPair(cryptoauth.SystemRandom{})

	if selfCheck {
		if err := checkClampedScalar(priv); err != nil {
			return fmt.Errorf("generated private key failed self-check: %w", err)
		}
	}

	ip6, err := cryptoauth.IPv6ForPublicKey(pub)
	if err != nil {
		return fmt.Errorf("derived public key is not a valid cjdns identity: %w", err)
	}

	privHex := hex.EncodeToString(priv[:])
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(privHex+"\n"), 0600); err != nil {
			return fmt.Errorf("writing private key file: %w", err)
		}
		fmt.Printf("Private key written to: %s\n", outputFile)
	} else {
		fmt.Printf("Private Key: %s\n", privHex)
	}

	fmt.Printf("Public Key:  %s\n", hex.EncodeToString(pub[:]))
	fmt.Printf("IPv6:        %s\n", net.IP(ip6[:]).String())
	return nil
}

// checkClampedScalar reruns the Curve25519 clamping filippo.io/edwards25519
// applies internally and confirms it reduces to a canonical, nonzero scalar
// modulo the group order — the same defensive sanity check
// crypto/keys/x25519.go applies when converting an Ed25519 key into an
// X25519 one, adapted here to a freshly generated Curve25519 scalar rather
// than a converted one.
func checkClampedScalar(priv cryptoauth.PrivateKey) error {
	raw := make([]byte, 32)
	copy(raw, priv[:])
	s, err := new(edwards25519.Scalar).SetBytesWithClamping(raw)
	if err != nil {
		return err
	}
	var zero [32]byte
	if hex.EncodeToString(s.Bytes()) == hex.EncodeToString(zero[:]) {
		return fmt.Errorf("clamped scalar is zero")
	}
	return nil
}
