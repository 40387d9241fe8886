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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CryptoAuthHandshakeSteps tracks CryptoAuth handshake packets sent and
	// received, by direction and nonce step.
	CryptoAuthHandshakeSteps = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cryptoauth",
			Name:      "handshake_steps_total",
			Help:      "Total number of CryptoAuth handshake packets processed",
		},
		[]string{"direction", "step"}, // send/recv, hello/repeat_hello/key/repeat_key
	)

	// CryptoAuthSessionsEstablished tracks sessions that reached Established.
	CryptoAuthSessionsEstablished = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cryptoauth",
			Name:      "sessions_established_total",
			Help:      "Total number of CryptoAuth sessions that reached the established state",
		},
	)

	// CryptoAuthDecryptErrors tracks packets rejected as runts or as failed
	// traffic-packet decryptions, by DecryptErr code. Rejections on the
	// handshake path are not counted here.
	CryptoAuthDecryptErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cryptoauth",
			Name:      "decrypt_errors_total",
			Help:      "Total number of CryptoAuth runt or traffic packets rejected, by error code",
		},
		[]string{"code"},
	)

	// CryptoAuthReplayRejections mirrors ReplayAttacksDetected for the
	// CryptoAuth traffic path specifically. Every rejection is currently
	// recorded with reason "window".
	CryptoAuthReplayRejections = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cryptoauth",
			Name:      "replay_rejections_total",
			Help:      "Total number of CryptoAuth packets rejected by the replay window",
		},
		[]string{"reason"}, // window
	)

	// CryptoAuthPacketDuration tracks Encrypt/Decrypt call latency.
	CryptoAuthPacketDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cryptoauth",
			Name:      "packet_duration_seconds",
			Help:      "CryptoAuth Encrypt/Decrypt call duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10us to 163ms
		},
		[]string{"operation"}, // encrypt, decrypt
	)
)
