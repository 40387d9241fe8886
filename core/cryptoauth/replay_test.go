package cryptoauth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReplayProtectorAcceptsMonotonicNonces(t *testing.T) {
	r := NewReplayProtector()
	require.True(t, r.CheckNonce(1))
	require.True(t, r.CheckNonce(2))
	require.True(t, r.CheckNonce(3))
	require.Equal(t, uint64(3), r.Stats().ReceivedPackets)
}

func TestReplayProtectorRejectsDuplicate(t *testing.T) {
	r := NewReplayProtector()
	require.True(t, r.CheckNonce(5))
	require.False(t, r.CheckNonce(5))
	require.Equal(t, uint64(1), r.Stats().DuplicatePackets)
}

func TestReplayProtectorAcceptsOutOfOrderWithinWindow(t *testing.T) {
	r := NewReplayProtector()
	require.True(t, r.CheckNonce(10))
	require.True(t, r.CheckNonce(8))
	require.False(t, r.CheckNonce(8))
}

func TestReplayProtectorRejectsTooFarBehindWindow(t *testing.T) {
	r := NewReplayProtector()
	require.True(t, r.CheckNonce(100))
	require.False(t, r.CheckNonce(100-replayWindow))
	require.Equal(t, uint64(1), r.Stats().ReceivedUnexpected)
}

func TestReplayProtectorResetClearsWindow(t *testing.T) {
	r := NewReplayProtector()
	require.True(t, r.CheckNonce(50))
	r.Reset()
	require.True(t, r.CheckNonce(1))
}

func TestReplayProtectorInitSetsFloorWithoutAccounting(t *testing.T) {
	r := NewReplayProtector()
	r.Init(100)
	require.Equal(t, uint64(0), r.Stats().ReceivedPackets)
	require.True(t, r.CheckNonce(101))
	require.True(t, r.CheckNonce(100))
	require.False(t, r.CheckNonce(99))
}
