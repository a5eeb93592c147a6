package cas

import (
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/eng-cc/agent-world-sub008/wire"
)

func probeBlob(size int) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = byte(i%251) + 11
	}
	return out
}

func probeConfig() ChallengeProbeConfig {
	return ChallengeProbeConfig{MaxSampleBytes: 16, ChallengesPerTick: 2, ChallengeTTLMs: 200}
}

func TestProbeWithCursorAdvancesAndAccumulatesState(t *testing.T) {
	s := openTestStore(t)
	for _, size := range []int{80, 96, 112} {
		_, err := s.Put(probeBlob(size))
		require.NoError(t, err)
	}

	var state ChallengeProbeCursorState
	first, err := s.ProbeStorageChallenges("w1", "node-a", 1000, probeConfig(), &state)
	require.NoError(t, err)
	require.Equal(t, uint64(2), first.TotalChecks)
	require.Equal(t, uint64(2), first.PassedChecks)
	require.Zero(t, first.FailedChecks)
	require.NotNil(t, first.LatestProofSemantics)
	require.NotEmpty(t, first.LatestProofSemantics.SampledBytes)
	require.Equal(t, uint64(1), state.RoundsExecuted)
	require.Equal(t, 2, state.NextBlobCursor)
	require.Equal(t, uint64(2), state.CumulativeTotalChecks)

	second, err := s.ProbeStorageChallenges("w1", "node-a", 2000, probeConfig(), &state)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.PassedChecks)
	require.Equal(t, uint64(2), state.RoundsExecuted)
	require.Equal(t, 1, state.NextBlobCursor)
	require.Equal(t, uint64(4), state.CumulativePassedChecks)
}

func TestProbeRecordsHashMismatchOnTamperedBlob(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.Put(probeBlob(64))
	require.NoError(t, err)

	// Corrupt the stored bytes underneath the content key.
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(hash), []byte("tampered"))
	}))

	var state ChallengeProbeCursorState
	cfg := probeConfig()
	cfg.ChallengesPerTick = 1
	report, err := s.ProbeStorageChallenges("w1", "node-b", 3000, cfg, &state)
	require.NoError(t, err)
	require.Equal(t, uint64(1), report.TotalChecks)
	require.Zero(t, report.PassedChecks)
	require.Equal(t, uint64(1), report.FailedChecks)
	require.Equal(t, uint64(1), report.FailureReasons[string(wire.FailureReasonHashMismatch)])
	require.Equal(t, uint64(1), state.CumulativeFailureReasons[string(wire.FailureReasonHashMismatch)])
}

func TestProbeAllowsEmptyBlobSet(t *testing.T) {
	s := openTestStore(t)
	var state ChallengeProbeCursorState
	report, err := s.ProbeStorageChallenges("w1", "node-c", 4000, probeConfig(), &state)
	require.NoError(t, err)
	require.Zero(t, report.TotalChecks)
	require.Equal(t, uint64(1), state.RoundsExecuted)
	require.Zero(t, state.NextBlobCursor)
}

func TestProbeRejectsInvalidConfigAndIDs(t *testing.T) {
	s := openTestStore(t)
	var state ChallengeProbeCursorState

	bad := probeConfig()
	bad.MaxSampleBytes = 0
	_, err := s.ProbeStorageChallenges("w1", "node-a", 0, bad, &state)
	require.Error(t, err)

	bad = probeConfig()
	bad.ChallengesPerTick = 0
	_, err = s.ProbeStorageChallenges("w1", "node-a", 0, bad, &state)
	require.Error(t, err)

	bad = probeConfig()
	bad.ChallengeTTLMs = 0
	_, err = s.ProbeStorageChallenges("w1", "node-a", 0, bad, &state)
	require.Error(t, err)

	_, err = s.ProbeStorageChallenges("", "node-a", 0, probeConfig(), &state)
	require.Error(t, err)
	_, err = s.ProbeStorageChallenges("w1", " ", 0, probeConfig(), &state)
	require.Error(t, err)
}
