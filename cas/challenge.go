package cas

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// ChallengeProbeConfig tunes the rolling self-audit of stored blobs.
type ChallengeProbeConfig struct {
	MaxSampleBytes    uint64
	ChallengesPerTick uint32
	ChallengeTTLMs    int64
}

// DefaultChallengeProbeConfig returns the standard probe tuning.
func DefaultChallengeProbeConfig() ChallengeProbeConfig {
	return ChallengeProbeConfig{MaxSampleBytes: 4096, ChallengesPerTick: 4, ChallengeTTLMs: 30_000}
}

// ChallengeProbeCursorState is the persisted cursor of the rolling
// probe, so restarts resume the sweep where the previous round left
// off instead of re-auditing the same head-of-list blobs.
type ChallengeProbeCursorState struct {
	NextBlobCursor           int               `json:"next_blob_cursor"`
	RoundsExecuted           uint64            `json:"rounds_executed"`
	CumulativeTotalChecks    uint64            `json:"cumulative_total_checks"`
	CumulativePassedChecks   uint64            `json:"cumulative_passed_checks"`
	CumulativeFailedChecks   uint64            `json:"cumulative_failed_checks"`
	CumulativeFailureReasons map[string]uint64 `json:"cumulative_failure_reasons"`
}

// ChallengeProbeReport is one probe round's outcome.
type ChallengeProbeReport struct {
	NodeID               string
	WorldID              string
	ObservedAtUnixMs     int64
	TotalChecks          uint64
	PassedChecks         uint64
	FailedChecks         uint64
	FailureReasons       map[string]uint64
	LatestProofSemantics *wire.StorageChallengeProofSemantics
}

// ProbeStorageChallenges runs one round of the rolling self-audit:
// starting at the cursor, it re-reads up to ChallengesPerTick stored
// blobs, verifies each against its content hash, and draws a
// deterministic sample window as the proof a remote challenger would
// demand. The cursor state accumulates across rounds.
func (s *Store) ProbeStorageChallenges(worldID, nodeID string, observedAtUnixMs int64, config ChallengeProbeConfig, state *ChallengeProbeCursorState) (ChallengeProbeReport, error) {
	if err := validateProbeConfig(config); err != nil {
		return ChallengeProbeReport{}, err
	}
	if strings.TrimSpace(worldID) == "" {
		return ChallengeProbeReport{}, werr.New(werr.KindValidation, "probe field world_id cannot be empty")
	}
	if strings.TrimSpace(nodeID) == "" {
		return ChallengeProbeReport{}, werr.New(werr.KindValidation, "probe field node_id cannot be empty")
	}
	if state.CumulativeFailureReasons == nil {
		state.CumulativeFailureReasons = make(map[string]uint64)
	}

	hashes, err := s.ListBlobHashes()
	if err != nil {
		return ChallengeProbeReport{}, err
	}

	report := ChallengeProbeReport{
		NodeID:           nodeID,
		WorldID:          worldID,
		ObservedAtUnixMs: observedAtUnixMs,
		FailureReasons:   make(map[string]uint64),
	}
	if len(hashes) == 0 {
		advanceProbeCursor(state, &report, 0)
		return report, nil
	}

	checks := int(config.ChallengesPerTick)
	if checks > len(hashes) {
		checks = len(hashes)
	}
	start := state.NextBlobCursor % len(hashes)
	for index := 0; index < checks; index++ {
		hash := hashes[(start+index)%len(hashes)]
		report.TotalChecks++

		proof, reason := s.answerChallenge(worldID, nodeID, hash, observedAtUnixMs, state.NextBlobCursor, index, config.MaxSampleBytes)
		if reason != "" {
			report.FailedChecks++
			report.FailureReasons[reason]++
			continue
		}
		report.PassedChecks++
		report.LatestProofSemantics = proof
	}

	advanceProbeCursor(state, &report, len(hashes))
	return report, nil
}

// answerChallenge re-reads one blob, verifies its content hash, and
// extracts the deterministic sample window a challenge over it would
// demand. A non-empty reason classifies the failure.
func (s *Store) answerChallenge(worldID, nodeID, hash string, observedAtUnixMs int64, cursor, index int, maxSampleBytes uint64) (*wire.StorageChallengeProofSemantics, string) {
	b, err := s.Get(hash)
	if err != nil {
		return nil, string(wire.FailureReasonNotFound)
	}
	if wire.ContentHash(b) != hash {
		return nil, string(wire.FailureReasonHashMismatch)
	}

	sampleLen := maxSampleBytes
	if sampleLen > uint64(len(b)) {
		sampleLen = uint64(len(b))
	}
	offset := sampleOffset(challengeSeed(worldID, nodeID, observedAtUnixMs, cursor, index), uint64(len(b)), sampleLen)
	return &wire.StorageChallengeProofSemantics{
		ContentHash:  hash,
		SampleSource: wire.SampleSourceSnapshotChunk,
		Offset:       offset,
		SampledBytes: append([]byte(nil), b[offset:offset+sampleLen]...),
	}, ""
}

// challengeSeed derives the deterministic seed one scheduled probe
// challenge uses, unique per (world, node, round time, cursor, index).
func challengeSeed(worldID, nodeID string, observedAtUnixMs int64, cursor, index int) string {
	return fmt.Sprintf("%s:%s:%d:%d:%d", worldID, nodeID, observedAtUnixMs, cursor, index)
}

// sampleOffset maps a seed onto a valid sample window start within a
// blob of blobLen bytes.
func sampleOffset(seed string, blobLen, sampleLen uint64) uint64 {
	window := blobLen - sampleLen
	if window == 0 {
		return 0
	}
	digest, err := hex.DecodeString(wire.ContentHash([]byte(seed)))
	if err != nil || len(digest) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(digest[:8]) % (window + 1)
}

func validateProbeConfig(config ChallengeProbeConfig) error {
	if config.MaxSampleBytes == 0 {
		return werr.New(werr.KindValidation, "probe max_sample_bytes must be >= 1")
	}
	if config.ChallengesPerTick == 0 {
		return werr.New(werr.KindValidation, "probe challenges_per_tick must be >= 1")
	}
	if config.ChallengeTTLMs <= 0 {
		return werr.New(werr.KindValidation, "probe challenge_ttl_ms must be > 0")
	}
	return nil
}

// advanceProbeCursor folds one round's report into the persisted
// cursor state and steps the cursor past the blobs just checked.
func advanceProbeCursor(state *ChallengeProbeCursorState, report *ChallengeProbeReport, blobCount int) {
	state.RoundsExecuted++
	state.CumulativeTotalChecks += report.TotalChecks
	state.CumulativePassedChecks += report.PassedChecks
	state.CumulativeFailedChecks += report.FailedChecks
	for reason, count := range report.FailureReasons {
		state.CumulativeFailureReasons[reason] += count
	}

	if blobCount == 0 {
		state.NextBlobCursor = 0
		return
	}
	state.NextBlobCursor = (state.NextBlobCursor + int(report.TotalChecks)%blobCount) % blobCount
}
