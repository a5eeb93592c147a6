package consensus

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eng-cc/agent-world-sub008/distnet/memnet"
	"github.com/eng-cc/agent-world-sub008/wire"
)

func threeValidatorEngine() *Engine {
	return NewEngine(Config{Validators: []string{"seq-1", "seq-2", "seq-3"}, QuorumThreshold: 2})
}

func TestProposeCountsProposerApproval(t *testing.T) {
	e := threeValidatorEngine()
	r, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)
	require.Equal(t, StatusPending, r.Status)
	require.Equal(t, 1, r.approvals())
	require.True(t, e.HasPending())
}

func TestProposeAndCommitByQuorum(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)

	r, err := e.VoteHead("w1", 1, "b1", "seq-2", true, 1001, "")
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, r.Status)
	require.False(t, e.HasPending())
}

func TestProposeRejectsNonValidator(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "intruder", 1000)
	require.Error(t, err)
}

func TestProposeConflictingPendingRejected(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)
	_, err = e.ProposeHead("w1", 1, "b2", "seq-2", 1001)
	require.Error(t, err)

	// Re-proposing the identical triple is idempotent.
	r, err := e.ProposeHead("w1", 1, "b1", "seq-2", 1002)
	require.NoError(t, err)
	require.Equal(t, "b1", r.BlockHash)
}

func TestProposeAfterCommitRejected(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)
	_, err = e.VoteHead("w1", 1, "b1", "seq-2", true, 1001, "")
	require.NoError(t, err)

	_, err = e.ProposeHead("w1", 1, "b2", "seq-3", 1002)
	require.Error(t, err)
}

func TestRejectWhenQuorumBecomesImpossible(t *testing.T) {
	e := NewEngine(Config{Validators: []string{"v1", "v2", "v3"}, QuorumThreshold: 3})
	_, err := e.ProposeHead("w1", 1, "b1", "v1", 1000)
	require.NoError(t, err)

	r, err := e.VoteHead("w1", 1, "b1", "v2", false, 1001, "disk mismatch")
	require.NoError(t, err)
	require.Equal(t, StatusRejected, r.Status)
	require.Equal(t, "disk mismatch", r.Votes["v2"].Reason)
}

func TestSecondVoteBySameValidatorRejected(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)
	_, err = e.VoteHead("w1", 1, "b1", "seq-1", true, 1001, "")
	require.Error(t, err) // proposer already voted at proposal time
}

func TestMajorityThresholdDefault(t *testing.T) {
	e := NewEngine(Config{Validators: []string{"a", "b", "c", "d", "e"}})
	require.Equal(t, 3, e.QuorumThreshold())
}

func TestMembershipChangeBlockedWhilePending(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)

	err = e.ApplyMembershipChange(MembershipChangeRequest{RequesterID: "seq-1", Add: []string{"seq-4"}})
	require.Error(t, err)

	_, err = e.VoteHead("w1", 1, "b1", "seq-2", true, 1001, "")
	require.NoError(t, err)

	err = e.ApplyMembershipChange(MembershipChangeRequest{RequesterID: "seq-1", Add: []string{"seq-4"}})
	require.NoError(t, err)
	require.Equal(t, []string{"seq-1", "seq-2", "seq-3", "seq-4"}, e.Validators())
	require.Equal(t, 3, e.QuorumThreshold())
}

func TestMembershipChangeWithLease(t *testing.T) {
	e := threeValidatorEngine()
	lease := &LeaseState{HolderID: "seq-1", LeaseID: "l1", AcquiredAtMs: 1000, ExpiresAtMs: 2000, Term: 1}

	err := e.ApplyMembershipChangeWithLease(MembershipChangeRequest{RequesterID: "seq-2", Add: []string{"seq-4"}}, lease, 1500)
	require.Error(t, err) // requester is not the holder

	err = e.ApplyMembershipChangeWithLease(MembershipChangeRequest{RequesterID: "seq-1", Add: []string{"seq-4"}}, lease, 2500)
	require.Error(t, err) // lease expired

	err = e.ApplyMembershipChangeWithLease(MembershipChangeRequest{RequesterID: "seq-1", Add: []string{"seq-4"}}, lease, 1500)
	require.NoError(t, err)
}

func TestEnsureLeaseHolderValidator(t *testing.T) {
	e := threeValidatorEngine()
	lease := &LeaseState{HolderID: "seq-9", LeaseID: "l1", AcquiredAtMs: 1000, ExpiresAtMs: 2000}

	require.NoError(t, e.EnsureLeaseHolderValidator(lease, 1500))
	require.Contains(t, e.Validators(), "seq-9")

	// Idempotent.
	require.NoError(t, e.EnsureLeaseHolderValidator(lease, 1600))
	require.Len(t, e.Validators(), 4)

	require.Error(t, e.EnsureLeaseHolderValidator(nil, 1600))
}

func TestWriterLeaseGating(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.AcquireWriterLease("w1", "node-a", "l1", 1000, 10_000)
	require.NoError(t, err)

	_, err = e.AcquireWriterLease("w1", "node-b", "l2", 5000, 10_000)
	require.Error(t, err)

	lease, err := e.AcquireWriterLease("w1", "node-b", "l3", 12_000, 10_000)
	require.NoError(t, err)
	require.Equal(t, uint64(2), lease.Term)

	holder, ok := e.LeaseHolder("w1", 13_000)
	require.True(t, ok)
	require.Equal(t, "node-b", holder)
}

func TestRingBufferPruningKeepsLatest(t *testing.T) {
	e := NewEngine(Config{Validators: []string{"v1"}, QuorumThreshold: 1, MaxRecordsPerWorld: 2})
	for h := uint64(1); h <= 4; h++ {
		_, err := e.ProposeHead("w1", h, "b", "v1", int64(h))
		require.NoError(t, err) // single-validator quorum commits immediately
	}
	_, ok := e.Get("w1", 1, "b")
	require.False(t, ok, "oldest terminal record should be pruned")
	_, ok = e.Get("w1", 4, "b")
	require.True(t, ok)

	height, hash, found := e.CommittedHead("w1")
	require.True(t, found)
	require.Equal(t, uint64(4), height)
	require.Equal(t, "b", hash)
}

func TestCommitPublishesHeadToDHT(t *testing.T) {
	e := threeValidatorEngine()
	dht := memnet.NewDHT()
	ctx := context.Background()

	head := wire.WorldHeadAnnounce{WorldID: "w1", Height: 1, BlockHash: "b1"}
	r, err := e.ProposeWorldHeadWithQuorum(ctx, dht, head, "seq-1", 1000)
	require.NoError(t, err)
	require.Equal(t, StatusPending, r.Status)

	_, found, err := dht.GetWorldHead(ctx, "w1")
	require.NoError(t, err)
	require.False(t, found, "no publish before commit")

	r, err = e.VoteWorldHeadWithQuorum(ctx, dht, "w1", 1, "b1", "seq-2", true, 1001, "")
	require.NoError(t, err)
	require.Equal(t, StatusCommitted, r.Status)

	got, found, err := dht.GetWorldHead(ctx, "w1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "b1", got.BlockHash)
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)
	_, err = e.VoteHead("w1", 1, "b1", "seq-2", true, 1001, "")
	require.NoError(t, err)
	_, err = e.ProposeHead("w1", 2, "b2", "seq-1", 1002)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "consensus.json")
	require.NoError(t, e.SaveSnapshotToPath(path))

	loaded, err := LoadSnapshotFromPath(path)
	require.NoError(t, err)
	require.Equal(t, e.Validators(), loaded.Validators())

	r, ok := loaded.Get("w1", 1, "b1")
	require.True(t, ok)
	require.Equal(t, StatusCommitted, r.Status)
	require.True(t, loaded.HasPending())

	// A resumed engine keeps enforcing the one-commit-per-height rule.
	_, err = loaded.ProposeHead("w1", 1, "b9", "seq-3", 2000)
	require.Error(t, err)
}

func TestSnapshotLoaderRejectsTamperedVotes(t *testing.T) {
	e := threeValidatorEngine()
	_, err := e.ProposeHead("w1", 1, "b1", "seq-1", 1000)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "consensus.json")
	require.NoError(t, e.SaveSnapshotToPath(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	records := doc["records"].([]any)
	votes := records[0].(map[string]any)["votes"].(map[string]any)
	vote := votes["seq-1"].(map[string]any)
	vote["validator_id"] = "mallory"
	data, err = json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = LoadSnapshotFromPath(path)
	require.Error(t, err)
}
