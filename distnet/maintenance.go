package distnet

import (
	"context"
	"fmt"
	"sort"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/wire"
)

// ReplicaMaintenancePolicy tunes one planning round.
type ReplicaMaintenancePolicy struct {
	TargetReplicasPerBlob  int
	MaxRepairsPerRound     int
	MaxRebalancesPerRound  int
	RebalanceSourceLoadMin float64 // providers at or above this load shed replicas
	RebalanceTargetLoadMax float64 // providers at or below this load absorb them
}

// DefaultReplicaMaintenancePolicy returns the standard tuning.
func DefaultReplicaMaintenancePolicy() ReplicaMaintenancePolicy {
	return ReplicaMaintenancePolicy{
		TargetReplicasPerBlob:  3,
		MaxRepairsPerRound:     32,
		MaxRebalancesPerRound:  32,
		RebalanceSourceLoadMin: 0.85,
		RebalanceTargetLoadMax: 0.45,
	}
}

// ReplicaTransferKind classifies a planned transfer.
type ReplicaTransferKind string

const (
	TransferRepair    ReplicaTransferKind = "repair"
	TransferRebalance ReplicaTransferKind = "rebalance"
)

// ReplicaTransferTask is one planned blob copy between providers.
type ReplicaTransferTask struct {
	Kind         ReplicaTransferKind
	ContentHash  string
	SourceNodeID string
	TargetNodeID string
}

// ReplicaMaintenancePlan is the output of one planning round: repairs
// restore under-replicated blobs, rebalances move replicas off
// overloaded providers, and warnings name blobs the round could not
// fully serve.
type ReplicaMaintenancePlan struct {
	RepairTasks    []ReplicaTransferTask
	RebalanceTasks []ReplicaTransferTask
	Warnings       []string
}

// PlanReplicaMaintenance consults the DHT's provider records for every
// content hash and emits the repair and rebalance transfers one round
// may execute. Planning is pure over the fetched records; iteration
// orders are sorted so every node computes the identical plan.
func PlanReplicaMaintenance(ctx context.Context, dht DHT, worldID string, contentHashes []string, policy ReplicaMaintenancePolicy) (ReplicaMaintenancePlan, error) {
	if policy.TargetReplicasPerBlob <= 0 {
		return ReplicaMaintenancePlan{}, werr.New(werr.KindValidation, "replica maintenance policy requires target_replicas_per_blob > 0")
	}
	hashes := normalizeHashes(contentHashes)
	if len(hashes) == 0 {
		return ReplicaMaintenancePlan{}, werr.New(werr.KindValidation, "replica maintenance requires at least one content hash")
	}

	providersByHash := make(map[string][]wire.ProviderRecord, len(hashes))
	for _, hash := range hashes {
		providers, err := dht.GetProviders(ctx, worldID, hash)
		if err != nil {
			return ReplicaMaintenancePlan{}, err
		}
		providersByHash[hash] = DedupByFreshness(providers)
	}

	var plan ReplicaMaintenancePlan
	planRepairTasks(hashes, providersByHash, policy, &plan)
	planRebalanceTasks(hashes, providersByHash, policy, &plan)
	return plan, nil
}

func planRepairTasks(hashes []string, providersByHash map[string][]wire.ProviderRecord, policy ReplicaMaintenancePolicy, plan *ReplicaMaintenancePlan) {
	if policy.MaxRepairsPerRound <= 0 {
		return
	}
	allCandidates := collectGlobalCandidates(hashes, providersByHash)

	for _, hash := range hashes {
		if len(plan.RepairTasks) >= policy.MaxRepairsPerRound {
			return
		}
		providers := providersByHash[hash]
		if len(providers) >= policy.TargetReplicasPerBlob {
			continue
		}
		if len(providers) == 0 {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("repair planning skipped for content_hash=%s: no source provider", hash))
			continue
		}
		source := providers[0] // freshest first, per DedupByFreshness

		holding := make(map[string]bool, len(providers))
		for _, p := range providers {
			holding[p.NodeID] = true
		}

		needed := policy.TargetReplicasPerBlob - len(providers)
		produced := 0
		for _, target := range allCandidates {
			if produced >= needed || len(plan.RepairTasks) >= policy.MaxRepairsPerRound {
				break
			}
			if holding[target.NodeID] {
				continue
			}
			holding[target.NodeID] = true
			plan.RepairTasks = append(plan.RepairTasks, ReplicaTransferTask{
				Kind:         TransferRepair,
				ContentHash:  hash,
				SourceNodeID: source.NodeID,
				TargetNodeID: target.NodeID,
			})
			produced++
		}
		if produced < needed {
			plan.Warnings = append(plan.Warnings, fmt.Sprintf("repair planning insufficient targets for content_hash=%s: needed=%d, planned=%d", hash, needed, produced))
		}
	}
}

func planRebalanceTasks(hashes []string, providersByHash map[string][]wire.ProviderRecord, policy ReplicaMaintenancePolicy, plan *ReplicaMaintenancePlan) {
	if policy.MaxRebalancesPerRound <= 0 {
		return
	}
	allCandidates := collectGlobalCandidates(hashes, providersByHash)
	var underloaded []wire.ProviderRecord
	for _, record := range allCandidates {
		if record.LoadRatio <= policy.RebalanceTargetLoadMax {
			underloaded = append(underloaded, record)
		}
	}

	taskKeys := make(map[string]bool, len(plan.RepairTasks))
	for _, task := range plan.RepairTasks {
		taskKeys[task.ContentHash+"\x00"+task.TargetNodeID] = true
	}

	for _, hash := range hashes {
		if len(plan.RebalanceTasks) >= policy.MaxRebalancesPerRound {
			return
		}
		providers := providersByHash[hash]

		source, ok := hottestSource(providers, policy.RebalanceSourceLoadMin)
		if !ok {
			continue
		}

		holding := make(map[string]bool, len(providers))
		for _, p := range providers {
			holding[p.NodeID] = true
		}
		target, ok := coolestTarget(underloaded, holding)
		if !ok {
			continue
		}

		key := hash + "\x00" + target.NodeID
		if taskKeys[key] {
			continue
		}
		taskKeys[key] = true
		plan.RebalanceTasks = append(plan.RebalanceTasks, ReplicaTransferTask{
			Kind:         TransferRebalance,
			ContentHash:  hash,
			SourceNodeID: source.NodeID,
			TargetNodeID: target.NodeID,
		})
	}
}

// hottestSource picks the most loaded provider at or above the shed
// threshold, ties broken by freshness then ascending node id.
func hottestSource(providers []wire.ProviderRecord, loadMin float64) (wire.ProviderRecord, bool) {
	var best wire.ProviderRecord
	found := false
	for _, record := range providers {
		if record.LoadRatio < loadMin {
			continue
		}
		if !found || record.LoadRatio > best.LoadRatio ||
			(record.LoadRatio == best.LoadRatio && record.LastSeenMs > best.LastSeenMs) ||
			(record.LoadRatio == best.LoadRatio && record.LastSeenMs == best.LastSeenMs && record.NodeID < best.NodeID) {
			best = record
			found = true
		}
	}
	return best, found
}

// coolestTarget picks the least loaded candidate not already holding
// the blob, ties broken by freshness then ascending node id.
func coolestTarget(candidates []wire.ProviderRecord, holding map[string]bool) (wire.ProviderRecord, bool) {
	var best wire.ProviderRecord
	found := false
	for _, record := range candidates {
		if holding[record.NodeID] {
			continue
		}
		if !found || record.LoadRatio < best.LoadRatio ||
			(record.LoadRatio == best.LoadRatio && record.LastSeenMs > best.LastSeenMs) ||
			(record.LoadRatio == best.LoadRatio && record.LastSeenMs == best.LastSeenMs && record.NodeID < best.NodeID) {
			best = record
			found = true
		}
	}
	return best, found
}

// collectGlobalCandidates merges every hash's provider list into one
// per-node view keyed to the freshest record, sorted by freshness for
// deterministic target selection. Merging walks the sorted hash order
// so ties on LastSeenMs resolve identically on every node.
func collectGlobalCandidates(hashes []string, providersByHash map[string][]wire.ProviderRecord) []wire.ProviderRecord {
	byNode := make(map[string]wire.ProviderRecord)
	for _, hash := range hashes {
		for _, record := range providersByHash[hash] {
			existing, ok := byNode[record.NodeID]
			if !ok || record.LastSeenMs > existing.LastSeenMs {
				byNode[record.NodeID] = record
			}
		}
	}
	out := make([]wire.ProviderRecord, 0, len(byNode))
	for _, record := range byNode {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeenMs != out[j].LastSeenMs {
			return out[i].LastSeenMs > out[j].LastSeenMs
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

// normalizeHashes dedups and sorts the requested hash set.
func normalizeHashes(contentHashes []string) []string {
	seen := make(map[string]bool, len(contentHashes))
	var out []string
	for _, hash := range contentHashes {
		if hash == "" || seen[hash] {
			continue
		}
		seen[hash] = true
		out = append(out, hash)
	}
	sort.Strings(out)
	return out
}
