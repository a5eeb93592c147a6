// Package points settles per-epoch node contribution scores into an
// integer reward pool. Floating-point stays local to one settlement
// pass; awarded points are integers, and remainder units are handed
// out by a stable comparator (descending fractional part, then
// ascending node id) so every node computes the identical split.
package points

import (
	"math"
	"sort"
)

const (
	defaultWeightCompute     = 0.45
	defaultWeightStorage     = 0.35
	defaultWeightUptime      = 0.10
	defaultWeightReliability = 0.10

	bytesPerGiB = 1024.0 * 1024.0 * 1024.0
)

// Config tunes one ledger's settlement.
type Config struct {
	EpochDurationSeconds         uint64  `json:"epoch_duration_seconds"`
	EpochPoolPoints              uint64  `json:"epoch_pool_points"`
	MinSelfSimComputeUnits       uint64  `json:"min_self_sim_compute_units"`
	DelegatedComputeMultiplier   float64 `json:"delegated_compute_multiplier"`
	MaintenanceComputeMultiplier float64 `json:"maintenance_compute_multiplier"`
	WeightCompute                float64 `json:"weight_compute"`
	WeightStorage                float64 `json:"weight_storage"`
	WeightUptime                 float64 `json:"weight_uptime"`
	WeightReliability            float64 `json:"weight_reliability"`
	ObligationPenaltyPoints      float64 `json:"obligation_penalty_points"`
}

// DefaultConfig returns the standard settlement tuning.
func DefaultConfig() Config {
	return Config{
		EpochDurationSeconds:         3600,
		EpochPoolPoints:              1000,
		MinSelfSimComputeUnits:       1,
		DelegatedComputeMultiplier:   1.0,
		MaintenanceComputeMultiplier: 1.2,
		WeightCompute:                defaultWeightCompute,
		WeightStorage:                defaultWeightStorage,
		WeightUptime:                 defaultWeightUptime,
		WeightReliability:            defaultWeightReliability,
		ObligationPenaltyPoints:      5.0,
	}
}

// normalizedWeights scales the four weights to sum to one, falling
// back to the defaults when every weight is zero or negative.
func (c Config) normalizedWeights() (wc, ws, wu, wr float64) {
	wc = math.Max(c.WeightCompute, 0)
	ws = math.Max(c.WeightStorage, 0)
	wu = math.Max(c.WeightUptime, 0)
	wr = math.Max(c.WeightReliability, 0)
	sum := wc + ws + wu + wr
	if sum <= math.SmallestNonzeroFloat64 {
		return defaultWeightCompute, defaultWeightStorage, defaultWeightUptime, defaultWeightReliability
	}
	return wc / sum, ws / sum, wu / sum, wr / sum
}

// ContributionSample is one node's measured contribution within an
// epoch.
type ContributionSample struct {
	NodeID                       string  `json:"node_id"`
	SelfSimComputeUnits          uint64  `json:"self_sim_compute_units"`
	DelegatedSimComputeUnits     uint64  `json:"delegated_sim_compute_units"`
	WorldMaintenanceComputeUnits uint64  `json:"world_maintenance_compute_units"`
	EffectiveStorageBytes        uint64  `json:"effective_storage_bytes"`
	UptimeSeconds                uint64  `json:"uptime_seconds"`
	VerifyPassRatio              float64 `json:"verify_pass_ratio"`
	AvailabilityRatio            float64 `json:"availability_ratio"`
	ExplicitPenaltyPoints        float64 `json:"explicit_penalty_points"`
}

// Settlement is one node's result for one epoch.
type Settlement struct {
	NodeID           string  `json:"node_id"`
	ObligationMet    bool    `json:"obligation_met"`
	ComputeScore     float64 `json:"compute_score"`
	StorageScore     float64 `json:"storage_score"`
	UptimeScore      float64 `json:"uptime_score"`
	ReliabilityScore float64 `json:"reliability_score"`
	PenaltyScore     float64 `json:"penalty_score"`
	TotalScore       float64 `json:"total_score"`
	AwardedPoints    uint64  `json:"awarded_points"`
	CumulativePoints uint64  `json:"cumulative_points"`
}

// EpochSettlementReport is a full epoch's settlement, in the order the
// samples were submitted.
type EpochSettlementReport struct {
	EpochIndex        uint64       `json:"epoch_index"`
	PoolPoints        uint64       `json:"pool_points"`
	DistributedPoints uint64       `json:"distributed_points"`
	Settlements       []Settlement `json:"settlements"`
}

// Ledger accumulates awarded points per node across epochs.
type Ledger struct {
	config     Config
	epochIndex uint64
	cumulative map[string]uint64
}

func NewLedger(config Config) *Ledger {
	return &Ledger{config: config, cumulative: make(map[string]uint64)}
}

func (l *Ledger) Config() Config { return l.config }

func (l *Ledger) EpochIndex() uint64 { return l.epochIndex }

// CumulativePoints returns the total points awarded to nodeID so far.
func (l *Ledger) CumulativePoints(nodeID string) uint64 {
	return l.cumulative[nodeID]
}

// SettleEpoch scores every sample, splits the epoch pool pro rata,
// hands out the remainder units deterministically, and folds the
// awards into the cumulative ledger.
func (l *Ledger) SettleEpoch(samples []ContributionSample) EpochSettlementReport {
	settlements := make([]Settlement, len(samples))
	totalScore := 0.0
	for i, sample := range samples {
		settlements[i] = l.buildSettlement(sample)
		totalScore += settlements[i].TotalScore
	}

	distributed := allocateAwards(l.config.EpochPoolPoints, totalScore, settlements)

	for i := range settlements {
		cum := l.cumulative[settlements[i].NodeID] + settlements[i].AwardedPoints
		l.cumulative[settlements[i].NodeID] = cum
		settlements[i].CumulativePoints = cum
	}

	report := EpochSettlementReport{
		EpochIndex:        l.epochIndex,
		PoolPoints:        l.config.EpochPoolPoints,
		DistributedPoints: distributed,
		Settlements:       settlements,
	}
	l.epochIndex++
	return report
}

func (l *Ledger) buildSettlement(sample ContributionSample) Settlement {
	verifyPass := clampRatio(sample.VerifyPassRatio)
	availability := clampRatio(sample.AvailabilityRatio)

	computeUnits := float64(sample.DelegatedSimComputeUnits)*math.Max(l.config.DelegatedComputeMultiplier, 0) +
		float64(sample.WorldMaintenanceComputeUnits)*math.Max(l.config.MaintenanceComputeMultiplier, 0)
	computeScore := math.Max(computeUnits, 0) * verifyPass

	storageGiB := float64(sample.EffectiveStorageBytes) / bytesPerGiB
	storageScore := math.Sqrt(math.Max(storageGiB, 0)) * availability

	uptimeScore := 0.0
	if l.config.EpochDurationSeconds > 0 {
		uptimeScore = math.Min(float64(sample.UptimeSeconds)/float64(l.config.EpochDurationSeconds), 1.0)
	}

	reliabilityScore := (verifyPass + availability) / 2

	obligationMet := sample.SelfSimComputeUnits >= l.config.MinSelfSimComputeUnits
	penalty := math.Max(sample.ExplicitPenaltyPoints, 0)
	if !obligationMet {
		penalty += math.Max(l.config.ObligationPenaltyPoints, 0)
	}

	wc, ws, wu, wr := l.config.normalizedWeights()
	total := math.Max(wc*computeScore+ws*storageScore+wu*uptimeScore+wr*reliabilityScore-penalty, 0)

	return Settlement{
		NodeID:           sample.NodeID,
		ObligationMet:    obligationMet,
		ComputeScore:     computeScore,
		StorageScore:     storageScore,
		UptimeScore:      uptimeScore,
		ReliabilityScore: reliabilityScore,
		PenaltyScore:     penalty,
		TotalScore:       total,
	}
}

type remainderEntry struct {
	settlementIndex int
	nodeID          string
	fractional      float64
}

// allocateAwards floor-divides the pool pro rata by score, then hands
// the leftover units out one at a time by descending fractional part,
// ties broken by ascending node id. Returns the distributed total.
func allocateAwards(poolPoints uint64, totalScore float64, settlements []Settlement) uint64 {
	if poolPoints == 0 || totalScore <= math.SmallestNonzeroFloat64 || len(settlements) == 0 {
		return 0
	}

	var distributed uint64
	remainders := make([]remainderEntry, 0, len(settlements))
	for i := range settlements {
		if settlements[i].TotalScore <= 0 {
			remainders = append(remainders, remainderEntry{settlementIndex: i, nodeID: settlements[i].NodeID})
			continue
		}
		exact := float64(poolPoints) * settlements[i].TotalScore / totalScore
		floor := uint64(math.Floor(exact))
		settlements[i].AwardedPoints = floor
		distributed += floor
		remainders = append(remainders, remainderEntry{
			settlementIndex: i,
			nodeID:          settlements[i].NodeID,
			fractional:      exact - float64(floor),
		})
	}

	remaining := poolPoints - distributed
	sort.SliceStable(remainders, func(i, j int) bool {
		if remainders[i].fractional != remainders[j].fractional {
			return remainders[i].fractional > remainders[j].fractional
		}
		return remainders[i].nodeID < remainders[j].nodeID
	})

	for _, entry := range remainders {
		if remaining == 0 {
			break
		}
		if settlements[entry.settlementIndex].TotalScore <= 0 {
			continue
		}
		settlements[entry.settlementIndex].AwardedPoints++
		distributed++
		remaining--
	}
	return distributed
}

func clampRatio(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
