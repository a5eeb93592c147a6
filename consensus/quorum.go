// Package consensus implements crash-fault quorum voting over
// (world_id, height, block_hash) commit proposals, independent of
// hashicorp/raft's single-leader log replication model (see kernel's
// raft.FSM adapter for that).
package consensus

import (
	"sort"
	"sync"

	"github.com/eng-cc/agent-world-sub008/internal/obsmetrics"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// Status is a ConsensusRecord's terminal or in-flight state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCommitted Status = "committed"
	StatusRejected  Status = "rejected"
)

// Vote is one validator's recorded position on a proposal.
type Vote struct {
	ValidatorID string `cbor:"validator_id" json:"validator_id"`
	Approve     bool   `cbor:"approve" json:"approve"`
	AtMs        int64  `cbor:"at_ms" json:"at_ms"`
	Reason      string `cbor:"reason,omitempty" json:"reason,omitempty"`
}

// Record tracks one proposed head's vote tally. The proposer's own
// approval is counted at proposal time.
type Record struct {
	WorldID         string          `cbor:"world_id" json:"world_id"`
	Height          uint64          `cbor:"height" json:"height"`
	BlockHash       string          `cbor:"block_hash" json:"block_hash"`
	ProposerID      string          `cbor:"proposer_id" json:"proposer_id"`
	ProposedAtMs    int64           `cbor:"proposed_at_ms" json:"proposed_at_ms"`
	Status          Status          `cbor:"status" json:"status"`
	ValidatorSet    []string        `cbor:"validator_set" json:"validator_set"`
	QuorumThreshold int             `cbor:"quorum_threshold" json:"quorum_threshold"`
	Votes           map[string]Vote `cbor:"votes" json:"votes"`
}

func (r *Record) approvals() int {
	n := 0
	for _, v := range r.Votes {
		if v.Approve {
			n++
		}
	}
	return n
}

func (r *Record) rejections() int {
	n := 0
	for _, v := range r.Votes {
		if !v.Approve {
			n++
		}
	}
	return n
}

type recordKey struct {
	worldID   string
	height    uint64
	blockHash string
}

// Config sets up an Engine's validator set and thresholds.
type Config struct {
	Validators         []string
	QuorumThreshold    int // 0 means simple majority of Validators
	MaxRecordsPerWorld int // 0 means unbounded
}

// MajorityThreshold is the default quorum size for n validators.
func MajorityThreshold(n int) int { return n/2 + 1 }

// Engine holds the validator set and every in-flight and terminal
// consensus record for every world it has seen.
type Engine struct {
	mu         sync.Mutex
	validators []string
	threshold  int
	maxRecords int
	records    map[recordKey]*Record
	order      map[string][]recordKey // per-world insertion order, for pruning
	leases     map[string]*WriterLease
}

func NewEngine(cfg Config) *Engine {
	threshold := cfg.QuorumThreshold
	if threshold <= 0 {
		threshold = MajorityThreshold(len(cfg.Validators))
	}
	return &Engine{
		validators: append([]string(nil), cfg.Validators...),
		threshold:  threshold,
		maxRecords: cfg.MaxRecordsPerWorld,
		records:    make(map[recordKey]*Record),
		order:      make(map[string][]recordKey),
		leases:     make(map[string]*WriterLease),
	}
}

// Validators returns the current validator set, sorted.
func (e *Engine) Validators() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]string(nil), e.validators...)
	sort.Strings(out)
	return out
}

// QuorumThreshold returns the current quorum size.
func (e *Engine) QuorumThreshold() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.threshold
}

// ProposeHead opens a Pending record for (worldID, height, blockHash)
// carrying the proposer's own approval. It fails when the proposer is
// not a validator, when a Committed record already exists at that
// height, or when a conflicting Pending proposal (different hash)
// exists. Re-proposing the identical triple returns the existing
// record.
func (e *Engine) ProposeHead(worldID string, height uint64, blockHash, proposerID string, nowMs int64) (*Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isValidatorLocked(proposerID) {
		return nil, werr.New(werr.KindUnauthorized, "consensus: proposer %s is not a validator", proposerID)
	}
	for _, key := range e.order[worldID] {
		if key.height != height {
			continue
		}
		r := e.records[key]
		if r == nil {
			continue
		}
		switch {
		case r.Status == StatusCommitted:
			return nil, werr.New(werr.KindConflict, "consensus: height %d of world %s is already committed to %s", height, worldID, r.BlockHash)
		case r.Status == StatusPending && r.BlockHash != blockHash:
			return nil, werr.New(werr.KindConflict, "consensus: conflicting pending proposal %s at height %d of world %s", r.BlockHash, height, worldID)
		case r.Status == StatusPending && r.BlockHash == blockHash:
			return r, nil
		}
	}

	r := &Record{
		WorldID:         worldID,
		Height:          height,
		BlockHash:       blockHash,
		ProposerID:      proposerID,
		ProposedAtMs:    nowMs,
		Status:          StatusPending,
		ValidatorSet:    append([]string(nil), e.validators...),
		QuorumThreshold: e.threshold,
		Votes: map[string]Vote{
			proposerID: {ValidatorID: proposerID, Approve: true, AtMs: nowMs},
		},
	}
	key := recordKey{worldID, height, blockHash}
	e.records[key] = r
	e.order[worldID] = append(e.order[worldID], key)
	e.pruneLocked(worldID)
	e.resolveLocked(r)
	return r, nil
}

// VoteHead records one validator's vote on a pending proposal and
// advances its status to Committed or Rejected when the vote resolves
// the quorum question. Each validator votes at most once per record;
// votes on terminal records are rejected.
func (e *Engine) VoteHead(worldID string, height uint64, blockHash, validatorID string, approve bool, nowMs int64, reason string) (*Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.records[recordKey{worldID, height, blockHash}]
	if !ok {
		return nil, werr.New(werr.KindNotFound, "consensus: no proposal for world %s height %d hash %s", worldID, height, blockHash)
	}
	if r.Status != StatusPending {
		return nil, werr.New(werr.KindConflict, "consensus: proposal for world %s height %d is already %s", worldID, height, r.Status)
	}
	if !containsValidator(r.ValidatorSet, validatorID) {
		return nil, werr.New(werr.KindUnauthorized, "consensus: %s is not a validator for world %s", validatorID, worldID)
	}
	if _, voted := r.Votes[validatorID]; voted {
		return nil, werr.New(werr.KindConflict, "consensus: %s already voted on world %s height %d", validatorID, worldID, height)
	}

	r.Votes[validatorID] = Vote{ValidatorID: validatorID, Approve: approve, AtMs: nowMs, Reason: reason}
	e.resolveLocked(r)
	return r, nil
}

// resolveLocked folds the current tally into a status transition.
func (e *Engine) resolveLocked(r *Record) {
	if r.Status != StatusPending {
		return
	}
	switch {
	case r.approvals() >= r.QuorumThreshold:
		r.Status = StatusCommitted
	case len(r.ValidatorSet)-r.rejections() < r.QuorumThreshold:
		r.Status = StatusRejected
	}
	if r.Status != StatusPending {
		obsmetrics.ConsensusRecordsTotal.WithLabelValues(string(r.Status)).Inc()
	}
}

// pruneLocked evicts the oldest terminal records of worldID past the
// per-world cap. Pending records are never evicted.
func (e *Engine) pruneLocked(worldID string) {
	if e.maxRecords <= 0 {
		return
	}
	keys := e.order[worldID]
	for len(keys) > e.maxRecords {
		evicted := false
		for i, key := range keys {
			r := e.records[key]
			if r != nil && r.Status == StatusPending {
				continue
			}
			delete(e.records, key)
			keys = append(keys[:i], keys[i+1:]...)
			evicted = true
			break
		}
		if !evicted {
			break
		}
	}
	e.order[worldID] = keys
}

func (e *Engine) isValidatorLocked(id string) bool {
	return containsValidator(e.validators, id)
}

func containsValidator(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

// HasPending reports whether any world has a non-terminal proposal.
// Membership changes are refused while one exists.
func (e *Engine) HasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasPendingLocked()
}

func (e *Engine) hasPendingLocked() bool {
	for _, r := range e.records {
		if r.Status == StatusPending {
			return true
		}
	}
	return false
}

// Get returns the record for (worldID, height, blockHash), if any.
func (e *Engine) Get(worldID string, height uint64, blockHash string) (*Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[recordKey{worldID, height, blockHash}]
	return r, ok
}

// CommittedHead returns the highest committed (height, blockHash) for
// worldID, if any height has committed.
func (e *Engine) CommittedHead(worldID string) (uint64, string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var best *Record
	for _, key := range e.order[worldID] {
		r := e.records[key]
		if r == nil || r.Status != StatusCommitted {
			continue
		}
		if best == nil || r.Height > best.Height {
			best = r
		}
	}
	if best == nil {
		return 0, "", false
	}
	return best.Height, best.BlockHash, true
}
