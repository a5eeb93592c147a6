package consensus

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// MembershipChangeRequest adds and/or removes validators. Threshold is
// recomputed as a simple majority of the resulting set.
type MembershipChangeRequest struct {
	RequesterID string
	Add         []string
	Remove      []string
}

// LeaseState is the consensus writer lease: only its holder may drive
// membership changes while proposals are quiesced.
type LeaseState struct {
	HolderID     string `cbor:"holder_id" json:"holder_id"`
	LeaseID      string `cbor:"lease_id" json:"lease_id"`
	AcquiredAtMs int64  `cbor:"acquired_at_ms" json:"acquired_at_ms"`
	ExpiresAtMs  int64  `cbor:"expires_at_ms" json:"expires_at_ms"`
	Term         uint64 `cbor:"term" json:"term"`
}

// Valid reports whether the lease window covers nowMs.
func (l *LeaseState) Valid(nowMs int64) bool {
	return l != nil && l.AcquiredAtMs <= nowMs && nowMs <= l.ExpiresAtMs
}

// ApplyMembershipChange mutates the validator set. It is refused while
// any Pending record exists anywhere, since in-flight proposals carry
// a frozen copy of the set they were tallied against.
func (e *Engine) ApplyMembershipChange(req MembershipChangeRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyMembershipChangeLocked(req)
}

func (e *Engine) applyMembershipChangeLocked(req MembershipChangeRequest) error {
	if e.hasPendingLocked() {
		return werr.New(werr.KindConflict, "consensus: membership change refused while proposals are pending")
	}

	next := make([]string, 0, len(e.validators)+len(req.Add))
	removed := make(map[string]bool, len(req.Remove))
	for _, id := range req.Remove {
		removed[id] = true
	}
	for _, id := range e.validators {
		if !removed[id] {
			next = append(next, id)
		}
	}
	for _, id := range req.Add {
		if !containsValidator(next, id) {
			next = append(next, id)
		}
	}
	if len(next) == 0 {
		return werr.New(werr.KindValidation, "consensus: membership change would empty the validator set")
	}

	e.validators = next
	e.threshold = MajorityThreshold(len(next))
	return nil
}

// ApplyMembershipChangeWithLease is ApplyMembershipChange gated on a
// writer lease: when lease is non-nil the requester must be its holder
// and the lease window must cover nowMs. A nil lease falls back to the
// ungated path.
func (e *Engine) ApplyMembershipChangeWithLease(req MembershipChangeRequest, lease *LeaseState, nowMs int64) error {
	if lease != nil {
		if req.RequesterID != lease.HolderID {
			return werr.New(werr.KindUnauthorized, "consensus: requester %s does not hold lease %s", req.RequesterID, lease.LeaseID)
		}
		if !lease.Valid(nowMs) {
			return werr.New(werr.KindUnauthorized, "consensus: lease %s is outside its validity window", lease.LeaseID)
		}
	}
	return e.ApplyMembershipChange(req)
}

// EnsureLeaseHolderValidator idempotently adds a valid lease's holder
// to the validator set, so a freshly elected writer can immediately
// propose.
func (e *Engine) EnsureLeaseHolderValidator(lease *LeaseState, nowMs int64) error {
	if !lease.Valid(nowMs) {
		return werr.New(werr.KindUnauthorized, "consensus: lease is absent or outside its validity window")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.isValidatorLocked(lease.HolderID) {
		return nil
	}
	if e.hasPendingLocked() {
		return werr.New(werr.KindConflict, "consensus: membership change refused while proposals are pending")
	}
	e.validators = append(e.validators, lease.HolderID)
	e.threshold = MajorityThreshold(len(e.validators))
	return nil
}
