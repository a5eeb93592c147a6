package consensus

import (
	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// WriterLease gates which node is currently allowed to propose new
// heads for a world, preventing two nodes from racing to commit at the
// same height.
type WriterLease struct {
	State LeaseState
}

// AcquireWriterLease grants writerID a lease for worldID valid for
// ttlMs, rejecting the request while another writer's unexpired lease
// stands. Re-acquisition by the current holder extends the window and
// bumps the term.
func (e *Engine) AcquireWriterLease(worldID, writerID, leaseID string, nowMs, ttlMs int64) (*LeaseState, error) {
	if ttlMs <= 0 {
		return nil, werr.New(werr.KindValidation, "consensus: lease ttl must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cur, ok := e.leases[worldID]
	if ok && cur.State.HolderID != writerID && nowMs <= cur.State.ExpiresAtMs {
		return nil, werr.New(werr.KindConflict, "consensus: writer lease for world %s held by %s until %d", worldID, cur.State.HolderID, cur.State.ExpiresAtMs)
	}
	var term uint64 = 1
	if ok {
		term = cur.State.Term + 1
	}
	lease := &WriterLease{State: LeaseState{
		HolderID:     writerID,
		LeaseID:      leaseID,
		AcquiredAtMs: nowMs,
		ExpiresAtMs:  nowMs + ttlMs,
		Term:         term,
	}}
	e.leases[worldID] = lease
	state := lease.State
	return &state, nil
}

// LeaseHolder returns the current writer lease holder for worldID, if
// any and if it has not expired as of nowMs.
func (e *Engine) LeaseHolder(worldID string, nowMs int64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.leases[worldID]
	if !ok || !l.State.Valid(nowMs) {
		return "", false
	}
	return l.State.HolderID, true
}
