package membership

import (
	"math"
	"sync"

	"github.com/eng-cc/agent-world-sub008/internal/werr"
)

// ScheduleCoordinator grants a single owner the lease to run periodic
// membership work (checkpoint-and-reconcile, dead-letter replay) for a
// world at a time, preventing two nodes from double-running the same
// schedule.
type ScheduleCoordinator struct {
	mu         sync.Mutex
	holder     string
	expiresMs  int64
}

func NewScheduleCoordinator() *ScheduleCoordinator {
	return &ScheduleCoordinator{}
}

// AcquireLease grants nodeID the schedule lease until nowMs+ttlMs,
// rejecting the request if another node's lease has not yet expired,
// and rejecting ttlMs values that would overflow the int64 expiry.
func (c *ScheduleCoordinator) AcquireLease(nodeID string, nowMs, ttlMs int64) error {
	if ttlMs < 0 {
		return werr.New(werr.KindValidation, "schedule: ttl must be non-negative")
	}
	if nowMs > math.MaxInt64-ttlMs {
		return werr.New(werr.KindValidation, "schedule: lease expiry would overflow int64 (now=%d ttl=%d)", nowMs, ttlMs)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder != "" && c.holder != nodeID && nowMs < c.expiresMs {
		return werr.New(werr.KindConflict, "schedule: lease held by %s until %d", c.holder, c.expiresMs)
	}
	c.holder = nodeID
	c.expiresMs = nowMs + ttlMs
	return nil
}

// Holder reports the current lease holder as of nowMs, if unexpired.
func (c *ScheduleCoordinator) Holder(nowMs int64) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder == "" || nowMs >= c.expiresMs {
		return "", false
	}
	return c.holder, true
}

// TickSchedule gates periodic work to at most once per IntervalTicks.
// The first tick it observes always runs.
type TickSchedule struct {
	IntervalTicks uint64
	lastRun       uint64
	ran           bool
}

func NewTickSchedule(intervalTicks uint64) (*TickSchedule, error) {
	if intervalTicks == 0 {
		return nil, werr.New(werr.KindValidation, "schedule: interval must be positive")
	}
	return &TickSchedule{IntervalTicks: intervalTicks}, nil
}

// ShouldRun reports whether work is due at tick, recording the run
// when it is.
func (s *TickSchedule) ShouldRun(tick uint64) bool {
	if !s.ran {
		s.ran = true
		s.lastRun = tick
		return true
	}
	if tick-s.lastRun >= s.IntervalTicks {
		s.lastRun = tick
		return true
	}
	return false
}

// CheckpointReconcileSchedule runs a checkpoint-and-reconcile pass
// against a remote checkpoint source at most once per interval, and
// only while this node holds the schedule lease when a coordinator is
// configured.
type CheckpointReconcileSchedule struct {
	NodeID      string
	Keyring     *Keyring
	Opts        ReconcileOptions
	Coordinator *ScheduleCoordinator // nil: uncoordinated
	schedule    *TickSchedule
}

func NewCheckpointReconcileSchedule(nodeID string, keyring *Keyring, intervalTicks uint64, opts ReconcileOptions, coord *ScheduleCoordinator) (*CheckpointReconcileSchedule, error) {
	ts, err := NewTickSchedule(intervalTicks)
	if err != nil {
		return nil, err
	}
	return &CheckpointReconcileSchedule{NodeID: nodeID, Keyring: keyring, Opts: opts, Coordinator: coord, schedule: ts}, nil
}

// Tick runs one scheduled pass if due, pulling the remote checkpoint
// from fetch. Non-holders of a configured coordinator lease no-op.
func (s *CheckpointReconcileSchedule) Tick(tick uint64, nowMs int64, fetch func() (Checkpoint, error)) (*ReconcileResult, error) {
	if s.Coordinator != nil {
		holder, ok := s.Coordinator.Holder(nowMs)
		if !ok || holder != s.NodeID {
			return nil, nil
		}
	}
	if !s.schedule.ShouldRun(tick) {
		return nil, nil
	}
	remote, err := fetch()
	if err != nil {
		return nil, err
	}
	res := Reconcile(s.Keyring, remote, s.Opts)
	return &res, nil
}
