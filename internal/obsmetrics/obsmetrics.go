// Package obsmetrics declares the runtime's prometheus metrics as
// package-level collectors plus a Timer helper; it has no polling
// collector loop.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	KernelTicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentworld_kernel_ticks_total",
		Help: "Total number of kernel ticks advanced.",
	}, []string{"world_id"})

	ActionsProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentworld_actions_processed_total",
		Help: "Total number of actions processed by the kernel, by verdict.",
	}, []string{"world_id", "verdict"})

	ModuleCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "agentworld_module_call_duration_seconds",
		Help: "Duration of builtin module calls.",
	}, []string{"module_id"})

	CASOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentworld_cas_operations_total",
		Help: "CAS put/get operations by result.",
	}, []string{"op", "result"})

	ReplicationAdmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentworld_replication_admissions_total",
		Help: "Replication guard admit/reject decisions.",
	}, []string{"result"})

	ConsensusRecordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentworld_consensus_records_total",
		Help: "Consensus records by terminal status.",
	}, []string{"status"})

	MembershipAlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agentworld_membership_alerts_total",
		Help: "Membership alerts emitted, by dedup outcome.",
	}, []string{"code", "suppressed"})

	DeadLetterReplayAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agentworld_membership_deadletter_replay_attempts_total",
		Help: "Dead-letter replay attempts across all workers.",
	})
)

// MustRegister registers every metric declared in this package against
// reg. Call once from the process that owns the prometheus registry.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		KernelTicksTotal,
		ActionsProcessedTotal,
		ModuleCallDuration,
		CASOperationsTotal,
		ReplicationAdmissionsTotal,
		ConsensusRecordsTotal,
		MembershipAlertsTotal,
		DeadLetterReplayAttemptsTotal,
	)
}

// Timer measures an operation's duration and feeds it to an Observer
// on Stop.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

func NewTimer(o prometheus.Observer) *Timer {
	return &Timer{start: time.Now(), observer: o}
}

func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(d.Seconds())
	}
	return d
}
