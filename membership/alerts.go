package membership

import (
	"fmt"
	"math"
	"sync"

	"github.com/eng-cc/agent-world-sub008/internal/obsmetrics"
	"github.com/eng-cc/agent-world-sub008/internal/werr"
	"github.com/eng-cc/agent-world-sub008/notify"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a membership-layer notification (revocation applied,
// reconcile divergence, schedule overrun, ...). Drained, Diverged and
// Rejected carry the counts of the pass that produced the alert.
type Alert struct {
	WorldID      string   `json:"world_id"`
	NodeID       string   `json:"node_id"`
	DetectedAtMs int64    `json:"detected_at_ms"`
	Severity     Severity `json:"severity"`
	Code         string   `json:"code"`
	Message      string   `json:"message"`
	Drained      int      `json:"drained"`
	Diverged     int      `json:"diverged"`
	Rejected     int      `json:"rejected"`
}

func alertKey(worldID, nodeID, code string) string {
	return fmt.Sprintf("%s:%s:%s", worldID, nodeID, code)
}

// Suppressor deduplicates repeated alerts of the same (world, node,
// code) key within a sliding window.
type Suppressor struct {
	mu       sync.Mutex
	windowMs int64
	lastSeen map[string]int64
}

func NewSuppressor(windowMs int64) *Suppressor {
	return &Suppressor{windowMs: windowMs, lastSeen: make(map[string]int64)}
}

// ShouldSuppress reports whether an alert with this key was already
// emitted within the suppression window, recording nowMs as the most
// recent emission time when it was not suppressed. An elapsed-time
// computation that would overflow int64 is a validation error and
// mutates nothing.
func (s *Suppressor) ShouldSuppress(worldID, nodeID, code string, nowMs int64) (bool, error) {
	key := alertKey(worldID, nodeID, code)
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastSeen[key]; ok {
		if (last < 0 && nowMs > math.MaxInt64+last) || (last > 0 && nowMs < math.MinInt64+last) {
			return false, werr.New(werr.KindValidation, "alert suppressor: elapsed time since %d would overflow at %d", last, nowMs)
		}
		if nowMs-last < s.windowMs {
			return true, nil
		}
	}
	s.lastSeen[key] = nowMs
	return false, nil
}

// AlertPipeline dedups alerts via a Suppressor and fans undeduped ones
// out through a notify.Broker.
type AlertPipeline struct {
	suppressor *Suppressor
	broker     *notify.Broker
}

func NewAlertPipeline(windowMs int64, broker *notify.Broker) *AlertPipeline {
	return &AlertPipeline{suppressor: NewSuppressor(windowMs), broker: broker}
}

// Emit publishes alert unless it is suppressed as a duplicate within
// the window, returning whether it was suppressed.
func (p *AlertPipeline) Emit(alert Alert) (suppressed bool, err error) {
	suppressed, err = p.suppressor.ShouldSuppress(alert.WorldID, alert.NodeID, alert.Code, alert.DetectedAtMs)
	if err != nil {
		return false, err
	}
	obsmetrics.MembershipAlertsTotal.WithLabelValues(alert.Code, fmt.Sprint(suppressed)).Inc()
	if suppressed {
		return true, nil
	}
	p.broker.Publish(&notify.Event{
		Kind:    notify.KindMembershipAlert,
		Message: alert.Message,
		Metadata: map[string]string{
			"world_id": alert.WorldID,
			"node_id":  alert.NodeID,
			"code":     alert.Code,
			"severity": string(alert.Severity),
		},
	})
	return false, nil
}
