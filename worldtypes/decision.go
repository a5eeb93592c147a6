package worldtypes

// Verdict is the outcome a rule module assigns to an action.
type Verdict string

const (
	VerdictAllow Verdict = "allow"
	VerdictDeny  Verdict = "deny"
	VerdictModify Verdict = "modify"
)

// RuleDecision is what a rule module's handle_action call returns: a
// verdict, the resource cost to debit (if any), and, for Modify, an
// action to substitute for the original.
type RuleDecision struct {
	Verdict        Verdict
	Reason         string
	ResourceDelta  ResourceDelta
	OverrideAction ActionPayload
}

// Allow builds an Allow decision with no cost.
func Allow() RuleDecision { return RuleDecision{Verdict: VerdictAllow} }

// Deny builds a Deny decision with reason.
func Deny(reason string) RuleDecision { return RuleDecision{Verdict: VerdictDeny, Reason: reason} }

// Modify builds a Modify decision that substitutes override for the
// original action.
func Modify(override ActionPayload) RuleDecision {
	return RuleDecision{Verdict: VerdictModify, OverrideAction: override}
}

// WithCost attaches a resource delta (typically negative, a debit) to
// an otherwise-built decision.
func (d RuleDecision) WithCost(delta ResourceDelta) RuleDecision {
	d.ResourceDelta = delta
	return d
}
