package rule

import (
	"sort"

	"github.com/eng-cc/agent-world-sub008/sandbox"
	"github.com/eng-cc/agent-world-sub008/worldtypes"
)

// DefaultVisibilityRangeCm is the radius within which agents are
// mutually observable, absent an explicit override.
const DefaultVisibilityRangeCm = 500_000 // 5km

const M1VisibilityModuleID worldtypes.ModuleID = "m1.rule.visibility"

// VisibilityModule turns a QueryObservation action into an
// EmitObservation override listing every agent within range.
type VisibilityModule struct {
	VisibilityRangeCm int64
}

func NewVisibilityModule() *VisibilityModule {
	return &VisibilityModule{VisibilityRangeCm: DefaultVisibilityRangeCm}
}

func (m *VisibilityModule) ID() worldtypes.ModuleID { return M1VisibilityModuleID }

func (m *VisibilityModule) Call(in sandbox.CallInput) (*sandbox.Output, *sandbox.CallFailure) {
	if in.Action == nil {
		return &sandbox.Output{}, nil
	}
	if _, ok := in.Action.Payload.(worldtypes.QueryObservationAction); !ok {
		return &sandbox.Output{}, nil
	}
	origin := in.World.Agents[in.Action.AgentID]
	if origin == nil {
		d := worldtypes.Deny("agent position missing for visibility rule")
		return &sandbox.Output{Decision: &d}, nil
	}

	var visible []worldtypes.AgentID
	for id, a := range in.World.Agents {
		if id == in.Action.AgentID {
			continue
		}
		if origin.Position.DistanceCm(a.Position) <= m.VisibilityRangeCm {
			visible = append(visible, id)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i] < visible[j] })

	decision := worldtypes.Modify(worldtypes.EmitObservationAction{Origin: in.Action.AgentID, VisibleIDs: visible})
	return &sandbox.Output{Decision: &decision}, nil
}
